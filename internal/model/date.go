package model

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire format of logical dates.
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned for dates not in DateLayout.
var ErrInvalidDate = errors.New("invalid date")

// Clock is the subset of clock.Clock needed to resolve "today".
type Clock interface {
	Now() time.Time
}

// Today returns the current calendar date in the clock's local time.
func Today(c Clock) string {
	return c.Now().Format(DateLayout)
}

// ValidateDate checks that s is a real calendar date in DateLayout.
func ValidateDate(s string) error {
	_, err := ParseDate(s)
	return err
}

// ParseDate parses a logical date in DateLayout.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: want YYYY-MM-DD", ErrInvalidDate, s)
	}
	return t, nil
}
