package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeNotes trims surrounding whitespace and converts free-text notes
// to NFC so that visually identical notes compare equal on the server.
func NormalizeNotes(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
