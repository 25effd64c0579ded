package harness

import (
	"fmt"
	"strings"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/testutil"
)

// AssertionError describes one failed assertion.
type AssertionError struct {
	Index    int
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "assertions[%d] failed: %s\n", e.Index, e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against the harness state and
// returns the failure messages in order.
func EvaluateAssertions(h *Harness, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(h, a); err != nil {
			err.Index = i
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func evaluate(h *Harness, a Assertion) *AssertionError {
	switch a.Type {
	case AssertDisplayValue:
		got := h.app.Reads.ResolveDisplayValue(a.Habit, a.Date, a.Confirmed)
		return expectBool(a, fmt.Sprintf("habit %d on %s displays", a.Habit, a.Date), got)
	case AssertProvisional:
		got := h.app.Reads.IsProvisional(a.Habit, a.Date)
		return expectBool(a, fmt.Sprintf("habit %d on %s provisional", a.Habit, a.Date), got)
	case AssertServerState:
		got := h.backend.Completed(a.Habit, a.Date)
		return expectBool(a, fmt.Sprintf("server has habit %d on %s completed", a.Habit, a.Date), got)
	case AssertCacheMiss:
		_, cached := h.app.Responses.Peek(h.app.Responses.Key(a.Habit, "status_"+a.Date))
		want := a.Expect == nil || *a.Expect
		if (!cached) != want {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("status cache miss for habit %d on %s = %t", a.Habit, a.Date, want),
				Actual:   fmt.Sprintf("cached = %t", cached),
			}
		}
	case AssertQueueSize:
		return expectCount(a, "queue size", h.app.Queue.Len())
	case AssertFailedCount:
		return expectCount(a, "failed items", len(h.app.Queue.Failed()))
	case AssertWriteCalls:
		n := h.backend.CallCount(testutil.OpToggle) +
			h.backend.CallCount(testutil.OpComplete) +
			h.backend.CallCount(testutil.OpBulk)
		return expectCount(a, "write calls", n)
	default:
		return &AssertionError{Type: a.Type, Expected: "known assertion type", Actual: a.Type}
	}
	return nil
}

func expectBool(a Assertion, what string, got bool) *AssertionError {
	if got == *a.Expect {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s = %t", what, *a.Expect),
		Actual:   fmt.Sprintf("%t", got),
	}
}

func expectCount(a Assertion, what string, got int) *AssertionError {
	if got == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s = %d", what, *a.Count),
		Actual:   fmt.Sprintf("%d", got),
	}
}
