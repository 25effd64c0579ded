package harness

import (
	"fmt"
	"strings"
)

// Trace event types.
const (
	EventStep   = "step"
	EventCall   = "call"
	EventQueue  = "queue"
	EventResult = "result"
)

// TraceEvent is one line of a scenario trace.
type TraceEvent struct {
	Seq  int    `json:"seq"`
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace lists steps, server calls, queue changes and step results in
	// the order they happened.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Render formats a trace as the text stored in golden files.
func Render(scenarioName string, trace []TraceEvent) []byte {
	var buf strings.Builder
	fmt.Fprintf(&buf, "scenario: %s\n", scenarioName)
	for _, e := range trace {
		fmt.Fprintf(&buf, "%03d %s %s\n", e.Seq, e.Type, e.Text)
	}
	return []byte(buf.String())
}
