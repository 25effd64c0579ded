package optimistic

import "time"

// Key identifies one habit on one logical date.
type Key struct {
	HabitID int64  `json:"habitId"`
	Date    string `json:"date"`
}

// State is where an edit is in its lifecycle.
type State string

const (
	// StateInFlight means the write has not returned yet.
	StateInFlight State = "in_flight"
	// StateAcknowledged means the server accepted the write and the edit
	// is waiting to settle.
	StateAcknowledged State = "acknowledged"
	// StateDeferred means the write is waiting in the retry queue.
	StateDeferred State = "deferred"
)

// Edit is one speculative change.
type Edit struct {
	Key
	Prior     bool      `json:"prior"`
	Proposed  bool      `json:"proposed"`
	CreatedAt time.Time `json:"createdAt"`
	State     State     `json:"state"`
	QueuedID  string    `json:"queuedId,omitempty"`
}
