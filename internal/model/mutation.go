package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MutationKind names the operation a QueuedMutation replays.
type MutationKind string

const (
	// KindToggle replays POST /habits/{id}/completions/toggle.
	KindToggle MutationKind = "toggle"
	// KindComplete replays POST /habits/{id}/completions/complete.
	KindComplete MutationKind = "complete"
	// KindBulk replays POST /completions/bulk.
	KindBulk MutationKind = "bulk"
)

// ErrUnknownMutationKind is returned when decoding a record whose type is
// not one of the known kinds.
var ErrUnknownMutationKind = errors.New("unknown mutation kind")

// Payload is the strongly typed body of a queued mutation.
type Payload interface {
	Kind() MutationKind
	Accept(v PayloadVisitor) error
	isPayload()
}

// PayloadVisitor handles every mutation kind.
type PayloadVisitor interface {
	VisitToggle(ToggleRequest) error
	VisitComplete(CompleteRequest) error
	VisitBulk(BulkRequest) error
}

func (ToggleRequest) Kind() MutationKind   { return KindToggle }
func (CompleteRequest) Kind() MutationKind { return KindComplete }
func (BulkRequest) Kind() MutationKind     { return KindBulk }

func (r ToggleRequest) Accept(v PayloadVisitor) error   { return v.VisitToggle(r) }
func (r CompleteRequest) Accept(v PayloadVisitor) error { return v.VisitComplete(r) }
func (r BulkRequest) Accept(v PayloadVisitor) error     { return v.VisitBulk(r) }

func (ToggleRequest) isPayload()   {}
func (CompleteRequest) isPayload() {}
func (BulkRequest) isPayload()     {}

// QueuedMutation is a durable record of a completion operation that could
// not reach the server. HabitID is zero for bulk mutations.
type QueuedMutation struct {
	ID         string
	HabitID    int64
	Payload    Payload
	EnqueuedAt time.Time
	RetryCount int
}

// Kind returns the payload's kind, or "" when no payload is set.
func (m QueuedMutation) Kind() MutationKind {
	if m.Payload == nil {
		return ""
	}
	return m.Payload.Kind()
}

// queuedWire is the persisted JSON form. Timestamp is unix milliseconds.
type queuedWire struct {
	ID         string          `json:"id"`
	Type       MutationKind    `json:"type"`
	HabitID    int64           `json:"habitId,omitempty"`
	Data       json.RawMessage `json:"data"`
	Timestamp  int64           `json:"timestamp"`
	RetryCount int             `json:"retryCount"`
}

// MarshalJSON encodes the mutation with its kind as the "type" tag.
func (m QueuedMutation) MarshalJSON() ([]byte, error) {
	if m.Payload == nil {
		return nil, fmt.Errorf("marshal queued mutation %s: no payload", m.ID)
	}
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal queued mutation %s: %w", m.ID, err)
	}
	return json.Marshal(queuedWire{
		ID:         m.ID,
		Type:       m.Payload.Kind(),
		HabitID:    m.HabitID,
		Data:       data,
		Timestamp:  m.EnqueuedAt.UnixMilli(),
		RetryCount: m.RetryCount,
	})
}

// UnmarshalJSON decodes the payload selected by the "type" tag.
func (m *QueuedMutation) UnmarshalJSON(b []byte) error {
	var w queuedWire
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("unmarshal queued mutation: %w", err)
	}

	payload, err := decodePayload(w.Type, w.Data)
	if err != nil {
		return fmt.Errorf("unmarshal queued mutation %s: %w", w.ID, err)
	}

	*m = QueuedMutation{
		ID:         w.ID,
		HabitID:    w.HabitID,
		Payload:    payload,
		EnqueuedAt: time.UnixMilli(w.Timestamp),
		RetryCount: w.RetryCount,
	}
	return nil
}

func decodePayload(kind MutationKind, data json.RawMessage) (Payload, error) {
	if len(data) == 0 || string(data) == "null" {
		data = json.RawMessage("{}")
	}
	switch kind {
	case KindToggle:
		var p ToggleRequest
		err := json.Unmarshal(data, &p)
		return p, err
	case KindComplete:
		var p CompleteRequest
		err := json.Unmarshal(data, &p)
		return p, err
	case KindBulk:
		var p BulkRequest
		err := json.Unmarshal(data, &p)
		return p, err
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMutationKind, kind)
	}
}
