// Package optimistic gives callers an immediate view of a completion toggle
// while the authoritative result is pending.
//
// The Controller records one speculative edit per (habit, date) before any
// network activity starts. A successful write retires the edit after a
// short settle window, or on the next confirmed read when the settle delay
// is zero. A failed write rolls it back, unless the client is offline, in
// which case the write is deferred to the retry queue and the edit stays
// until the queue reports the item replayed or dropped.
//
// ReadModel merges those edits with confirmed server state.
package optimistic
