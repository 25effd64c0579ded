package model

// ToggleRequest flips a habit's completion for Date. An empty Date means
// today, resolved by the caller before the request leaves the process.
type ToggleRequest struct {
	Date  string `json:"date,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// CompleteRequest sets a habit's completion for Date explicitly.
type CompleteRequest struct {
	Date        string `json:"date"`
	IsCompleted bool   `json:"isCompleted"`
	Notes       string `json:"notes,omitempty"`
}

// BulkRequest completes several habits for the same Date.
type BulkRequest struct {
	HabitIDs []int64 `json:"habitIds"`
	Date     string  `json:"date"`
	Notes    string  `json:"notes,omitempty"`
}

// Normalized returns a copy with notes in NFC form.
func (r ToggleRequest) Normalized() ToggleRequest {
	r.Notes = NormalizeNotes(r.Notes)
	return r
}

// Normalized returns a copy with notes in NFC form.
func (r CompleteRequest) Normalized() CompleteRequest {
	r.Notes = NormalizeNotes(r.Notes)
	return r
}

// Normalized returns a copy with notes in NFC form.
func (r BulkRequest) Normalized() BulkRequest {
	r.Notes = NormalizeNotes(r.Notes)
	return r
}
