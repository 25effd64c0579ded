package optimistic

// ReadModel answers what a habit should display right now. It never
// modifies edits.
type ReadModel struct {
	edits *Controller
}

// ResolveDisplayValue returns the proposed value of the edit for
// (habitID, date) if one exists, and confirmed otherwise.
func (m *ReadModel) ResolveDisplayValue(habitID int64, date string, confirmed bool) bool {
	if e, ok := m.edits.lookup(Key{HabitID: habitID, Date: date}); ok {
		return e.Proposed
	}
	return confirmed
}

// IsProvisional reports whether an edit exists for (habitID, date).
func (m *ReadModel) IsProvisional(habitID int64, date string) bool {
	_, ok := m.edits.lookup(Key{HabitID: habitID, Date: date})
	return ok
}
