package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/model"
)

// Call records one request the fake backend received.
type Call struct {
	Op      string
	HabitID int64
	Date    string
}

// Backend operation names as recorded in Call.Op.
const (
	OpToggle   = "toggle"
	OpComplete = "complete"
	OpBulk     = "bulk"
	OpStatus   = "status"
	OpStats    = "stats"
	OpWeekly   = "weekly"
	OpTracker  = "tracker"
)

// Backend is a scriptable in-memory completion API.
//
// Writes can be made to fail with FailWrites. The hook set by OnCall runs
// while a request is "in flight", after it is logged and before any state
// changes, so tests can observe client state mid-request or block it.
type Backend struct {
	mu        sync.Mutex
	clock     model.Clock
	state     map[int64]map[string]bool
	trackers  map[int64]json.RawMessage
	calls     []Call
	writeErrs []error
	readErr   error
	hook      func(Call)
	nextID    int64
}

// NewBackend creates an empty backend that resolves "today" from c.
func NewBackend(c model.Clock) *Backend {
	return &Backend{
		clock:    c,
		state:    make(map[int64]map[string]bool),
		trackers: make(map[int64]json.RawMessage),
	}
}

// FailWrites makes the next n write requests return err.
func (b *Backend) FailWrites(n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for range n {
		b.writeErrs = append(b.writeErrs, err)
	}
}

// FailReads makes every read return err until called again with nil.
func (b *Backend) FailReads(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readErr = err
}

// OnCall installs the in-flight hook. Nil removes it.
func (b *Backend) OnCall(fn func(Call)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hook = fn
}

// SetCompleted seeds the server-side state for a habit and date.
func (b *Backend) SetCompleted(habitID int64, date string, completed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setLocked(habitID, date, completed)
}

// SetTracker seeds a tracker snapshot.
func (b *Backend) SetTracker(trackerID int64, snap json.RawMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trackers[trackerID] = snap
}

// Completed reports the server-side state for a habit and date.
func (b *Backend) Completed(habitID int64, date string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state[habitID][date]
}

// Calls returns a copy of the call log.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

// CallCount returns how many calls of op were received.
func (b *Backend) CallCount(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (b *Backend) setLocked(habitID int64, date string, completed bool) {
	days, ok := b.state[habitID]
	if !ok {
		days = make(map[string]bool)
		b.state[habitID] = days
	}
	days[date] = completed
}

func (b *Backend) resolve(date string) string {
	if date == "" {
		return model.Today(b.clock)
	}
	return date
}

// begin logs the call, runs the hook and pops a scripted error.
func (b *Backend) begin(ctx context.Context, c Call, write bool) error {
	b.mu.Lock()
	b.calls = append(b.calls, c)
	hook := b.hook
	b.mu.Unlock()

	if hook != nil {
		hook(c)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !write {
		return b.readErr
	}
	if len(b.writeErrs) > 0 {
		err := b.writeErrs[0]
		b.writeErrs = b.writeErrs[1:]
		return err
	}
	return nil
}

func (b *Backend) recordLocked(habitID int64, date string) model.CompletionRecord {
	b.nextID++
	done := b.state[habitID][date]
	streak := 0
	if done {
		streak = 1
	}
	return model.CompletionRecord{
		ID:             b.nextID,
		HabitID:        habitID,
		CompletionDate: date,
		IsCompleted:    done,
		CurrentStreak:  streak,
		LongestStreak:  streak,
		UpdatedAt:      b.clock.Now(),
	}
}

// ToggleCompletion flips the stored state.
func (b *Backend) ToggleCompletion(ctx context.Context, habitID int64, req model.ToggleRequest) (*model.CompletionRecord, error) {
	date := b.resolve(req.Date)
	if err := b.begin(ctx, Call{Op: OpToggle, HabitID: habitID, Date: date}, true); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setLocked(habitID, date, !b.state[habitID][date])
	rec := b.recordLocked(habitID, date)
	rec.Notes = req.Notes
	return &rec, nil
}

// CompleteHabit sets the stored state.
func (b *Backend) CompleteHabit(ctx context.Context, habitID int64, req model.CompleteRequest) (*model.CompletionRecord, error) {
	date := b.resolve(req.Date)
	if err := b.begin(ctx, Call{Op: OpComplete, HabitID: habitID, Date: date}, true); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setLocked(habitID, date, req.IsCompleted)
	rec := b.recordLocked(habitID, date)
	rec.Notes = req.Notes
	return &rec, nil
}

// BulkComplete marks every listed habit completed.
func (b *Backend) BulkComplete(ctx context.Context, req model.BulkRequest) (*model.BulkResult, error) {
	date := b.resolve(req.Date)
	if err := b.begin(ctx, Call{Op: OpBulk, Date: date}, true); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	res := &model.BulkResult{Errors: []model.BulkItemError{}}
	for _, id := range req.HabitIDs {
		b.setLocked(id, date, true)
		res.Completions = append(res.Completions, b.recordLocked(id, date))
		res.SuccessCount++
	}
	return res, nil
}

// CompletionStatus reports the stored state.
func (b *Backend) CompletionStatus(ctx context.Context, habitID int64, date string) (*model.CompletionStatus, error) {
	date = b.resolve(date)
	if err := b.begin(ctx, Call{Op: OpStatus, HabitID: habitID, Date: date}, false); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	rec := b.recordLocked(habitID, date)
	return &model.CompletionStatus{
		HabitID:       habitID,
		Date:          date,
		IsCompleted:   rec.IsCompleted,
		CurrentStreak: rec.CurrentStreak,
		LongestStreak: rec.LongestStreak,
	}, nil
}

// CompletionStats counts completed days.
func (b *Backend) CompletionStats(ctx context.Context, habitID int64) (*model.CompletionStats, error) {
	if err := b.begin(ctx, Call{Op: OpStats, HabitID: habitID}, false); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	st := &model.CompletionStats{HabitID: habitID, CompletionsByDayOfWeek: map[string]int{}}
	days := make([]string, 0, len(b.state[habitID]))
	for d, done := range b.state[habitID] {
		if done {
			days = append(days, d)
		}
	}
	sort.Strings(days)
	st.TotalCompletions = len(days)
	if len(b.state[habitID]) > 0 {
		st.CompletionRate = float64(len(days)) / float64(len(b.state[habitID]))
	}
	return st, nil
}

// WeeklyCompletions returns the seven stored days from weekStart.
func (b *Backend) WeeklyCompletions(ctx context.Context, habitID int64, weekStart string) (*model.WeeklyCompletions, error) {
	if err := b.begin(ctx, Call{Op: OpWeekly, HabitID: habitID, Date: weekStart}, false); err != nil {
		return nil, err
	}
	start, err := model.ParseDate(weekStart)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	wk := &model.WeeklyCompletions{HabitID: habitID, WeekStart: weekStart}
	for i := range 7 {
		d := start.AddDate(0, 0, i).Format(model.DateLayout)
		wk.Days = append(wk.Days, model.DayCompletion{Date: d, IsCompleted: b.state[habitID][d]})
	}
	return wk, nil
}

// TrackerSnapshot returns a seeded snapshot.
func (b *Backend) TrackerSnapshot(ctx context.Context, trackerID int64) (model.TrackerSnapshot, error) {
	if err := b.begin(ctx, Call{Op: OpTracker, HabitID: trackerID}, false); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	snap, ok := b.trackers[trackerID]
	if !ok {
		return nil, fmt.Errorf("tracker %d not seeded", trackerID)
	}
	return snap, nil
}
