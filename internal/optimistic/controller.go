package optimistic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/clock"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/completion"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/model"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/queue"
)

// DefaultSettleDelay is how long a confirmed edit stays visible so that
// dependent reads can be refetched before it disappears.
const DefaultSettleDelay = 500 * time.Millisecond

// ErrInvalidHabitID is returned for non-positive habit ids.
var ErrInvalidHabitID = errors.New("habit id must be positive")

// Writer issues network writes. *completion.Service implements it.
type Writer interface {
	Toggle(ctx context.Context, habitID int64, req model.ToggleRequest, rollback func()) (*model.CompletionRecord, error)
	Complete(ctx context.Context, habitID int64, req model.CompleteRequest) (*model.CompletionRecord, error)
	Bulk(ctx context.Context, req model.BulkRequest) (*model.BulkResult, error)
}

// Enqueuer defers a mutation. *queue.Queue implements it.
type Enqueuer interface {
	Enqueue(habitID int64, payload model.Payload) model.QueuedMutation
}

// Connectivity reports whether the client is online. *netstate.Monitor
// implements it.
type Connectivity interface {
	Online() bool
}

// Options configures a Controller.
type Options struct {
	Writer  Writer
	Queue   Enqueuer
	Network Connectivity
	Clock   clock.Clock
	Logger  *slog.Logger

	// SettleDelay is the grace window after a confirmed write. Zero means
	// edits are retired only by Confirm.
	SettleDelay time.Duration

	// OfflineQueue enables deferring writes while offline.
	OfflineQueue bool
}

// Callbacks are invoked once per ProposeToggle, after the edit bookkeeping
// for the outcome is done.
type Callbacks struct {
	OnSuccess func(rec *model.CompletionRecord)
	OnError   func(err error)
}

// Result is what ProposeToggle produced. Queued is set when the write was
// deferred to the retry queue; it may accompany an error when an online
// attempt failed after the client went offline.
type Result struct {
	Record *model.CompletionRecord
	Bulk   *model.BulkResult
	Queued *model.QueuedMutation
}

// Controller owns the speculative edits.
//
// Thread-safety: All methods are safe for concurrent use. Callbacks and the
// network call run without the lock held.
type Controller struct {
	mu      sync.Mutex
	edits   map[Key]*entry
	version uint64

	writer       Writer
	queue        Enqueuer
	network      Connectivity
	clock        clock.Clock
	logger       *slog.Logger
	settleDelay  time.Duration
	offlineQueue bool
}

type entry struct {
	Edit
	version uint64
	timer   clock.Timer
}

// NewController creates a controller with no edits.
func NewController(opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{
		edits:        make(map[Key]*entry),
		writer:       opts.Writer,
		queue:        opts.Queue,
		network:      opts.Network,
		clock:        opts.Clock,
		logger:       opts.Logger,
		settleDelay:  opts.SettleDelay,
		offlineQueue: opts.OfflineQueue && opts.Queue != nil,
	}
}

func (c *Controller) online() bool {
	return c.network == nil || c.network.Online()
}

// shouldDefer reports whether a failed write goes to the queue. A write the
// server rejected is never deferred.
func (c *Controller) shouldDefer(err error) bool {
	return c.offlineQueue && !c.online() && !errors.Is(err, completion.ErrRejected)
}

// ProposeToggle flips habitID on the requested date (today when req is nil
// or has no date) from current to !current.
//
// The speculative edit is visible to readers before this method touches
// the network. Errors from the write are returned after rollback or
// deferral has been applied.
func (c *Controller) ProposeToggle(ctx context.Context, habitID int64, current bool, req *model.ToggleRequest, cb Callbacks) (Result, error) {
	if habitID <= 0 {
		return Result{}, fmt.Errorf("propose toggle %d: %w", habitID, ErrInvalidHabitID)
	}
	var r model.ToggleRequest
	if req != nil {
		r = *req
	}
	if r.Date == "" {
		r.Date = model.Today(c.clock)
	}
	if err := model.ValidateDate(r.Date); err != nil {
		return Result{}, fmt.Errorf("propose toggle %d: %w", habitID, err)
	}
	r = r.Normalized()
	key := Key{HabitID: habitID, Date: r.Date}

	version := c.record(key, current)

	if c.offlineQueue && !c.online() {
		item := c.deferToQueue(key, version, r)
		c.logger.Debug("deferred toggle while offline", "habit_id", habitID, "date", r.Date, "id", item.ID)
		return Result{Queued: &item}, nil
	}

	rollback := func() {
		if c.removeIf(key, version) {
			c.logger.Info("rolled back toggle on server signal", "habit_id", habitID, "date", r.Date)
		}
	}
	rec, err := c.writer.Toggle(ctx, habitID, r, rollback)
	if err != nil {
		var res Result
		if c.shouldDefer(err) {
			item := c.deferToQueue(key, version, r)
			res.Queued = &item
			c.logger.Info("deferred failed toggle, client went offline", "habit_id", habitID, "date", r.Date, "id", item.ID, "error", err)
		} else if c.removeIf(key, version) {
			c.logger.Debug("rolled back failed toggle", "habit_id", habitID, "date", r.Date, "error", err)
		}
		if cb.OnError != nil {
			cb.OnError(err)
		}
		return res, err
	}

	c.acknowledge(key, version)
	if cb.OnSuccess != nil {
		cb.OnSuccess(rec)
	}
	return Result{Record: rec}, nil
}

// record installs a new edit for key, superseding any previous one, and
// returns its version.
func (c *Controller) record(key Key, current bool) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.edits[key]; ok && prev.timer != nil {
		prev.timer.Stop()
	}
	c.version++
	c.edits[key] = &entry{
		Edit: Edit{
			Key:       key,
			Prior:     current,
			Proposed:  !current,
			CreatedAt: c.clock.Now(),
			State:     StateInFlight,
		},
		version: c.version,
	}
	return c.version
}

// deferToQueue marks the edit as waiting on the queue and enqueues the write.
func (c *Controller) deferToQueue(key Key, version uint64, req model.ToggleRequest) model.QueuedMutation {
	c.mu.Lock()
	if e, ok := c.edits[key]; ok && e.version == version {
		e.State = StateDeferred
	}
	c.mu.Unlock()

	item := c.queue.Enqueue(key.HabitID, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.edits[key]; ok && e.version == version && e.State == StateDeferred {
		e.QueuedID = item.ID
	}
	return item
}

// acknowledge moves an edit to the settle phase.
func (c *Controller) acknowledge(key Key, version uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.edits[key]
	if !ok || e.version != version {
		return
	}
	e.State = StateAcknowledged
	c.scheduleSettleLocked(e)
}

func (c *Controller) scheduleSettleLocked(e *entry) {
	if c.settleDelay == 0 {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	key, version := e.Key, e.version
	e.timer = c.clock.AfterFunc(c.settleDelay, func() {
		c.removeIf(key, version)
	})
}

// removeIf deletes the edit at key if it is still the given version.
func (c *Controller) removeIf(key Key, version uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.edits[key]
	if !ok || e.version != version {
		return false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(c.edits, key)
	return true
}

// Confirm retires an acknowledged edit because a confirmed read for its
// key has arrived. It reports whether an edit was retired.
func (c *Controller) Confirm(habitID int64, date string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := Key{HabitID: habitID, Date: date}
	e, ok := c.edits[key]
	if !ok || e.State != StateAcknowledged {
		return false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(c.edits, key)
	return true
}

// HandleQueueOutcome reconciles a deferred edit with its queued write. A
// replayed toggle settles like an online success. A dropped or discarded
// one is rolled back, since the server never saw it.
func (c *Controller) HandleQueueOutcome(item model.QueuedMutation, outcome queue.Outcome) {
	req, ok := item.Payload.(model.ToggleRequest)
	if !ok {
		return
	}
	key := Key{HabitID: item.HabitID, Date: req.Date}

	c.mu.Lock()
	e, ok := c.edits[key]
	if !ok || e.State != StateDeferred || (e.QueuedID != "" && e.QueuedID != item.ID) {
		c.mu.Unlock()
		return
	}
	switch outcome {
	case queue.Replayed:
		e.State = StateAcknowledged
		c.scheduleSettleLocked(e)
		c.mu.Unlock()
	case queue.Dropped, queue.Discarded:
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(c.edits, key)
		c.mu.Unlock()
		c.logger.Warn("rolled back toggle removed from offline queue",
			"habit_id", key.HabitID,
			"date", key.Date,
			"id", item.ID,
			"outcome", outcome.String(),
			"retry_count", item.RetryCount)
	default:
		c.mu.Unlock()
	}
}

// Pending returns the current edits ordered by habit and date.
func (c *Controller) Pending() []Edit {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Edit, 0, len(c.edits))
	for _, e := range c.edits {
		out = append(out, e.Edit)
	}
	slices.SortFunc(out, func(a, b Edit) int {
		if a.HabitID != b.HabitID {
			if a.HabitID < b.HabitID {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Date, b.Date)
	})
	return out
}

// lookup returns a copy of the edit at key.
func (c *Controller) lookup(key Key) (Edit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.edits[key]
	if !ok {
		return Edit{}, false
	}
	return e.Edit, true
}

// ReadModel returns the read side over this controller's edits.
func (c *Controller) ReadModel() *ReadModel {
	return &ReadModel{edits: c}
}
