// Package queue implements the persistent retry queue: completion writes
// that could not reach the server are stored durably and replayed, in
// enqueue order, when connectivity returns.
//
// Each item is retried at most MaxRetries times. An item that keeps
// failing, or that the server rejects, is dropped permanently and reported
// through Options.OnOutcome.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/clock"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/completion"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/model"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/store"
)

// StorageKey is where the queue is persisted, as a JSON array.
const StorageKey = "habit_completion_offline_queue"

// DefaultMaxRetries is the number of failed replays after which an item is
// dropped.
const DefaultMaxRetries = 3

// Writer replays mutations. *completion.Service implements it.
type Writer interface {
	Toggle(ctx context.Context, habitID int64, req model.ToggleRequest, rollback func()) (*model.CompletionRecord, error)
	Complete(ctx context.Context, habitID int64, req model.CompleteRequest) (*model.CompletionRecord, error)
	Bulk(ctx context.Context, req model.BulkRequest) (*model.BulkResult, error)
}

// Outcome is how an item left the queue.
type Outcome int

const (
	// Replayed means the server accepted the mutation.
	Replayed Outcome = iota + 1
	// Dropped means the item reached the retry ceiling or was rejected.
	Dropped
	// Discarded means the item was removed by Dequeue or Clear before it
	// was replayed.
	Discarded
)

func (o Outcome) String() string {
	switch o {
	case Replayed:
		return "replayed"
	case Dropped:
		return "dropped"
	case Discarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Options configures a Queue.
type Options struct {
	// Storage persists the queue. Nil keeps it in memory only.
	Storage store.Storage

	Writer Writer
	Logger *slog.Logger
	Clock  clock.Clock
	IDs    IDGenerator

	// MaxRetries defaults to DefaultMaxRetries.
	MaxRetries int

	// Online is the initial connectivity state.
	Online bool

	// OnOutcome is called, without the queue's lock held, each time an
	// item leaves the queue.
	OnOutcome func(item model.QueuedMutation, outcome Outcome)
}

// Report summarizes one drain pass.
type Report struct {
	// Skipped is set when the pass did nothing because a drain was already
	// running, the queue was offline, or it was empty.
	Skipped   bool `json:"skipped"`
	Attempted int  `json:"attempted"`
	Replayed  int  `json:"replayed"`
	Retrying  int  `json:"retrying"`
	Dropped   int  `json:"dropped"`
}

// Queue is the persistent retry queue.
//
// Thread-safety: All methods are safe for concurrent use. At most one drain
// runs at a time; a drain requested while one is running is a no-op.
// Subscribers and OnOutcome run without the lock held. Subscribers are
// called one at a time and never see an older snapshot after a newer one;
// they must not modify the queue.
type Queue struct {
	mu        sync.Mutex
	items     []model.QueuedMutation
	online    bool
	draining  bool
	subs      map[int]func([]model.QueuedMutation)
	nextSub   int
	commitSeq uint64

	// notifyMu serializes deliveries. delivered is the newest commit
	// sequence handed to subscribers.
	notifyMu  sync.Mutex
	delivered uint64

	storage    store.Storage
	writer     Writer
	logger     *slog.Logger
	clock      clock.Clock
	ids        IDGenerator
	maxRetries int
	onOutcome  func(model.QueuedMutation, Outcome)

	bg       sync.WaitGroup
	bgCtx    context.Context
	bgCancel context.CancelFunc
}

// New creates a queue and loads any items persisted by a previous process.
// An unreadable store degrades to an empty in-memory queue.
func New(ctx context.Context, opts Options) *Queue {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.IDs == nil {
		opts.IDs = UUIDv7Generator{}
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}

	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	q := &Queue{
		online:     opts.Online,
		subs:       make(map[int]func([]model.QueuedMutation)),
		storage:    opts.Storage,
		writer:     opts.Writer,
		logger:     opts.Logger,
		clock:      opts.Clock,
		ids:        opts.IDs,
		maxRetries: opts.MaxRetries,
		onOutcome:  opts.OnOutcome,
		bgCtx:      bgCtx,
		bgCancel:   cancel,
	}
	q.items = q.load(ctx)
	return q
}

func (q *Queue) load(ctx context.Context) []model.QueuedMutation {
	if q.storage == nil {
		return nil
	}
	raw, err := q.storage.Get(ctx, StorageKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		q.logger.Warn("offline queue storage unavailable, starting empty", "error", err)
		return nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		q.logger.Warn("discarding malformed offline queue", "error", err)
		return nil
	}
	items := make([]model.QueuedMutation, 0, len(records))
	for _, rec := range records {
		var m model.QueuedMutation
		if err := json.Unmarshal(rec, &m); err != nil {
			q.logger.Warn("skipping malformed queued mutation", "error", err)
			continue
		}
		items = append(items, m)
	}
	if len(items) > 0 {
		q.logger.Info("loaded offline queue", "count", len(items))
	}
	return items
}

// persistLocked writes the whole queue. Failures are logged and the queue
// carries on in memory.
func (q *Queue) persistLocked() {
	if q.storage == nil {
		return
	}
	items := q.items
	if items == nil {
		items = []model.QueuedMutation{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		q.logger.Warn("encode offline queue", "error", err)
		return
	}
	if err := q.storage.Set(context.Background(), StorageKey, raw); err != nil {
		q.logger.Warn("offline queue storage unavailable, keeping queue in memory", "error", err)
	}
}

// commitLocked persists and returns the notification to send once the
// lock is released. A notification overtaken by a newer one is skipped.
func (q *Queue) commitLocked() func() {
	q.persistLocked()
	q.commitSeq++
	seq := q.commitSeq
	snapshot := slices.Clone(q.items)
	subs := make([]func([]model.QueuedMutation), 0, len(q.subs))
	for id := range q.nextSub {
		if fn, ok := q.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	return func() {
		q.notifyMu.Lock()
		defer q.notifyMu.Unlock()
		if seq <= q.delivered {
			return
		}
		q.delivered = seq
		for _, fn := range subs {
			fn(snapshot)
		}
	}
}

// Enqueue appends a mutation and, when online, starts a drain in the
// background.
func (q *Queue) Enqueue(habitID int64, payload model.Payload) model.QueuedMutation {
	q.mu.Lock()
	item := model.QueuedMutation{
		ID:         q.ids.Generate(),
		HabitID:    habitID,
		Payload:    payload,
		EnqueuedAt: q.clock.Now(),
	}
	q.items = append(q.items, item)
	notify := q.commitLocked()
	online := q.online
	q.mu.Unlock()

	q.logger.Debug("queued mutation", "id", item.ID, "type", item.Kind(), "habit_id", habitID)
	notify()
	if online {
		q.triggerDrain()
	}
	return item
}

// Dequeue removes one item by id and reports it as Discarded. It reports
// whether the item was present.
func (q *Queue) Dequeue(id string) bool {
	q.mu.Lock()
	i := q.indexLocked(id)
	if i < 0 {
		q.mu.Unlock()
		return false
	}
	item := q.items[i]
	q.items = slices.Delete(q.items, i, i+1)
	notify := q.commitLocked()
	q.mu.Unlock()

	notify()
	q.report([]model.QueuedMutation{item}, Discarded)
	return true
}

func (q *Queue) report(items []model.QueuedMutation, outcome Outcome) {
	if q.onOutcome == nil {
		return
	}
	for _, item := range items {
		q.onOutcome(item, outcome)
	}
}

func (q *Queue) indexLocked(id string) int {
	return slices.IndexFunc(q.items, func(m model.QueuedMutation) bool { return m.ID == id })
}

// Drain replays a snapshot of the queue in enqueue order.
//
// The pass is a no-op when another drain is running, when offline, or when
// the queue is empty. Items enqueued during the pass wait for the next one.
// One item's failure never stops the others. If ctx is cancelled the pass
// stops and the current item's attempt does not count as a failure.
func (q *Queue) Drain(ctx context.Context) Report {
	q.mu.Lock()
	if q.draining || !q.online || len(q.items) == 0 {
		q.mu.Unlock()
		return Report{Skipped: true}
	}
	q.draining = true
	snapshot := slices.Clone(q.items)
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	var rep Report
	for _, item := range snapshot {
		if ctx.Err() != nil {
			break
		}
		rep.Attempted++
		err := item.Payload.Accept(replayer{ctx: ctx, writer: q.writer, habitID: item.HabitID})
		if err != nil && ctx.Err() != nil {
			rep.Attempted--
			break
		}
		q.settle(item, err, &rep)
	}

	q.logger.Info("drained offline queue",
		"attempted", rep.Attempted,
		"replayed", rep.Replayed,
		"retrying", rep.Retrying,
		"dropped", rep.Dropped)
	return rep
}

// settle applies one replay result to the live queue.
func (q *Queue) settle(item model.QueuedMutation, replayErr error, rep *Report) {
	q.mu.Lock()
	i := q.indexLocked(item.ID)
	if i < 0 {
		// Dequeued or cleared while the replay was in flight.
		q.mu.Unlock()
		return
	}

	var outcome Outcome
	switch {
	case replayErr == nil:
		q.items = slices.Delete(q.items, i, i+1)
		outcome = Replayed
		rep.Replayed++
	case errors.Is(replayErr, completion.ErrRejected):
		q.items = slices.Delete(q.items, i, i+1)
		outcome = Dropped
		rep.Dropped++
	default:
		q.items[i].RetryCount++
		item = q.items[i]
		if item.RetryCount >= q.maxRetries {
			q.items = slices.Delete(q.items, i, i+1)
			outcome = Dropped
			rep.Dropped++
		} else {
			rep.Retrying++
		}
	}
	notify := q.commitLocked()
	q.mu.Unlock()

	switch outcome {
	case Dropped:
		q.logger.Warn("dropping queued mutation",
			"id", item.ID,
			"type", item.Kind(),
			"habit_id", item.HabitID,
			"retry_count", item.RetryCount,
			"error", replayErr)
	case 0:
		q.logger.Debug("queued mutation replay failed",
			"id", item.ID,
			"retry_count", item.RetryCount,
			"error", replayErr)
	}
	notify()
	if outcome != 0 {
		q.report([]model.QueuedMutation{item}, outcome)
	}
}

// triggerDrain runs a drain in the background. Wait blocks until it ends.
func (q *Queue) triggerDrain() {
	if q.bgCtx.Err() != nil {
		return
	}
	q.bg.Add(1)
	go func() {
		defer q.bg.Done()
		q.Drain(q.bgCtx)
	}()
}

// RetryFailed resets the retry count of every failed item and starts a
// drain. It returns the number of items reset.
func (q *Queue) RetryFailed() int {
	q.mu.Lock()
	n := 0
	for i := range q.items {
		if q.items[i].RetryCount > 0 {
			q.items[i].RetryCount = 0
			n++
		}
	}
	notify := q.commitLocked()
	online := q.online
	q.mu.Unlock()

	notify()
	if online {
		q.triggerDrain()
	}
	return n
}

// Clear empties the queue and reports every removed item as Discarded. It
// returns the number of items removed.
func (q *Queue) Clear() int {
	q.mu.Lock()
	removed := q.items
	q.items = nil
	notify := q.commitLocked()
	q.mu.Unlock()

	notify()
	q.report(removed, Discarded)
	return len(removed)
}

// Subscribe registers fn to receive the full queue after every change and
// returns a function that removes it.
func (q *Queue) Subscribe(fn func(items []model.QueuedMutation)) (unsubscribe func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := q.nextSub
	q.nextSub++
	q.subs[id] = fn
	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.subs, id)
	}
}

// SetOnline records connectivity. Going online starts a drain; going
// offline leaves existing items untouched.
func (q *Queue) SetOnline(online bool) {
	q.mu.Lock()
	changed := q.online != online
	q.online = online
	q.mu.Unlock()

	if changed && online {
		q.triggerDrain()
	}
}

// Online reports the queue's view of connectivity.
func (q *Queue) Online() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.online
}

// Items returns a copy of the queue in enqueue order.
func (q *Queue) Items() []model.QueuedMutation {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.items)
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Failed returns the items that have failed at least one replay.
func (q *Queue) Failed() []model.QueuedMutation {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []model.QueuedMutation
	for _, m := range q.items {
		if m.RetryCount > 0 {
			out = append(out, m)
		}
	}
	return out
}

// Wait blocks until background drains started so far have finished.
func (q *Queue) Wait() {
	q.bg.Wait()
}

// Close stops background drains and waits for them to return.
func (q *Queue) Close() {
	q.bgCancel()
	q.bg.Wait()
}

// replayer dispatches a payload to the matching write.
type replayer struct {
	ctx     context.Context
	writer  Writer
	habitID int64
}

func (r replayer) VisitToggle(req model.ToggleRequest) error {
	_, err := r.writer.Toggle(r.ctx, r.habitID, req, nil)
	return err
}

func (r replayer) VisitComplete(req model.CompleteRequest) error {
	_, err := r.writer.Complete(r.ctx, r.habitID, req)
	return err
}

func (r replayer) VisitBulk(req model.BulkRequest) error {
	_, err := r.writer.Bulk(r.ctx, req)
	return err
}
