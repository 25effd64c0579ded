package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/api"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/app"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/config"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/model"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/optimistic"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/queue"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/testutil"
)

// errScripted is the failure returned by fail_writes without conflict.
var errScripted = errors.New("API Error")

// Harness runs one scenario.
type Harness struct {
	app     *app.App
	backend *testutil.Backend
	clock   *testutil.FakeClock
	today   string

	mu     sync.Mutex
	result *Result
	seq    int
}

// Run executes a scenario against a freshly wired client and evaluates its
// assertions. The returned error is reserved for harness failures; a
// failed assertion is reported in Result.
func Run(scenario *Scenario) (*Result, error) {
	today := scenario.Today
	if today == "" {
		today = DefaultToday
	}
	day, err := model.ParseDate(today)
	if err != nil {
		return nil, err
	}
	clk := testutil.NewFakeClock(day.Add(9 * time.Hour))
	backend := testutil.NewBackend(clk)

	cfg := config.Default()
	cfg.APIBaseURL = "http://harness.invalid"
	cfg.StoragePath = config.MemoryStorage
	if scenario.SettleDelay != "" {
		d, err := time.ParseDuration(scenario.SettleDelay)
		if err != nil {
			return nil, fmt.Errorf("settle_delay: %w", err)
		}
		cfg.SettleDelay = d
	}
	if scenario.OfflineQueue != nil {
		cfg.OfflineQueue = *scenario.OfflineQueue
	}
	if scenario.MaxRetries > 0 {
		cfg.MaxRetries = scenario.MaxRetries
	}

	ctx := context.Background()
	a, err := app.Build(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), app.Options{
		Offline: !scenario.Online,
		Backend: backend,
		Clock:   clk,
		IDs:     queue.NewSequenceGenerator("q"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build client: %w", err)
	}
	defer a.Close()

	h := &Harness{app: a, backend: backend, clock: clk, today: today, result: NewResult()}
	backend.OnCall(h.traceCall)
	a.Queue.Subscribe(h.traceQueue)

	for i, step := range scenario.Steps {
		h.trace(EventStep, h.describe(step))
		if err := h.execute(ctx, step); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
		a.Queue.Wait()
	}

	for _, msg := range EvaluateAssertions(h, scenario.Assertions) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

func (h *Harness) trace(typ, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	h.result.Trace = append(h.result.Trace, TraceEvent{Seq: h.seq, Type: typ, Text: text})
}

func (h *Harness) traceCall(c testutil.Call) {
	text := c.Op
	if c.HabitID != 0 {
		text += fmt.Sprintf(" habit=%d", c.HabitID)
	}
	if c.Date != "" {
		text += " date=" + c.Date
	}
	h.trace(EventCall, text)
}

func (h *Harness) traceQueue(items []model.QueuedMutation) {
	failed := 0
	for _, m := range items {
		if m.RetryCount > 0 {
			failed++
		}
	}
	h.trace(EventQueue, fmt.Sprintf("size=%d failed=%d", len(items), failed))
}

func (h *Harness) date(st Step) string {
	if st.Date == "" {
		return h.today
	}
	return st.Date
}

func (h *Harness) describe(st Step) string {
	switch st.Op {
	case OpToggle:
		return fmt.Sprintf("toggle habit=%d date=%s current=%t", st.Habit, h.date(st), st.Current)
	case OpComplete:
		return fmt.Sprintf("complete habit=%d date=%s completed=%t", st.Habit, h.date(st), st.Completed)
	case OpBulk:
		return fmt.Sprintf("bulk habits=%v date=%s", st.Habits, h.date(st))
	case OpSetOnline:
		return fmt.Sprintf("set_online online=%t", st.Online)
	case OpAdvance:
		return "advance duration=" + st.Duration
	case OpFailWrites:
		if st.Conflict {
			return fmt.Sprintf("fail_writes count=%d conflict=true", st.Count)
		}
		return fmt.Sprintf("fail_writes count=%d", st.Count)
	case OpCacheSet:
		return fmt.Sprintf("cache_set habit=%d date=%s completed=%t", st.Habit, h.date(st), st.Completed)
	case OpReadStatus:
		return fmt.Sprintf("read_status habit=%d date=%s", st.Habit, h.date(st))
	default:
		return st.Op
	}
}

func (h *Harness) execute(ctx context.Context, st Step) error {
	a := h.app
	switch st.Op {
	case OpToggle:
		res, err := a.Controller.ProposeToggle(ctx, st.Habit, st.Current, &model.ToggleRequest{Date: h.date(st)}, optimistic.Callbacks{})
		h.traceWrite(res, err)
	case OpComplete:
		res, err := a.Controller.SubmitComplete(ctx, st.Habit, model.CompleteRequest{Date: h.date(st), IsCompleted: st.Completed})
		h.traceWrite(res, err)
	case OpBulk:
		res, err := a.Controller.SubmitBulk(ctx, model.BulkRequest{HabitIDs: st.Habits, Date: h.date(st)})
		h.traceWrite(res, err)
	case OpSetOnline:
		a.Monitor.SetOnline(st.Online)
	case OpAdvance:
		d, err := time.ParseDuration(st.Duration)
		if err != nil {
			return err
		}
		h.clock.Advance(d)
	case OpDrain:
		rep := a.Queue.Drain(ctx)
		if rep.Skipped {
			h.trace(EventResult, "skipped")
		} else {
			h.trace(EventResult, fmt.Sprintf("attempted=%d replayed=%d retrying=%d dropped=%d",
				rep.Attempted, rep.Replayed, rep.Retrying, rep.Dropped))
		}
	case OpRetryFailed:
		// Wait for the drain first so the result line precedes its calls
		// deterministically.
		n := a.Queue.RetryFailed()
		a.Queue.Wait()
		h.trace(EventResult, fmt.Sprintf("reset=%d", n))
	case OpClearQueue:
		h.trace(EventResult, fmt.Sprintf("discarded=%d", a.Queue.Clear()))
	case OpFailWrites:
		var err error = errScripted
		if st.Conflict {
			err = &api.APIError{StatusCode: 409, Method: "POST", Path: "/scripted", Message: "conflict"}
		}
		h.backend.FailWrites(st.Count, err)
	case OpCacheSet:
		date := h.date(st)
		a.Responses.Set(a.Responses.Key(st.Habit, "status_"+date), model.CompletionStatus{
			HabitID:     st.Habit,
			Date:        date,
			IsCompleted: st.Completed,
		})
	case OpReadStatus:
		status, err := a.Service.Status(ctx, st.Habit, h.date(st))
		if err != nil {
			h.trace(EventResult, "error")
		} else {
			h.trace(EventResult, fmt.Sprintf("completed=%t", status.IsCompleted))
		}
	default:
		return fmt.Errorf("unknown op %q", st.Op)
	}
	return nil
}

// traceWrite records how a write ended.
func (h *Harness) traceWrite(res optimistic.Result, err error) {
	var text string
	switch {
	case res.Queued != nil:
		text = "queued id=" + res.Queued.ID
		if err != nil {
			text += " error"
		}
	case err != nil && api.IsConflict(err):
		text = "error conflict=true"
	case err != nil:
		text = "error"
	case res.Bulk != nil:
		text = fmt.Sprintf("ok success=%d failure=%d", res.Bulk.SuccessCount, res.Bulk.FailureCount)
	case res.Record != nil:
		text = fmt.Sprintf("ok completed=%t", res.Record.IsCompleted)
	default:
		text = "ok"
	}
	h.trace(EventResult, text)
}
