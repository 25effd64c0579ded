package optimistic

import (
	"context"
	"fmt"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/model"
)

// SubmitComplete sets a habit's completion explicitly. No speculative edit
// is recorded. While offline (or on failure after going offline) the write
// is deferred to the retry queue like a toggle, unless the server
// rejected it.
func (c *Controller) SubmitComplete(ctx context.Context, habitID int64, req model.CompleteRequest) (Result, error) {
	if habitID <= 0 {
		return Result{}, fmt.Errorf("complete %d: %w", habitID, ErrInvalidHabitID)
	}
	if req.Date == "" {
		req.Date = model.Today(c.clock)
	}
	if err := model.ValidateDate(req.Date); err != nil {
		return Result{}, fmt.Errorf("complete %d: %w", habitID, err)
	}
	req = req.Normalized()

	if c.offlineQueue && !c.online() {
		item := c.queue.Enqueue(habitID, req)
		return Result{Queued: &item}, nil
	}
	rec, err := c.writer.Complete(ctx, habitID, req)
	if err != nil {
		if c.shouldDefer(err) {
			item := c.queue.Enqueue(habitID, req)
			return Result{Queued: &item}, err
		}
		return Result{}, err
	}
	return Result{Record: rec}, nil
}

// SubmitBulk completes several habits on one date with the same deferral
// policy as SubmitComplete. Per-habit failures reported by the server are
// returned in Result.Bulk unmodified.
func (c *Controller) SubmitBulk(ctx context.Context, req model.BulkRequest) (Result, error) {
	if len(req.HabitIDs) == 0 {
		return Result{}, fmt.Errorf("bulk complete: %w", ErrInvalidHabitID)
	}
	for _, id := range req.HabitIDs {
		if id <= 0 {
			return Result{}, fmt.Errorf("bulk complete %d: %w", id, ErrInvalidHabitID)
		}
	}
	if req.Date == "" {
		req.Date = model.Today(c.clock)
	}
	if err := model.ValidateDate(req.Date); err != nil {
		return Result{}, fmt.Errorf("bulk complete: %w", err)
	}
	req = req.Normalized()

	if c.offlineQueue && !c.online() {
		item := c.queue.Enqueue(0, req)
		return Result{Queued: &item}, nil
	}
	res, err := c.writer.Bulk(ctx, req)
	if err != nil {
		if c.shouldDefer(err) {
			item := c.queue.Enqueue(0, req)
			return Result{Queued: &item}, err
		}
		return Result{}, err
	}
	return Result{Bulk: res}, nil
}
