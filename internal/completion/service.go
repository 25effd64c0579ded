// Package completion wraps the REST client with the short-lived response
// cache and the tracker snapshot cache.
//
// Every write is bracketed by cache invalidation for the affected habits:
// once before the request leaves, so no reader racing the write is served
// pre-write data, and once after it returns (success or failure), so no
// response cached while the write was in flight survives it.
package completion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/api"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/cache"
	"github.com/SudhiHebbar/habit-tracker-sub002/internal/model"
)

// Backend is the REST surface the service needs. *api.Client implements it.
type Backend interface {
	ToggleCompletion(ctx context.Context, habitID int64, req model.ToggleRequest) (*model.CompletionRecord, error)
	CompleteHabit(ctx context.Context, habitID int64, req model.CompleteRequest) (*model.CompletionRecord, error)
	BulkComplete(ctx context.Context, req model.BulkRequest) (*model.BulkResult, error)
	CompletionStatus(ctx context.Context, habitID int64, date string) (*model.CompletionStatus, error)
	CompletionStats(ctx context.Context, habitID int64) (*model.CompletionStats, error)
	WeeklyCompletions(ctx context.Context, habitID int64, weekStart string) (*model.WeeklyCompletions, error)
	TrackerSnapshot(ctx context.Context, trackerID int64) (model.TrackerSnapshot, error)
}

var _ Backend = (*api.Client)(nil)

// ErrRejected marks a write the server refused with 409 Conflict. Retrying
// it cannot succeed, so callers must not defer it.
var ErrRejected = errors.New("write rejected by server")

// writeError wraps err, tagging conflicts with ErrRejected.
func writeError(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if api.IsConflict(err) {
		return fmt.Errorf("%s: %w: %w", msg, ErrRejected, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Options configures a Service.
type Options struct {
	// Trackers caches tracker snapshots. Nil disables tracker caching.
	Trackers *cache.TrackerCache

	// OnStatus observes every confirmed status read, cached or not.
	OnStatus func(model.CompletionStatus)

	Logger *slog.Logger
}

// Service is the cached completion API.
type Service struct {
	backend  Backend
	cache    *cache.ResponseCache
	trackers *cache.TrackerCache
	onStatus func(model.CompletionStatus)
	logger   *slog.Logger
}

// NewService creates a service over backend using responses for reads.
func NewService(backend Backend, responses *cache.ResponseCache, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		backend:  backend,
		cache:    responses,
		trackers: opts.Trackers,
		onStatus: opts.OnStatus,
		logger:   opts.Logger,
	}
}

// Toggle flips a habit's completion. If the server answers 409 Conflict the
// rollback callback (when non-nil) runs before the error is returned.
func (s *Service) Toggle(ctx context.Context, habitID int64, req model.ToggleRequest, rollback func()) (*model.CompletionRecord, error) {
	s.cache.InvalidateForEntity(habitID)
	defer s.cache.InvalidateForEntity(habitID)

	rec, err := s.backend.ToggleCompletion(ctx, habitID, req)
	if err != nil {
		if rollback != nil && api.IsConflict(err) {
			s.logger.Debug("server rejected speculative toggle", "habit_id", habitID, "date", req.Date)
			rollback()
		}
		return nil, writeError(err, "toggle habit %d", habitID)
	}
	return rec, nil
}

// Complete sets a habit's completion explicitly.
func (s *Service) Complete(ctx context.Context, habitID int64, req model.CompleteRequest) (*model.CompletionRecord, error) {
	s.cache.InvalidateForEntity(habitID)
	defer s.cache.InvalidateForEntity(habitID)

	rec, err := s.backend.CompleteHabit(ctx, habitID, req)
	if err != nil {
		return nil, writeError(err, "complete habit %d", habitID)
	}
	return rec, nil
}

// Bulk completes several habits. The result's counts and errors are passed
// through unmodified.
func (s *Service) Bulk(ctx context.Context, req model.BulkRequest) (*model.BulkResult, error) {
	s.invalidateAll(req.HabitIDs)
	defer s.invalidateAll(req.HabitIDs)

	res, err := s.backend.BulkComplete(ctx, req)
	if err != nil {
		return nil, writeError(err, "bulk complete %d habits", len(req.HabitIDs))
	}
	return res, nil
}

func (s *Service) invalidateAll(ids []int64) {
	for _, id := range ids {
		s.cache.InvalidateForEntity(id)
	}
}

// Status reads a habit's completion status for date, through the cache.
func (s *Service) Status(ctx context.Context, habitID int64, date string) (*model.CompletionStatus, error) {
	key := s.cache.Key(habitID, "status_"+date)
	if v, ok := s.cache.Get(key); ok {
		st := v.(model.CompletionStatus)
		s.observe(st)
		return &st, nil
	}

	st, err := s.backend.CompletionStatus(ctx, habitID, date)
	if err != nil {
		return nil, fmt.Errorf("read status of habit %d: %w", habitID, err)
	}
	s.cache.Set(key, *st)
	s.observe(*st)
	return st, nil
}

func (s *Service) observe(st model.CompletionStatus) {
	if s.onStatus != nil {
		s.onStatus(st)
	}
}

// Stats reads a habit's statistics, through the cache.
func (s *Service) Stats(ctx context.Context, habitID int64) (*model.CompletionStats, error) {
	key := s.cache.Key(habitID, "stats")
	if v, ok := s.cache.Get(key); ok {
		st := v.(model.CompletionStats)
		return &st, nil
	}

	st, err := s.backend.CompletionStats(ctx, habitID)
	if err != nil {
		return nil, fmt.Errorf("read stats of habit %d: %w", habitID, err)
	}
	s.cache.Set(key, *st)
	return st, nil
}

// Weekly reads a habit's weekly view, through the cache.
func (s *Service) Weekly(ctx context.Context, habitID int64, weekStart string) (*model.WeeklyCompletions, error) {
	key := s.cache.Key(habitID, "weekly_"+weekStart)
	if v, ok := s.cache.Get(key); ok {
		wk := v.(model.WeeklyCompletions)
		return &wk, nil
	}

	wk, err := s.backend.WeeklyCompletions(ctx, habitID, weekStart)
	if err != nil {
		return nil, fmt.Errorf("read weekly view of habit %d: %w", habitID, err)
	}
	s.cache.Set(key, *wk)
	return wk, nil
}

// Cache exposes the response cache for inspection.
func (s *Service) Cache() *cache.ResponseCache {
	return s.cache
}
