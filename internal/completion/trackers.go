package completion

import (
	"context"
	"fmt"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/model"
)

// TrackerSnapshot reads a tracker's aggregate view through the tracker
// cache.
func (s *Service) TrackerSnapshot(ctx context.Context, trackerID int64) (model.TrackerSnapshot, error) {
	if s.trackers != nil {
		if snap, ok := s.trackers.Get(ctx, trackerID); ok {
			return snap, nil
		}
	}

	snap, err := s.backend.TrackerSnapshot(ctx, trackerID)
	if err != nil {
		return nil, fmt.Errorf("read tracker %d: %w", trackerID, err)
	}
	if s.trackers != nil {
		s.trackers.Set(ctx, trackerID, snap)
	}
	return snap, nil
}

// InvalidateTracker drops a tracker's cached snapshot, e.g. after its
// habits change.
func (s *Service) InvalidateTracker(ctx context.Context, trackerID int64) {
	if s.trackers != nil {
		s.trackers.Invalidate(ctx, trackerID)
	}
}
