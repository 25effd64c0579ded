package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/model"
)

// ToggleCompletion flips the habit's completion for req.Date.
func (c *Client) ToggleCompletion(ctx context.Context, habitID int64, req model.ToggleRequest) (*model.CompletionRecord, error) {
	var rec model.CompletionRecord
	path := fmt.Sprintf("/habits/%d/completions/toggle", habitID)
	if err := c.do(ctx, http.MethodPost, path, nil, req.Normalized(), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CompleteHabit sets the habit's completion for req.Date.
func (c *Client) CompleteHabit(ctx context.Context, habitID int64, req model.CompleteRequest) (*model.CompletionRecord, error) {
	var rec model.CompletionRecord
	path := fmt.Sprintf("/habits/%d/completions/complete", habitID)
	if err := c.do(ctx, http.MethodPost, path, nil, req.Normalized(), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// BulkComplete completes several habits at once.
func (c *Client) BulkComplete(ctx context.Context, req model.BulkRequest) (*model.BulkResult, error) {
	var res model.BulkResult
	if err := c.do(ctx, http.MethodPost, "/completions/bulk", nil, req.Normalized(), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CompletionStatus reads one habit's status for date. An empty date lets
// the server pick today.
func (c *Client) CompletionStatus(ctx context.Context, habitID int64, date string) (*model.CompletionStatus, error) {
	var st model.CompletionStatus
	query := url.Values{}
	if date != "" {
		query.Set("date", date)
	}
	path := fmt.Sprintf("/habits/%d/completions/status", habitID)
	if err := c.do(ctx, http.MethodGet, path, query, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// CompletionStats reads one habit's aggregate statistics.
func (c *Client) CompletionStats(ctx context.Context, habitID int64) (*model.CompletionStats, error) {
	var st model.CompletionStats
	path := fmt.Sprintf("/habits/%d/completions/stats", habitID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// WeeklyCompletions reads the seven days starting at weekStart.
func (c *Client) WeeklyCompletions(ctx context.Context, habitID int64, weekStart string) (*model.WeeklyCompletions, error) {
	var wk model.WeeklyCompletions
	query := url.Values{}
	if weekStart != "" {
		query.Set("weekStart", weekStart)
	}
	path := fmt.Sprintf("/habits/%d/completions/weekly", habitID)
	if err := c.do(ctx, http.MethodGet, path, query, nil, &wk); err != nil {
		return nil, err
	}
	return &wk, nil
}

// TrackerSnapshot reads a tracker's aggregate view as raw JSON.
func (c *Client) TrackerSnapshot(ctx context.Context, trackerID int64) (model.TrackerSnapshot, error) {
	var snap model.TrackerSnapshot
	path := fmt.Sprintf("/trackers/%d/snapshot", trackerID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &snap); err != nil {
		return nil, err
	}
	return snap, nil
}
