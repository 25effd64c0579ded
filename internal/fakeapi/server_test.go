package fakeapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/model"
)

func fixedNow() time.Time {
	return time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	s := New(append([]Option{WithNow(fixedNow)}, opts...)...)
	s.AddHabit(1, 2)
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestToggle_FlipsState(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/habits/1/completions/toggle", `{"date":"2024-01-15"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.CompletionRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.IsCompleted)
	assert.Equal(t, "2024-01-15", got.CompletionDate)
	assert.Equal(t, 1, got.CurrentStreak)
	assert.True(t, s.IsCompleted(1, "2024-01-15"))

	rec = do(t, s, http.MethodPost, "/habits/1/completions/toggle", `{"date":"2024-01-15"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, s.IsCompleted(1, "2024-01-15"))
}

func TestToggle_DefaultsToToday(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/habits/2/completions/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, s.IsCompleted(2, "2024-01-15"))
}

func TestToggle_UnknownHabit(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/habits/99/completions/toggle", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "habit 99 not found")
}

func TestComplete_InvalidDate(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/habits/1/completions/complete", `{"date":"2024-13-01","isCompleted":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBulk_ReportsUnknownHabits(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/completions/bulk", `{"habitIds":[1,42,2],"date":"2024-01-14"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res model.BulkResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.FailureCount)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, int64(42), res.Errors[0].HabitID)
}

func TestStatus_Streaks(t *testing.T) {
	s := newTestServer(t)
	for _, d := range []string{"2024-01-10", "2024-01-11", "2024-01-12", "2024-01-14", "2024-01-15"} {
		rec := do(t, s, http.MethodPost, "/habits/1/completions/complete", `{"date":"`+d+`","isCompleted":true}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(t, s, http.MethodGet, "/habits/1/completions/status?date=2024-01-13", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var st model.CompletionStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.False(t, st.IsCompleted)
	assert.Equal(t, 2, st.CurrentStreak)
	assert.Equal(t, 3, st.LongestStreak)
	assert.Equal(t, "2024-01-15", st.LastCompletedDate)
}

func TestStreaks_BrokenByGapBeforeYesterday(t *testing.T) {
	h := &habit{completions: map[string]*completion{
		"2024-01-12": {completed: true},
		"2024-01-13": {completed: true},
	}}
	st := h.streaks("2024-01-15")
	assert.Equal(t, 0, st.current)
	assert.Equal(t, 2, st.longest)

	st = h.streaks("2024-01-14")
	assert.Equal(t, 2, st.current, "a run ending yesterday is still current")
}

func TestStats(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodPost, "/habits/1/completions/complete", `{"date":"2024-01-14","isCompleted":true}`)
	do(t, s, http.MethodPost, "/habits/1/completions/complete", `{"date":"2024-01-15","isCompleted":true}`)

	rec := do(t, s, http.MethodGet, "/habits/1/completions/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var st model.CompletionStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 2, st.TotalCompletions)
	assert.Equal(t, 1.0, st.CompletionRate)
	assert.Equal(t, 1, st.CompletionsByDayOfWeek["Sunday"])
	assert.Equal(t, 1, st.CompletionsByDayOfWeek["Monday"])
	assert.Len(t, st.CompletionsByDayOfWeek, 7)
}

func TestWeekly_DefaultsToCurrentMonday(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodPost, "/habits/1/completions/complete", `{"date":"2024-01-16","isCompleted":true}`)

	rec := do(t, s, http.MethodGet, "/habits/1/completions/weekly", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var wk model.WeeklyCompletions
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wk))
	assert.Equal(t, "2024-01-15", wk.WeekStart)
	require.Len(t, wk.Days, 7)
	assert.False(t, wk.Days[0].IsCompleted)
	assert.True(t, wk.Days[1].IsCompleted)
}

func TestTrackerSnapshot(t *testing.T) {
	s := newTestServer(t)
	s.SetTracker(5, json.RawMessage(`{"habits":3}`))

	rec := do(t, s, http.MethodGet, "/trackers/5/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"habits":3}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/trackers/6/snapshot", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFailNext_SkipsHealth(t *testing.T) {
	s := newTestServer(t)
	s.FailNext(1, http.StatusServiceUnavailable)

	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/habits/1/completions/stats", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, s, http.MethodGet, "/habits/1/completions/stats", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWithPrefix(t *testing.T) {
	s := newTestServer(t, WithPrefix("/api"))

	rec := do(t, s, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
