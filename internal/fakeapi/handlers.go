package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/model"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req model.ToggleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, id, ok := s.lookupHabit(w, r)
	if !ok {
		return
	}
	date, ok := s.resolveDate(w, req.Date)
	if !ok {
		return
	}

	c := s.upsert(h, date)
	c.completed = !c.completed
	if req.Notes != "" {
		c.notes = req.Notes
	}
	writeJSON(w, http.StatusOK, s.record(id, h, date, c))
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req model.CompleteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, id, ok := s.lookupHabit(w, r)
	if !ok {
		return
	}
	date, ok := s.resolveDate(w, req.Date)
	if !ok {
		return
	}

	c := s.upsert(h, date)
	c.completed = req.IsCompleted
	if req.Notes != "" {
		c.notes = req.Notes
	}
	writeJSON(w, http.StatusOK, s.record(id, h, date, c))
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	var req model.BulkRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	date, ok := s.resolveDate(w, req.Date)
	if !ok {
		return
	}

	res := model.BulkResult{
		Completions: []model.CompletionRecord{},
		Errors:      []model.BulkItemError{},
	}
	for _, id := range req.HabitIDs {
		h, ok := s.habits[id]
		if !ok {
			res.FailureCount++
			res.Errors = append(res.Errors, model.BulkItemError{HabitID: id, Message: "habit not found"})
			continue
		}
		c := s.upsert(h, date)
		c.completed = true
		if req.Notes != "" {
			c.notes = req.Notes
		}
		res.SuccessCount++
		res.Completions = append(res.Completions, s.record(id, h, date, c))
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, id, ok := s.lookupHabit(w, r)
	if !ok {
		return
	}
	date, ok := s.resolveDate(w, r.URL.Query().Get("date"))
	if !ok {
		return
	}

	st := h.streaks(s.today())
	status := model.CompletionStatus{
		HabitID:           id,
		Date:              date,
		CurrentStreak:     st.current,
		LongestStreak:     st.longest,
		LastCompletedDate: st.last,
	}
	if c, ok := h.completions[date]; ok {
		status.IsCompleted = c.completed
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, id, ok := s.lookupHabit(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.stats(id, s.today()))
}

func (s *Server) handleWeekly(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, id, ok := s.lookupHabit(w, r)
	if !ok {
		return
	}

	weekStart := r.URL.Query().Get("weekStart")
	if weekStart == "" {
		weekStart = mondayOf(s.now()).Format(model.DateLayout)
	}
	start, err := time.Parse(model.DateLayout, weekStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "weekStart must be YYYY-MM-DD")
		return
	}

	wk := model.WeeklyCompletions{HabitID: id, WeekStart: weekStart, Days: make([]model.DayCompletion, 0, 7)}
	for i := 0; i < 7; i++ {
		d := start.AddDate(0, 0, i).Format(model.DateLayout)
		c, ok := h.completions[d]
		wk.Days = append(wk.Days, model.DayCompletion{Date: d, IsCompleted: ok && c.completed})
	}
	writeJSON(w, http.StatusOK, wk)
}

func (s *Server) handleTrackerSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tracker id")
		return
	}

	s.mu.Lock()
	doc, ok := s.trackers[id]
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("tracker %d not found", id))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// lookupHabit resolves the {id} route variable. Caller must hold s.mu.
func (s *Server) lookupHabit(w http.ResponseWriter, r *http.Request) (*habit, int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid habit id")
		return nil, 0, false
	}
	h, ok := s.habits[id]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("habit %d not found", id))
		return nil, 0, false
	}
	return h, id, true
}

// resolveDate defaults an empty date to today and validates the rest.
func (s *Server) resolveDate(w http.ResponseWriter, date string) (string, bool) {
	if date == "" {
		return s.today(), true
	}
	if err := model.ValidateDate(date); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return date, true
}

// upsert returns the completion for date, creating it. Caller must hold s.mu.
func (s *Server) upsert(h *habit, date string) *completion {
	c, ok := h.completions[date]
	if !ok {
		s.nextID++
		c = &completion{id: s.nextID}
		h.completions[date] = c
	}
	c.updatedAt = s.now().UTC()
	return c
}

func (s *Server) record(habitID int64, h *habit, date string, c *completion) model.CompletionRecord {
	st := h.streaks(s.today())
	return model.CompletionRecord{
		ID:             c.id,
		HabitID:        habitID,
		CompletionDate: date,
		IsCompleted:    c.completed,
		Notes:          c.notes,
		CurrentStreak:  st.current,
		LongestStreak:  st.longest,
		UpdatedAt:      c.updatedAt,
	}
}

func (s *Server) today() string {
	return s.now().Format(model.DateLayout)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func mondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
