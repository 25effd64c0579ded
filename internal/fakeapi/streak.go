package fakeapi

import (
	"math"
	"sort"
	"time"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/model"
)

type streakInfo struct {
	current int
	longest int
	last    string
}

// completedDates returns completed days in ascending order.
func (h *habit) completedDates() []time.Time {
	var days []time.Time
	for d, c := range h.completions {
		if !c.completed {
			continue
		}
		t, err := time.Parse(model.DateLayout, d)
		if err != nil {
			continue
		}
		days = append(days, t)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// streaks computes the current run (ending today or yesterday) and the
// longest run of consecutive completed days.
func (h *habit) streaks(today string) streakInfo {
	days := h.completedDates()
	if len(days) == 0 {
		return streakInfo{}
	}

	info := streakInfo{last: days[len(days)-1].Format(model.DateLayout)}

	run := 1
	info.longest = 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > info.longest {
			info.longest = run
		}
	}

	t, err := time.Parse(model.DateLayout, today)
	if err != nil {
		return info
	}
	gap := t.Sub(days[len(days)-1])
	if gap < 0 || gap > 24*time.Hour {
		return info
	}

	info.current = 1
	for i := len(days) - 1; i > 0; i-- {
		if days[i].Sub(days[i-1]) != 24*time.Hour {
			break
		}
		info.current++
	}
	return info
}

var weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

func (h *habit) stats(habitID int64, today string) model.CompletionStats {
	days := h.completedDates()
	st := h.streaks(today)

	out := model.CompletionStats{
		HabitID:                habitID,
		TotalCompletions:       len(days),
		CurrentStreak:          st.current,
		LongestStreak:          st.longest,
		CompletionsByDayOfWeek: make(map[string]int, 7),
	}
	for _, wd := range weekdays {
		out.CompletionsByDayOfWeek[wd.String()] = 0
	}
	for _, d := range days {
		out.CompletionsByDayOfWeek[d.Weekday().String()]++
	}

	if len(days) > 0 {
		t, err := time.Parse(model.DateLayout, today)
		if err == nil && !t.Before(days[0]) {
			span := int(t.Sub(days[0])/(24*time.Hour)) + 1
			out.CompletionRate = math.Round(float64(len(days))/float64(span)*10000) / 10000
		}
	}
	return out
}
