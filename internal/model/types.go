package model

import (
	"encoding/json"
	"time"
)

// CompletionRecord is the authoritative state of one habit on one day,
// returned by the toggle and complete endpoints.
type CompletionRecord struct {
	ID             int64     `json:"id"`
	HabitID        int64     `json:"habitId"`
	CompletionDate string    `json:"completionDate"`
	IsCompleted    bool      `json:"isCompleted"`
	Notes          string    `json:"notes,omitempty"`
	CurrentStreak  int       `json:"currentStreak"`
	LongestStreak  int       `json:"longestStreak"`
	UpdatedAt      time.Time `json:"updatedAt,omitzero"`
}

// BulkItemError reports one habit the bulk endpoint could not complete.
type BulkItemError struct {
	HabitID int64  `json:"habitId"`
	Message string `json:"error"`
}

// BulkResult is passed through from the bulk endpoint unmodified.
type BulkResult struct {
	Completions  []CompletionRecord `json:"completions"`
	SuccessCount int                `json:"successCount"`
	FailureCount int                `json:"failureCount"`
	Errors       []BulkItemError    `json:"errors"`
}

// CompletionStatus answers "is this habit done on this date".
type CompletionStatus struct {
	HabitID           int64  `json:"habitId"`
	Date              string `json:"date"`
	IsCompleted       bool   `json:"isCompleted"`
	CurrentStreak     int    `json:"currentStreak"`
	LongestStreak     int    `json:"longestStreak"`
	LastCompletedDate string `json:"lastCompletedDate,omitempty"`
}

// CompletionStats aggregates a habit's full history.
type CompletionStats struct {
	HabitID                int64          `json:"habitId"`
	TotalCompletions       int            `json:"totalCompletions"`
	CurrentStreak          int            `json:"currentStreak"`
	LongestStreak          int            `json:"longestStreak"`
	CompletionRate         float64        `json:"completionRate"`
	CompletionsByDayOfWeek map[string]int `json:"completionsByDayOfWeek"`
}

// DayCompletion is one cell of the weekly view.
type DayCompletion struct {
	Date        string `json:"date"`
	IsCompleted bool   `json:"isCompleted"`
}

// WeeklyCompletions is the seven-day view starting at WeekStart.
type WeeklyCompletions struct {
	HabitID   int64           `json:"habitId"`
	WeekStart string          `json:"weekStart"`
	Days      []DayCompletion `json:"days"`
}

// TrackerSnapshot is an opaque whole-tracker aggregate document.
type TrackerSnapshot = json.RawMessage
