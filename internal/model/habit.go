package model

import "time"

// Frequency is a habit's recurrence rule.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// ValidFrequency reports whether f is one of the known frequencies.
func ValidFrequency(f Frequency) bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// DateLayout is the calendar-date format used throughout completion
// history and ledger date checks.
const DateLayout = "2006-01-02"

// Habit is a recurring item the user tracks over time.
type Habit struct {
	// ID is the unique identifier for this habit.
	ID string `json:"id" db:"id"`

	// UserID identifies the owning user.
	UserID string `json:"user_id" db:"user_id"`

	// Title is the habit's display name.
	Title string `json:"title" db:"title"`

	// Description is the optional longer text.
	Description string `json:"description" db:"description"`

	// Frequency is one of the Frequency* constants.
	Frequency Frequency `json:"frequency" db:"frequency"`

	// TargetDays selects which days the habit is due: weekday indices
	// 0-6 (Sunday=0) for weekly habits, day-of-month 1-31 for monthly.
	// Ignored for daily habits. Stored as a JSON array column.
	TargetDays []int `json:"target_days,omitempty" db:"-"`

	// ReminderTime is an optional HH:MM reminder, empty when unset.
	ReminderTime string `json:"reminder_time" db:"reminder_time"`

	// IsActive gates everything: inactive habits are never due.
	IsActive bool `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// CompletionHistory is populated by queries that join with
	// habit_completions, ordered by date ascending. At most one entry
	// exists per calendar date.
	CompletionHistory []CompletionEntry `json:"completion_history,omitempty" db:"-"`
}

// CompletionEntry records whether a habit was done on one calendar date.
// Re-completing the same date overwrites the entry, never duplicates it.
type CompletionEntry struct {
	HabitID   string `json:"habit_id" db:"habit_id"`
	Date      string `json:"date" db:"date"`
	Completed bool   `json:"completed" db:"completed"`
}

// EntryOn returns the completion entry for the given date, if any.
func (h Habit) EntryOn(date string) (CompletionEntry, bool) {
	for _, e := range h.CompletionHistory {
		if e.Date == date {
			return e, true
		}
	}
	return CompletionEntry{}, false
}
