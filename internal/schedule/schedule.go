// Package schedule holds the pure recurrence rules for habits: when a
// habit is due, when a date counts as satisfied, and how streaks are
// computed. Nothing here touches the store or the clock; both the
// warning banner and the "today" view call these functions and must
// always agree.
package schedule

import (
	"time"

	"github.com/nhle/habitflow/internal/model"
)

// IsDueOn reports whether the habit should be performed on date.
// Inactive habits are never due. A weekly habit with no target days is
// treated as due every day rather than never; this is the documented
// fallback for habits saved before target days existed.
func IsDueOn(h model.Habit, date time.Time) bool {
	if !h.IsActive {
		return false
	}

	switch h.Frequency {
	case model.FrequencyDaily:
		return true
	case model.FrequencyWeekly:
		if len(h.TargetDays) == 0 {
			return true
		}
		return containsDay(h.TargetDays, int(date.Weekday()))
	case model.FrequencyMonthly:
		return containsDay(h.TargetDays, date.Day())
	}

	// Unknown frequency reads as "never due" so a bad row cannot crash
	// a view.
	return false
}

// IsSatisfiedOn reports whether the habit's history records a completed
// entry for date. Absence, or an entry flipped back to incomplete,
// reads as unsatisfied.
func IsSatisfiedOn(h model.Habit, date time.Time) bool {
	entry, ok := h.EntryOn(date.Format(model.DateLayout))
	return ok && entry.Completed
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
