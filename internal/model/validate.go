package model

import (
	"strconv"
	"strings"

	"github.com/nhle/habitflow/internal/apperr"
)

// Validate checks the fields a caller controls on a task before it is
// written. Derived fields (CompletedAt, ScheduledForDeletion) are owned
// by the lifecycle controller and are not validated here.
func (t Task) Validate() error {
	if strings.TrimSpace(t.Text) == "" {
		return apperr.New(apperr.KindInvalidInput, "task text must not be empty")
	}
	if t.UserID == "" {
		return apperr.New(apperr.KindInvalidInput, "task owner must be set")
	}
	if t.Priority != "" && !ValidPriority(t.Priority) {
		return apperr.Newf(apperr.KindInvalidInput, "unknown priority %q", t.Priority)
	}
	if t.Points < 0 {
		return apperr.New(apperr.KindInvalidInput, "task points must not be negative")
	}
	return nil
}

// Validate checks a habit's caller-controlled fields before it is written.
func (h Habit) Validate() error {
	if strings.TrimSpace(h.Title) == "" {
		return apperr.New(apperr.KindInvalidInput, "habit title must not be empty")
	}
	if h.UserID == "" {
		return apperr.New(apperr.KindInvalidInput, "habit owner must be set")
	}
	if !ValidFrequency(h.Frequency) {
		return apperr.Newf(apperr.KindInvalidInput, "unknown frequency %q", h.Frequency)
	}
	for _, d := range h.TargetDays {
		switch h.Frequency {
		case FrequencyWeekly:
			if d < 0 || d > 6 {
				return apperr.Newf(apperr.KindInvalidInput, "weekday %d out of range 0-6", d)
			}
		case FrequencyMonthly:
			if d < 1 || d > 31 {
				return apperr.Newf(apperr.KindInvalidInput, "day of month %d out of range 1-31", d)
			}
		}
	}
	if h.ReminderTime != "" && !ValidClockTime(h.ReminderTime) {
		return apperr.Newf(apperr.KindInvalidInput, "reminder time %q is not HH:MM", h.ReminderTime)
	}
	return nil
}

// ValidClockTime reports whether s is a well-formed HH:MM time of day.
func ValidClockTime(s string) bool {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return false
	}
	return true
}
