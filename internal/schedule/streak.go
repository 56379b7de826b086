package schedule

import (
	"time"

	"github.com/nhle/habitflow/internal/model"
)

// maxStreakScanDays bounds the backward walk for habits with no usable
// creation date.
const maxStreakScanDays = 3660

// CurrentStreak counts consecutive satisfied due dates walking backward
// from asOf. Non-due days are transparent: they neither break nor extend
// the streak. The first due-and-unsatisfied day ends the walk, so a
// weekly habit's streak counts weeks satisfied, not calendar days. The
// walk stops once it passes the habit's creation date.
func CurrentStreak(h model.Habit, asOf time.Time) int {
	day := truncateToDay(asOf)
	created := truncateToDay(h.CreatedAt)

	streak := 0
	for i := 0; i < maxStreakScanDays; i++ {
		if !h.CreatedAt.IsZero() && day.Before(created) {
			break
		}
		if IsDueOn(h, day) {
			if !IsSatisfiedOn(h, day) {
				break
			}
			streak++
		}
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
