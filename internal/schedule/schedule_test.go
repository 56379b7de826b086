package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/habitflow/internal/model"
)

// date builds a midnight UTC time for readable test tables.
func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func activeHabit(freq model.Frequency, targetDays ...int) model.Habit {
	return model.Habit{
		ID:         "h1",
		UserID:     "u1",
		Title:      "stretch",
		Frequency:  freq,
		TargetDays: targetDays,
		IsActive:   true,
		CreatedAt:  date(2024, time.January, 1),
	}
}

// TestIsDueOn_Daily tests that daily habits are due every date while active.
func TestIsDueOn_Daily(t *testing.T) {
	h := activeHabit(model.FrequencyDaily)

	assert.True(t, IsDueOn(h, date(2024, time.June, 10)))
	assert.True(t, IsDueOn(h, date(2024, time.June, 11)))
	assert.True(t, IsDueOn(h, date(2024, time.December, 25)))
}

// TestIsDueOn_Inactive tests that inactive habits are never due.
func TestIsDueOn_Inactive(t *testing.T) {
	h := activeHabit(model.FrequencyDaily)
	h.IsActive = false

	assert.False(t, IsDueOn(h, date(2024, time.June, 10)))
}

// TestIsDueOn_Weekly tests weekday targeting. 2024-06-10 is a Monday.
func TestIsDueOn_Weekly(t *testing.T) {
	h := activeHabit(model.FrequencyWeekly, 1, 3, 5) // Mon/Wed/Fri

	tests := []struct {
		name string
		day  time.Time
		due  bool
	}{
		{"monday", date(2024, time.June, 10), true},
		{"tuesday", date(2024, time.June, 11), false},
		{"wednesday", date(2024, time.June, 12), true},
		{"thursday", date(2024, time.June, 13), false},
		{"friday", date(2024, time.June, 14), true},
		{"saturday", date(2024, time.June, 15), false},
		{"sunday", date(2024, time.June, 16), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.due, IsDueOn(h, tt.day))
		})
	}
}

// TestIsDueOn_WeeklyNoTargets tests the documented fallback: a weekly
// habit with an empty target set is due every day, not never.
func TestIsDueOn_WeeklyNoTargets(t *testing.T) {
	h := activeHabit(model.FrequencyWeekly)

	for d := 10; d <= 16; d++ {
		assert.True(t, IsDueOn(h, date(2024, time.June, d)), "day %d", d)
	}
}

// TestIsDueOn_Monthly tests day-of-month targeting.
func TestIsDueOn_Monthly(t *testing.T) {
	h := activeHabit(model.FrequencyMonthly, 1, 15)

	assert.True(t, IsDueOn(h, date(2024, time.June, 1)))
	assert.True(t, IsDueOn(h, date(2024, time.June, 15)))
	assert.False(t, IsDueOn(h, date(2024, time.June, 14)))
	assert.False(t, IsDueOn(h, date(2024, time.June, 30)))
}

// TestIsDueOn_UnknownFrequency tests that a malformed stored frequency
// reads as "never due" rather than failing.
func TestIsDueOn_UnknownFrequency(t *testing.T) {
	h := activeHabit(model.Frequency("fortnightly"))

	assert.False(t, IsDueOn(h, date(2024, time.June, 10)))
}

// TestIsDueOn_Deterministic tests that repeated calls with identical
// inputs always agree; the warning banner and the today view share
// these answers.
func TestIsDueOn_Deterministic(t *testing.T) {
	h := activeHabit(model.FrequencyWeekly, 2)
	d := date(2024, time.June, 11) // Tuesday

	first := IsDueOn(h, d)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, IsDueOn(h, d))
	}
	assert.True(t, first)
}

// TestIsSatisfiedOn tests history lookup semantics.
func TestIsSatisfiedOn(t *testing.T) {
	h := activeHabit(model.FrequencyDaily)
	h.CompletionHistory = []model.CompletionEntry{
		{HabitID: h.ID, Date: "2024-06-10", Completed: true},
		{HabitID: h.ID, Date: "2024-06-11", Completed: false},
	}

	assert.True(t, IsSatisfiedOn(h, date(2024, time.June, 10)))
	assert.False(t, IsSatisfiedOn(h, date(2024, time.June, 11)), "entry flipped back to incomplete")
	assert.False(t, IsSatisfiedOn(h, date(2024, time.June, 12)), "absent entry")
}
