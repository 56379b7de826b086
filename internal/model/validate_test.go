package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/habitflow/internal/apperr"
	"github.com/nhle/habitflow/internal/model"
)

func TestTaskValidate(t *testing.T) {
	valid := model.Task{UserID: "u1", Text: "write report", Priority: model.PriorityHigh}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*model.Task)
	}{
		{"empty text", func(task *model.Task) { task.Text = "  " }},
		{"missing owner", func(task *model.Task) { task.UserID = "" }},
		{"unknown priority", func(task *model.Task) { task.Priority = "urgent" }},
		{"negative points", func(task *model.Task) { task.Points = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			task := valid
			tc.mutate(&task)
			assert.True(t, apperr.IsInvalidInput(task.Validate()))
		})
	}

	// An empty priority is allowed; the store defaults it.
	noPriority := valid
	noPriority.Priority = ""
	assert.NoError(t, noPriority.Validate())
}

func TestHabitValidate(t *testing.T) {
	valid := model.Habit{
		UserID:       "u1",
		Title:        "stretch",
		Frequency:    model.FrequencyWeekly,
		TargetDays:   []int{1, 3, 5},
		ReminderTime: "07:30",
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*model.Habit)
	}{
		{"empty title", func(h *model.Habit) { h.Title = "" }},
		{"missing owner", func(h *model.Habit) { h.UserID = "" }},
		{"unknown frequency", func(h *model.Habit) { h.Frequency = "fortnightly" }},
		{"weekday out of range", func(h *model.Habit) { h.TargetDays = []int{7} }},
		{"malformed reminder", func(h *model.Habit) { h.ReminderTime = "25:00" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := valid
			tc.mutate(&h)
			assert.True(t, apperr.IsInvalidInput(h.Validate()))
		})
	}

	monthly := valid
	monthly.Frequency = model.FrequencyMonthly
	monthly.TargetDays = []int{1, 15, 31}
	assert.NoError(t, monthly.Validate())

	monthly.TargetDays = []int{0}
	assert.True(t, apperr.IsInvalidInput(monthly.Validate()))
}

func TestValidClockTime(t *testing.T) {
	for _, s := range []string{"00:00", "7:05", "23:59"} {
		assert.True(t, model.ValidClockTime(s), s)
	}
	for _, s := range []string{"", "24:00", "12:60", "noon", "12", "12:00:00"} {
		assert.False(t, model.ValidClockTime(s), s)
	}
}
