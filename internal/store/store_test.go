package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/habitflow/internal/apperr"
	"github.com/nhle/habitflow/internal/model"
	"github.com/nhle/habitflow/internal/store"
	"github.com/nhle/habitflow/tests/testutil"
)

const user = "u1"

func newTask(t *testing.T, s *store.SQLiteStore, text string) *model.Task {
	t.Helper()
	task := &model.Task{UserID: user, Text: text, Priority: model.PriorityMedium, Points: 20}
	require.NoError(t, s.CreateTask(context.Background(), task))
	return task
}

func newHabit(t *testing.T, s *store.SQLiteStore, title string) *model.Habit {
	t.Helper()
	habit := &model.Habit{UserID: user, Title: title, Frequency: model.FrequencyDaily, IsActive: true}
	require.NoError(t, s.CreateHabit(context.Background(), habit))
	return habit
}

// TestSetTaskCompletion_CascadesAndIsIdempotent tests that completing a
// task marks its open sub-tasks, sets the deletion flag, and that
// repeating the transition reports no change.
func TestSetTaskCompletion_CascadesAndIsIdempotent(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	task := newTask(t, s, "pack boxes")
	require.NoError(t, s.AddSubTask(ctx, &model.SubTask{TaskID: task.ID, Text: "tape"}))
	require.NoError(t, s.AddSubTask(ctx, &model.SubTask{TaskID: task.ID, Text: "label"}))

	at := time.Date(2024, time.June, 14, 12, 0, 0, 0, time.UTC)
	got, changed, err := s.SetTaskCompletion(ctx, user, task.ID, true, at)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, got.Completed)
	assert.True(t, got.ScheduledForDeletion)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, at, got.CompletedAt.UTC())
	require.Len(t, got.SubTasks, 2)
	for _, st := range got.SubTasks {
		assert.True(t, st.Completed)
	}

	// Re-entering the same state must report no change and still
	// return the task with its sub-tasks attached.
	got, changed, err = s.SetTaskCompletion(ctx, user, task.ID, true, at.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, got.SubTasks, 2)

	// And the reverse transition clears everything.
	got, changed, err = s.SetTaskCompletion(ctx, user, task.ID, false, at.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, got.Completed)
	assert.False(t, got.ScheduledForDeletion)
	assert.Nil(t, got.CompletedAt)
}

// TestSetTaskCompletion_NotFound tests the missing-task path.
func TestSetTaskCompletion_NotFound(t *testing.T) {
	s := testutil.NewTestStore(t)

	_, _, err := s.SetTaskCompletion(context.Background(), user, "nope", true, time.Now())
	assert.True(t, apperr.IsNotFound(err))
}

// TestSetHabitCompletion_SingleEntryPerDate tests that repeated writes
// for one date overwrite rather than duplicate.
func TestSetHabitCompletion_SingleEntryPerDate(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	habit := newHabit(t, s, "run")

	prev, changed, err := s.SetHabitCompletion(ctx, user, habit.ID, "2024-06-14", true)
	require.NoError(t, err)
	assert.Nil(t, prev)
	assert.True(t, changed)

	// Same state again: unchanged.
	prev, changed, err = s.SetHabitCompletion(ctx, user, habit.ID, "2024-06-14", true)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.True(t, prev.Completed)
	assert.False(t, changed)

	// Flip it back.
	prev, changed, err = s.SetHabitCompletion(ctx, user, habit.ID, "2024-06-14", false)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.True(t, prev.Completed)
	assert.True(t, changed)

	got, err := s.GetHabitByID(ctx, user, habit.ID)
	require.NoError(t, err)
	require.Len(t, got.CompletionHistory, 1)
	assert.Equal(t, "2024-06-14", got.CompletionHistory[0].Date)
	assert.False(t, got.CompletionHistory[0].Completed)
}

// TestSetHabitCompletion_BadDate tests the validated boundary.
func TestSetHabitCompletion_BadDate(t *testing.T) {
	s := testutil.NewTestStore(t)
	habit := newHabit(t, s, "read")

	_, _, err := s.SetHabitCompletion(context.Background(), user, habit.ID, "June 14", true)
	assert.True(t, apperr.IsInvalidInput(err))
}

// TestAppendPointEntry_BalanceInvariant tests that the cached balance
// always equals the raw ledger sum.
func TestAppendPointEntry_BalanceInvariant(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	deltas := []struct {
		delta  int
		earned int
	}{
		{30, 30},
		{15, 15},
		{-15, -15},
		{-10, 0},
	}
	for _, d := range deltas {
		entry := &model.PointEntry{UserID: user, Type: model.EntryTaskComplete, Delta: d.delta}
		require.NoError(t, s.AppendPointEntry(ctx, entry, d.earned, false))
	}

	up, err := s.GetUserPoints(ctx, user)
	require.NoError(t, err)
	sum, err := s.SumPointDeltas(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, sum, up.CurrentPoints)
	assert.Equal(t, 20, up.CurrentPoints)
	assert.Equal(t, 30, up.TotalEarnedPoints)
}

// TestAppendPointEntry_EnforceBalance tests that a guarded append
// writes nothing when the balance cannot cover it.
func TestAppendPointEntry_EnforceBalance(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	entry := &model.PointEntry{UserID: user, Type: model.EntryShopPurchase, Delta: -50}
	err := s.AppendPointEntry(ctx, entry, 0, true)
	assert.True(t, apperr.IsInsufficientPoints(err))

	entries, err := s.ListPointEntries(ctx, user, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	up, err := s.GetUserPoints(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, up.CurrentPoints)
}

// TestAppendPointEntry_ClampsEarned tests that TotalEarnedPoints never
// goes negative even when a reversal exceeds it.
func TestAppendPointEntry_ClampsEarned(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	award := &model.PointEntry{UserID: user, Type: model.EntryTaskComplete, Delta: 10}
	require.NoError(t, s.AppendPointEntry(ctx, award, 10, false))

	reversal := &model.PointEntry{UserID: user, Type: model.EntryTaskUncomplete, Delta: -10}
	require.NoError(t, s.AppendPointEntry(ctx, reversal, -25, false))

	up, err := s.GetUserPoints(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, up.TotalEarnedPoints)
}

// TestDeleteTaskTrees_Batch tests the all-or-nothing sweep delete.
func TestDeleteTaskTrees_Batch(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	doomed := newTask(t, s, "old")
	require.NoError(t, s.AddSubTask(ctx, &model.SubTask{TaskID: doomed.ID, Text: "part"}))
	kept := newTask(t, s, "fresh")

	n, err := s.DeleteTaskTrees(ctx, user, []string{doomed.ID, "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.GetTaskByID(ctx, user, doomed.ID)
	assert.True(t, apperr.IsNotFound(err))

	subs, err := s.GetSubTasks(ctx, doomed.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)

	_, err = s.GetTaskByID(ctx, user, kept.ID)
	assert.NoError(t, err)
}

// TestSubscribe_EmitsEventsForWrites tests the change stream tagging.
func TestSubscribe_EmitsEventsForWrites(t *testing.T) {
	s := testutil.NewTestStore(t)

	var events []store.Event
	unsub := s.Subscribe(func(ev store.Event) {
		events = append(events, ev)
	})
	defer unsub()

	newTask(t, s, "observe me")
	newHabit(t, s, "observe me too")

	require.Len(t, events, 2)
	assert.Equal(t, store.CollectionTasks, events[0].Collection)
	assert.Equal(t, store.CollectionHabits, events[1].Collection)
	assert.Equal(t, user, events[0].UserID)

	unsub()
	newTask(t, s, "silent")
	assert.Len(t, events, 2)
}

// TestGetTasks_Filter tests completion filtering and ordering.
func TestGetTasks_Filter(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	a := newTask(t, s, "a")
	newTask(t, s, "b")
	_, _, err := s.SetTaskCompletion(ctx, user, a.ID, true, time.Now())
	require.NoError(t, err)

	open := false
	got, err := s.GetTasks(ctx, user, store.TaskFilter{Completed: &open})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Text)

	all, err := s.GetTasks(ctx, user, store.TaskFilter{SortBy: "sort_order"})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// TestGetTasks_PrioritySort tests that sorting by priority orders by
// rank, not by the column's alphabetical order.
func TestGetTasks_PrioritySort(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	for _, p := range []model.Priority{model.PriorityLow, model.PriorityHigh, model.PriorityMedium} {
		task := &model.Task{UserID: user, Text: string(p) + " task", Priority: p}
		require.NoError(t, s.CreateTask(ctx, task))
	}

	got, err := s.GetTasks(ctx, user, store.TaskFilter{SortBy: "priority"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, model.PriorityHigh, got[0].Priority)
	assert.Equal(t, model.PriorityMedium, got[1].Priority)
	assert.Equal(t, model.PriorityLow, got[2].Priority)

	got, err = s.GetTasks(ctx, user, store.TaskFilter{SortBy: "priority", SortDesc: true})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, model.PriorityLow, got[0].Priority)
}

// TestUserIsolation tests that one user's queries never see another's rows.
func TestUserIsolation(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	mine := newTask(t, s, "mine")

	other, err := s.GetTasks(ctx, "u2", store.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, other)

	_, err = s.GetTaskByID(ctx, "u2", mine.ID)
	assert.True(t, apperr.IsNotFound(err))
}
