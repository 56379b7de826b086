package sweeper_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/habitflow/internal/apperr"
	"github.com/nhle/habitflow/internal/auth"
	"github.com/nhle/habitflow/internal/model"
	"github.com/nhle/habitflow/internal/store"
	"github.com/nhle/habitflow/internal/sweeper"
	"github.com/nhle/habitflow/tests/testutil"
)

const user = "u1"

// completedTask creates a task and completes it at the given instant,
// so tests can place completions on either side of the retention cutoff.
func completedTask(t *testing.T, s *store.SQLiteStore, text string, at time.Time) *model.Task {
	t.Helper()
	ctx := context.Background()

	task := &model.Task{UserID: user, Text: text}
	require.NoError(t, s.CreateTask(ctx, task))
	got, changed, err := s.SetTaskCompletion(ctx, user, task.ID, true, at)
	require.NoError(t, err)
	require.True(t, changed)
	return got
}

func newSweeper(t *testing.T, s *store.SQLiteStore, now time.Time) *sweeper.Sweeper {
	t.Helper()
	session := auth.NewMemorySession()
	require.NoError(t, session.SignIn(user))

	sw := sweeper.New(s, session)
	sw.Now = func() time.Time { return now }
	return sw
}

// TestSweep_RemovesExpiredTrees tests that only completions older than
// the retention window are purged and that sub-tasks go with them.
func TestSweep_RemovesExpiredTrees(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, time.June, 14, 12, 0, 0, 0, time.UTC)

	old := completedTask(t, s, "old and done", now.AddDate(0, 0, -8))
	require.NoError(t, s.AddSubTask(ctx, &model.SubTask{TaskID: old.ID, Text: "leftover"}))
	recent := completedTask(t, s, "recently done", now.AddDate(0, 0, -6))

	open := &model.Task{UserID: user, Text: "still open"}
	require.NoError(t, s.CreateTask(ctx, open))

	sw := newSweeper(t, s, now)
	deleted, err := sw.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = s.GetTaskByID(ctx, user, old.ID)
	assert.True(t, apperr.IsNotFound(err))
	subs, err := s.GetSubTasks(ctx, old.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)

	_, err = s.GetTaskByID(ctx, user, recent.ID)
	assert.NoError(t, err, "completions inside the window must survive")
	_, err = s.GetTaskByID(ctx, user, open.ID)
	assert.NoError(t, err, "incomplete tasks are never swept")
}

// TestSweep_Idempotent tests that a second pass finds nothing.
func TestSweep_Idempotent(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, time.June, 14, 12, 0, 0, 0, time.UTC)

	completedTask(t, s, "old and done", now.AddDate(0, 0, -10))

	sw := newSweeper(t, s, now)
	deleted, err := sw.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	deleted, err = sw.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

// TestSweep_ReversedCompletionSurvives tests that uncompleting a task
// takes it back out of the sweep's reach.
func TestSweep_ReversedCompletionSurvives(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, time.June, 14, 12, 0, 0, 0, time.UTC)

	task := completedTask(t, s, "changed my mind", now.AddDate(0, 0, -9))
	_, changed, err := s.SetTaskCompletion(ctx, user, task.ID, false, now)
	require.NoError(t, err)
	require.True(t, changed)

	sw := newSweeper(t, s, now)
	deleted, err := sw.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

// TestSweep_RequiresUser tests the signed-out path.
func TestSweep_RequiresUser(t *testing.T) {
	s := testutil.NewTestStore(t)
	sw := sweeper.New(s, auth.NewMemorySession())

	_, err := sw.Sweep(context.Background())
	assert.True(t, apperr.IsNotAuthenticated(err))
}

// TestStartStop tests that the background schedule starts and stops
// cleanly, including a redundant Start.
func TestStartStop(t *testing.T) {
	s := testutil.NewTestStore(t)
	sw := newSweeper(t, s, time.Now().UTC())

	require.NoError(t, sw.Start(time.Minute))
	require.NoError(t, sw.Start(time.Minute))
	sw.Stop()
	sw.Stop()
}
