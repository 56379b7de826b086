package store

import (
	"context"
	"time"

	"github.com/nhle/habitflow/internal/model"
)

// TaskFilter controls filtering and sorting for task queries.
type TaskFilter struct {
	Completed *bool      // nil means all
	DueBefore *time.Time // tasks with a deadline before this instant
	SortBy    string     // "sort_order", "deadline", "priority", "created_at"
	SortDesc  bool
	Limit     int
	Offset    int
}

// Store defines the persistence interface for tasks, habits, the point
// ledger, and notifications, plus the change-stream subscription the
// sync layer listens on.
type Store interface {
	// === Tasks ===

	CreateTask(ctx context.Context, task *model.Task) error
	UpdateTask(ctx context.Context, task model.Task) error
	DeleteTask(ctx context.Context, userID, id string) error
	GetTaskByID(ctx context.Context, userID, id string) (*model.Task, error)
	GetTasks(ctx context.Context, userID string, filter TaskFilter) ([]model.Task, error)
	ReorderTask(ctx context.Context, userID, id string, newSortOrder int) error

	// SetTaskCompletion transitions a task's completed state in a single
	// transaction, cascading to open sub-tasks on completion. It reports
	// changed=false when the task is already in the requested state.
	SetTaskCompletion(ctx context.Context, userID, id string, completed bool, at time.Time) (task *model.Task, changed bool, err error)

	// ListSweepableTasks returns completed, deletion-flagged tasks whose
	// CompletedAt is strictly before cutoff.
	ListSweepableTasks(ctx context.Context, userID string, cutoff time.Time) ([]model.Task, error)

	// DeleteTaskTrees removes the given tasks and their sub-tasks in one
	// all-or-nothing transaction.
	DeleteTaskTrees(ctx context.Context, userID string, ids []string) (int, error)

	// === Sub-tasks ===

	AddSubTask(ctx context.Context, item *model.SubTask) error
	UpdateSubTask(ctx context.Context, item model.SubTask) error
	DeleteSubTask(ctx context.Context, id string) error
	GetSubTasks(ctx context.Context, taskID string) ([]model.SubTask, error)
	ToggleSubTask(ctx context.Context, id string) error

	// === Habits ===

	CreateHabit(ctx context.Context, habit *model.Habit) error
	UpdateHabit(ctx context.Context, habit model.Habit) error
	DeleteHabit(ctx context.Context, userID, id string) error
	GetHabitByID(ctx context.Context, userID, id string) (*model.Habit, error)
	GetHabits(ctx context.Context, userID string, activeOnly bool) ([]model.Habit, error)

	// SetHabitCompletion upserts the history entry for one calendar date,
	// keeping at most one entry per date. It returns the prior entry (nil
	// when none existed) and whether the stored state actually changed.
	SetHabitCompletion(ctx context.Context, userID, habitID, date string, completed bool) (prev *model.CompletionEntry, changed bool, err error)

	// === Point ledger ===

	// AppendPointEntry durably appends entry and folds it into the cached
	// balance in the same transaction. earnedDelta adjusts
	// TotalEarnedPoints (clamped at zero). With enforceBalance set, the
	// append fails with InsufficientPoints when the resulting
	// CurrentPoints would go negative, leaving no trace.
	AppendPointEntry(ctx context.Context, entry *model.PointEntry, earnedDelta int, enforceBalance bool) error
	GetUserPoints(ctx context.Context, userID string) (*model.UserPoints, error)
	ListPointEntries(ctx context.Context, userID string, limit int) ([]model.PointEntry, error)
	SumPointDeltas(ctx context.Context, userID string) (int, error)
	HasPointEntryOnDate(ctx context.Context, userID string, typ model.EntryType, date string) (bool, error)

	// === Notifications ===

	CreateNotification(ctx context.Context, n *model.Notification) error
	GetUnreadNotifications(ctx context.Context, userID string) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error

	// === Change stream ===

	// Subscribe registers fn for change events emitted after each
	// committed write. The returned function unsubscribes.
	Subscribe(fn func(Event)) func()
}
