// Package lifecycle orchestrates task and habit state transitions: the
// entity write, the matching ledger entry, and any post-transition
// hooks, in that order. The entity write always commits before the
// ledger call, so an award is never recorded for a write that did not
// happen; the opposite gap (entity written, ledger failed) is surfaced
// as a PartialUpdate error and never silently repaired or retried.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nhle/habitflow/internal/apperr"
	"github.com/nhle/habitflow/internal/ledger"
	"github.com/nhle/habitflow/internal/model"
	"github.com/nhle/habitflow/internal/store"
)

// PointLedger is the slice of the ledger the controller needs.
type PointLedger interface {
	Award(ctx context.Context, userID string, typ model.EntryType, amount int, reason string) error
	Reverse(ctx context.Context, userID string, typ model.EntryType, amount int, reason string) error
}

// ItemKind distinguishes transition subjects.
type ItemKind string

const (
	KindTask  ItemKind = "task"
	KindHabit ItemKind = "habit"
)

// Transition describes one committed completion-state change, handed to
// post-transition hooks.
type Transition struct {
	UserID    string
	Kind      ItemKind
	ItemID    string
	ItemTitle string
	Date      string // YYYY-MM-DD, habits only
	Completed bool
	Points    int
}

// Hook runs after the authoritative state change and its ledger entry
// commit. Hook failures are logged and never propagate; a broken sound
// effect or notification must not corrupt a transition.
type Hook func(ctx context.Context, t Transition) error

// Controller drives the complete/incomplete state machine for tasks and
// habits.
type Controller struct {
	store  store.Store
	ledger PointLedger
	hooks  []Hook

	// Now is the clock for completion timestamps; tests override it.
	Now func() time.Time
}

// New creates a Controller. Hooks run in registration order.
func New(s store.Store, l PointLedger, hooks ...Hook) *Controller {
	return &Controller{store: s, ledger: l, hooks: hooks, Now: time.Now}
}

// CreateTask validates and persists a new task, pre-filling its point
// reward from the priority mapping when unset.
func (c *Controller) CreateTask(ctx context.Context, task *model.Task) error {
	if task.UserID == "" {
		return apperr.New(apperr.KindNotAuthenticated, "please sign in again")
	}
	if task.Points == 0 {
		p := task.Priority
		if p == "" {
			p = model.PriorityMedium
		}
		task.Points = ledger.PointsForPriority(p)
	}
	return c.store.CreateTask(ctx, task)
}

// CreateHabit validates and persists a new habit.
func (c *Controller) CreateHabit(ctx context.Context, habit *model.Habit) error {
	if habit.UserID == "" {
		return apperr.New(apperr.KindNotAuthenticated, "please sign in again")
	}
	return c.store.CreateHabit(ctx, habit)
}

// CompleteTask transitions a task to complete: the task row (and any
// open sub-tasks) first, then the point award. Completing an already
// complete task is a no-op and awards nothing.
func (c *Controller) CompleteTask(ctx context.Context, userID, taskID string) (*model.Task, error) {
	return c.setTaskState(ctx, userID, taskID, true)
}

// UncompleteTask transitions a task back to incomplete, reversing the
// points the completion awarded. Idempotent like CompleteTask.
func (c *Controller) UncompleteTask(ctx context.Context, userID, taskID string) (*model.Task, error) {
	return c.setTaskState(ctx, userID, taskID, false)
}

// ToggleTask flips the task's current completion state.
func (c *Controller) ToggleTask(ctx context.Context, userID, taskID string) (*model.Task, error) {
	task, err := c.store.GetTaskByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	return c.setTaskState(ctx, userID, taskID, !task.Completed)
}

func (c *Controller) setTaskState(ctx context.Context, userID, taskID string, completed bool) (*model.Task, error) {
	if userID == "" {
		return nil, apperr.New(apperr.KindNotAuthenticated, "please sign in again")
	}

	task, changed, err := c.store.SetTaskCompletion(ctx, userID, taskID, completed, c.Now())
	if err != nil {
		return nil, err
	}
	if !changed {
		// Already in the requested state; never double-award.
		return task, nil
	}

	points := taskPoints(*task)
	if completed {
		err = c.ledger.Award(ctx, userID, model.EntryTaskComplete, points,
			fmt.Sprintf("completed task: %s", task.Text))
	} else {
		err = c.ledger.Reverse(ctx, userID, model.EntryTaskUncomplete, points,
			fmt.Sprintf("reverted task: %s", task.Text))
	}
	if err != nil {
		return task, apperr.Wrap(apperr.KindPartialUpdate,
			"task was updated but its points were not recorded", err)
	}

	c.runHooks(ctx, Transition{
		UserID:    userID,
		Kind:      KindTask,
		ItemID:    task.ID,
		ItemTitle: task.Text,
		Completed: completed,
		Points:    points,
	})

	return task, nil
}

// SetHabitDone records whether the habit was performed on the given
// date, awarding points when a date first becomes satisfied and
// reversing them when a satisfied date is taken back. Re-stating the
// current state changes nothing and moves no points.
func (c *Controller) SetHabitDone(ctx context.Context, userID, habitID string, date time.Time, done bool) (*model.Habit, error) {
	if userID == "" {
		return nil, apperr.New(apperr.KindNotAuthenticated, "please sign in again")
	}

	dateStr := date.Format(model.DateLayout)
	prev, changed, err := c.store.SetHabitCompletion(ctx, userID, habitID, dateStr, done)
	if err != nil {
		return nil, err
	}

	habit, err := c.store.GetHabitByID(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return habit, nil
	}

	wasSatisfied := prev != nil && prev.Completed
	var ledgerErr error
	switch {
	case done && !wasSatisfied:
		ledgerErr = c.ledger.Award(ctx, userID, model.EntryHabitComplete,
			ledger.HabitCompletionPoints,
			fmt.Sprintf("completed habit: %s", habit.Title))
	case !done && wasSatisfied:
		ledgerErr = c.ledger.Reverse(ctx, userID, model.EntryHabitUncomplete,
			ledger.HabitCompletionPoints,
			fmt.Sprintf("reverted habit: %s", habit.Title))
	}
	if ledgerErr != nil {
		return habit, apperr.Wrap(apperr.KindPartialUpdate,
			"habit was updated but its points were not recorded", ledgerErr)
	}

	c.runHooks(ctx, Transition{
		UserID:    userID,
		Kind:      KindHabit,
		ItemID:    habit.ID,
		ItemTitle: habit.Title,
		Date:      dateStr,
		Completed: done,
		Points:    ledger.HabitCompletionPoints,
	})

	return habit, nil
}

// ToggleHabitToday flips today's completion entry for the habit.
func (c *Controller) ToggleHabitToday(ctx context.Context, userID, habitID string) (*model.Habit, error) {
	if userID == "" {
		return nil, apperr.New(apperr.KindNotAuthenticated, "please sign in again")
	}

	habit, err := c.store.GetHabitByID(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}

	today := c.Now()
	entry, ok := habit.EntryOn(today.Format(model.DateLayout))
	done := !(ok && entry.Completed)
	return c.SetHabitDone(ctx, userID, habitID, today, done)
}

func (c *Controller) runHooks(ctx context.Context, t Transition) {
	for _, h := range c.hooks {
		if err := h(ctx, t); err != nil {
			log.Error("post-transition hook failed",
				"kind", t.Kind, "item", t.ItemID, "err", err)
		}
	}
}

// taskPoints resolves a task's reward, falling back to the priority
// mapping when Points is unset.
func taskPoints(t model.Task) int {
	if t.Points > 0 {
		return t.Points
	}
	return ledger.PointsForPriority(t.Priority)
}
