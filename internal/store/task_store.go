package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/habitflow/internal/apperr"
	"github.com/nhle/habitflow/internal/model"
)

const taskColumns = `id, user_id, text, completed, completed_at, deadline,
	priority, points, sort_order, scheduled_for_deletion, created_at, updated_at`

// rowScanner abstracts *sqlx.Row and *sqlx.Rows for the scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(r rowScanner) (model.Task, error) {
	var t model.Task
	var completed, scheduled int
	err := r.Scan(
		&t.ID, &t.UserID, &t.Text, &completed, &t.CompletedAt, &t.Deadline,
		&t.Priority, &t.Points, &t.SortOrder, &scheduled, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return model.Task{}, err
	}
	t.Completed = completed != 0
	t.ScheduledForDeletion = scheduled != 0
	return t, nil
}

func scanSubTask(r rowScanner) (model.SubTask, error) {
	var st model.SubTask
	var completed int
	err := r.Scan(&st.ID, &st.TaskID, &st.Text, &completed, &st.SortOrder, &st.CreatedAt)
	if err != nil {
		return model.SubTask{}, err
	}
	st.Completed = completed != 0
	return st, nil
}

// CreateTask inserts a new task. Generates a UUID if ID is empty and
// defaults sort_order to max+1 within the user's list.
func (s *SQLiteStore) CreateTask(ctx context.Context, task *model.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	if task.SortOrder == 0 {
		var maxOrder int
		err := s.db.GetContext(ctx, &maxOrder,
			"SELECT COALESCE(MAX(sort_order), 0) FROM tasks WHERE user_id = ?",
			task.UserID)
		if err != nil {
			return persistErr("getting max sort_order", err)
		}
		task.SortOrder = maxOrder + 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (
			id, user_id, text, completed, completed_at, deadline,
			priority, points, sort_order, scheduled_for_deletion,
			created_at, updated_at
		) VALUES (?, ?, ?, 0, NULL, ?, ?, ?, ?, 0, ?, ?)`,
		task.ID, task.UserID, task.Text, task.Deadline,
		task.Priority, task.Points, task.SortOrder,
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return persistErr("creating task", err)
	}

	s.notify(CollectionTasks, task.UserID)
	return nil
}

// UpdateTask updates a task's editable fields (text, deadline, priority,
// sort order). Completion state is owned by SetTaskCompletion, and the
// point reward stays frozen at its creation value so a later edit can
// never unbalance a completion and its reversal.
func (s *SQLiteStore) UpdateTask(ctx context.Context, task model.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET
			text = ?, deadline = ?, priority = ?,
			sort_order = ?, updated_at = ?
		WHERE user_id = ? AND id = ?`,
		task.Text, task.Deadline, task.Priority,
		task.SortOrder, time.Now().UTC(),
		task.UserID, task.ID,
	)
	if err != nil {
		return persistErr(fmt.Sprintf("updating task %s", task.ID), err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.Newf(apperr.KindNotFound, "task %s not found", task.ID)
	}

	s.notify(CollectionTasks, task.UserID)
	return nil
}

// DeleteTask removes a task and its sub-tasks in one transaction.
func (s *SQLiteStore) DeleteTask(ctx context.Context, userID, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return persistErr("beginning transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM sub_tasks WHERE task_id = ?", id); err != nil {
		return persistErr(fmt.Sprintf("deleting sub-tasks of %s", id), err)
	}

	result, err := tx.ExecContext(ctx,
		"DELETE FROM tasks WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return persistErr(fmt.Sprintf("deleting task %s", id), err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.Newf(apperr.KindNotFound, "task %s not found", id)
	}

	if err := tx.Commit(); err != nil {
		return persistErr("committing task delete", err)
	}

	s.notify(CollectionTasks, userID)
	return nil
}

// GetTaskByID retrieves a single task with its sub-tasks.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, userID, id string) (*model.Task, error) {
	row := s.db.QueryRowxContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = ? AND id = ?",
		userID, id)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.KindNotFound, "task %s not found", id)
	}
	if err != nil {
		return nil, persistErr(fmt.Sprintf("getting task %s", id), err)
	}

	subs, err := s.GetSubTasks(ctx, id)
	if err != nil {
		return nil, err
	}
	task.SubTasks = subs

	return &task, nil
}

// GetTasks retrieves a user's tasks matching the filter, each with its
// sub-tasks attached.
func (s *SQLiteStore) GetTasks(ctx context.Context, userID string, filter TaskFilter) ([]model.Task, error) {
	var conds []string
	args := []any{userID}
	conds = append(conds, "user_id = ?")

	if filter.Completed != nil {
		conds = append(conds, "completed = ?")
		args = append(args, boolToInt(*filter.Completed))
	}
	if filter.DueBefore != nil {
		conds = append(conds, "deadline IS NOT NULL AND deadline < ?")
		args = append(args, filter.DueBefore.UTC())
	}

	orderBy := "sort_order"
	switch filter.SortBy {
	case "deadline", "created_at", "sort_order":
		orderBy = filter.SortBy
	case "priority":
		// TEXT column; rank it explicitly, alphabetical order would put
		// high before low before medium.
		orderBy = "CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END"
	}
	dir := "ASC"
	if filter.SortDesc {
		dir = "DESC"
	}

	query := "SELECT " + taskColumns + " FROM tasks WHERE " +
		strings.Join(conds, " AND ") +
		fmt.Sprintf(" ORDER BY %s %s", orderBy, dir)
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("querying tasks", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, persistErr("scanning task", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("reading tasks", err)
	}

	for i := range tasks {
		subs, err := s.GetSubTasks(ctx, tasks[i].ID)
		if err != nil {
			return nil, err
		}
		tasks[i].SubTasks = subs
	}

	return tasks, nil
}

// ReorderTask updates the sort_order for a specific task.
func (s *SQLiteStore) ReorderTask(ctx context.Context, userID, id string, newSortOrder int) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET sort_order = ?, updated_at = ? WHERE user_id = ? AND id = ?",
		newSortOrder, time.Now().UTC(), userID, id,
	)
	if err != nil {
		return persistErr(fmt.Sprintf("reordering task %s", id), err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.Newf(apperr.KindNotFound, "task %s not found", id)
	}

	s.notify(CollectionTasks, userID)
	return nil
}

// SetTaskCompletion transitions a task's completed state in one
// transaction. Completing sets completed_at and the deletion flag and
// cascades to open sub-tasks; un-completing clears both. A task already
// in the requested state is returned unchanged with changed=false.
func (s *SQLiteStore) SetTaskCompletion(ctx context.Context, userID, id string, completed bool, at time.Time) (*model.Task, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, persistErr("beginning transaction", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowxContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = ? AND id = ?",
		userID, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, apperr.Newf(apperr.KindNotFound, "task %s not found", id)
	}
	if err != nil {
		return nil, false, persistErr(fmt.Sprintf("getting task %s", id), err)
	}

	if task.Completed == completed {
		// Read through tx: the pool may not have another connection,
		// and a :memory: database only exists on this one.
		subs, err := getSubTasks(ctx, tx, id)
		if err != nil {
			return nil, false, err
		}
		task.SubTasks = subs
		return &task, false, nil
	}

	at = at.UTC()
	if completed {
		_, err = tx.ExecContext(ctx, `
			UPDATE tasks SET
				completed = 1, completed_at = ?, scheduled_for_deletion = 1,
				updated_at = ?
			WHERE id = ?`, at, at, id)
		if err == nil {
			_, err = tx.ExecContext(ctx,
				"UPDATE sub_tasks SET completed = 1 WHERE task_id = ? AND completed = 0", id)
		}
		task.Completed = true
		task.CompletedAt = &at
		task.ScheduledForDeletion = true
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE tasks SET
				completed = 0, completed_at = NULL, scheduled_for_deletion = 0,
				updated_at = ?
			WHERE id = ?`, at, id)
		task.Completed = false
		task.CompletedAt = nil
		task.ScheduledForDeletion = false
	}
	if err != nil {
		return nil, false, persistErr(fmt.Sprintf("toggling task %s", id), err)
	}
	task.UpdatedAt = at

	if err := tx.Commit(); err != nil {
		return nil, false, persistErr("committing task toggle", err)
	}

	s.notify(CollectionTasks, userID)

	subs, err := s.GetSubTasks(ctx, id)
	if err != nil {
		return nil, false, err
	}
	task.SubTasks = subs

	return &task, true, nil
}

// ListSweepableTasks returns completed, deletion-flagged tasks whose
// completion time is strictly before cutoff.
func (s *SQLiteStore) ListSweepableTasks(ctx context.Context, userID string, cutoff time.Time) ([]model.Task, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT "+taskColumns+` FROM tasks
		WHERE user_id = ? AND completed = 1 AND scheduled_for_deletion = 1
			AND completed_at IS NOT NULL AND completed_at < ?
		ORDER BY completed_at`,
		userID, cutoff.UTC())
	if err != nil {
		return nil, persistErr("querying sweepable tasks", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, persistErr("scanning sweepable task", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// DeleteTaskTrees removes the given tasks and their sub-tasks in a single
// all-or-nothing transaction and returns how many tasks were deleted.
func (s *SQLiteStore) DeleteTaskTrees(ctx context.Context, userID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, persistErr("beginning transaction", err)
	}
	defer tx.Rollback()

	deleted := 0
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM sub_tasks WHERE task_id = ?", id); err != nil {
			return 0, persistErr(fmt.Sprintf("deleting sub-tasks of %s", id), err)
		}
		result, err := tx.ExecContext(ctx,
			"DELETE FROM tasks WHERE user_id = ? AND id = ?", userID, id)
		if err != nil {
			return 0, persistErr(fmt.Sprintf("deleting task %s", id), err)
		}
		rows, _ := result.RowsAffected()
		deleted += int(rows)
	}

	if err := tx.Commit(); err != nil {
		return 0, persistErr("committing batch delete", err)
	}

	if deleted > 0 {
		s.notify(CollectionTasks, userID)
	}
	return deleted, nil
}

// AddSubTask inserts a new sub-task for a task.
func (s *SQLiteStore) AddSubTask(ctx context.Context, item *model.SubTask) error {
	if strings.TrimSpace(item.Text) == "" {
		return apperr.New(apperr.KindInvalidInput, "sub-task text must not be empty")
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.CreatedAt = time.Now().UTC()

	if item.SortOrder == 0 {
		var maxOrder int
		err := s.db.GetContext(ctx, &maxOrder,
			"SELECT COALESCE(MAX(sort_order), 0) FROM sub_tasks WHERE task_id = ?",
			item.TaskID)
		if err != nil {
			return persistErr("getting max sub-task sort_order", err)
		}
		item.SortOrder = maxOrder + 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sub_tasks (id, task_id, text, completed, sort_order, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.TaskID, item.Text, boolToInt(item.Completed),
		item.SortOrder, item.CreatedAt,
	)
	if err != nil {
		return persistErr("adding sub-task", err)
	}

	s.notifyTaskOwner(ctx, item.TaskID)
	return nil
}

// notifyTaskOwner emits a tasks event for the user owning taskID.
// Sub-task writes reuse this since they carry no user ID themselves.
func (s *SQLiteStore) notifyTaskOwner(ctx context.Context, taskID string) {
	var userID string
	if err := s.db.GetContext(ctx, &userID,
		"SELECT user_id FROM tasks WHERE id = ?", taskID); err != nil {
		return
	}
	s.notify(CollectionTasks, userID)
}

// subTaskOwner resolves the parent task of a sub-task.
func (s *SQLiteStore) subTaskOwner(ctx context.Context, subTaskID string) (string, bool) {
	var taskID string
	err := s.db.GetContext(ctx, &taskID,
		"SELECT task_id FROM sub_tasks WHERE id = ?", subTaskID)
	if err != nil {
		return "", false
	}
	return taskID, true
}

// UpdateSubTask updates text and completed state of a sub-task.
func (s *SQLiteStore) UpdateSubTask(ctx context.Context, item model.SubTask) error {
	if strings.TrimSpace(item.Text) == "" {
		return apperr.New(apperr.KindInvalidInput, "sub-task text must not be empty")
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE sub_tasks SET text = ?, completed = ? WHERE id = ?",
		item.Text, boolToInt(item.Completed), item.ID,
	)
	if err != nil {
		return persistErr(fmt.Sprintf("updating sub-task %s", item.ID), err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.Newf(apperr.KindNotFound, "sub-task %s not found", item.ID)
	}

	s.notifyTaskOwner(ctx, item.TaskID)
	return nil
}

// DeleteSubTask removes a sub-task by ID.
func (s *SQLiteStore) DeleteSubTask(ctx context.Context, id string) error {
	taskID, ok := s.subTaskOwner(ctx, id)

	result, err := s.db.ExecContext(ctx, "DELETE FROM sub_tasks WHERE id = ?", id)
	if err != nil {
		return persistErr(fmt.Sprintf("deleting sub-task %s", id), err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.Newf(apperr.KindNotFound, "sub-task %s not found", id)
	}

	if ok {
		s.notifyTaskOwner(ctx, taskID)
	}
	return nil
}

// GetSubTasks returns all sub-tasks for a task, ordered by sort_order.
func (s *SQLiteStore) GetSubTasks(ctx context.Context, taskID string) ([]model.SubTask, error) {
	return getSubTasks(ctx, s.db, taskID)
}

// getSubTasks runs against either the pool or an open transaction.
func getSubTasks(ctx context.Context, q sqlx.QueryerContext, taskID string) ([]model.SubTask, error) {
	rows, err := q.QueryxContext(ctx,
		"SELECT id, task_id, text, completed, sort_order, created_at FROM sub_tasks WHERE task_id = ? ORDER BY sort_order",
		taskID)
	if err != nil {
		return nil, persistErr("querying sub-tasks", err)
	}
	defer rows.Close()

	var items []model.SubTask
	for rows.Next() {
		item, err := scanSubTask(rows)
		if err != nil {
			return nil, persistErr("scanning sub-task", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ToggleSubTask flips the completed state of a sub-task.
func (s *SQLiteStore) ToggleSubTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE sub_tasks SET completed = CASE WHEN completed = 0 THEN 1 ELSE 0 END WHERE id = ?",
		id)
	if err != nil {
		return persistErr(fmt.Sprintf("toggling sub-task %s", id), err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.Newf(apperr.KindNotFound, "sub-task %s not found", id)
	}

	if taskID, ok := s.subTaskOwner(ctx, id); ok {
		s.notifyTaskOwner(ctx, taskID)
	}
	return nil
}
