package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/nhle/habitflow/internal/apperr"
	"github.com/nhle/habitflow/internal/model"
)

const habitColumns = `id, user_id, title, description, frequency, target_days,
	reminder_time, is_active, created_at, updated_at`

func scanHabit(r rowScanner) (model.Habit, error) {
	var h model.Habit
	var active int
	var targetDays string
	err := r.Scan(
		&h.ID, &h.UserID, &h.Title, &h.Description, &h.Frequency, &targetDays,
		&h.ReminderTime, &active, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return model.Habit{}, err
	}
	h.IsActive = active != 0

	// Decode-and-validate boundary: a corrupt target_days column is
	// logged and normalized to empty, never propagated as a failure.
	if err := json.Unmarshal([]byte(targetDays), &h.TargetDays); err != nil {
		log.Warn("discarding malformed target_days", "habit", h.ID, "err", err)
		h.TargetDays = nil
	}

	return h, nil
}

// CreateHabit inserts a new habit. Generates a UUID if ID is empty.
func (s *SQLiteStore) CreateHabit(ctx context.Context, habit *model.Habit) error {
	if err := habit.Validate(); err != nil {
		return err
	}
	if habit.ID == "" {
		habit.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	habit.CreatedAt = now
	habit.UpdatedAt = now

	targetDays, err := json.Marshal(habit.TargetDays)
	if err != nil {
		return persistErr("marshaling target days", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO habits (
			id, user_id, title, description, frequency, target_days,
			reminder_time, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		habit.ID, habit.UserID, habit.Title, habit.Description,
		habit.Frequency, string(targetDays), habit.ReminderTime,
		boolToInt(habit.IsActive), habit.CreatedAt, habit.UpdatedAt,
	)
	if err != nil {
		return persistErr("creating habit", err)
	}

	s.notify(CollectionHabits, habit.UserID)
	return nil
}

// UpdateHabit updates a habit's editable fields. Completion history is
// owned by SetHabitCompletion.
func (s *SQLiteStore) UpdateHabit(ctx context.Context, habit model.Habit) error {
	if err := habit.Validate(); err != nil {
		return err
	}

	targetDays, err := json.Marshal(habit.TargetDays)
	if err != nil {
		return persistErr("marshaling target days", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE habits SET
			title = ?, description = ?, frequency = ?, target_days = ?,
			reminder_time = ?, is_active = ?, updated_at = ?
		WHERE user_id = ? AND id = ?`,
		habit.Title, habit.Description, habit.Frequency, string(targetDays),
		habit.ReminderTime, boolToInt(habit.IsActive), time.Now().UTC(),
		habit.UserID, habit.ID,
	)
	if err != nil {
		return persistErr(fmt.Sprintf("updating habit %s", habit.ID), err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.Newf(apperr.KindNotFound, "habit %s not found", habit.ID)
	}

	s.notify(CollectionHabits, habit.UserID)
	return nil
}

// DeleteHabit removes a habit and its completion history.
func (s *SQLiteStore) DeleteHabit(ctx context.Context, userID, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return persistErr("beginning transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM habit_completions WHERE habit_id = ?", id); err != nil {
		return persistErr(fmt.Sprintf("deleting history of %s", id), err)
	}

	result, err := tx.ExecContext(ctx,
		"DELETE FROM habits WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return persistErr(fmt.Sprintf("deleting habit %s", id), err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.Newf(apperr.KindNotFound, "habit %s not found", id)
	}

	if err := tx.Commit(); err != nil {
		return persistErr("committing habit delete", err)
	}

	s.notify(CollectionHabits, userID)
	return nil
}

// GetHabitByID retrieves a single habit with its full completion history,
// ordered by date ascending.
func (s *SQLiteStore) GetHabitByID(ctx context.Context, userID, id string) (*model.Habit, error) {
	row := s.db.QueryRowxContext(ctx,
		"SELECT "+habitColumns+" FROM habits WHERE user_id = ? AND id = ?",
		userID, id)

	habit, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.KindNotFound, "habit %s not found", id)
	}
	if err != nil {
		return nil, persistErr(fmt.Sprintf("getting habit %s", id), err)
	}

	history, err := s.getCompletionHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	habit.CompletionHistory = history

	return &habit, nil
}

// GetHabits retrieves a user's habits, each with completion history.
func (s *SQLiteStore) GetHabits(ctx context.Context, userID string, activeOnly bool) ([]model.Habit, error) {
	query := "SELECT " + habitColumns + " FROM habits WHERE user_id = ?"
	if activeOnly {
		query += " AND is_active = 1"
	}
	query += " ORDER BY created_at"

	rows, err := s.db.QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, persistErr("querying habits", err)
	}
	defer rows.Close()

	var habits []model.Habit
	for rows.Next() {
		habit, err := scanHabit(rows)
		if err != nil {
			return nil, persistErr("scanning habit", err)
		}
		habits = append(habits, habit)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("reading habits", err)
	}

	for i := range habits {
		history, err := s.getCompletionHistory(ctx, habits[i].ID)
		if err != nil {
			return nil, err
		}
		habits[i].CompletionHistory = history
	}

	return habits, nil
}

func (s *SQLiteStore) getCompletionHistory(ctx context.Context, habitID string) ([]model.CompletionEntry, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT habit_id, date, completed FROM habit_completions WHERE habit_id = ? ORDER BY date",
		habitID)
	if err != nil {
		return nil, persistErr("querying completion history", err)
	}
	defer rows.Close()

	var history []model.CompletionEntry
	for rows.Next() {
		var e model.CompletionEntry
		var completed int
		if err := rows.Scan(&e.HabitID, &e.Date, &completed); err != nil {
			return nil, persistErr("scanning completion entry", err)
		}
		e.Completed = completed != 0
		history = append(history, e)
	}
	return history, rows.Err()
}

// SetHabitCompletion upserts the history entry for one calendar date.
// The (habit_id, date) primary key guarantees at most one entry per date;
// re-completing a date overwrites, never duplicates. Returns the prior
// entry (nil when none existed) and whether the stored state changed.
func (s *SQLiteStore) SetHabitCompletion(ctx context.Context, userID, habitID, date string, completed bool) (*model.CompletionEntry, bool, error) {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return nil, false, apperr.Newf(apperr.KindInvalidInput, "date %q is not YYYY-MM-DD", date)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, persistErr("beginning transaction", err)
	}
	defer tx.Rollback()

	// Ownership check doubles as the NotFound probe.
	var exists int
	err = tx.GetContext(ctx, &exists,
		"SELECT COUNT(*) FROM habits WHERE user_id = ? AND id = ?", userID, habitID)
	if err != nil {
		return nil, false, persistErr(fmt.Sprintf("checking habit %s", habitID), err)
	}
	if exists == 0 {
		return nil, false, apperr.Newf(apperr.KindNotFound, "habit %s not found", habitID)
	}

	var prev *model.CompletionEntry
	var prevCompleted int
	err = tx.GetContext(ctx, &prevCompleted,
		"SELECT completed FROM habit_completions WHERE habit_id = ? AND date = ?",
		habitID, date)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// No prior entry.
	case err != nil:
		return nil, false, persistErr("reading completion entry", err)
	default:
		prev = &model.CompletionEntry{HabitID: habitID, Date: date, Completed: prevCompleted != 0}
	}

	if prev != nil && prev.Completed == completed {
		return prev, false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO habit_completions (habit_id, date, completed)
		VALUES (?, ?, ?)
		ON CONFLICT (habit_id, date) DO UPDATE SET completed = excluded.completed`,
		habitID, date, boolToInt(completed))
	if err != nil {
		return nil, false, persistErr("upserting completion entry", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, persistErr("committing completion upsert", err)
	}

	s.notify(CollectionHabits, userID)
	return prev, true, nil
}
