package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/habitflow/internal/apperr"
	"github.com/nhle/habitflow/internal/model"
)

// AppendPointEntry durably appends a ledger entry and folds its delta
// into the cached user_points row in the same transaction, so a reader
// never observes a balance without its backing entry. earnedDelta
// adjusts total_earned_points and is clamped at zero. With
// enforceBalance set, the append fails with InsufficientPoints when the
// resulting balance would be negative, and nothing is written.
func (s *SQLiteStore) AppendPointEntry(ctx context.Context, entry *model.PointEntry, earnedDelta int, enforceBalance bool) error {
	if entry.UserID == "" {
		return apperr.New(apperr.KindInvalidInput, "ledger entry owner must be set")
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return persistErr("beginning transaction", err)
	}
	defer tx.Rollback()

	var current, earned int
	err = tx.QueryRowxContext(ctx,
		"SELECT current_points, total_earned_points FROM user_points WHERE user_id = ?",
		entry.UserID).Scan(&current, &earned)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return persistErr("reading balance", err)
	}

	newCurrent := current + entry.Delta
	if enforceBalance && newCurrent < 0 {
		return apperr.Newf(apperr.KindInsufficientPoints,
			"insufficient points: have %d, need %d", current, -entry.Delta)
	}

	newEarned := earned + earnedDelta
	if newEarned < 0 {
		newEarned = 0
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO point_entries (id, user_id, type, delta, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.Type, entry.Delta, entry.Reason,
		entry.CreatedAt.UTC(),
	)
	if err != nil {
		return persistErr("appending ledger entry", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_points (user_id, current_points, total_earned_points, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			current_points = excluded.current_points,
			total_earned_points = excluded.total_earned_points,
			updated_at = excluded.updated_at`,
		entry.UserID, newCurrent, newEarned, time.Now().UTC(),
	)
	if err != nil {
		return persistErr("updating balance", err)
	}

	if err := tx.Commit(); err != nil {
		return persistErr("committing ledger append", err)
	}

	s.notify(CollectionPoints, entry.UserID)
	return nil
}

// GetUserPoints returns the cached balance, zero-valued when the user
// has no ledger entries yet.
func (s *SQLiteStore) GetUserPoints(ctx context.Context, userID string) (*model.UserPoints, error) {
	up := model.UserPoints{UserID: userID}
	err := s.db.QueryRowxContext(ctx,
		"SELECT current_points, total_earned_points, updated_at FROM user_points WHERE user_id = ?",
		userID).Scan(&up.CurrentPoints, &up.TotalEarnedPoints, &up.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &up, nil
	}
	if err != nil {
		return nil, persistErr("reading balance", err)
	}
	return &up, nil
}

// ListPointEntries returns a user's most recent ledger entries, newest
// first. A non-positive limit returns everything.
func (s *SQLiteStore) ListPointEntries(ctx context.Context, userID string, limit int) ([]model.PointEntry, error) {
	query := "SELECT id, user_id, type, delta, reason, created_at FROM point_entries WHERE user_id = ? ORDER BY created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, persistErr("querying ledger entries", err)
	}
	defer rows.Close()

	var entries []model.PointEntry
	for rows.Next() {
		var e model.PointEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.Delta, &e.Reason, &e.CreatedAt); err != nil {
			return nil, persistErr("scanning ledger entry", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SumPointDeltas recomputes the balance from the raw ledger. The cached
// user_points row must always agree with this sum.
func (s *SQLiteStore) SumPointDeltas(ctx context.Context, userID string) (int, error) {
	var sum int
	err := s.db.GetContext(ctx, &sum,
		"SELECT COALESCE(SUM(delta), 0) FROM point_entries WHERE user_id = ?", userID)
	if err != nil {
		return 0, persistErr("summing ledger deltas", err)
	}
	return sum, nil
}

// HasPointEntryOnDate reports whether an entry of the given type exists
// for the user on the given YYYY-MM-DD date. Used to keep per-day awards
// such as the login bonus idempotent.
func (s *SQLiteStore) HasPointEntryOnDate(ctx context.Context, userID string, typ model.EntryType, date string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM point_entries WHERE user_id = ? AND type = ? AND substr(created_at, 1, 10) = ?",
		userID, typ, date)
	if err != nil {
		return false, persistErr("checking ledger date", err)
	}
	return count > 0, nil
}
