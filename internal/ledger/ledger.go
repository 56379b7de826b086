// Package ledger owns the point economy: the priority-to-points mapping
// and the append-only ledger operations. Every balance change flows
// through an appended entry; nothing mutates a balance directly.
package ledger

import (
	"context"
	"time"

	"github.com/nhle/habitflow/internal/apperr"
	"github.com/nhle/habitflow/internal/model"
	"github.com/nhle/habitflow/internal/store"
)

// Point values. PointsForPriority is the single source of truth for
// task rewards: task creation pre-fills Points from it and the toggle
// controller falls back to it when Points is unset.
const (
	pointsHigh   = 30
	pointsMedium = 20
	pointsLow    = 10

	// HabitCompletionPoints is the fixed reward for completing a habit
	// on a due date.
	HabitCompletionPoints = 15

	// LoginBonusPoints is the once-per-day sign-in award.
	LoginBonusPoints = 5
)

// PointsForPriority maps a task priority to its point reward. Unknown
// priorities read as medium.
func PointsForPriority(p model.Priority) int {
	switch p {
	case model.PriorityHigh:
		return pointsHigh
	case model.PriorityLow:
		return pointsLow
	default:
		return pointsMedium
	}
}

// Ledger appends point entries and reads balances through the store.
type Ledger struct {
	store store.Store

	// Now is the clock used to stamp entries; tests override it.
	Now func() time.Time
}

// New creates a Ledger over the given store.
func New(s store.Store) *Ledger {
	return &Ledger{store: s, Now: time.Now}
}

// Award appends a positive entry, increasing both CurrentPoints and
// TotalEarnedPoints by amount.
func (l *Ledger) Award(ctx context.Context, userID string, typ model.EntryType, amount int, reason string) error {
	if amount <= 0 {
		return apperr.New(apperr.KindInvalidInput, "award amount must be positive")
	}
	entry := &model.PointEntry{
		UserID:    userID,
		Type:      typ,
		Delta:     amount,
		Reason:    reason,
		CreatedAt: l.Now().UTC(),
	}
	return l.store.AppendPointEntry(ctx, entry, amount, false)
}

// Reverse appends a negative entry sized to undo a prior award of
// amount, decreasing CurrentPoints and TotalEarnedPoints alike. The
// store clamps TotalEarnedPoints at zero.
func (l *Ledger) Reverse(ctx context.Context, userID string, typ model.EntryType, amount int, reason string) error {
	if amount <= 0 {
		return apperr.New(apperr.KindInvalidInput, "reversal amount must be positive")
	}
	entry := &model.PointEntry{
		UserID:    userID,
		Type:      typ,
		Delta:     -amount,
		Reason:    reason,
		CreatedAt: l.Now().UTC(),
	}
	return l.store.AppendPointEntry(ctx, entry, -amount, false)
}

// Spend appends a negative entry that decreases CurrentPoints only.
// It fails with InsufficientPoints, writing nothing, when the balance
// cannot cover amount.
func (l *Ledger) Spend(ctx context.Context, userID string, typ model.EntryType, amount int, reason string) error {
	if amount <= 0 {
		return apperr.New(apperr.KindInvalidInput, "spend amount must be positive")
	}
	entry := &model.PointEntry{
		UserID:    userID,
		Type:      typ,
		Delta:     -amount,
		Reason:    reason,
		CreatedAt: l.Now().UTC(),
	}
	return l.store.AppendPointEntry(ctx, entry, 0, true)
}

// Balance returns the user's cached point totals.
func (l *Ledger) Balance(ctx context.Context, userID string) (*model.UserPoints, error) {
	return l.store.GetUserPoints(ctx, userID)
}

// History returns the user's most recent ledger entries, newest first.
func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]model.PointEntry, error) {
	return l.store.ListPointEntries(ctx, userID, limit)
}

// DailyLoginBonus awards the sign-in bonus at most once per calendar
// date. It reports whether the bonus was granted this call.
func (l *Ledger) DailyLoginBonus(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, apperr.New(apperr.KindNotAuthenticated, "please sign in again")
	}

	date := l.Now().UTC().Format(model.DateLayout)
	granted, err := l.store.HasPointEntryOnDate(ctx, userID, model.EntryLoginBonus, date)
	if err != nil {
		return false, err
	}
	if granted {
		return false, nil
	}

	err = l.Award(ctx, userID, model.EntryLoginBonus, LoginBonusPoints, "daily login bonus")
	if err != nil {
		return false, err
	}
	return true, nil
}
