package model

import "time"

// EntryType classifies a point ledger entry.
type EntryType string

const (
	EntryTaskComplete    EntryType = "task_complete"
	EntryTaskUncomplete  EntryType = "task_uncomplete"
	EntryHabitComplete   EntryType = "habit_complete"
	EntryHabitUncomplete EntryType = "habit_uncomplete"
	EntryGamePlay        EntryType = "game_play"
	EntryShopPurchase    EntryType = "shop_purchase"
	EntryLoginBonus      EntryType = "login_bonus"
)

// PointEntry is one immutable signed point delta in a user's ledger.
// Entries are only ever appended, never mutated; the user's balance is
// the running sum of their deltas.
type PointEntry struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Type      EntryType `json:"type" db:"type"`
	Delta     int       `json:"delta" db:"delta"`
	Reason    string    `json:"reason" db:"reason"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UserPoints is the cached balance derived from a user's ledger.
//
// CurrentPoints equals the sum of all entry deltas. TotalEarnedPoints
// sums earning entries only (completions and bonuses); reversals
// decrement it, spends never touch it, and it never goes below zero.
type UserPoints struct {
	UserID            string    `json:"user_id" db:"user_id"`
	CurrentPoints     int       `json:"current_points" db:"current_points"`
	TotalEarnedPoints int       `json:"total_earned_points" db:"total_earned_points"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}
