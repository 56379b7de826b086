package model

import "time"

// Notification represents an alert surfaced to the user after a state
// transition (a completed task, a habit reminder, an earned bonus).
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id" db:"id"`

	// UserID identifies the recipient.
	UserID string `json:"user_id" db:"user_id"`

	// ItemID links this notification to the originating task or habit,
	// empty for notifications with no single source item.
	ItemID string `json:"item_id" db:"item_id"`

	// Message is the human-readable notification text.
	Message string `json:"message" db:"message"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read" db:"read"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
