package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/habitflow/internal/apperr"
	"github.com/nhle/habitflow/internal/model"
)

// CreateNotification inserts a new notification record.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n *model.Notification) error {
	if strings.TrimSpace(n.Message) == "" {
		return apperr.New(apperr.KindInvalidInput, "notification message must not be empty")
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, item_id, message, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.ItemID, n.Message, boolToInt(n.Read), n.CreatedAt,
	)
	if err != nil {
		return persistErr("creating notification", err)
	}

	s.notify(CollectionNotifications, n.UserID)
	return nil
}

// GetUnreadNotifications retrieves a user's unread notifications,
// newest first.
func (s *SQLiteStore) GetUnreadNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, user_id, item_id, message, read, created_at
		FROM notifications
		WHERE user_id = ? AND read = 0
		ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, persistErr("querying notifications", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		var read int
		if err := rows.Scan(&n.ID, &n.UserID, &n.ItemID, &n.Message, &read, &n.CreatedAt); err != nil {
			return nil, persistErr("scanning notification", err)
		}
		n.Read = read != 0
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead marks a single notification as read.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE id = ?", id)
	if err != nil {
		return persistErr(fmt.Sprintf("marking notification %s read", id), err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.Newf(apperr.KindNotFound, "notification %s not found", id)
	}
	return nil
}
