package lifecycle

import (
	"context"
	"fmt"

	"github.com/nhle/habitflow/internal/model"
	"github.com/nhle/habitflow/internal/store"
)

// NotificationHook writes a notification row for each completion. It
// stays quiet on un-completions; nobody wants a toast for an undo.
func NotificationHook(s store.Store) Hook {
	return func(ctx context.Context, t Transition) error {
		if !t.Completed {
			return nil
		}
		return s.CreateNotification(ctx, &model.Notification{
			UserID:  t.UserID,
			ItemID:  t.ItemID,
			Message: fmt.Sprintf("%s done: %s (+%d points)", t.Kind, t.ItemTitle, t.Points),
		})
	}
}
