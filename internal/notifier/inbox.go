package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sankalp-sachan/ATTENDLY/internal/models"
)

// InboxWriter persists in-app notifications.
type InboxWriter interface {
	Create(ctx context.Context, n *models.InboxNotification) error
}

// InboxNotifier stores notifications in the user's in-app inbox.
type InboxNotifier struct {
	store InboxWriter
	now   func() time.Time
}

// NewInboxNotifier constructs an InboxNotifier.
func NewInboxNotifier(store InboxWriter) *InboxNotifier {
	return &InboxNotifier{store: store, now: time.Now}
}

// Notify implements Notifier.
func (n *InboxNotifier) Notify(ctx context.Context, msg models.NotificationMessage) error {
	entry := &models.InboxNotification{
		ID:        uuid.NewString(),
		UserID:    msg.UserID,
		Slot:      msg.Slot,
		Title:     msg.Title,
		Body:      msg.Body,
		CreatedAt: n.now().UTC(),
	}
	if msg.ClassID != "" {
		classID := msg.ClassID
		entry.ClassID = &classID
	}
	if err := n.store.Create(ctx, entry); err != nil {
		return fmt.Errorf("store inbox notification: %w", err)
	}
	return nil
}
