// Package notify writes user notifications.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/pkg/logger"
)

// ErrNoRecipients is returned when a notification has no users to go to.
var ErrNoRecipients = errors.New("notification has no recipients")

// Store persists notifications.
type Store interface {
	InsertNotifications(ctx context.Context, ns []model.Notification) error
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) {
		if now != nil {
			n.now = now
		}
	}
}

// Notifier sends notifications to user inboxes.
type Notifier struct {
	store Store
	now   func() time.Time
	log   logger.Logger
}

// New creates a Notifier.
func New(store Store, opts ...Option) *Notifier {
	n := &Notifier{store: store, now: time.Now, log: logger.Named("notify")}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SendNotification sends one notification.
func (n *Notifier) SendNotification(ctx context.Context, title string, userID int, body model.NotificationBody) error {
	return n.BulkSendNotification(ctx, title, []int{userID}, body)
}

// BulkSendNotification sends the same notification to every user in one write.
// Repeated userIDs get a single copy.
func (n *Notifier) BulkSendNotification(ctx context.Context, title string, userIDs []int, body model.NotificationBody) error {
	if len(userIDs) == 0 {
		return ErrNoRecipients
	}
	sent := n.now()
	seen := make(map[int]bool, len(userIDs))
	out := make([]model.Notification, 0, len(userIDs))
	for _, id := range userIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, model.Notification{
			NotificationID: "N" + uuid.NewString(),
			UserID:         id,
			Title:          title,
			Body:           body,
			Sent:           sent,
		})
	}
	if err := n.store.InsertNotifications(ctx, out); err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}
	n.log.Debug(ctx, "notifications sent", logger.String("type", body.Type), logger.Int("recipients", len(out)))
	return nil
}
