package repository

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/okian/rgtrack/internal/domain/model"
)

const notificationPrefix = "notification:"

func notificationKey(n *model.Notification) string {
	return fmt.Sprintf("%s%d:%020d:%s", notificationPrefix, n.UserID, n.Sent.UnixNano(), n.NotificationID)
}

// InsertNotifications writes notifications in a single write batch.
func (s *Store) InsertNotifications(_ context.Context, ns []model.Notification) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i := range ns {
		data, err := json.Marshal(&ns[i])
		if err != nil {
			return fmt.Errorf("marshal notification: %w", err)
		}
		if err := wb.Set([]byte(notificationKey(&ns[i])), data); err != nil {
			return fmt.Errorf("batch notification: %w", err)
		}
	}
	return wb.Flush()
}

// ListNotifications returns a user's notifications, newest first.
func (s *Store) ListNotifications(_ context.Context, userID int, limit int) ([]model.Notification, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	var all []model.Notification
	err := s.view(func(txn *badger.Txn) error {
		return scanJSON(txn, fmt.Sprintf("%s%d:", notificationPrefix, userID), func(_ string, n *model.Notification) bool {
			all = append(all, *n)
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Notification, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}
