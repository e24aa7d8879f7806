package stores

import (
	"context"
	"fmt"

	"github.com/colonyops/bflex/internal/core/notify"
	"github.com/colonyops/bflex/internal/data/db"
)

// NotifyStore implements notify.Store using SQLite.
type NotifyStore struct {
	db *db.DB
}

var _ notify.Store = (*NotifyStore)(nil)

// NewNotifyStore creates a new SQLite-backed notification store.
func NewNotifyStore(db *db.DB) *NotifyStore {
	return &NotifyStore{db: db}
}

// Save archives a closed notification and returns its row id.
func (s *NotifyStore) Save(ctx context.Context, r notify.Record) (int64, error) {
	res, err := s.db.Conn().ExecContext(ctx, `
		INSERT INTO notifications (notification_id, type, title, message, position, created_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.NotificationID, string(r.Type), r.Title, r.Message, string(r.Position),
		toUnixNano(r.CreatedAt), toUnixNano(r.ClosedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	return id, nil
}

// List returns all archived notifications, most recently closed first.
func (s *NotifyStore) List(ctx context.Context) ([]notify.Record, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT id, notification_id, type, title, message, position, created_at, closed_at
		FROM notifications
		ORDER BY closed_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]notify.Record, 0)
	for rows.Next() {
		var (
			r                 notify.Record
			typ, position     string
			created, closedAt int64
		)
		if err := rows.Scan(&r.ID, &r.NotificationID, &typ, &r.Title, &r.Message, &position, &created, &closedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		r.Type = notify.Type(typ)
		r.Position = notify.Position(position)
		r.CreatedAt = fromUnixNano(created)
		r.ClosedAt = fromUnixNano(closedAt)
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	return result, nil
}

// Clear deletes all archived notifications.
func (s *NotifyStore) Clear(ctx context.Context) error {
	if _, err := s.db.Conn().ExecContext(ctx, "DELETE FROM notifications"); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return nil
}

// Count returns the number of archived notifications.
func (s *NotifyStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.Conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM notifications").Scan(&count); err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}
