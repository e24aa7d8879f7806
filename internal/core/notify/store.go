package notify

import (
	"context"
	"time"
)

// Record is the archived form of a closed notification.
type Record struct {
	ID             int64
	NotificationID int64
	Type           Type
	Title          string
	Message        string
	Position       Position
	CreatedAt      time.Time
	ClosedAt       time.Time
}

// RecordOf converts a notification into its archive record.
func RecordOf(n Notification) Record {
	return Record{
		NotificationID: n.ID,
		Type:           n.Type,
		Title:          n.Title,
		Message:        n.Message,
		Position:       n.Position,
		CreatedAt:      n.CreatedAt,
		ClosedAt:       n.ClosedAt,
	}
}

// Store persists closed notifications to durable storage.
type Store interface {
	Save(ctx context.Context, r Record) (int64, error)
	List(ctx context.Context) ([]Record, error)
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}
