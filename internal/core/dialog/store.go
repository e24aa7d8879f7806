package dialog

import (
	"context"
	"encoding/json"
	"time"
)

// Outcome is the archived form of a resolved dialog.
type Outcome struct {
	ID         int64
	DialogID   int64
	Kind       Kind
	Variant    Variant
	Title      string
	Message    string
	Result     json.RawMessage
	Cancelled  bool
	CreatedAt  time.Time
	ResolvedAt time.Time
}

// OutcomeOf converts a resolved dialog and its result into an archive
// record. Results that cannot be encoded as JSON are stored as null.
func OutcomeOf(d Dialog, result any, cancelled bool) Outcome {
	raw, err := json.Marshal(result)
	if err != nil {
		raw = json.RawMessage("null")
	}
	return Outcome{
		DialogID:   d.ID,
		Kind:       d.Kind,
		Variant:    d.Variant,
		Title:      d.Title,
		Message:    d.Message,
		Result:     raw,
		Cancelled:  cancelled,
		CreatedAt:  d.CreatedAt,
		ResolvedAt: d.ResolvedAt,
	}
}

// Store persists resolved dialogs to durable storage.
type Store interface {
	Save(ctx context.Context, o Outcome) (int64, error)
	List(ctx context.Context) ([]Outcome, error)
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}
