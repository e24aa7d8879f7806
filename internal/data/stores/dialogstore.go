package stores

import (
	"context"
	"fmt"

	"github.com/colonyops/bflex/internal/core/dialog"
	"github.com/colonyops/bflex/internal/data/db"
)

// DialogStore implements dialog.Store using SQLite.
type DialogStore struct {
	db *db.DB
}

var _ dialog.Store = (*DialogStore)(nil)

// NewDialogStore creates a new SQLite-backed dialog outcome store.
func NewDialogStore(db *db.DB) *DialogStore {
	return &DialogStore{db: db}
}

// Save archives a dialog outcome and returns its row id.
func (s *DialogStore) Save(ctx context.Context, o dialog.Outcome) (int64, error) {
	result := string(o.Result)
	if result == "" {
		result = "null"
	}

	res, err := s.db.Conn().ExecContext(ctx, `
		INSERT INTO dialogs (dialog_id, kind, variant, title, message, result, cancelled, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.DialogID, string(o.Kind), string(o.Variant), o.Title, o.Message, result,
		boolToInt(o.Cancelled), toUnixNano(o.CreatedAt), toUnixNano(o.ResolvedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert dialog: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert dialog: %w", err)
	}
	return id, nil
}

// List returns all archived outcomes, most recently resolved first.
func (s *DialogStore) List(ctx context.Context) ([]dialog.Outcome, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT id, dialog_id, kind, variant, title, message, result, cancelled, created_at, resolved_at
		FROM dialogs
		ORDER BY resolved_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list dialogs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]dialog.Outcome, 0)
	for rows.Next() {
		var (
			o                 dialog.Outcome
			kind, variant     string
			result            string
			cancelled         int
			created, resolved int64
		)
		if err := rows.Scan(&o.ID, &o.DialogID, &kind, &variant, &o.Title, &o.Message, &result, &cancelled, &created, &resolved); err != nil {
			return nil, fmt.Errorf("scan dialog: %w", err)
		}
		o.Kind = dialog.Kind(kind)
		o.Variant = dialog.Variant(variant)
		o.Result = []byte(result)
		o.Cancelled = cancelled != 0
		o.CreatedAt = fromUnixNano(created)
		o.ResolvedAt = fromUnixNano(resolved)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list dialogs: %w", err)
	}

	return out, nil
}

// Clear deletes all archived outcomes.
func (s *DialogStore) Clear(ctx context.Context) error {
	if _, err := s.db.Conn().ExecContext(ctx, "DELETE FROM dialogs"); err != nil {
		return fmt.Errorf("clear dialogs: %w", err)
	}
	return nil
}

// Count returns the number of archived outcomes.
func (s *DialogStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.Conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM dialogs").Scan(&count); err != nil {
		return 0, fmt.Errorf("count dialogs: %w", err)
	}
	return count, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
