package app

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/colonyops/bflex/internal/core/dialog"
	"github.com/colonyops/bflex/internal/core/notify"
)

// EntryKind tells archived notifications and dialogs apart.
type EntryKind string

const (
	EntryNotification EntryKind = "notification"
	EntryDialog       EntryKind = "dialog"
)

// Entry is one archived notification or dialog.
type Entry struct {
	Kind      EntryKind       `json:"kind"`
	ID        int64           `json:"id"`
	Type      string          `json:"type"`
	Title     string          `json:"title,omitempty"`
	Message   string          `json:"message"`
	Result    json.RawMessage `json:"result,omitempty"`
	Cancelled bool            `json:"cancelled,omitempty"`
	At        time.Time       `json:"at"`
}

// History reads both archives as one timeline.
type History struct {
	notifications notify.Store
	dialogs       dialog.Store
}

// NewHistory returns a history over the given stores. Nil stores read as
// empty.
func NewHistory(notifications notify.Store, dialogs dialog.Store) *History {
	return &History{notifications: notifications, dialogs: dialogs}
}

// Enabled reports whether any archive is attached.
func (h *History) Enabled() bool {
	return h.notifications != nil || h.dialogs != nil
}

// Entries returns every archived entry, newest first.
func (h *History) Entries(ctx context.Context) ([]Entry, error) {
	entries := []Entry{}

	if h.notifications != nil {
		records, err := h.notifications.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list notifications: %w", err)
		}
		for _, r := range records {
			entries = append(entries, Entry{
				Kind:    EntryNotification,
				ID:      r.NotificationID,
				Type:    string(r.Type),
				Title:   r.Title,
				Message: r.Message,
				At:      r.ClosedAt,
			})
		}
	}

	if h.dialogs != nil {
		outcomes, err := h.dialogs.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list dialogs: %w", err)
		}
		for _, o := range outcomes {
			entries = append(entries, Entry{
				Kind:      EntryDialog,
				ID:        o.DialogID,
				Type:      string(o.Kind),
				Title:     o.Title,
				Message:   o.Message,
				Result:    o.Result,
				Cancelled: o.Cancelled,
				At:        o.ResolvedAt,
			})
		}
	}

	slices.SortStableFunc(entries, func(a, b Entry) int {
		return b.At.Compare(a.At)
	})
	return entries, nil
}

// Clear empties both archives.
func (h *History) Clear(ctx context.Context) error {
	if h.notifications != nil {
		if err := h.notifications.Clear(ctx); err != nil {
			return fmt.Errorf("clear notifications: %w", err)
		}
	}
	if h.dialogs != nil {
		if err := h.dialogs.Clear(ctx); err != nil {
			return fmt.Errorf("clear dialogs: %w", err)
		}
	}
	return nil
}

// FilterEntries keeps the entries whose title or message fuzzy-matches
// query, in their original order. An empty query keeps everything.
func FilterEntries(entries []Entry, query string) []Entry {
	query = strings.TrimSpace(query)
	if query == "" {
		return entries
	}

	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = strings.TrimSpace(e.Title + " " + e.Message)
	}

	matched := map[int]struct{}{}
	for _, rank := range fuzzy.RankFindNormalizedFold(query, labels) {
		matched[rank.OriginalIndex] = struct{}{}
	}

	filtered := make([]Entry, 0, len(matched))
	for i, e := range entries {
		if _, ok := matched[i]; ok {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
