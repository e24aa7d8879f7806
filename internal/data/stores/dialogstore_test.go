package stores

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/bflex/internal/core/dialog"
)

func TestDialogStore(t *testing.T) {
	ctx := context.Background()

	t.Run("save and list", func(t *testing.T) {
		store := NewDialogStore(openTestDB(t))

		created := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
		d := dialog.Dialog{
			ID:         4,
			Kind:       dialog.KindConfirm,
			Variant:    dialog.VariantDanger,
			Title:      "Cancel reservation",
			Message:    "Are you sure?",
			CreatedAt:  created,
			ResolvedAt: created.Add(time.Minute),
		}

		id, err := store.Save(ctx, dialog.OutcomeOf(d, true, false))
		require.NoError(t, err)
		assert.Positive(t, id)

		items, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, items, 1)

		got := items[0]
		assert.Equal(t, id, got.ID)
		assert.Equal(t, int64(4), got.DialogID)
		assert.Equal(t, dialog.KindConfirm, got.Kind)
		assert.Equal(t, dialog.VariantDanger, got.Variant)
		assert.Equal(t, "Cancel reservation", got.Title)
		assert.JSONEq(t, "true", string(got.Result))
		assert.False(t, got.Cancelled)
		assert.True(t, created.Add(time.Minute).Equal(got.ResolvedAt))
	})

	t.Run("cancelled prompt keeps null result", func(t *testing.T) {
		store := NewDialogStore(openTestDB(t))

		_, err := store.Save(ctx, dialog.OutcomeOf(dialog.Dialog{ID: 1, Kind: dialog.KindPrompt}, nil, true))
		require.NoError(t, err)
		_, err = store.Save(ctx, dialog.Outcome{DialogID: 2, Kind: dialog.KindAlert})
		require.NoError(t, err)

		items, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, items, 2)
		for _, o := range items {
			assert.Equal(t, "null", string(o.Result))
		}
		assert.True(t, items[1].Cancelled)
	})

	t.Run("list returns newest first", func(t *testing.T) {
		store := NewDialogStore(openTestDB(t))

		base := time.Now()
		for i := range 3 {
			_, err := store.Save(ctx, dialog.Outcome{
				DialogID:   int64(i + 1),
				Kind:       dialog.KindAlert,
				ResolvedAt: base.Add(time.Duration(i) * time.Second),
			})
			require.NoError(t, err)
		}

		items, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, []int64{3, 2, 1}, []int64{items[0].DialogID, items[1].DialogID, items[2].DialogID})
	})

	t.Run("clear and count", func(t *testing.T) {
		store := NewDialogStore(openTestDB(t))

		for i := range 2 {
			_, err := store.Save(ctx, dialog.Outcome{DialogID: int64(i), Kind: dialog.KindConfirm})
			require.NoError(t, err)
		}

		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		require.NoError(t, store.Clear(ctx))
		count, err = store.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}
