package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealroom/firestore-connector/pkg/store"
)

func TestFetchAll(t *testing.T) {
	ctx := context.Background()

	t.Run("pages through the full collection", func(t *testing.T) {
		ops, fake := testOps(t)
		col := fake.Collection(store.HistoryCollection)
		for i := 0; i < 45; i++ {
			ref := col.Doc(fmt.Sprintf("h%02d", i))
			require.NoError(t, ref.Set(ctx, map[string]any{"dealroom_id": i}, false))
		}

		snaps, err := ops.FetchAll(ctx, col, "dealroom_id", 20)
		require.NoError(t, err)
		require.Len(t, snaps, 45)
		assert.Equal(t, 0, snaps[0].Data()["dealroom_id"])
		assert.Equal(t, 44, snaps[44].Data()["dealroom_id"])
	})

	t.Run("single short page", func(t *testing.T) {
		ops, fake := testOps(t)
		col := fake.Collection(store.HistoryCollection)
		require.NoError(t, col.Doc("h1").Set(ctx, map[string]any{"dealroom_id": 1}, false))

		snaps, err := ops.FetchAll(ctx, col, "dealroom_id", 20)
		require.NoError(t, err)
		assert.Len(t, snaps, 1)
	})

	t.Run("empty collection", func(t *testing.T) {
		ops, fake := testOps(t)

		snaps, err := ops.FetchAll(ctx, fake.Collection(store.HistoryCollection), "dealroom_id", 0)
		require.NoError(t, err)
		assert.Empty(t, snaps)
	})
}
