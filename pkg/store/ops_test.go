package store_test

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealroom/firestore-connector/pkg/store"
	"github.com/dealroom/firestore-connector/pkg/store/storetest"
)

func testOps(t *testing.T) (*store.Ops, *storetest.Store) {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return store.NewOps(store.RetryPolicy{Attempts: 1, Delay: 0}, logger), storetest.New()
}

func TestOpsGet(t *testing.T) {
	ctx := context.Background()

	t.Run("missing document is not an error", func(t *testing.T) {
		ops, fake := testOps(t)

		snap, err := ops.Get(ctx, fake.Collection("history").Doc("nope"))
		require.NoError(t, err)
		assert.False(t, snap.Exists())
	})

	t.Run("recovers after a single failure", func(t *testing.T) {
		ops, fake := testOps(t)
		ref := fake.Collection("history").Doc("h1")
		require.NoError(t, ref.Set(ctx, map[string]any{"dealroom_id": 10}, true))

		fake.FailNext("get", 1)
		snap, err := ops.Get(ctx, ref)
		require.NoError(t, err)
		assert.True(t, snap.Exists())
		assert.Equal(t, 10, snap.Data()["dealroom_id"])
	})

	t.Run("gives up after retrying once", func(t *testing.T) {
		ops, fake := testOps(t)
		fake.FailNext("get", 2)

		_, err := ops.Get(ctx, fake.Collection("history").Doc("h1"))
		require.Error(t, err)
		assert.True(t, store.IsOperationError(err))
	})
}

func TestOpsSet(t *testing.T) {
	ctx := context.Background()

	t.Run("stamps last_edit on history documents", func(t *testing.T) {
		ops, fake := testOps(t)
		ref := fake.Collection(store.HistoryCollection).Doc("h1")

		require.NoError(t, ops.Set(ctx, ref, map[string]any{"final_url": "dealroom.co"}))

		snap, err := ref.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "dealroom.co", snap.Data()["final_url"])
		assert.Contains(t, snap.Data(), store.FieldLastEdit)
	})

	t.Run("leaves other collections unstamped", func(t *testing.T) {
		ops, fake := testOps(t)
		ref := fake.Collection(store.PeopleCollection).Doc("p1")

		require.NoError(t, ops.Set(ctx, ref, map[string]any{"dealroom_id": 7}))

		snap, err := ref.Get(ctx)
		require.NoError(t, err)
		assert.NotContains(t, snap.Data(), store.FieldLastEdit)
	})

	t.Run("merges into an existing document", func(t *testing.T) {
		ops, fake := testOps(t)
		ref := fake.Collection(store.PeopleCollection).Doc("p1")
		require.NoError(t, ref.Set(ctx, map[string]any{"dealroom_id": 7, "name": "a"}, false))

		require.NoError(t, ops.Set(ctx, ref, map[string]any{"name": "b"}))

		snap, err := ref.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, 7, snap.Data()["dealroom_id"])
		assert.Equal(t, "b", snap.Data()["name"])
	})

	t.Run("recovers after a single failure", func(t *testing.T) {
		ops, fake := testOps(t)
		ref := fake.Collection(store.PeopleCollection).Doc("p1")

		fake.FailNext("set", 1)
		require.NoError(t, ops.Set(ctx, ref, map[string]any{"dealroom_id": 7}))
		assert.Equal(t, 1, fake.Count(store.PeopleCollection))
	})

	t.Run("gives up after retrying once", func(t *testing.T) {
		ops, fake := testOps(t)
		ref := fake.Collection(store.PeopleCollection).Doc("p1")

		fake.FailNext("set", 2)
		err := ops.Set(ctx, ref, map[string]any{"dealroom_id": 7})
		require.Error(t, err)
		assert.True(t, store.IsOperationError(err))
		assert.Equal(t, 0, fake.Count(store.PeopleCollection))
	})
}

func TestOpsUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("updates fields and stamps history", func(t *testing.T) {
		ops, fake := testOps(t)
		ref := fake.Collection(store.HistoryCollection).Doc("h1")
		require.NoError(t, ref.Set(ctx, map[string]any{"dealroom_id": 10, "final_url": "old.co"}, false))

		require.NoError(t, ops.Update(ctx, ref, map[string]any{"final_url": "new.co"}))

		snap, err := ref.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "new.co", snap.Data()["final_url"])
		assert.Equal(t, 10, snap.Data()["dealroom_id"])
		assert.Contains(t, snap.Data(), store.FieldLastEdit)
	})

	t.Run("fails on a missing document", func(t *testing.T) {
		ops, fake := testOps(t)

		err := ops.Update(ctx, fake.Collection(store.HistoryCollection).Doc("nope"), map[string]any{"x": 1})
		require.Error(t, err)
		assert.True(t, store.IsOperationError(err))
	})
}

func TestOpsStreamAll(t *testing.T) {
	ctx := context.Background()

	t.Run("filters with where clauses", func(t *testing.T) {
		ops, fake := testOps(t)
		col := fake.Collection(store.HistoryCollection)
		require.NoError(t, col.Doc("h1").Set(ctx, map[string]any{"final_url": "dealroom.co"}, false))
		require.NoError(t, col.Doc("h2").Set(ctx, map[string]any{"final_url": "other.co"}, false))

		snaps, err := ops.StreamAll(ctx, col.Where("final_url", store.OpEqual, "dealroom.co"))
		require.NoError(t, err)
		require.Len(t, snaps, 1)
		assert.Equal(t, "h1", snaps[0].ID())
	})

	t.Run("recovers after a single failure", func(t *testing.T) {
		ops, fake := testOps(t)
		col := fake.Collection(store.HistoryCollection)
		require.NoError(t, col.Doc("h1").Set(ctx, map[string]any{"final_url": "dealroom.co"}, false))

		fake.FailNext("stream", 1)
		snaps, err := ops.StreamAll(ctx, col.Where("final_url", store.OpEqual, "dealroom.co"))
		require.NoError(t, err)
		assert.Len(t, snaps, 1)
	})

	t.Run("matches array membership", func(t *testing.T) {
		ops, fake := testOps(t)
		col := fake.Collection(store.HistoryCollection)
		require.NoError(t, col.Doc("h1").Set(ctx, map[string]any{
			"current_related_urls": []any{"a.co", "b.co"},
		}, false))

		snaps, err := ops.StreamAll(ctx, col.Where("current_related_urls", store.OpArrayContains, "b.co"))
		require.NoError(t, err)
		assert.Len(t, snaps, 1)
	})
}

func TestOpsCollectionExists(t *testing.T) {
	ctx := context.Background()
	ops, fake := testOps(t)

	exists, err := ops.CollectionExists(ctx, fake.Collection(store.HistoryCollection))
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, fake.Collection(store.HistoryCollection).Doc("h1").Set(ctx, map[string]any{"x": 1}, false))

	exists, err = ops.CollectionExists(ctx, fake.Collection(store.HistoryCollection))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestIsHistoryPath(t *testing.T) {
	assert.True(t, store.IsHistoryPath("history/abc"))
	assert.False(t, store.IsHistoryPath("people/abc"))
	assert.False(t, store.IsHistoryPath("history"))
	assert.False(t, store.IsHistoryPath("history/abc/sub/doc"))
}
