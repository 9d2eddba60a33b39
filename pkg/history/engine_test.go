package history_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	historyrepo "github.com/dealroom/firestore-connector/internal/repositories/history"
	"github.com/dealroom/firestore-connector/pkg/events"
	"github.com/dealroom/firestore-connector/pkg/history"
	"github.com/dealroom/firestore-connector/pkg/identifier"
	"github.com/dealroom/firestore-connector/pkg/normalizers"
	"github.com/dealroom/firestore-connector/pkg/status"
	"github.com/dealroom/firestore-connector/pkg/store"
	"github.com/dealroom/firestore-connector/pkg/store/storetest"
)

type capturePublisher struct {
	published []events.DocEvent
}

func (p *capturePublisher) Publish(_ context.Context, _, value []byte) error {
	var ev events.DocEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return err
	}
	p.published = append(p.published, ev)
	return nil
}

func newEngine(t *testing.T) (*history.Engine, *storetest.Store, *capturePublisher) {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	fake := storetest.New()
	ops := store.NewOps(store.RetryPolicy{Attempts: 1, Delay: 0}, logger)
	repo := historyrepo.NewRepository(fake, ops, logger)
	publisher := &capturePublisher{}
	return history.NewEngine(repo, ops, events.NewEmitter(publisher, logger), logger), fake, publisher
}

func historyDocs(t *testing.T, fake *storetest.Store) []map[string]any {
	t.Helper()
	ctx := context.Background()
	it, err := fake.Collection(store.HistoryCollection).Documents(ctx)
	require.NoError(t, err)
	defer it.Stop()

	var docs []map[string]any
	for {
		snap, err := it.Next()
		if err == store.Done {
			return docs
		}
		require.NoError(t, err)
		docs = append(docs, snap.Data())
	}
}

func seedHistory(t *testing.T, fake *storetest.Store, id string, data map[string]any) {
	t.Helper()
	require.NoError(t, fake.Collection(store.HistoryCollection).Doc(id).Set(context.Background(), data, false))
}

func TestSetDocRefsValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("empty payload and no identifier", func(t *testing.T) {
		engine, fake, _ := newEngine(t)

		code, err := engine.SetDocRefs(ctx, map[string]any{}, nil)
		assert.Equal(t, status.Error, code)
		assert.True(t, history.IsValidationError(err))
		assert.Equal(t, 0, fake.Count(store.HistoryCollection))
	})

	t.Run("payload identifier only, no final_url", func(t *testing.T) {
		engine, _, _ := newEngine(t)

		code, err := engine.SetDocRefs(ctx, map[string]any{"dealroom_id": "123123"}, nil)
		assert.Equal(t, status.Error, code)
		assert.True(t, history.IsValidationError(err))
	})

	t.Run("final_url that is not url-shaped", func(t *testing.T) {
		engine, _, _ := newEngine(t)

		code, err := engine.SetDocRefs(ctx, map[string]any{
			"final_url":   "asddsadsdsd",
			"dealroom_id": "123123",
		}, nil)
		assert.Equal(t, status.Error, code)
		assert.True(t, normalizers.IsNormalizationError(err))
	})

	t.Run("uuid supplied in the id field", func(t *testing.T) {
		engine, _, _ := newEngine(t)

		code, err := engine.SetDocRefs(ctx, map[string]any{
			"final_url":   "newcompany.example",
			"dealroom_id": "f996c3fc-effe-48eb-a1d5-c01f3f379c73",
		}, nil)
		assert.Equal(t, status.Error, code)
		assert.True(t, history.IsValidationError(err))
	})

	t.Run("numeric id supplied in the uuid field", func(t *testing.T) {
		engine, _, _ := newEngine(t)

		code, err := engine.SetDocRefs(ctx, map[string]any{
			"final_url":     "newcompany.example",
			"dealroom_uuid": 123456,
		}, nil)
		assert.Equal(t, status.Error, code)
		assert.True(t, history.IsValidationError(err))
	})

	t.Run("raw identifier that is a float", func(t *testing.T) {
		engine, _, _ := newEngine(t)

		code, err := engine.SetDocRefs(ctx, map[string]any{"test_field": "x"}, 1000.5)
		assert.Equal(t, status.Error, code)
		assert.True(t, identifier.IsInvalidIdentifierError(err))
	})
}

func TestSetDocRefsCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("new document by final_url gets sentinel identifiers", func(t *testing.T) {
		engine, fake, _ := newEngine(t)

		code, err := engine.SetDocRefs(ctx, map[string]any{"final_url": "newcompany.example"}, nil)
		require.NoError(t, err)
		assert.Equal(t, status.Created, code)

		docs := historyDocs(t, fake)
		require.Len(t, docs, 1)
		assert.Equal(t, int64(-1), docs[0]["dealroom_id"])
		assert.Equal(t, int64(-1), docs[0]["dealroom_uuid"])
		assert.Equal(t, "newcompany.example", docs[0]["final_url"])
		assert.Contains(t, docs[0], store.FieldLastEdit)
	})

	t.Run("new document with url and id", func(t *testing.T) {
		engine, fake, _ := newEngine(t)

		code, err := engine.SetDocRefs(ctx, map[string]any{
			"final_url":   "newcompany.example",
			"dealroom_id": 123456,
		}, 123456)
		require.NoError(t, err)
		assert.Equal(t, status.Created, code)

		docs := historyDocs(t, fake)
		require.Len(t, docs, 1)
		assert.Equal(t, int64(123456), docs[0]["dealroom_id"])
		assert.Equal(t, "newcompany.example", docs[0]["final_url"])
	})

	t.Run("url variants normalize to the same final_url", func(t *testing.T) {
		engine, fake, _ := newEngine(t)

		code, err := engine.SetDocRefs(ctx, map[string]any{
			"final_url": "https://www.NewCompany.example/",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, status.Created, code)

		docs := historyDocs(t, fake)
		require.Len(t, docs, 1)
		assert.Equal(t, "newcompany.example", docs[0]["final_url"])
	})

	t.Run("url claimed by another concrete identifier", func(t *testing.T) {
		engine, fake, _ := newEngine(t)
		seedHistory(t, fake, "h1", map[string]any{
			"dealroom_id": int64(555555),
			"final_url":   "foo3.bar",
		})

		code, err := engine.SetDocRefs(ctx, map[string]any{"final_url": "foo3.bar"}, 777777)
		require.NoError(t, err)
		assert.Equal(t, status.Created, code)
		assert.Equal(t, 2, fake.Count(store.HistoryCollection))
	})

	t.Run("deleted entity with a different old id does not block creation", func(t *testing.T) {
		engine, fake, _ := newEngine(t)
		seedHistory(t, fake, "h1", map[string]any{
			"dealroom_id":     int64(identifier.Deleted),
			"dealroom_id_old": int64(999999),
			"final_url":       "foo6.bar",
		})

		code, err := engine.SetDocRefs(ctx, map[string]any{
			"final_url":   "foo6.bar",
			"dealroom_id": 777777,
		}, 777777)
		require.NoError(t, err)
		assert.Equal(t, status.Created, code)

		docs := historyDocs(t, fake)
		require.Len(t, docs, 2)
	})

	t.Run("identifier only, no prior document", func(t *testing.T) {
		engine, fake, _ := newEngine(t)

		code, err := engine.SetDocRefs(ctx, map[string]any{"test_field": "x"}, 123456)
		require.NoError(t, err)
		assert.Equal(t, status.Created, code)

		docs := historyDocs(t, fake)
		require.Len(t, docs, 1)
		assert.Equal(t, int64(123456), docs[0]["dealroom_id"])
		assert.Equal(t, "", docs[0]["final_url"])
	})
}

func TestSetDocRefsUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("second upsert with the same final_url updates the same document", func(t *testing.T) {
		engine, fake, _ := newEngine(t)

		code, err := engine.SetDocRefs(ctx, map[string]any{"final_url": "foo2.bar"}, nil)
		require.NoError(t, err)
		require.Equal(t, status.Created, code)

		code, err = engine.SetDocRefs(ctx, map[string]any{"test_field": "abc"}, "foo2.bar")
		require.NoError(t, err)
		assert.Equal(t, status.Updated, code)

		docs := historyDocs(t, fake)
		require.Len(t, docs, 1)
		assert.Equal(t, "abc", docs[0]["test_field"])
	})

	t.Run("update by dealroom_id", func(t *testing.T) {
		engine, fake, _ := newEngine(t)
		seedHistory(t, fake, "h1", map[string]any{
			"dealroom_id": int64(123456),
			"final_url":   "foo.bar",
		})

		code, err := engine.SetDocRefs(ctx, map[string]any{"test_field": "abc"}, "123456")
		require.NoError(t, err)
		assert.Equal(t, status.Updated, code)

		docs := historyDocs(t, fake)
		require.Len(t, docs, 1)
		assert.Equal(t, "abc", docs[0]["test_field"])
	})

	t.Run("update by dealroom_uuid", func(t *testing.T) {
		engine, fake, _ := newEngine(t)
		seedHistory(t, fake, "h1", map[string]any{
			"dealroom_uuid": "ef314e25-4543-4636-a5b7-c428886e3dd3",
			"final_url":     "foo.bar",
		})

		code, err := engine.SetDocRefs(ctx, map[string]any{"test_field": "abc"}, "ef314e25-4543-4636-a5b7-c428886e3dd3")
		require.NoError(t, err)
		assert.Equal(t, status.Updated, code)
	})

	t.Run("update through the superseded id field", func(t *testing.T) {
		engine, fake, _ := newEngine(t)
		seedHistory(t, fake, "h1", map[string]any{
			"dealroom_id":     int64(identifier.Deleted),
			"dealroom_id_old": int64(666666),
			"final_url":       "foo8.bar",
		})

		code, err := engine.SetDocRefs(ctx, map[string]any{"test_field": "abc"}, 666666)
		require.NoError(t, err)
		assert.Equal(t, status.Updated, code)

		docs := historyDocs(t, fake)
		require.Len(t, docs, 1)
		assert.Equal(t, "abc", docs[0]["test_field"])
	})

	t.Run("re-link an unclaimed document to a new id", func(t *testing.T) {
		engine, fake, _ := newEngine(t)
		seedHistory(t, fake, "h1", map[string]any{
			"dealroom_id": int64(identifier.NotInDB),
			"final_url":   "foo9.bar",
		})

		code, err := engine.SetDocRefs(ctx, map[string]any{
			"final_url":   "foo9.bar",
			"dealroom_id": 777777,
		}, 777777)
		require.NoError(t, err)
		assert.Equal(t, status.Updated, code)

		docs := historyDocs(t, fake)
		require.Len(t, docs, 1)
		assert.Equal(t, int64(777777), docs[0]["dealroom_id"])
	})

	t.Run("mark an entity deleted through the payload", func(t *testing.T) {
		engine, fake, _ := newEngine(t)
		seedHistory(t, fake, "h1", map[string]any{
			"dealroom_id": int64(123456),
			"final_url":   "foo7.bar",
		})

		code, err := engine.SetDocRefs(ctx, map[string]any{"dealroom_id": "-2"}, "foo7.bar")
		require.NoError(t, err)
		assert.Equal(t, status.Updated, code)

		docs := historyDocs(t, fake)
		require.Len(t, docs, 1)
		assert.Equal(t, int64(-2), docs[0]["dealroom_id"])
	})

	t.Run("zero is not a valid identity value", func(t *testing.T) {
		engine, fake, _ := newEngine(t)
		seedHistory(t, fake, "h1", map[string]any{
			"dealroom_id": int64(123456),
			"final_url":   "foo7.bar",
		})

		code, err := engine.SetDocRefs(ctx, map[string]any{"dealroom_id": "0"}, "foo7.bar")
		assert.Equal(t, status.Error, code)
		assert.True(t, history.IsValidationError(err))
	})

	t.Run("payload final_url is normalized before the write", func(t *testing.T) {
		engine, fake, _ := newEngine(t)
		seedHistory(t, fake, "h1", map[string]any{
			"dealroom_id": int64(123456),
			"final_url":   "foo.bar",
		})

		code, err := engine.SetDocRefs(ctx, map[string]any{
			"final_url": "HTTPS://www.foo.bar",
		}, 123456)
		require.NoError(t, err)
		assert.Equal(t, status.Updated, code)

		docs := historyDocs(t, fake)
		assert.Equal(t, "foo.bar", docs[0]["final_url"])
	})
}

func TestSetDocRefsAmbiguous(t *testing.T) {
	ctx := context.Background()
	engine, fake, _ := newEngine(t)
	seedHistory(t, fake, "h1", map[string]any{"final_url": "foo4.bar", "marker": "a"})
	seedHistory(t, fake, "h2", map[string]any{"final_url": "foo4.bar", "marker": "b"})

	code, err := engine.SetDocRefs(ctx, map[string]any{"test_field": "x"}, "foo4.bar")
	assert.Equal(t, status.Error, code)
	assert.True(t, history.IsAmbiguousMatchError(err))

	// No write happened.
	for _, doc := range historyDocs(t, fake) {
		assert.NotContains(t, doc, "test_field")
	}
}

func TestSetDocRefsEvents(t *testing.T) {
	ctx := context.Background()
	engine, _, publisher := newEngine(t)

	code, err := engine.SetDocRefs(ctx, map[string]any{"final_url": "newcompany.example"}, nil)
	require.NoError(t, err)
	require.Equal(t, status.Created, code)

	code, err = engine.SetDocRefs(ctx, map[string]any{"test_field": "x"}, "newcompany.example")
	require.NoError(t, err)
	require.Equal(t, status.Updated, code)

	require.Len(t, publisher.published, 2)
	assert.Equal(t, events.EventTypeDocCreated, publisher.published[0].EventType)
	assert.Equal(t, events.EventTypeDocUpdated, publisher.published[1].EventType)
	assert.Equal(t, store.HistoryCollection, publisher.published[0].Collection)
}

func TestSetDocRefsStoreFailure(t *testing.T) {
	ctx := context.Background()
	engine, fake, _ := newEngine(t)

	fake.FailNext("stream", 2)
	code, err := engine.SetDocRefs(ctx, map[string]any{"final_url": "newcompany.example"}, nil)
	assert.Equal(t, status.Error, code)
	assert.True(t, store.IsOperationError(err))
}
