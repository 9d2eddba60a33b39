// Package people looks up documents in the people collection by a
// caller-chosen field, operator and value.
package people

import (
	"context"
	"errors"

	"github.com/Gobusters/ectologger"

	"github.com/dealroom/firestore-connector/internal/tracing"
	"github.com/dealroom/firestore-connector/pkg/store"
)

// ErrNoLookupFields is returned when a lookup is missing its match field.
var ErrNoLookupFields = errors.New("people: lookup needs a field name")

// Repository queries the people collection.
type Repository struct {
	client store.Client
	ops    *store.Ops
	logger ectologger.Logger
}

// NewRepository creates a people repository on the given client.
func NewRepository(client store.Client, ops *store.Ops, logger ectologger.Logger) *Repository {
	return &Repository{
		client: client,
		ops:    ops,
		logger: logger,
	}
}

// Collection exposes the underlying people collection.
func (r *Repository) Collection() store.CollectionRef {
	return r.client.Collection(store.PeopleCollection)
}

// GetDocRefs finds every people document matching the (field, op, value)
// triple, for example ("dealroom_id", "==", 123).
func (r *Repository) GetDocRefs(ctx context.Context, field, op string, value any) ([]store.DocumentRef, error) {
	ctx, span := tracing.StartSpan(ctx, "people.Repository.GetDocRefs")
	defer span.End()

	if field == "" {
		return nil, ErrNoLookupFields
	}

	snaps, err := r.ops.StreamAll(ctx, r.Collection().Where(field, op, value))
	if err != nil {
		return nil, err
	}
	refs := make([]store.DocumentRef, 0, len(snaps))
	for _, snap := range snaps {
		refs = append(refs, snap.Ref())
	}
	return refs, nil
}
