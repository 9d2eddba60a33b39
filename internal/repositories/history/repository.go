// Package history looks up candidate documents in the history collection by
// dealroom identifier and by normalized website URL.
package history

import (
	"context"
	"errors"

	"github.com/Gobusters/ectologger"

	"github.com/dealroom/firestore-connector/internal/tracing"
	"github.com/dealroom/firestore-connector/pkg/identifier"
	"github.com/dealroom/firestore-connector/pkg/normalizers"
	"github.com/dealroom/firestore-connector/pkg/store"
)

const (
	// FieldFinalURL holds the normalized website of a history document.
	FieldFinalURL = "final_url"
	// FieldRelatedURLs lists other normalized websites attached to the entity.
	FieldRelatedURLs = "current_related_urls"
)

// ErrNoLookupFields is returned when neither a website nor an identifier was
// supplied to a lookup.
var ErrNoLookupFields = errors.New("history: lookup needs a website or a dealroom identifier")

// Candidates groups the documents matched through one lookup field.
type Candidates struct {
	Field string
	Refs  []store.DocumentRef
}

// Repository queries the history collection.
type Repository struct {
	client store.Client
	ops    *store.Ops
	logger ectologger.Logger
}

// NewRepository creates a history repository on the given client.
func NewRepository(client store.Client, ops *store.Ops, logger ectologger.Logger) *Repository {
	return &Repository{
		client: client,
		ops:    ops,
		logger: logger,
	}
}

// Collection exposes the underlying history collection.
func (r *Repository) Collection() store.CollectionRef {
	return r.client.Collection(store.HistoryCollection)
}

// GetDocRefs finds every history document matching the identifier or the
// normalized final URL. Results come back grouped per lookup field, ordered
// by match strength: identifier fields first, then final_url, then related
// URLs. Groups without matches are dropped.
func (r *Repository) GetDocRefs(ctx context.Context, finalURL string, ident *identifier.Identifier) ([]Candidates, error) {
	ctx, span := tracing.StartSpan(ctx, "history.Repository.GetDocRefs")
	defer span.End()

	if finalURL == "" && ident == nil {
		return nil, ErrNoLookupFields
	}

	col := r.Collection()
	var out []Candidates

	if ident != nil {
		for _, field := range []string{ident.FieldName(), ident.OldFieldName()} {
			refs, err := r.queryRefs(ctx, col.Where(field, store.OpEqual, ident.Value()))
			if err != nil {
				return nil, err
			}
			if len(refs) > 0 {
				out = append(out, Candidates{Field: field, Refs: refs})
			}
		}
	}

	if finalURL != "" {
		normalized, err := normalizers.NormalizeURL(finalURL)
		if err != nil {
			return nil, err
		}

		lookups := []struct {
			field string
			op    string
		}{
			{field: FieldFinalURL, op: store.OpEqual},
			{field: FieldRelatedURLs, op: store.OpArrayContains},
		}
		for _, l := range lookups {
			refs, err := r.queryRefs(ctx, col.Where(l.field, l.op, normalized))
			if err != nil {
				return nil, err
			}
			if len(refs) > 0 {
				out = append(out, Candidates{Field: l.field, Refs: refs})
			}
		}
	}

	return out, nil
}

// GetByID fetches the single history document holding the given dealroom ID,
// or nil when none exists.
func (r *Repository) GetByID(ctx context.Context, id int64) (store.Snapshot, error) {
	ctx, span := tracing.StartSpan(ctx, "history.Repository.GetByID")
	defer span.End()

	snaps, err := r.ops.StreamAll(ctx, r.Collection().Where(identifier.FieldNameID, store.OpEqual, id).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return snaps[0], nil
}

func (r *Repository) queryRefs(ctx context.Context, q store.Query) ([]store.DocumentRef, error) {
	snaps, err := r.ops.StreamAll(ctx, q)
	if err != nil {
		return nil, err
	}
	refs := make([]store.DocumentRef, 0, len(snaps))
	for _, snap := range snaps {
		refs = append(refs, snap.Ref())
	}
	return refs, nil
}
