package store

import (
	"context"

	"github.com/dealroom/firestore-connector/internal/tracing"
)

// DefaultPageSize bounds a single fetch below the store's per-call result and
// time ceilings.
const DefaultPageSize = 20000

// FetchAll accumulates every result of a query by re-issuing it with a
// start-after cursor on orderBy until a page comes back short. The query must
// not carry its own ordering or limit.
func (o *Ops) FetchAll(ctx context.Context, q Query, orderBy string, pageSize int) ([]Snapshot, error) {
	ctx, span := tracing.StartSpan(ctx, "store.Ops.FetchAll")
	defer span.End()

	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var all []Snapshot
	page := q.OrderBy(orderBy).Limit(pageSize)
	for {
		snaps, err := o.StreamAll(ctx, page)
		if err != nil {
			return nil, err
		}
		all = append(all, snaps...)

		if len(snaps) < pageSize {
			return all, nil
		}
		cursor := snaps[len(snaps)-1].Data()[orderBy]
		page = q.OrderBy(orderBy).StartAfter(cursor).Limit(pageSize)
	}
}
