// Package store provides resilient access to the document store backing the
// history and people collections. Every primitive wraps exactly one
// underlying store call in a fixed retry policy; the concrete client is
// hidden behind capability interfaces so tests can run against an in-memory
// fake (see storetest).
package store

import (
	"context"
	"errors"
)

// Collection names owned by the connector.
const (
	HistoryCollection = "history"
	PeopleCollection  = "people"
)

// FieldLastEdit is maintained on every history document write.
const FieldLastEdit = "last_edit"

// Query operators understood by the store.
const (
	OpEqual         = "=="
	OpArrayContains = "array-contains"
)

// Done is returned by DocumentIterator.Next when no more documents remain.
var Done = errors.New("store: no more documents")

// Client is the capability surface consumed from the document store client.
type Client interface {
	Collection(name string) CollectionRef
	Batch() WriteBatch
	Close() error
}

// CollectionRef addresses a collection; it is also a query over all of its
// documents.
type CollectionRef interface {
	Query
	ID() string
	Doc(id string) DocumentRef
	NewDoc() DocumentRef
}

// Query describes a document query under construction. Implementations
// return derived queries and leave the receiver untouched.
type Query interface {
	Where(field, op string, value any) Query
	OrderBy(field string) Query
	StartAfter(values ...any) Query
	Limit(n int) Query
	Documents(ctx context.Context) (DocumentIterator, error)
}

// DocumentIterator streams the results of a query.
type DocumentIterator interface {
	// Next returns the next result. It returns Done when no more documents
	// remain.
	Next() (Snapshot, error)
	Stop()
}

// DocumentRef addresses a single document.
type DocumentRef interface {
	ID() string
	// Path is the document path relative to the database root, e.g.
	// "history/8NG1fyBghTcUM4Qgkkvs".
	Path() string
	Get(ctx context.Context) (Snapshot, error)
	Set(ctx context.Context, data map[string]any, merge bool) error
	Update(ctx context.Context, fields map[string]any) error
	Delete(ctx context.Context) error
}

// Snapshot is a read-only view of a document at the time it was fetched.
type Snapshot interface {
	ID() string
	Exists() bool
	Data() map[string]any
	Ref() DocumentRef
}

// WriteBatch accumulates writes to be committed atomically.
type WriteBatch interface {
	Set(ref DocumentRef, data map[string]any, merge bool)
	Create(ref DocumentRef, data map[string]any)
	Update(ref DocumentRef, fields map[string]any)
	Delete(ref DocumentRef)
	Commit(ctx context.Context) error
}
