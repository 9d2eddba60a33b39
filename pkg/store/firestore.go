package store

import (
	"context"
	"sort"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/dealroom/firestore-connector/config"
)

// NewConnection opens a client against the configured Firestore project. When
// no credentials file is configured the default application credentials are
// used.
func NewConnection(ctx context.Context, cfg config.Config) (Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, &OperationError{Op: "connect", Target: cfg.ProjectID, Err: err}
	}
	return &firestoreClient{client: client}, nil
}

type firestoreClient struct {
	client *firestore.Client
}

func (c *firestoreClient) Collection(name string) CollectionRef {
	col := c.client.Collection(name)
	return firestoreCollection{
		firestoreQuery: firestoreQuery{query: col.Query},
		col:            col,
	}
}

func (c *firestoreClient) Batch() WriteBatch {
	return &firestoreBatch{batch: c.client.Batch()}
}

func (c *firestoreClient) Close() error {
	return c.client.Close()
}

type firestoreCollection struct {
	firestoreQuery
	col *firestore.CollectionRef
}

func (c firestoreCollection) ID() string {
	return c.col.ID
}

func (c firestoreCollection) Doc(id string) DocumentRef {
	return firestoreDoc{ref: c.col.Doc(id)}
}

func (c firestoreCollection) NewDoc() DocumentRef {
	return firestoreDoc{ref: c.col.NewDoc()}
}

type firestoreQuery struct {
	query firestore.Query
}

func (q firestoreQuery) Where(field, op string, value any) Query {
	return firestoreQuery{query: q.query.Where(field, op, value)}
}

func (q firestoreQuery) OrderBy(field string) Query {
	return firestoreQuery{query: q.query.OrderBy(field, firestore.Asc)}
}

func (q firestoreQuery) StartAfter(values ...any) Query {
	return firestoreQuery{query: q.query.StartAfter(values...)}
}

func (q firestoreQuery) Limit(n int) Query {
	return firestoreQuery{query: q.query.Limit(n)}
}

func (q firestoreQuery) Documents(ctx context.Context) (DocumentIterator, error) {
	return &firestoreIterator{it: q.query.Documents(ctx)}, nil
}

type firestoreIterator struct {
	it *firestore.DocumentIterator
}

func (i *firestoreIterator) Next() (Snapshot, error) {
	snap, err := i.it.Next()
	if err == iterator.Done {
		return nil, Done
	}
	if err != nil {
		return nil, err
	}
	return firestoreSnapshot{snap: snap}, nil
}

func (i *firestoreIterator) Stop() {
	i.it.Stop()
}

type firestoreDoc struct {
	ref *firestore.DocumentRef
}

func (d firestoreDoc) ID() string {
	return d.ref.ID
}

func (d firestoreDoc) Path() string {
	// DocumentRef.Path is the full resource name; callers reason about paths
	// relative to the database root.
	const marker = "/documents/"
	if i := strings.Index(d.ref.Path, marker); i >= 0 {
		return d.ref.Path[i+len(marker):]
	}
	return d.ref.Path
}

func (d firestoreDoc) Get(ctx context.Context) (Snapshot, error) {
	snap, err := d.ref.Get(ctx)
	if err != nil && grpcstatus.Code(err) != codes.NotFound {
		return nil, err
	}
	return firestoreSnapshot{snap: snap}, nil
}

func (d firestoreDoc) Set(ctx context.Context, data map[string]any, merge bool) error {
	var opts []firestore.SetOption
	if merge {
		opts = append(opts, firestore.MergeAll)
	}
	_, err := d.ref.Set(ctx, data, opts...)
	return err
}

func (d firestoreDoc) Update(ctx context.Context, fields map[string]any) error {
	_, err := d.ref.Update(ctx, toUpdates(fields))
	return err
}

func (d firestoreDoc) Delete(ctx context.Context) error {
	_, err := d.ref.Delete(ctx)
	return err
}

type firestoreSnapshot struct {
	snap *firestore.DocumentSnapshot
}

func (s firestoreSnapshot) ID() string {
	return s.snap.Ref.ID
}

func (s firestoreSnapshot) Exists() bool {
	return s.snap.Exists()
}

func (s firestoreSnapshot) Data() map[string]any {
	return s.snap.Data()
}

func (s firestoreSnapshot) Ref() DocumentRef {
	return firestoreDoc{ref: s.snap.Ref}
}

type firestoreBatch struct {
	batch *firestore.WriteBatch
}

func (b *firestoreBatch) Set(ref DocumentRef, data map[string]any, merge bool) {
	var opts []firestore.SetOption
	if merge {
		opts = append(opts, firestore.MergeAll)
	}
	b.batch.Set(ref.(firestoreDoc).ref, data, opts...)
}

func (b *firestoreBatch) Create(ref DocumentRef, data map[string]any) {
	b.batch.Create(ref.(firestoreDoc).ref, data)
}

func (b *firestoreBatch) Update(ref DocumentRef, fields map[string]any) {
	b.batch.Update(ref.(firestoreDoc).ref, toUpdates(fields))
}

func (b *firestoreBatch) Delete(ref DocumentRef) {
	b.batch.Delete(ref.(firestoreDoc).ref)
}

func (b *firestoreBatch) Commit(ctx context.Context) error {
	_, err := b.batch.Commit(ctx)
	return err
}

func toUpdates(fields map[string]any) []firestore.Update {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	updates := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		updates = append(updates, firestore.Update{Path: k, Value: fields[k]})
	}
	return updates
}
