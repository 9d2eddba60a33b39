// Package storetest provides an in-memory store.Client for package tests,
// with failure injection to exercise the retry paths.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dealroom/firestore-connector/pkg/store"
)

// Store is an in-memory document store. Safe for use from a single test
// goroutine; all state is guarded by one mutex.
type Store struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]any
	order       map[string][]string
	failures    map[string]int
	nextID      int
}

// New creates an empty fake store.
func New() *Store {
	return &Store{
		collections: make(map[string]map[string]map[string]any),
		order:       make(map[string][]string),
		failures:    make(map[string]int),
	}
}

// FailNext makes the next n calls of the named operation ("get", "set",
// "update", "delete", "stream", "commit") fail.
func (s *Store) FailNext(op string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] += n
}

// Count reports how many documents a collection holds.
func (s *Store) Count(col string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections[col])
}

func (s *Store) Collection(name string) store.CollectionRef {
	return collection{
		query: query{s: s, col: name, limit: -1},
		name:  name,
	}
}

func (s *Store) Batch() store.WriteBatch {
	return &writeBatch{s: s}
}

func (s *Store) Close() error {
	return nil
}

// failure consumes one injected failure for op. Callers must hold mu.
func (s *Store) failure(op string) error {
	if s.failures[op] > 0 {
		s.failures[op]--
		return fmt.Errorf("storetest: injected %s failure", op)
	}
	return nil
}

// applySet merges or replaces a document. Callers must hold mu.
func (s *Store) applySet(col, id string, data map[string]any, merge bool) {
	docs, ok := s.collections[col]
	if !ok {
		docs = make(map[string]map[string]any)
		s.collections[col] = docs
	}
	existing, exists := docs[id]
	if !exists {
		s.order[col] = append(s.order[col], id)
	}
	if merge && exists {
		for k, v := range copyData(data) {
			existing[k] = v
		}
		return
	}
	docs[id] = copyData(data)
}

func (s *Store) applyDelete(col, id string) {
	docs := s.collections[col]
	if _, ok := docs[id]; !ok {
		return
	}
	delete(docs, id)
	ids := s.order[col]
	for i, existing := range ids {
		if existing == id {
			s.order[col] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
}

type collection struct {
	query
	name string
}

func (c collection) ID() string {
	return c.name
}

func (c collection) Doc(id string) store.DocumentRef {
	return docRef{s: c.s, col: c.name, id: id}
}

func (c collection) NewDoc() store.DocumentRef {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.nextID++
	return docRef{s: c.s, col: c.name, id: fmt.Sprintf("doc-%04d", c.s.nextID)}
}

type filter struct {
	field string
	op    string
	value any
}

type query struct {
	s       *Store
	col     string
	filters []filter
	orderBy string
	start   []any
	limit   int
}

func (q query) Where(field, op string, value any) store.Query {
	q.filters = append(append([]filter(nil), q.filters...), filter{field: field, op: op, value: value})
	return q
}

func (q query) OrderBy(field string) store.Query {
	q.orderBy = field
	return q
}

func (q query) StartAfter(values ...any) store.Query {
	q.start = values
	return q
}

func (q query) Limit(n int) store.Query {
	q.limit = n
	return q
}

func (q query) Documents(_ context.Context) (store.DocumentIterator, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()

	if err := q.s.failure("stream"); err != nil {
		return nil, err
	}

	var snaps []store.Snapshot
	for _, id := range q.s.order[q.col] {
		data := q.s.collections[q.col][id]
		if q.matches(data) {
			snaps = append(snaps, snapshot{
				id:     id,
				data:   copyData(data),
				exists: true,
				ref:    docRef{s: q.s, col: q.col, id: id},
			})
		}
	}

	if q.orderBy != "" {
		field := q.orderBy
		sort.SliceStable(snaps, func(i, j int) bool {
			return lessValue(snaps[i].Data()[field], snaps[j].Data()[field])
		})
		if len(q.start) > 0 {
			cursor := q.start[0]
			filtered := snaps[:0]
			for _, snap := range snaps {
				if lessValue(cursor, snap.Data()[field]) {
					filtered = append(filtered, snap)
				}
			}
			snaps = filtered
		}
	}

	if q.limit >= 0 && len(snaps) > q.limit {
		snaps = snaps[:q.limit]
	}

	return &sliceIterator{snaps: snaps}, nil
}

func (q query) matches(data map[string]any) bool {
	for _, f := range q.filters {
		switch f.op {
		case store.OpEqual:
			if !valuesEqual(data[f.field], f.value) {
				return false
			}
		case store.OpArrayContains:
			if !arrayContains(data[f.field], f.value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

type sliceIterator struct {
	snaps []store.Snapshot
	pos   int
}

func (i *sliceIterator) Next() (store.Snapshot, error) {
	if i.pos >= len(i.snaps) {
		return nil, store.Done
	}
	snap := i.snaps[i.pos]
	i.pos++
	return snap, nil
}

func (i *sliceIterator) Stop() {}

type docRef struct {
	s   *Store
	col string
	id  string
}

func (d docRef) ID() string {
	return d.id
}

func (d docRef) Path() string {
	return d.col + "/" + d.id
}

func (d docRef) Get(_ context.Context) (store.Snapshot, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	if err := d.s.failure("get"); err != nil {
		return nil, err
	}

	data, ok := d.s.collections[d.col][d.id]
	return snapshot{id: d.id, data: copyData(data), exists: ok, ref: d}, nil
}

func (d docRef) Set(_ context.Context, data map[string]any, merge bool) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	if err := d.s.failure("set"); err != nil {
		return err
	}
	d.s.applySet(d.col, d.id, data, merge)
	return nil
}

func (d docRef) Update(_ context.Context, fields map[string]any) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	if err := d.s.failure("update"); err != nil {
		return err
	}
	if _, ok := d.s.collections[d.col][d.id]; !ok {
		return fmt.Errorf("storetest: document %s not found", d.Path())
	}
	d.s.applySet(d.col, d.id, fields, true)
	return nil
}

func (d docRef) Delete(_ context.Context) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	if err := d.s.failure("delete"); err != nil {
		return err
	}
	d.s.applyDelete(d.col, d.id)
	return nil
}

type snapshot struct {
	id     string
	data   map[string]any
	exists bool
	ref    docRef
}

func (s snapshot) ID() string {
	return s.id
}

func (s snapshot) Exists() bool {
	return s.exists
}

func (s snapshot) Data() map[string]any {
	return s.data
}

func (s snapshot) Ref() store.DocumentRef {
	return s.ref
}

type writeBatch struct {
	s   *Store
	ops []func()
}

func (b *writeBatch) Set(ref store.DocumentRef, data map[string]any, merge bool) {
	r := ref.(docRef)
	d := copyData(data)
	b.ops = append(b.ops, func() { b.s.applySet(r.col, r.id, d, merge) })
}

func (b *writeBatch) Create(ref store.DocumentRef, data map[string]any) {
	b.Set(ref, data, false)
}

func (b *writeBatch) Update(ref store.DocumentRef, fields map[string]any) {
	b.Set(ref, fields, true)
}

func (b *writeBatch) Delete(ref store.DocumentRef) {
	r := ref.(docRef)
	b.ops = append(b.ops, func() { b.s.applyDelete(r.col, r.id) })
}

func (b *writeBatch) Commit(_ context.Context) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	if err := b.s.failure("commit"); err != nil {
		return err
	}
	for _, op := range b.ops {
		op()
	}
	b.ops = nil
	return nil
}

func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if list, ok := v.([]any); ok {
			out[k] = append([]any(nil), list...)
			continue
		}
		out[k] = v
	}
	return out
}

func valuesEqual(stored, want any) bool {
	if a, ok := asFloat(stored); ok {
		b, ok := asFloat(want)
		return ok && a == b
	}
	if a, ok := stored.(string); ok {
		b, ok := want.(string)
		return ok && a == b
	}
	if a, ok := stored.(bool); ok {
		b, ok := want.(bool)
		return ok && a == b
	}
	return false
}

func arrayContains(stored, want any) bool {
	switch list := stored.(type) {
	case []any:
		for _, v := range list {
			if valuesEqual(v, want) {
				return true
			}
		}
	case []string:
		for _, v := range list {
			if valuesEqual(v, want) {
				return true
			}
		}
	}
	return false
}

func lessValue(a, b any) bool {
	if fa, ok := asFloat(a); ok {
		fb, ok := asFloat(b)
		return ok && fa < fb
	}
	sa, _ := a.(string)
	sb, _ := b.(string)
	return strings.Compare(sa, sb) < 0
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}
