// Package history decides whether an incoming payload creates a new history
// document or updates an existing one.
//
// The decision is a non-transactional check-then-act sequence: the engine
// queries for candidates, inspects them, then writes. Two concurrent upserts
// racing on the same identity can both observe zero candidates and both
// create a document. Callers that need stronger guarantees must serialize
// upserts per identity themselves.
package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gobusters/ectologger"

	historyrepo "github.com/dealroom/firestore-connector/internal/repositories/history"
	"github.com/dealroom/firestore-connector/internal/tracing"
	"github.com/dealroom/firestore-connector/pkg/events"
	"github.com/dealroom/firestore-connector/pkg/identifier"
	"github.com/dealroom/firestore-connector/pkg/metrics"
	"github.com/dealroom/firestore-connector/pkg/normalizers"
	"github.com/dealroom/firestore-connector/pkg/status"
	"github.com/dealroom/firestore-connector/pkg/store"
)

// Engine implements the history upsert decision.
type Engine struct {
	repo    *historyrepo.Repository
	ops     *store.Ops
	emitter *events.Emitter
	logger  ectologger.Logger
}

// NewEngine creates the upsert engine. The emitter may be nil when no event
// transport is configured.
func NewEngine(repo *historyrepo.Repository, ops *store.Ops, emitter *events.Emitter, logger ectologger.Logger) *Engine {
	return &Engine{
		repo:    repo,
		ops:     ops,
		emitter: emitter,
		logger:  logger,
	}
}

// SetDocRefs creates or updates the history document addressed by the payload
// and finalURLOrID. finalURLOrID may be a dealroom ID (int or numeric
// string), a dealroom UUID, a website URL, or nil; a supplied identifier
// takes precedence over identity fields in the payload when locating the
// document. The returned code distinguishes a creation from an update; on
// error the specific cause is returned alongside status.Error.
func (e *Engine) SetDocRefs(ctx context.Context, payload map[string]any, finalURLOrID any) (status.Code, error) {
	ctx, span := tracing.StartSpan(ctx, "history.Engine.SetDocRefs")
	defer span.End()

	finalURL, ident, err := resolveTarget(payload, finalURLOrID)
	if err != nil {
		return e.fail(ctx, err)
	}

	if err := validateIdentityFields(payload); err != nil {
		return e.fail(ctx, err)
	}

	normalized := ""
	if finalURL != "" {
		normalized, err = normalizers.NormalizeURL(finalURL)
		if err != nil {
			return e.fail(ctx, err)
		}
	}

	candidates, err := e.repo.GetDocRefs(ctx, normalized, ident)
	if err != nil {
		if errors.Is(err, historyrepo.ErrNoLookupFields) {
			err = &ValidationError{Reason: "a final_url or a dealroom identifier is required"}
		}
		return e.fail(ctx, err)
	}

	count, winning, err := e.adjustedCount(ctx, candidates, ident)
	if err != nil {
		return e.fail(ctx, err)
	}

	switch {
	case count <= 0:
		return e.create(ctx, payload, ident, normalized)
	case count == 1:
		return e.update(ctx, winning.Refs[0], payload, normalized)
	default:
		return e.fail(ctx, &AmbiguousMatchError{Field: winning.Field, Count: count})
	}
}

// resolveTarget derives the lookup pair from the payload and the raw
// argument. A raw value that is neither an ID nor a UUID but is a non-empty
// string is taken literally as the final URL, overriding the payload's.
func resolveTarget(payload map[string]any, raw any) (string, *identifier.Identifier, error) {
	ident, err := identifier.Determine(raw)
	if err != nil {
		if s, ok := raw.(string); ok && s != "" {
			return s, nil, nil
		}
		return "", nil, err
	}

	finalURL, _ := payload[historyrepo.FieldFinalURL].(string)
	return finalURL, ident, nil
}

func validateIdentityFields(payload map[string]any) error {
	if v, ok := payload[identifier.FieldNameID]; ok && !identifier.IsValidID(v) {
		return &ValidationError{
			Field:  identifier.FieldNameID,
			Reason: fmt.Sprintf("'%v' is not a valid dealroom ID", v),
		}
	}
	if v, ok := payload[identifier.FieldNameUUID]; ok && !identifier.IsValidUUID(v) {
		return &ValidationError{
			Field:  identifier.FieldNameUUID,
			Reason: fmt.Sprintf("'%v' is not a valid dealroom UUID", v),
		}
	}
	return nil
}

// adjustedCount takes the winning candidate list and discounts documents
// that must not block a creation: previously-deleted entities not already
// re-linked to the supplied identifier, and documents already claimed by
// another identifier. Only applies when the match came through final_url and
// a concrete identifier was supplied; the count can go negative, which the
// caller treats the same as zero.
func (e *Engine) adjustedCount(ctx context.Context, candidates []historyrepo.Candidates, ident *identifier.Identifier) (int, historyrepo.Candidates, error) {
	if len(candidates) == 0 {
		return 0, historyrepo.Candidates{}, nil
	}

	winning := candidates[0]
	count := len(winning.Refs)
	if winning.Field != historyrepo.FieldFinalURL || ident == nil {
		return count, winning, nil
	}

	for _, ref := range winning.Refs {
		snap, err := e.ops.Get(ctx, ref)
		if err != nil {
			return 0, winning, err
		}
		data := snap.Data()
		primary := data[ident.FieldName()]

		if identifier.IsSentinel(primary, identifier.Deleted) &&
			!identifier.ValuesEqual(data[ident.OldFieldName()], ident.Value()) {
			count--
		}
		if !identifier.IsSentinel(primary, identifier.NotInDB) {
			count--
		}
	}
	return count, winning, nil
}

func (e *Engine) create(ctx context.Context, payload map[string]any, ident *identifier.Identifier, normalized string) (status.Code, error) {
	doc := make(map[string]any, len(payload)+3)
	if ident != nil {
		doc[ident.FieldName()] = ident.Value()
		doc[historyrepo.FieldFinalURL] = ""
	} else {
		doc[identifier.FieldNameID] = int64(identifier.NotInDB)
		doc[identifier.FieldNameUUID] = int64(identifier.NotInDB)
		doc[historyrepo.FieldFinalURL] = normalized
	}
	for k, v := range payload {
		doc[k] = v
	}
	if _, ok := payload[historyrepo.FieldFinalURL]; ok {
		doc[historyrepo.FieldFinalURL] = normalized
	}

	if !hasConcreteIdentity(doc) {
		return e.fail(ctx, &ValidationError{
			Reason: "creating a document needs a final_url, a dealroom_id or a dealroom_uuid",
		})
	}
	if err := coerceID(doc); err != nil {
		return e.fail(ctx, err)
	}

	ref := e.repo.Collection().NewDoc()
	if err := e.ops.Set(ctx, ref, doc); err != nil {
		return e.fail(ctx, err)
	}

	metrics.UpsertsTotal.WithLabelValues(store.HistoryCollection, status.Created.String()).Inc()
	e.logger.WithContext(ctx).WithFields(map[string]any{
		"doc_path": ref.Path(),
	}).Debug("History document created")

	// Event loss does not fail the upsert; the emitter logs its own errors.
	_ = e.emitter.EmitDocCreated(ctx, store.HistoryCollection, ref.Path(), doc)

	return status.Created, nil
}

func (e *Engine) update(ctx context.Context, ref store.DocumentRef, payload map[string]any, normalized string) (status.Code, error) {
	fields := make(map[string]any, len(payload))
	for k, v := range payload {
		fields[k] = v
	}
	if _, ok := fields[historyrepo.FieldFinalURL]; ok {
		fields[historyrepo.FieldFinalURL] = normalized
	}
	if err := coerceID(fields); err != nil {
		return e.fail(ctx, err)
	}

	if err := e.ops.Set(ctx, ref, fields); err != nil {
		return e.fail(ctx, err)
	}

	metrics.UpsertsTotal.WithLabelValues(store.HistoryCollection, status.Updated.String()).Inc()
	e.logger.WithContext(ctx).WithFields(map[string]any{
		"doc_path": ref.Path(),
	}).Debug("History document updated")

	_ = e.emitter.EmitDocUpdated(ctx, store.HistoryCollection, ref.Path(), fields)

	return status.Updated, nil
}

func (e *Engine) fail(ctx context.Context, err error) (status.Code, error) {
	metrics.UpsertsTotal.WithLabelValues(store.HistoryCollection, status.Error.String()).Inc()
	e.logger.WithContext(ctx).WithError(err).Error("History upsert failed")
	return status.Error, err
}

// hasConcreteIdentity reports whether the merged document carries at least
// one non-sentinel identity value.
func hasConcreteIdentity(doc map[string]any) bool {
	if s, ok := doc[historyrepo.FieldFinalURL].(string); ok && s != "" {
		return true
	}
	for _, field := range []string{identifier.FieldNameID, identifier.FieldNameUUID} {
		if ident, err := identifier.Determine(doc[field]); err == nil && ident != nil {
			return true
		}
	}
	return false
}

// coerceID rewrites a present dealroom_id to its integer form in place.
func coerceID(doc map[string]any) error {
	v, ok := doc[identifier.FieldNameID]
	if !ok {
		return nil
	}
	n, err := identifier.CoerceID(v)
	if err != nil {
		return err
	}
	doc[identifier.FieldNameID] = n
	return nil
}
