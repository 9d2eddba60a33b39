// Package people decides whether an incoming payload creates a new people
// document or updates an existing one. Unlike the history engine it matches
// on a single caller-chosen field and applies no deleted-entity discounting.
package people

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gobusters/ectologger"

	peoplerepo "github.com/dealroom/firestore-connector/internal/repositories/people"
	"github.com/dealroom/firestore-connector/internal/tracing"
	"github.com/dealroom/firestore-connector/pkg/events"
	"github.com/dealroom/firestore-connector/pkg/identifier"
	"github.com/dealroom/firestore-connector/pkg/metrics"
	"github.com/dealroom/firestore-connector/pkg/status"
	"github.com/dealroom/firestore-connector/pkg/store"
)

// Engine implements the people upsert decision.
type Engine struct {
	repo    *peoplerepo.Repository
	ops     *store.Ops
	emitter *events.Emitter
	logger  ectologger.Logger
}

// NewEngine creates the people upsert engine. The emitter may be nil when no
// event transport is configured.
func NewEngine(repo *peoplerepo.Repository, ops *store.Ops, emitter *events.Emitter, logger ectologger.Logger) *Engine {
	return &Engine{
		repo:    repo,
		ops:     ops,
		emitter: emitter,
		logger:  logger,
	}
}

// SetDoc creates or updates the people document matching the (field, op,
// value) triple, for example ("dealroom_id", "==", 123). Creation requires
// the payload to carry at least one valid dealroom identifier field.
func (e *Engine) SetDoc(ctx context.Context, payload map[string]any, field, op string, value any) (status.Code, error) {
	ctx, span := tracing.StartSpan(ctx, "people.Engine.SetDoc")
	defer span.End()

	if err := validateIdentityFields(payload); err != nil {
		return e.fail(ctx, err)
	}

	refs, err := e.repo.GetDocRefs(ctx, field, op, value)
	if err != nil {
		if errors.Is(err, peoplerepo.ErrNoLookupFields) {
			err = &ValidationError{Reason: "a lookup field is required"}
		}
		return e.fail(ctx, err)
	}

	switch {
	case len(refs) == 0:
		return e.create(ctx, payload)
	case len(refs) == 1:
		return e.update(ctx, refs[0], payload)
	default:
		return e.fail(ctx, &AmbiguousMatchError{Field: field, Count: len(refs)})
	}
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

func (e *Engine) create(ctx context.Context, payload map[string]any) (status.Code, error) {
	if !hasIdentifierField(payload) {
		return e.fail(ctx, &ValidationError{
			Reason: "creating a people document needs a dealroom_id or a dealroom_uuid",
		})
	}

	doc := make(map[string]any, len(payload))
	for k, v := range payload {
		doc[k] = v
	}
	if err := coerceID(doc); err != nil {
		return e.fail(ctx, err)
	}

	ref := e.repo.Collection().NewDoc()
	if err := e.ops.Set(ctx, ref, doc); err != nil {
		return e.fail(ctx, err)
	}

	metrics.UpsertsTotal.WithLabelValues(store.PeopleCollection, status.Created.String()).Inc()
	e.logger.WithContext(ctx).WithFields(map[string]any{
		"doc_path": ref.Path(),
	}).Debug("People document created")

	_ = e.emitter.EmitDocCreated(ctx, store.PeopleCollection, ref.Path(), doc)

	return status.Created, nil
}

func (e *Engine) update(ctx context.Context, ref store.DocumentRef, payload map[string]any) (status.Code, error) {
	fields := make(map[string]any, len(payload))
	for k, v := range payload {
		fields[k] = v
	}
	if err := coerceID(fields); err != nil {
		return e.fail(ctx, err)
	}

	if err := e.ops.Set(ctx, ref, fields); err != nil {
		return e.fail(ctx, err)
	}

	metrics.UpsertsTotal.WithLabelValues(store.PeopleCollection, status.Updated.String()).Inc()
	e.logger.WithContext(ctx).WithFields(map[string]any{
		"doc_path": ref.Path(),
	}).Debug("People document updated")

	_ = e.emitter.EmitDocUpdated(ctx, store.PeopleCollection, ref.Path(), fields)

	return status.Updated, nil
}

func (e *Engine) fail(ctx context.Context, err error) (status.Code, error) {
	metrics.UpsertsTotal.WithLabelValues(store.PeopleCollection, status.Error.String()).Inc()
	e.logger.WithContext(ctx).WithError(err).Error("People upsert failed")
	return status.Error, err
}

func hasIdentifierField(payload map[string]any) bool {
	if v, ok := payload[identifier.FieldNameID]; ok && identifier.IsValidID(v) {
		return true
	}
	if v, ok := payload[identifier.FieldNameUUID]; ok && identifier.IsValidUUID(v) {
		return true
	}
	return false
}

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
