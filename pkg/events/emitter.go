// Package events emits document lifecycle events after successful upserts.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/dealroom/firestore-connector/internal/tracing"
)

// SchemaVersion is the current event schema version.
const SchemaVersion = "1.0"

// Event types carried on the wire.
const (
	EventTypeDocCreated = "doc.created"
	EventTypeDocUpdated = "doc.updated"
)

// DocEvent describes a create or update of a connector-managed document.
type DocEvent struct {
	EventType     string         `json:"event_type"`
	SchemaVersion string         `json:"schema_version"`
	EventID       string         `json:"event_id"`
	Collection    string         `json:"collection"`
	DocPath       string         `json:"doc_path"`
	Fields        map[string]any `json:"fields,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// Publisher is the transport the emitter writes to.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// Emitter publishes document lifecycle events. A nil *Emitter is a valid
// no-op emitter.
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
}

// NewEmitter creates an emitter on the given publisher.
func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
	}
}

// EmitDocCreated emits a doc.created event.
func (e *Emitter) EmitDocCreated(ctx context.Context, collection, docPath string, fields map[string]any) error {
	return e.emit(ctx, EventTypeDocCreated, collection, docPath, fields)
}

// EmitDocUpdated emits a doc.updated event.
func (e *Emitter) EmitDocUpdated(ctx context.Context, collection, docPath string, fields map[string]any) error {
	return e.emit(ctx, EventTypeDocUpdated, collection, docPath, fields)
}

func (e *Emitter) emit(ctx context.Context, eventType, collection, docPath string, fields map[string]any) error {
	if e == nil {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.emit")
	defer span.End()

	event := DocEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		EventID:       uuid.NewString(),
		Collection:    collection,
		DocPath:       docPath,
		Fields:        fields,
		Timestamp:     time.Now().UTC(),
	}

	value, err := json.Marshal(event)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to marshal doc event")
		return err
	}

	if err := e.publisher.Publish(ctx, []byte(docPath), value); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": eventType,
			"doc_path":   docPath,
		}).Error("Failed to publish doc event")
		return err
	}
	return nil
}
