// Package tracing provides span helpers for connector operations.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/dealroom/firestore-connector"

// StartSpan starts a span on the globally registered tracer provider. When no
// provider is installed the returned span is a no-op.
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return otel.Tracer(scopeName).Start(ctx, spanName)
}
