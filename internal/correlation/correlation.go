// Package correlation binds a per-request correlation id and the active
// trace/span ids into a value that is passed to everything that logs or traces.
package correlation

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// HeaderName is the inbound and outbound correlation header
const HeaderName = "X-Correlation-ID"

// Log field keys
const (
	FieldCorrelationID = "correlationId"
	FieldTraceID       = "traceId"
	FieldSpanID        = "spanId"
)

// AttributeKey tags spans with the correlation id
const AttributeKey = attribute.Key("correlation.id")

var fallbackSeq uint64

// Context is the correlation state of a single request
type Context struct {
	CorrelationID string
	TraceID       string
	SpanID        string
}

// Resolve reuses headerValue when it is non-empty, otherwise generates a new id.
// Trace and span ids are taken from sc when it is valid.
func Resolve(headerValue string, sc trace.SpanContext) Context {
	id := strings.TrimSpace(headerValue)
	if id == "" {
		id = NewID()
	}

	c := Context{CorrelationID: id}
	if sc.IsValid() {
		c.TraceID = sc.TraceID().String()
		c.SpanID = sc.SpanID().String()
	}
	return c
}

// FromRequestContext resolves a correlation context using the span active in ctx
func FromRequestContext(ctx context.Context, headerValue string) Context {
	return Resolve(headerValue, trace.SpanContextFromContext(ctx))
}

// NewID generates a random UUID, falling back to a time based id if the
// random source fails.
func NewID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Sprintf("%x-%d", time.Now().UnixNano(), atomic.AddUint64(&fallbackSeq, 1))
	}
	return id.String()
}

// Fields returns the structured log fields of c
func (c Context) Fields() []zap.Field {
	return []zap.Field{
		zap.String(FieldCorrelationID, c.CorrelationID),
		zap.String(FieldTraceID, c.TraceID),
		zap.String(FieldSpanID, c.SpanID),
	}
}

// Logger returns base enriched with the fields of c
func (c Context) Logger(base *zap.Logger) *zap.Logger {
	return base.With(c.Fields()...)
}

// Attribute returns the span attribute carrying the correlation id
func (c Context) Attribute() attribute.KeyValue {
	return AttributeKey.String(c.CorrelationID)
}

type ctxKey struct{}

// WithContext stores c in ctx
func WithContext(ctx context.Context, c Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the correlation context stored in ctx, if any
func FromContext(ctx context.Context) (Context, bool) {
	c, ok := ctx.Value(ctxKey{}).(Context)
	return c, ok
}
