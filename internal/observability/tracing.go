package observability

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	dbTracerName  = "incognish/db"
	runTracerName = "incognish/runner"
)

type contextKey string

const (
	runIDKey     contextKey = "observability.run_id"
	requestIDKey contextKey = "observability.request_id"
	routeKey     contextKey = "observability.route"
)

// Span is the application-level tracing span contract.
type Span interface {
	End()
	RecordError(error)
}

type otelSpan struct {
	inner trace.Span
}

// StartDBSpan starts a database tracing span for one query operation.
func StartDBSpan(ctx context.Context, queryName, operation string) (context.Context, Span) {
	queryName = strings.TrimSpace(queryName)
	if queryName == "" {
		queryName = "unknown"
	}
	attrs := []attribute.KeyValue{
		attribute.String("db.system.name", "sqlite"),
		attribute.String("db.query_name", queryName),
		attribute.String("db.operation", strings.TrimSpace(operation)),
	}
	if runID, ok := RunIDFromContext(ctx); ok {
		attrs = append(attrs, attribute.String("incognish.run_id", runID))
	}

	ctx, span := otel.Tracer(dbTracerName).Start(ctx, "db."+queryName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	return ctx, otelSpan{inner: span}
}

// StartBrokerSpan starts a span covering one broker attempt inside a run.
func StartBrokerSpan(ctx context.Context, brokerID, method string) (context.Context, Span) {
	attrs := []attribute.KeyValue{
		attribute.String("incognish.broker_id", brokerID),
		attribute.String("incognish.method", method),
	}
	if runID, ok := RunIDFromContext(ctx); ok {
		attrs = append(attrs, attribute.String("incognish.run_id", runID))
	}
	ctx, span := otel.Tracer(runTracerName).Start(ctx, "broker."+brokerID, trace.WithAttributes(attrs...))
	return ctx, otelSpan{inner: span}
}

// WithRunID tags ctx (and its span) with the active run id.
func WithRunID(ctx context.Context, runID string) context.Context {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return ctx
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("incognish.run_id", runID))
	return context.WithValue(ctx, runIDKey, runID)
}

// WithRequestMetadata enriches context and current span with request metadata.
func WithRequestMetadata(ctx context.Context, requestID, route string) context.Context {
	requestID = strings.TrimSpace(requestID)
	route = strings.TrimSpace(route)
	if requestID != "" {
		ctx = context.WithValue(ctx, requestIDKey, requestID)
	}
	if route != "" {
		ctx = context.WithValue(ctx, routeKey, route)
	}
	setSpanRequestAttributes(ctx, requestID, route)
	return ctx
}

// RunIDFromContext extracts the active run id.
func RunIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, runIDKey)
}

// RequestIDFromContext extracts request id.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, requestIDKey)
}

// RouteFromContext extracts normalized route path.
func RouteFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, routeKey)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	value, ok := ctx.Value(key).(string)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

func setSpanRequestAttributes(ctx context.Context, requestID, route string) {
	span := trace.SpanFromContext(ctx)
	attrs := make([]attribute.KeyValue, 0, 2)
	if requestID != "" {
		attrs = append(attrs, attribute.String("request.id", requestID))
	}
	if route != "" {
		attrs = append(attrs, attribute.String("http.route", route))
	}
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
}

func (s otelSpan) End() {
	if s.inner == nil {
		return
	}
	s.inner.End()
}

func (s otelSpan) RecordError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	s.inner.RecordError(err)
	s.inner.SetStatus(codes.Error, err.Error())
}
