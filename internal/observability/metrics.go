package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RunMetrics counts runs and per-broker outcomes.
type RunMetrics struct {
	started   metric.Int64Counter
	completed metric.Int64Counter
	outcomes  metric.Int64Counter
}

// NewRunMetrics registers run counters on the global meter provider.
func NewRunMetrics() RunMetrics {
	meter := otel.Meter("github.com/incognish/incognish/internal/app/services")
	started, _ := meter.Int64Counter("incognish.runs.started")
	completed, _ := meter.Int64Counter("incognish.runs.completed")
	outcomes, _ := meter.Int64Counter("incognish.broker.outcomes")
	return RunMetrics{started: started, completed: completed, outcomes: outcomes}
}

// RecordStarted counts a run that passed its preconditions.
func (m RunMetrics) RecordStarted(ctx context.Context, brokers int) {
	if m.started == nil {
		return
	}
	m.started.Add(ctx, 1, metric.WithAttributes(attribute.Int("brokers", brokers)))
}

// RecordCompleted counts a finished run; fatal marks runs aborted by a store fault.
func (m RunMetrics) RecordCompleted(ctx context.Context, fatal bool) {
	if m.completed == nil {
		return
	}
	m.completed.Add(ctx, 1, metric.WithAttributes(attribute.Bool("fatal", fatal)))
}

// RecordOutcome counts one broker attempt by method and resulting status.
func (m RunMetrics) RecordOutcome(ctx context.Context, method, status string) {
	if m.outcomes == nil {
		return
	}
	m.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status", status),
	))
}
