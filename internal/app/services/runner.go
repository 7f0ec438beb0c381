package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/incognish/incognish/internal/app/domain"
	"github.com/incognish/incognish/internal/app/ports"
	"github.com/incognish/incognish/internal/observability"
	"github.com/incognish/incognish/internal/registry"
)

// NoProfileMessage is logged when a run is requested before the profile exists.
const NoProfileMessage = "ERROR: No profile found. Please fill in your profile first."

var separator = strings.Repeat("─", 60)

// Orchestrator executes a run: it visits the selected brokers one at a time,
// records each outcome and keeps the RunSummary current.
type Orchestrator struct {
	store    ports.TrackerStore
	brokers  ports.BrokerRegistry
	handlers ports.HandlerResolver
	notifier ports.RunNotifier
	metrics  observability.RunMetrics
	logger   *slog.Logger
	now      func() time.Time
	newRunID func() string
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithNotifier publishes run start and finish events.
func WithNotifier(notifier ports.RunNotifier) OrchestratorOption {
	return func(o *Orchestrator) { o.notifier = notifier }
}

// WithRunMetrics records run counters.
func WithRunMetrics(metrics observability.RunMetrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = metrics }
}

// WithLogger replaces the default logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// WithRunIDs replaces the run id generator.
func WithRunIDs(next func() string) OrchestratorOption {
	return func(o *Orchestrator) { o.newRunID = next }
}

// NewOrchestrator constructs an orchestrator over the store, registry and handlers.
func NewOrchestrator(store ports.TrackerStore, brokers ports.BrokerRegistry, handlers ports.HandlerResolver, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		brokers:  brokers,
		handlers: handlers,
		logger:   slog.Default(),
		now:      time.Now,
		newRunID: NewRunID,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewRunID returns the first 8 hex characters of a random UUID.
func NewRunID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// RunBrokers runs every broker in brokerIDs, or the whole registry when
// brokerIDs is empty. Progress lines go to onLog as they happen.
//
// A missing profile is not an error: the run is skipped and nothing is
// persisted. Store failures abort the run and are returned. Cancellation
// stops the run before the next broker.
func (o *Orchestrator) RunBrokers(ctx context.Context, brokerIDs []string, onLog func(string)) (domain.RunSummary, error) {
	var lines []string
	logLine := func(line string) {
		lines = append(lines, line)
		if onLog != nil {
			onLog(line)
		}
	}

	profile, err := o.store.GetProfile(ctx)
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("load profile: %w", err)
	}
	if profile.IsEmpty() {
		logLine(NoProfileMessage)
		return domain.RunSummary{Log: lines}, nil
	}

	catalog, err := o.brokers.Brokers(ctx)
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("load registry: %w", err)
	}
	selected := registry.Select(catalog, brokerIDs)

	run := domain.RunSummary{ID: o.newRunID(), StartedAt: o.now().UTC()}
	ctx = observability.WithRunID(ctx, run.ID)
	// Records of completed attempts are written even after cancellation.
	persistCtx := context.WithoutCancel(ctx)
	o.metrics.RecordStarted(ctx, len(selected))
	o.logger.InfoContext(ctx, "run started", "brokers", len(selected))

	logLine(fmt.Sprintf("Run ID: %s — processing %d broker(s)", run.ID, len(selected)))
	logLine(separator)
	run.Log = lines
	if err := o.store.SaveRun(ctx, run); err != nil {
		o.metrics.RecordCompleted(ctx, true)
		return run, fmt.Errorf("open run %s: %w", run.ID, err)
	}
	o.notify(ctx, run)

	for _, broker := range selected {
		if err := ctx.Err(); err != nil {
			logLine("Run cancelled: " + err.Error())
			break
		}

		outcome := o.attempt(ctx, profile, broker)
		logLine(fmt.Sprintf("[%s] %s — %s", broker.Name, outcome.Status.Label(), outcome.Notes))

		record := domain.RequestRecord{
			BrokerID:    broker.ID,
			BrokerName:  broker.Name,
			Method:      broker.Method,
			Status:      outcome.Status,
			Notes:       outcome.Notes,
			SubmittedAt: o.now().UTC(),
			RunID:       run.ID,
		}
		if _, err := o.store.AddRequest(persistCtx, record); err != nil {
			o.metrics.RecordCompleted(ctx, true)
			run.Log = lines
			return run, fmt.Errorf("record %s: %w", broker.ID, err)
		}

		run.Total++
		if outcome.Status.Succeeded() {
			run.Succeeded++
		} else {
			run.Failed++
		}
	}

	logLine(separator)
	logLine(fmt.Sprintf("Done. Submitted: %d | Manual/Error: %d", run.Succeeded, run.Failed))

	completedAt := o.now().UTC()
	run.CompletedAt = &completedAt
	run.Log = lines
	if err := o.store.SaveRun(persistCtx, run); err != nil {
		o.metrics.RecordCompleted(ctx, true)
		return run, fmt.Errorf("close run %s: %w", run.ID, err)
	}

	o.metrics.RecordCompleted(ctx, false)
	o.logger.InfoContext(ctx, "run finished", "total", run.Total, "succeeded", run.Succeeded, "failed", run.Failed)
	o.notify(persistCtx, run)
	return run, nil
}

// attempt resolves and invokes the handler for broker. Returned errors and
// panics become error outcomes carrying the message.
func (o *Orchestrator) attempt(ctx context.Context, profile domain.Profile, broker domain.Broker) (outcome domain.Outcome) {
	ctx, span := observability.StartBrokerSpan(ctx, broker.ID, string(broker.Method))
	defer span.End()

	defer func() {
		if recovered := recover(); recovered != nil {
			err := fmt.Errorf("%v", recovered)
			span.RecordError(err)
			o.logger.ErrorContext(ctx, "broker handler panicked", "broker_id", broker.ID, "panic", recovered)
			outcome = domain.Outcome{Status: domain.StatusError, Notes: err.Error()}
		}
		o.metrics.RecordOutcome(ctx, string(broker.Method), string(outcome.Status))
	}()

	handler := o.handlers.Resolve(broker)
	result, err := handler.Attempt(ctx, profile, broker)
	if err != nil {
		span.RecordError(err)
		o.logger.WarnContext(ctx, "broker handler failed", "broker_id", broker.ID, "error", err)
		return domain.Outcome{Status: domain.StatusError, Notes: err.Error()}
	}
	if !result.Status.Valid() {
		return domain.Outcome{Status: domain.StatusError, Notes: fmt.Sprintf("handler returned unknown status %q: %s", result.Status, result.Notes)}
	}
	if result.Status != domain.StatusSubmitted && result.Status != domain.StatusConfirmed {
		o.logger.InfoContext(ctx, "broker needs follow-up", "broker_id", broker.ID, "status", result.Status)
	}
	return result
}

func (o *Orchestrator) notify(ctx context.Context, run domain.RunSummary) {
	if o.notifier == nil {
		return
	}
	phase, publish := "started", o.notifier.RunStarted
	if run.CompletedAt != nil {
		phase, publish = "finished", o.notifier.RunFinished
	}
	if err := publish(ctx, run); err != nil {
		o.logger.WarnContext(ctx, "run notification failed", "phase", phase, "error", err)
	}
}
