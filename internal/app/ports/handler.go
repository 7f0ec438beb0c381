package ports

import (
	"context"

	"github.com/incognish/incognish/internal/app/domain"
)

// Handler performs one opt-out attempt for a broker.
//
// Handlers report recoverable conditions (missing profile fields, missing
// automation dependencies, forms that cannot be located) as an Outcome with
// status manual_required. A returned error is treated as a fault.
type Handler interface {
	Attempt(ctx context.Context, profile domain.Profile, broker domain.Broker) (domain.Outcome, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, profile domain.Profile, broker domain.Broker) (domain.Outcome, error)

// Attempt calls f.
func (f HandlerFunc) Attempt(ctx context.Context, profile domain.Profile, broker domain.Broker) (domain.Outcome, error) {
	return f(ctx, profile, broker)
}

// HandlerResolver maps a broker to the handler that serves it. It never fails.
type HandlerResolver interface {
	Resolve(broker domain.Broker) Handler
}

// RunNotifier announces run lifecycle to an external endpoint.
type RunNotifier interface {
	RunStarted(ctx context.Context, run domain.RunSummary) error
	RunFinished(ctx context.Context, run domain.RunSummary) error
}
