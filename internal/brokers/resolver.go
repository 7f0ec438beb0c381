// Package brokers implements opt-out handlers and maps brokers to them.
package brokers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/incognish/incognish/internal/app/domain"
	"github.com/incognish/incognish/internal/app/ports"
)

// EmailHandlerID is the handler used by email brokers that name none.
const EmailHandlerID = "email"

// Factory builds the handler for one broker attempt.
type Factory func() ports.Handler

// Registry maps handler identifiers to factories. Built once at startup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

var _ ports.HandlerResolver = (*Registry)(nil)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds id to factory, replacing any previous binding.
func (r *Registry) Register(id string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.TrimSpace(id)] = factory
}

// IDs lists registered handler identifiers.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve returns the handler for broker. A registered identifier wins
// regardless of method; otherwise manual brokers get a handler reporting
// manual_required with the opt-out URL, and everything else gets one pointing
// the user at the site.
func (r *Registry) Resolve(broker domain.Broker) ports.Handler {
	id := broker.Handler
	if id == "" && broker.Method == domain.MethodEmail {
		id = EmailHandlerID
	}

	if id != "" {
		r.mu.RLock()
		factory, ok := r.factories[id]
		r.mu.RUnlock()
		if ok && factory != nil {
			return factory()
		}
	}
	if broker.Method == domain.MethodManual {
		return manualHandler{}
	}
	return unavailableHandler{}
}

type manualHandler struct{}

func (manualHandler) Attempt(_ context.Context, _ domain.Profile, broker domain.Broker) (domain.Outcome, error) {
	return domain.Outcome{
		Status: domain.StatusManualRequired,
		Notes:  fmt.Sprintf("Manual opt-out required. URL: %s", orNA(broker.OptOutURL)),
	}, nil
}

type unavailableHandler struct{}

func (unavailableHandler) Attempt(_ context.Context, _ domain.Profile, broker domain.Broker) (domain.Outcome, error) {
	return domain.Outcome{
		Status: domain.StatusManualRequired,
		Notes:  fmt.Sprintf("No handler available. Visit: %s", orNA(broker.OptOutURL)),
	}, nil
}

func orNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return "N/A"
	}
	return value
}

func manual(format string, args ...any) domain.Outcome {
	return domain.Outcome{Status: domain.StatusManualRequired, Notes: fmt.Sprintf(format, args...)}
}
