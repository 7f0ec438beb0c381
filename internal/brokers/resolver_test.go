package brokers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incognish/incognish/internal/app/domain"
	"github.com/incognish/incognish/internal/app/ports"
)

func TestResolveFallsBackToManualOutcomes(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	ctx := context.Background()

	cases := []struct {
		name   string
		broker domain.Broker
		notes  string
	}{
		{
			name:   "manual broker",
			broker: domain.Broker{ID: "spokeo", Method: domain.MethodManual, Handler: "anything", OptOutURL: "https://spokeo.test/optout"},
			notes:  "Manual opt-out required. URL: https://spokeo.test/optout",
		},
		{
			name:   "unknown handler",
			broker: domain.Broker{ID: "x", Method: domain.MethodBrowser, Handler: "missing", OptOutURL: "https://x.test"},
			notes:  "No handler available. Visit: https://x.test",
		},
		{
			name:   "empty handler without url",
			broker: domain.Broker{ID: "y", Method: domain.MethodBrowser},
			notes:  "No handler available. Visit: N/A",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome, err := reg.Resolve(tc.broker).Attempt(ctx, domain.Profile{}, tc.broker)
			require.NoError(t, err)
			assert.Equal(t, domain.StatusManualRequired, outcome.Status)
			assert.Equal(t, tc.notes, outcome.Notes)
		})
	}
}

func TestResolveUsesRegisteredFactories(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	var built int
	reg.Register("flow", func() ports.Handler {
		built++
		return ports.HandlerFunc(func(context.Context, domain.Profile, domain.Broker) (domain.Outcome, error) {
			return domain.Outcome{Status: domain.StatusSubmitted, Notes: "ok"}, nil
		})
	})
	reg.Register(EmailHandlerID, func() ports.Handler {
		return ports.HandlerFunc(func(context.Context, domain.Profile, domain.Broker) (domain.Outcome, error) {
			return domain.Outcome{Status: domain.StatusSubmitted, Notes: "mailed"}, nil
		})
	})

	outcome, err := reg.Resolve(domain.Broker{Method: domain.MethodBrowser, Handler: "flow"}).Attempt(context.Background(), nil, domain.Broker{})
	require.NoError(t, err)
	assert.Equal(t, "ok", outcome.Notes)
	assert.Equal(t, 1, built)

	outcome, err = reg.Resolve(domain.Broker{Method: domain.MethodEmail}).Attempt(context.Background(), nil, domain.Broker{})
	require.NoError(t, err)
	assert.Equal(t, "mailed", outcome.Notes)

	assert.Equal(t, []string{"email", "flow"}, reg.IDs())
}

func TestResolvePrefersRegisteredHandlerForManualBroker(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	var called bool
	reg.Register("custom", func() ports.Handler {
		return ports.HandlerFunc(func(context.Context, domain.Profile, domain.Broker) (domain.Outcome, error) {
			called = true
			return domain.Outcome{Status: domain.StatusSubmitted, Notes: "custom flow"}, nil
		})
	})

	broker := domain.Broker{ID: "m", Method: domain.MethodManual, Handler: "custom", OptOutURL: "https://m.test"}
	outcome, err := reg.Resolve(broker).Attempt(context.Background(), domain.Profile{}, broker)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, domain.Outcome{Status: domain.StatusSubmitted, Notes: "custom flow"}, outcome)

	broker.Handler = ""
	outcome, err = reg.Resolve(broker).Attempt(context.Background(), domain.Profile{}, broker)
	require.NoError(t, err)
	assert.Equal(t, "Manual opt-out required. URL: https://m.test", outcome.Notes)
}
