// Package registry loads the data broker catalog.
package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/incognish/incognish/internal/app/domain"
	"github.com/incognish/incognish/internal/app/ports"
)

// ErrInvalidCatalog is returned when a catalog document fails validation.
var ErrInvalidCatalog = errors.New("invalid broker catalog")

var _ ports.BrokerRegistry = (*Registry)(nil)

type catalog struct {
	Brokers []domain.Broker `yaml:"brokers"`
}

// Registry reads the catalog on every call so edits to the file are picked up
// without a restart. With no path it serves the embedded default.
type Registry struct {
	path     string
	fallback []byte
}

// New returns a registry backed by path, or by fallback when path is empty.
func New(path string, fallback []byte) *Registry {
	return &Registry{path: strings.TrimSpace(path), fallback: fallback}
}

// Brokers returns the catalog in file order.
func (r *Registry) Brokers(ctx context.Context) ([]domain.Broker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data := r.fallback
	if r.path != "" {
		raw, err := os.ReadFile(r.path)
		if err != nil {
			return nil, fmt.Errorf("read broker catalog: %w", err)
		}
		data = raw
	}
	return Parse(data)
}

// Parse decodes a YAML (or JSON) catalog of the form {brokers: [...]}.
func Parse(data []byte) ([]domain.Broker, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var doc catalog
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	seen := make(map[string]struct{}, len(doc.Brokers))
	brokers := make([]domain.Broker, 0, len(doc.Brokers))
	for index, broker := range doc.Brokers {
		broker = normalize(broker)
		if broker.ID == "" {
			return nil, fmt.Errorf("%w: entry %d has no id", ErrInvalidCatalog, index)
		}
		if _, dup := seen[broker.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidCatalog, broker.ID)
		}
		switch broker.Method {
		case domain.MethodBrowser, domain.MethodEmail, domain.MethodManual:
		default:
			return nil, fmt.Errorf("%w: broker %q has unknown method %q", ErrInvalidCatalog, broker.ID, broker.Method)
		}
		seen[broker.ID] = struct{}{}
		brokers = append(brokers, broker)
	}
	return brokers, nil
}

// Select returns the brokers whose ids appear in ids, in catalog order.
// Unknown ids are ignored; an empty ids selects everything.
func Select(brokers []domain.Broker, ids []string) []domain.Broker {
	if len(ids) == 0 {
		return brokers
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[strings.TrimSpace(id)] = struct{}{}
	}
	selected := make([]domain.Broker, 0, len(ids))
	for _, broker := range brokers {
		if _, ok := wanted[broker.ID]; ok {
			selected = append(selected, broker)
		}
	}
	return selected
}

func normalize(broker domain.Broker) domain.Broker {
	broker.ID = strings.TrimSpace(broker.ID)
	broker.Name = strings.TrimSpace(broker.Name)
	if broker.Name == "" {
		broker.Name = broker.ID
	}
	broker.Method = domain.Method(strings.ToLower(strings.TrimSpace(string(broker.Method))))
	broker.Handler = strings.TrimSpace(broker.Handler)
	broker.OptOutURL = strings.TrimSpace(broker.OptOutURL)
	broker.EmailAddress = strings.TrimSpace(broker.EmailAddress)
	return broker
}
