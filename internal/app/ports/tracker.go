package ports

import (
	"context"

	"github.com/incognish/incognish/internal/app/domain"
)

// TrackerStore persists profile, requests, runs and snapshots.
// Implementations must be safe for concurrent callers.
type TrackerStore interface {
	GetProfile(ctx context.Context) (domain.Profile, error)
	SaveProfile(ctx context.Context, profile domain.Profile) error

	AddRequest(ctx context.Context, record domain.RequestRecord) (int64, error)
	UpdateRequest(ctx context.Context, id int64, status domain.Status, notes *string) error
	ListRequests(ctx context.Context, filter domain.RequestFilter) ([]domain.RequestRecord, error)
	LatestPerBroker(ctx context.Context) ([]domain.RequestRecord, error)
	Stats(ctx context.Context) (domain.Stats, error)

	SaveRun(ctx context.Context, run domain.RunSummary) error
	GetRun(ctx context.Context, id string) (domain.RunSummary, error)
	ListRecentRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)

	CreateSnapshot(ctx context.Context, label string) (int64, error)
	ListSnapshots(ctx context.Context) ([]domain.Snapshot, error)
	GetSnapshot(ctx context.Context, id int64) (domain.Snapshot, error)
}

// BrokerRegistry yields the broker catalog in registry order.
type BrokerRegistry interface {
	Brokers(ctx context.Context) ([]domain.Broker, error)
}
