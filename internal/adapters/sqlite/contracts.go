package sqlite

import (
	"context"

	"github.com/incognish/incognish/internal/db/queries"
)

type storeDatabase interface {
	ListProfileFields(ctx context.Context) ([]queries.Profile, error)
	ReplaceProfile(ctx context.Context, fields map[string]string, updatedAt string) error

	InsertRequest(ctx context.Context, arg queries.InsertRequestParams) (int64, error)
	UpdateRequestStatus(ctx context.Context, arg queries.UpdateRequestStatusParams) (int64, error)
	ListRequests(ctx context.Context, arg queries.ListRequestsParams) ([]queries.Request, error)
	ListLatestRequestPerBroker(ctx context.Context) ([]queries.Request, error)
	CountContactedBrokers(ctx context.Context) (int64, error)
	LatestStatusCounts(ctx context.Context) (map[string]int64, error)

	UpsertRun(ctx context.Context, arg queries.UpsertRunParams) error
	GetRun(ctx context.Context, id string) (queries.Run, error)
	ListRecentRuns(ctx context.Context, limit int64) ([]queries.Run, error)

	InsertSnapshot(ctx context.Context, arg queries.InsertSnapshotParams) (int64, error)
	ListSnapshots(ctx context.Context) ([]queries.ListSnapshotsRow, error)
	GetSnapshot(ctx context.Context, id int64) (queries.Snapshot, error)
}
