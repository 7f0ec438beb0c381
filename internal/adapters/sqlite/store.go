package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/incognish/incognish/internal/app/domain"
	"github.com/incognish/incognish/internal/app/ports"
	"github.com/incognish/incognish/internal/db/queries"
)

// timeLayout is fixed width so lexical order matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

const recentRunsLimit = 5

var _ ports.TrackerStore = (*Store)(nil)

// Store implements ports.TrackerStore on top of the sqlc queries.
type Store struct {
	database storeDatabase
	now      func() time.Time
}

// NewStore wraps database.
func NewStore(database storeDatabase) *Store {
	return &Store{database: database, now: time.Now}
}

// GetProfile returns the stored profile; an unsaved profile is empty.
func (s *Store) GetProfile(ctx context.Context) (domain.Profile, error) {
	rows, err := s.database.ListProfileFields(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	profile := make(domain.Profile, len(rows))
	for _, row := range rows {
		profile[row.Key] = row.Value
	}
	return profile, nil
}

// SaveProfile replaces every stored field with profile.
func (s *Store) SaveProfile(ctx context.Context, profile domain.Profile) error {
	fields := make(map[string]string, len(profile))
	for key, value := range profile {
		fields[key] = strings.TrimSpace(value)
	}
	if err := s.database.ReplaceProfile(ctx, fields, formatTime(s.now())); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// AddRequest appends one request record and returns its id.
func (s *Store) AddRequest(ctx context.Context, record domain.RequestRecord) (int64, error) {
	submittedAt := record.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = s.now()
	}
	status := record.Status
	if status == "" {
		status = domain.StatusPending
	}
	id, err := s.database.InsertRequest(ctx, queries.InsertRequestParams{
		BrokerID:    record.BrokerID,
		BrokerName:  record.BrokerName,
		SubmittedAt: formatTime(submittedAt),
		Method:      string(record.Method),
		Status:      string(status),
		Notes:       record.Notes,
		RunID:       nullString(record.RunID),
	})
	if err != nil {
		return 0, fmt.Errorf("insert request for %s: %w", record.BrokerID, err)
	}
	return id, nil
}

// UpdateRequest sets status (and notes when non-nil) on one request.
// Moving to confirmed stamps the confirmation time.
func (s *Store) UpdateRequest(ctx context.Context, id int64, status domain.Status, notes *string) error {
	params := queries.UpdateRequestStatusParams{Status: string(status), ID: id}
	if notes != nil {
		params.Notes = sql.NullString{String: *notes, Valid: true}
	}
	if status == domain.StatusConfirmed {
		params.ConfirmedAt = nullString(formatTime(s.now()))
	}
	affected, err := s.database.UpdateRequestStatus(ctx, params)
	if err != nil {
		return fmt.Errorf("update request %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("request %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListRequests returns matching requests, newest first.
func (s *Store) ListRequests(ctx context.Context, filter domain.RequestFilter) ([]domain.RequestRecord, error) {
	params := queries.ListRequestsParams{
		BrokerID: nullString(filter.BrokerID),
		Status:   nullString(string(filter.Status)),
		RunID:    nullString(filter.RunID),
	}
	if !filter.Since.IsZero() {
		params.Since = nullString(formatTime(filter.Since))
	}
	rows, err := s.database.ListRequests(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return mapRequests(rows)
}

// LatestPerBroker returns each broker's most recent request ordered by broker name.
func (s *Store) LatestPerBroker(ctx context.Context) ([]domain.RequestRecord, error) {
	rows, err := s.database.ListLatestRequestPerBroker(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest requests: %w", err)
	}
	return mapRequests(rows)
}

// Stats aggregates contacted brokers, latest statuses and recent runs.
func (s *Store) Stats(ctx context.Context) (domain.Stats, error) {
	contacted, err := s.database.CountContactedBrokers(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("count contacted brokers: %w", err)
	}
	counts, err := s.database.LatestStatusCounts(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("count statuses: %w", err)
	}
	runs, err := s.ListRecentRuns(ctx, recentRunsLimit)
	if err != nil {
		return domain.Stats{}, err
	}

	statuses := make(map[domain.Status]int, len(counts))
	for status, total := range counts {
		statuses[domain.Status(status)] = int(total)
	}
	return domain.Stats{
		BrokersContacted: int(contacted),
		Statuses:         statuses,
		RecentRuns:       runs,
	}, nil
}

// SaveRun upserts run; the original start time survives later writes.
func (s *Store) SaveRun(ctx context.Context, run domain.RunSummary) error {
	logJSON, err := json.Marshal(nonNilLog(run.Log))
	if err != nil {
		return fmt.Errorf("encode run log: %w", err)
	}
	params := queries.UpsertRunParams{
		ID:        run.ID,
		StartedAt: formatTime(run.StartedAt),
		Total:     int64(run.Total),
		Succeeded: int64(run.Succeeded),
		Failed:    int64(run.Failed),
		Log:       string(logJSON),
	}
	if run.CompletedAt != nil {
		params.CompletedAt = nullString(formatTime(*run.CompletedAt))
	}
	if err := s.database.UpsertRun(ctx, params); err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun returns one run by id.
func (s *Store) GetRun(ctx context.Context, id string) (domain.RunSummary, error) {
	row, err := s.database.GetRun(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RunSummary{}, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return mapRun(row)
}

// ListRecentRuns returns up to limit runs, newest first.
func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = recentRunsLimit
	}
	rows, err := s.database.ListRecentRuns(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	out := make([]domain.RunSummary, 0, len(rows))
	for _, row := range rows {
		run, err := mapRun(row)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}

// CreateSnapshot captures the latest request per broker under label.
func (s *Store) CreateSnapshot(ctx context.Context, label string) (int64, error) {
	latest, err := s.LatestPerBroker(ctx)
	if err != nil {
		return 0, err
	}
	data, err := json.Marshal(latest)
	if err != nil {
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}
	id, err := s.database.InsertSnapshot(ctx, queries.InsertSnapshotParams{
		TakenAt: formatTime(s.now()),
		Label:   label,
		Data:    string(data),
	})
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	return id, nil
}

// ListSnapshots returns snapshot headers without data, newest first.
func (s *Store) ListSnapshots(ctx context.Context) ([]domain.Snapshot, error) {
	rows, err := s.database.ListSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	out := make([]domain.Snapshot, 0, len(rows))
	for _, row := range rows {
		takenAt, err := parseTime(row.TakenAt)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Snapshot{ID: row.ID, TakenAt: takenAt, Label: row.Label})
	}
	return out, nil
}

// GetSnapshot returns one snapshot including its captured records.
func (s *Store) GetSnapshot(ctx context.Context, id int64) (domain.Snapshot, error) {
	row, err := s.database.GetSnapshot(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Snapshot{}, fmt.Errorf("snapshot %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("get snapshot %d: %w", id, err)
	}
	takenAt, err := parseTime(row.TakenAt)
	if err != nil {
		return domain.Snapshot{}, err
	}
	snapshot := domain.Snapshot{ID: row.ID, TakenAt: takenAt, Label: row.Label}
	if err := json.Unmarshal([]byte(row.Data), &snapshot.Data); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot %d: %w", id, err)
	}
	return snapshot, nil
}
