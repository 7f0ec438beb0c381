package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/incognish/incognish/internal/app/domain"
	"github.com/incognish/incognish/internal/app/ports"
)

var errStoreDown = errors.New("database is locked")

type memStore struct {
	mu        sync.Mutex
	profile   domain.Profile
	requests  []domain.RequestRecord
	runs      map[string]domain.RunSummary
	runSaves  int
	snapshots []domain.Snapshot

	failAddRequest bool
	failSaveRun    bool
}

var _ ports.TrackerStore = (*memStore)(nil)

func newMemStore(profile domain.Profile) *memStore {
	return &memStore{profile: profile, runs: make(map[string]domain.RunSummary)}
}

func (s *memStore) GetProfile(context.Context) (domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(domain.Profile, len(s.profile))
	for k, v := range s.profile {
		out[k] = v
	}
	return out, nil
}

func (s *memStore) SaveProfile(_ context.Context, profile domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = profile
	return nil
}

func (s *memStore) AddRequest(_ context.Context, record domain.RequestRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAddRequest {
		return 0, errStoreDown
	}
	record.ID = int64(len(s.requests) + 1)
	s.requests = append(s.requests, record)
	return record.ID, nil
}

func (s *memStore) UpdateRequest(_ context.Context, id int64, status domain.Status, notes *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.requests {
		if s.requests[i].ID == id {
			s.requests[i].Status = status
			if notes != nil {
				s.requests[i].Notes = *notes
			}
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *memStore) ListRequests(_ context.Context, filter domain.RequestFilter) ([]domain.RequestRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RequestRecord
	for i := len(s.requests) - 1; i >= 0; i-- {
		r := s.requests[i]
		if filter.BrokerID != "" && r.BrokerID != filter.BrokerID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.RunID != "" && r.RunID != filter.RunID {
			continue
		}
		if !filter.Since.IsZero() && r.SubmittedAt.Before(filter.Since) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *memStore) LatestPerBroker(context.Context) ([]domain.RequestRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	latest := make(map[string]domain.RequestRecord)
	for _, r := range s.requests {
		latest[r.BrokerID] = r
	}
	out := make([]domain.RequestRecord, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BrokerName < out[j].BrokerName })
	return out, nil
}

func (s *memStore) Stats(ctx context.Context) (domain.Stats, error) {
	latest, _ := s.LatestPerBroker(ctx)
	stats := domain.Stats{BrokersContacted: len(latest), Statuses: make(map[domain.Status]int)}
	for _, r := range latest {
		stats.Statuses[r.Status]++
	}
	return stats, nil
}

func (s *memStore) SaveRun(_ context.Context, run domain.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaveRun {
		return errStoreDown
	}
	if existing, ok := s.runs[run.ID]; ok {
		run.StartedAt = existing.StartedAt
	}
	run.Log = append([]string(nil), run.Log...)
	s.runs[run.ID] = run
	s.runSaves++
	return nil
}

func (s *memStore) GetRun(_ context.Context, id string) (domain.RunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return domain.RunSummary{}, domain.ErrNotFound
	}
	return run, nil
}

func (s *memStore) ListRecentRuns(_ context.Context, limit int) ([]domain.RunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.RunSummary, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) CreateSnapshot(ctx context.Context, label string) (int64, error) {
	data, _ := s.LatestPerBroker(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	id := int64(len(s.snapshots) + 1)
	s.snapshots = append(s.snapshots, domain.Snapshot{ID: id, Label: label, Data: data})
	return id, nil
}

func (s *memStore) ListSnapshots(context.Context) ([]domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Snapshot(nil), s.snapshots...), nil
}

func (s *memStore) GetSnapshot(_ context.Context, id int64) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range s.snapshots {
		if snap.ID == id {
			return snap, nil
		}
	}
	return domain.Snapshot{}, domain.ErrNotFound
}

func (s *memStore) requestsSnapshot() []domain.RequestRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.RequestRecord(nil), s.requests...)
}

type staticRegistry []domain.Broker

func (r staticRegistry) Brokers(context.Context) ([]domain.Broker, error) {
	return append([]domain.Broker(nil), r...), nil
}

type handlerMap map[string]ports.Handler

func (m handlerMap) Resolve(broker domain.Broker) ports.Handler {
	if h, ok := m[broker.ID]; ok {
		return h
	}
	return ports.HandlerFunc(func(context.Context, domain.Profile, domain.Broker) (domain.Outcome, error) {
		return domain.Outcome{Status: domain.StatusManualRequired, Notes: "Manual opt-out required. URL: N/A"}, nil
	})
}
