package db

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/incognish/incognish/internal/db/queries"
	"github.com/incognish/incognish/internal/observability"
)

const maxSamplesPerQuery = 256

// QueryLatency summarises recent samples for one named query.
type QueryLatency struct {
	Name   string
	Count  int
	Errors int
	P50    time.Duration
	P95    time.Duration
	Max    time.Duration
}

type querySamples struct {
	durations []time.Duration
	errors    int
}

type queryLatencyTracker struct {
	mu      sync.Mutex
	samples map[string]*querySamples
}

func newQueryLatencyTracker() *queryLatencyTracker {
	return &queryLatencyTracker{samples: make(map[string]*querySamples)}
}

func (t *queryLatencyTracker) observe(name string, duration time.Duration, err error) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.samples[name]
	if !ok {
		entry = &querySamples{}
		t.samples[name] = entry
	}
	entry.durations = append(entry.durations, duration)
	if len(entry.durations) > maxSamplesPerQuery {
		entry.durations = entry.durations[len(entry.durations)-maxSamplesPerQuery:]
	}
	if err != nil && err != sql.ErrNoRows {
		entry.errors++
	}
}

func (t *queryLatencyTracker) snapshot() []QueryLatency {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]QueryLatency, 0, len(t.samples))
	for name, entry := range t.samples {
		if len(entry.durations) == 0 {
			continue
		}
		sorted := append([]time.Duration(nil), entry.durations...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		out = append(out, QueryLatency{
			Name:   name,
			Count:  len(sorted),
			Errors: entry.errors,
			P50:    percentile(sorted, 0.50),
			P95:    percentile(sorted, 0.95),
			Max:    sorted[len(sorted)-1],
		})
	}

	// slowest first
	sort.Slice(out, func(i, j int) bool {
		if out[i].P95 == out[j].P95 {
			return out[i].Name < out[j].Name
		}
		return out[i].P95 > out[j].P95
	})
	return out
}

func percentile(sorted []time.Duration, q float64) time.Duration {
	return sorted[int(float64(len(sorted)-1)*q)]
}

// instrumentedDBTX times every sqlc call and opens a DB span named after it.
type instrumentedDBTX struct {
	inner   queries.DBTX
	tracker *queryLatencyTracker
}

func newInstrumentedDBTX(inner queries.DBTX, tracker *queryLatencyTracker) queries.DBTX {
	if tracker == nil {
		return inner
	}
	return &instrumentedDBTX{inner: inner, tracker: tracker}
}

func (d *instrumentedDBTX) track(ctx context.Context, query, operation string) (context.Context, func(error)) {
	name := queryName(query)
	ctx, span := observability.StartDBSpan(ctx, name, operation)
	start := time.Now()
	return ctx, func(err error) {
		d.tracker.observe(name, time.Since(start), err)
		span.RecordError(err)
		span.End()
	}
}

func (d *instrumentedDBTX) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ctx, done := d.track(ctx, query, "exec")
	result, err := d.inner.ExecContext(ctx, query, args...)
	done(err)
	return result, err
}

func (d *instrumentedDBTX) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	ctx, done := d.track(ctx, query, "prepare")
	stmt, err := d.inner.PrepareContext(ctx, query)
	done(err)
	return stmt, err
}

func (d *instrumentedDBTX) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	ctx, done := d.track(ctx, query, "query")
	rows, err := d.inner.QueryContext(ctx, query, args...)
	done(err)
	return rows, err
}

func (d *instrumentedDBTX) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	ctx, done := d.track(ctx, query, "query_row")
	row := d.inner.QueryRowContext(ctx, query, args...)
	done(row.Err())
	return row
}

// queryName extracts the sqlc query name from its "-- name: X :kind" header.
func queryName(query string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(query), "\n")
	fields := strings.Fields(first)
	if len(fields) < 3 || fields[0] != "--" || fields[1] != "name:" {
		return "unknown"
	}
	return fields[2]
}
