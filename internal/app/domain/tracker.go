package domain

import "time"

// RequestRecord is the persisted result of one broker attempt.
type RequestRecord struct {
	ID          int64      `json:"id"`
	BrokerID    string     `json:"broker_id"`
	BrokerName  string     `json:"broker_name"`
	Method      Method     `json:"method"`
	Status      Status     `json:"status"`
	Notes       string     `json:"notes"`
	SubmittedAt time.Time  `json:"submitted_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	RunID       string     `json:"run_id,omitempty"`
}

// RequestFilter narrows request queries; zero fields match everything.
type RequestFilter struct {
	BrokerID string
	Status   Status
	RunID    string
	Since    time.Time
}

// RunSummary is the persisted record of one run.
type RunSummary struct {
	ID          string     `json:"id"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Total       int        `json:"total"`
	Succeeded   int        `json:"succeeded"`
	Failed      int        `json:"failed"`
	Log         []string   `json:"log"`
}

// Stats aggregates tracker state for the dashboard.
type Stats struct {
	BrokersContacted int            `json:"brokers_contacted"`
	Statuses         map[Status]int `json:"statuses"`
	RecentRuns       []RunSummary   `json:"recent_runs"`
}

// Snapshot is a write-once capture of the latest request per broker.
type Snapshot struct {
	ID      int64           `json:"id"`
	TakenAt time.Time       `json:"taken_at"`
	Label   string          `json:"label"`
	Data    []RequestRecord `json:"data,omitempty"`
}

// BrokerOverview is a registry entry joined with its latest request.
type BrokerOverview struct {
	Broker
	LatestStatus Status     `json:"latest_status,omitempty"`
	LatestNotes  string     `json:"latest_notes,omitempty"`
	LastAttempt  *time.Time `json:"last_attempt,omitempty"`
}

// Dashboard is the aggregate view served to the UI.
type Dashboard struct {
	Stats
	TotalBrokers     int `json:"total_brokers"`
	BrokersRemaining int `json:"brokers_remaining"`
}
