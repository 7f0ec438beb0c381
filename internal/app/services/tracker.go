package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/incognish/incognish/internal/app/domain"
	"github.com/incognish/incognish/internal/app/ports"
)

// DefaultSnapshotLabel names snapshots taken without a label.
const DefaultSnapshotLabel = "Manual snapshot"

// TrackerService serves profile, request, run and snapshot views.
type TrackerService struct {
	store    ports.TrackerStore
	brokers  ports.BrokerRegistry
	validate *validator.Validate
}

// NewTrackerService constructs the read/review service.
func NewTrackerService(store ports.TrackerStore, brokers ports.BrokerRegistry) *TrackerService {
	return &TrackerService{store: store, brokers: brokers, validate: validator.New()}
}

type profileInput struct {
	FirstName   string `validate:"max=100"`
	LastName    string `validate:"max=100"`
	Email       string `validate:"omitempty,email"`
	Phone       string `validate:"max=32"`
	Address     string `validate:"max=200"`
	City        string `validate:"max=100"`
	State       string `validate:"max=50"`
	ZipCode     string `validate:"max=10"`
	DateOfBirth string `validate:"omitempty,datetime=2006-01-02"`
}

var profileFieldNames = map[string]string{
	"FirstName":   domain.FieldFirstName,
	"LastName":    domain.FieldLastName,
	"Email":       domain.FieldEmail,
	"Phone":       domain.FieldPhone,
	"Address":     domain.FieldAddress,
	"City":        domain.FieldCity,
	"State":       domain.FieldState,
	"ZipCode":     domain.FieldZipCode,
	"DateOfBirth": domain.FieldDateOfBirth,
}

// Profile returns the stored profile with every recognized key present.
func (s *TrackerService) Profile(ctx context.Context) (domain.Profile, error) {
	stored, err := s.store.GetProfile(ctx)
	if err != nil {
		return nil, err
	}
	profile := make(domain.Profile, len(domain.ProfileFields))
	for _, key := range domain.ProfileFields {
		profile[key] = stored[key]
	}
	return profile, nil
}

// SaveProfile validates fields and replaces the stored profile with them.
// Unknown keys are rejected.
func (s *TrackerService) SaveProfile(ctx context.Context, fields map[string]string) error {
	known := make(map[string]struct{}, len(domain.ProfileFields))
	for _, key := range domain.ProfileFields {
		known[key] = struct{}{}
	}
	var unknown []string
	profile := make(domain.Profile, len(fields))
	for key, value := range fields {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, key)
			continue
		}
		profile[key] = strings.TrimSpace(value)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: unknown profile field(s) %s", domain.ErrInvalidInput, strings.Join(unknown, ", "))
	}

	input := profileInput{
		FirstName:   profile[domain.FieldFirstName],
		LastName:    profile[domain.FieldLastName],
		Email:       profile[domain.FieldEmail],
		Phone:       profile[domain.FieldPhone],
		Address:     profile[domain.FieldAddress],
		City:        profile[domain.FieldCity],
		State:       profile[domain.FieldState],
		ZipCode:     profile[domain.FieldZipCode],
		DateOfBirth: profile[domain.FieldDateOfBirth],
	}
	if err := s.validate.Struct(input); err != nil {
		return validationError(err)
	}
	return s.store.SaveProfile(ctx, profile)
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		name := profileFieldNames[fe.Field()]
		if name == "" {
			name = strings.ToLower(fe.Field())
		}
		switch fe.Tag() {
		case "email":
			msgs = append(msgs, name+" must be a valid email address")
		case "datetime":
			msgs = append(msgs, name+" must use YYYY-MM-DD")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", name, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", name, fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(msgs, "; "))
}

// Brokers returns the registry joined with each broker's latest request.
func (s *TrackerService) Brokers(ctx context.Context) ([]domain.BrokerOverview, error) {
	catalog, err := s.brokers.Brokers(ctx)
	if err != nil {
		return nil, err
	}
	latest, err := s.store.LatestPerBroker(ctx)
	if err != nil {
		return nil, err
	}
	byBroker := make(map[string]domain.RequestRecord, len(latest))
	for _, record := range latest {
		byBroker[record.BrokerID] = record
	}

	overview := make([]domain.BrokerOverview, 0, len(catalog))
	for _, broker := range catalog {
		item := domain.BrokerOverview{Broker: broker}
		if record, ok := byBroker[broker.ID]; ok {
			submitted := record.SubmittedAt
			item.LatestStatus = record.Status
			item.LatestNotes = record.Notes
			item.LastAttempt = &submitted
		}
		overview = append(overview, item)
	}
	return overview, nil
}

// Dashboard returns aggregate stats alongside registry coverage.
func (s *TrackerService) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	catalog, err := s.brokers.Brokers(ctx)
	if err != nil {
		return domain.Dashboard{}, err
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return domain.Dashboard{}, err
	}
	latest, err := s.store.LatestPerBroker(ctx)
	if err != nil {
		return domain.Dashboard{}, err
	}
	contacted := make(map[string]struct{}, len(latest))
	for _, record := range latest {
		contacted[record.BrokerID] = struct{}{}
	}
	remaining := 0
	for _, broker := range catalog {
		if _, ok := contacted[broker.ID]; !ok {
			remaining++
		}
	}
	return domain.Dashboard{Stats: stats, TotalBrokers: len(catalog), BrokersRemaining: remaining}, nil
}

// RequestQuery carries raw request filters from a caller.
type RequestQuery struct {
	BrokerID string
	Status   string
	RunID    string
	// Since accepts YYYY-MM-DD or RFC 3339.
	Since string
}

// ListRequests returns matching requests, newest first.
func (s *TrackerService) ListRequests(ctx context.Context, query RequestQuery) ([]domain.RequestRecord, error) {
	filter := domain.RequestFilter{
		BrokerID: strings.TrimSpace(query.BrokerID),
		RunID:    strings.TrimSpace(query.RunID),
	}
	if raw := strings.TrimSpace(query.Status); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(query.Since); raw != "" {
		since, err := parseSince(raw)
		if err != nil {
			return nil, err
		}
		filter.Since = since
	}
	return s.store.ListRequests(ctx, filter)
}

func parseSince(raw string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: since must be YYYY-MM-DD or RFC 3339", domain.ErrInvalidInput)
	}
	return t.UTC(), nil
}

// UpdateStatus records a manual review of request id. Notes replace the
// stored notes only when non-nil.
func (s *TrackerService) UpdateStatus(ctx context.Context, id int64, rawStatus string, notes *string) error {
	status, err := domain.ParseStatus(rawStatus)
	if err != nil {
		return err
	}
	if notes != nil {
		if err := s.validate.Var(*notes, "max=2000"); err != nil {
			return fmt.Errorf("%w: notes must be at most 2000 characters", domain.ErrInvalidInput)
		}
	}
	return s.store.UpdateRequest(ctx, id, status, notes)
}

// Runs returns the most recent runs.
func (s *TrackerService) Runs(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.store.ListRecentRuns(ctx, limit)
}

// Run returns one run.
func (s *TrackerService) Run(ctx context.Context, id string) (domain.RunSummary, error) {
	return s.store.GetRun(ctx, strings.TrimSpace(id))
}

// TakeSnapshot captures the latest request per broker.
func (s *TrackerService) TakeSnapshot(ctx context.Context, label string) (int64, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		label = DefaultSnapshotLabel
	}
	return s.store.CreateSnapshot(ctx, label)
}

// Snapshots lists snapshots without their data, newest first.
func (s *TrackerService) Snapshots(ctx context.Context) ([]domain.Snapshot, error) {
	return s.store.ListSnapshots(ctx)
}

// Snapshot returns one snapshot with its captured records.
func (s *TrackerService) Snapshot(ctx context.Context, id int64) (domain.Snapshot, error) {
	return s.store.GetSnapshot(ctx, id)
}
