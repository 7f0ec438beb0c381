package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/incognish/incognish/internal/app/domain"
	"github.com/incognish/incognish/internal/db/queries"
)

func mapRequests(rows []queries.Request) ([]domain.RequestRecord, error) {
	out := make([]domain.RequestRecord, 0, len(rows))
	for _, row := range rows {
		record, err := mapRequest(row)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

func mapRequest(row queries.Request) (domain.RequestRecord, error) {
	submittedAt, err := parseTime(row.SubmittedAt)
	if err != nil {
		return domain.RequestRecord{}, err
	}
	record := domain.RequestRecord{
		ID:          row.ID,
		BrokerID:    row.BrokerID,
		BrokerName:  row.BrokerName,
		Method:      domain.Method(row.Method),
		Status:      domain.Status(row.Status),
		Notes:       row.Notes,
		SubmittedAt: submittedAt,
		RunID:       row.RunID.String,
	}
	if row.ConfirmedAt.Valid {
		confirmedAt, err := parseTime(row.ConfirmedAt.String)
		if err != nil {
			return domain.RequestRecord{}, err
		}
		record.ConfirmedAt = &confirmedAt
	}
	return record, nil
}

func mapRun(row queries.Run) (domain.RunSummary, error) {
	startedAt, err := parseTime(row.StartedAt)
	if err != nil {
		return domain.RunSummary{}, err
	}
	run := domain.RunSummary{
		ID:        row.ID,
		StartedAt: startedAt,
		Total:     int(row.Total),
		Succeeded: int(row.Succeeded),
		Failed:    int(row.Failed),
		Log:       []string{},
	}
	if row.CompletedAt.Valid {
		completedAt, err := parseTime(row.CompletedAt.String)
		if err != nil {
			return domain.RunSummary{}, err
		}
		run.CompletedAt = &completedAt
	}
	if strings.TrimSpace(row.Log) != "" {
		if err := json.Unmarshal([]byte(row.Log), &run.Log); err != nil {
			return domain.RunSummary{}, fmt.Errorf("decode log for run %s: %w", row.ID, err)
		}
	}
	return run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t, nil
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	return sql.NullString{String: value, Valid: value != ""}
}

func nonNilLog(lines []string) []string {
	if lines == nil {
		return []string{}
	}
	return lines
}
