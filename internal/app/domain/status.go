package domain

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of one opt-out request.
type Status string

const (
	// StatusPending indicates the request has not been attempted yet.
	StatusPending Status = "pending"
	// StatusSubmitted indicates the broker accepted the request.
	StatusSubmitted Status = "submitted"
	// StatusConfirmed indicates removal was verified.
	StatusConfirmed Status = "confirmed"
	// StatusDenied indicates the broker refused the request.
	StatusDenied Status = "denied"
	// StatusManualRequired indicates the user has to finish the opt-out by hand.
	StatusManualRequired Status = "manual_required"
	// StatusError indicates the attempt faulted.
	StatusError Status = "error"
	// StatusExpired indicates a previous removal lapsed and the listing reappeared.
	StatusExpired Status = "expired"
)

// Statuses lists every recognized status in display order.
var Statuses = []Status{
	StatusPending,
	StatusSubmitted,
	StatusConfirmed,
	StatusDenied,
	StatusManualRequired,
	StatusError,
	StatusExpired,
}

// Valid reports whether s is one of the recognized statuses.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Succeeded reports whether s counts toward a run's succeeded tally.
func (s Status) Succeeded() bool {
	return s == StatusSubmitted || s == StatusConfirmed
}

// Label renders s for progress lines, e.g. "MANUAL REQUIRED".
func (s Status) Label() string {
	return strings.ToUpper(strings.ReplaceAll(string(s), "_", " "))
}

// ParseStatus validates raw against the recognized statuses.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return status, nil
}
