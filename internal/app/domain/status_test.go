package domain

import (
	"errors"
	"testing"
)

func TestStatusLabel(t *testing.T) {
	t.Parallel()

	if got := StatusManualRequired.Label(); got != "MANUAL REQUIRED" {
		t.Fatalf("unexpected label: %q", got)
	}
	if got := StatusSubmitted.Label(); got != "SUBMITTED" {
		t.Fatalf("unexpected label: %q", got)
	}
}

func TestParseStatusRejectsUnknownValues(t *testing.T) {
	t.Parallel()

	status, err := ParseStatus(" Confirmed ")
	if err != nil || status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %q err=%v", status, err)
	}
	if _, err := ParseStatus("removed"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestStatusSucceeded(t *testing.T) {
	t.Parallel()

	for _, status := range Statuses {
		want := status == StatusSubmitted || status == StatusConfirmed
		if status.Succeeded() != want {
			t.Fatalf("status %q succeeded=%v, want %v", status, status.Succeeded(), want)
		}
	}
}

func TestProfileHelpers(t *testing.T) {
	t.Parallel()

	profile := Profile{FieldFirstName: "Jane", FieldLastName: " Doe ", FieldState: ""}
	if profile.FullName() != "Jane Doe" {
		t.Fatalf("unexpected full name %q", profile.FullName())
	}
	if profile.IsEmpty() {
		t.Fatal("expected non-empty profile")
	}
	if !(Profile{"city": "  "}).IsEmpty() {
		t.Fatal("expected whitespace-only profile to be empty")
	}
	missing := profile.Missing(FieldFirstName, FieldState, FieldEmail)
	if len(missing) != 2 || missing[0] != FieldState || missing[1] != FieldEmail {
		t.Fatalf("unexpected missing fields: %v", missing)
	}
}
