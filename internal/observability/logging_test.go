package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestWrapSlogHandlerAddsContextFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(WrapSlogHandler(slog.NewTextHandler(&buf, nil)))

	ctx := WithRequestMetadata(context.Background(), "req-1", "/api/runs")
	ctx = WithRunID(ctx, "ab12cd34")
	log.InfoContext(ctx, "broker attempted")

	out := buf.String()
	for _, want := range []string{"request_id=req-1", "route=/api/runs", "run_id=ab12cd34"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log line %q missing %q", out, want)
		}
	}
}

func TestWithRunIDIgnoresBlankValues(t *testing.T) {
	t.Parallel()

	ctx := WithRunID(context.Background(), "  ")
	if _, ok := RunIDFromContext(ctx); ok {
		t.Fatal("expected blank run id to be ignored")
	}
}

func TestRunMetricsZeroValueIsSafe(t *testing.T) {
	t.Parallel()

	var metrics RunMetrics
	metrics.RecordStarted(context.Background(), 3)
	metrics.RecordOutcome(context.Background(), "browser", "submitted")
	metrics.RecordCompleted(context.Background(), false)

	NewRunMetrics().RecordOutcome(context.Background(), "email", "manual_required")
}
