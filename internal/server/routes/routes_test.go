package routes

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incognish/incognish/internal/adapters/sqlite"
	"github.com/incognish/incognish/internal/app/domain"
	"github.com/incognish/incognish/internal/app/ports"
	appservices "github.com/incognish/incognish/internal/app/services"
	"github.com/incognish/incognish/internal/brokers"
	"github.com/incognish/incognish/internal/db"
	"github.com/incognish/incognish/internal/registry"
)

const testCatalog = `
brokers:
  - id: spokeo
    name: Spokeo
    method: manual
    opt_out_url: https://www.spokeo.com/optout
  - id: acme
    name: Acme People
    method: browser
    handler: acme
`

type testApp struct {
	echo    *echo.Echo
	session *appservices.RunSession
	store   *sqlite.Store
	release chan struct{}
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "tracker"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	store := sqlite.NewStore(database)
	catalog := registry.New("", []byte(testCatalog))

	release := make(chan struct{})
	handlers := brokers.NewRegistry()
	handlers.Register("acme", func() ports.Handler {
		return ports.HandlerFunc(func(ctx context.Context, _ domain.Profile, _ domain.Broker) (domain.Outcome, error) {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return domain.Outcome{Status: domain.StatusSubmitted, Notes: "Removal submitted"}, nil
		})
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	orchestrator := appservices.NewOrchestrator(store, catalog, handlers, appservices.WithLogger(logger))
	session := appservices.NewRunSession(context.Background(), orchestrator.RunBrokers, 5*time.Second, logger)
	tracker := appservices.NewTrackerService(store, catalog)

	e := echo.New()
	NewAPIRoutes(tracker).RegisterRoutes(e)
	NewRunRoutes(session, tracker).RegisterRoutes(e)

	app := &testApp{echo: e, session: session, store: store, release: release}
	t.Cleanup(func() {
		app.unblock()
		session.Wait()
	})
	return app
}

func (a *testApp) unblock() {
	select {
	case <-a.release:
	default:
		close(a.release)
	}
}

func (a *testApp) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)
	return rec
}

func TestProfileEndpoints(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPut, "/api/profile", `{"first_name":"Jane","last_name":"Doe","state":"CA"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var profile map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "Jane", profile["first_name"])
	assert.Equal(t, "", profile["email"])

	rec = app.do(t, http.MethodPut, "/api/profile", `{"email":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "valid email")

	rec = app.do(t, http.MethodPut, "/api/profile", `["not","an","object"]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusOK, app.do(t, http.MethodPut, "/api/profile", `{"first_name":"Jane","last_name":"Doe","state":"CA"}`).Code)

	rec := app.do(t, http.MethodPost, "/api/runs", `{"broker_ids":["spokeo","acme"]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = app.do(t, http.MethodPost, "/api/runs", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already in progress")

	rec = app.do(t, http.MethodGet, "/api/runs/status", "")
	assert.JSONEq(t, `{"in_progress":true}`, rec.Body.String())

	app.unblock()
	app.session.Wait()

	rec = app.do(t, http.MethodGet, "/api/runs/stream", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	var (
		messages []string
		done     map[string]any
		sawEnd   bool
	)
	scanner := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "event: end" {
			sawEnd = true
			continue
		}
		if !strings.HasPrefix(line, "data: ") || sawEnd {
			continue
		}
		var payload map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &payload))
		if payload["done"] == true {
			done = payload
			continue
		}
		messages = append(messages, payload["message"].(string))
	}
	require.True(t, sawEnd)
	require.NotNil(t, done)
	summary := done["summary"].(map[string]any)
	assert.EqualValues(t, 2, summary["total"])
	assert.EqualValues(t, 1, summary["succeeded"])
	assert.Contains(t, messages, "[Spokeo] MANUAL REQUIRED — Manual opt-out required. URL: https://www.spokeo.com/optout")
	assert.Contains(t, messages, "[Acme People] SUBMITTED — Removal submitted")

	rec = app.do(t, http.MethodGet, "/api/runs/status", "")
	assert.JSONEq(t, `{"in_progress":false}`, rec.Body.String())

	runID := summary["id"].(string)
	rec = app.do(t, http.MethodGet, "/api/runs/"+runID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Done. Submitted: 1 | Manual/Error: 1")

	rec = app.do(t, http.MethodGet, "/api/requests?run_id="+runID+"&status=manual_required", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var records []domain.RequestRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "spokeo", records[0].BrokerID)

	rec = app.do(t, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"brokers_remaining":0`)
}

func TestStreamWithoutRun(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/api/runs/stream", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data: {"message":"No run in progress."}`)
	assert.Contains(t, rec.Body.String(), "event: end")
}

func TestRequestStatusReview(t *testing.T) {
	app := newTestApp(t)

	id, err := app.store.AddRequest(context.Background(), domain.RequestRecord{
		BrokerID: "spokeo", BrokerName: "Spokeo", Method: domain.MethodManual, Status: domain.StatusManualRequired,
	})
	require.NoError(t, err)
	target := "/api/requests/" + itoa(id) + "/status"

	rec := app.do(t, http.MethodPost, target, `{"status":"approved"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/requests/999/status", `{"status":"denied"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/requests/abc/status", `{"status":"denied"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPost, target, `{"status":"confirmed","notes":"email received"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodPost, target, `{"status":"confirmed","notes":"   "}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodGet, "/api/brokers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var overview []domain.BrokerOverview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overview))
	require.Len(t, overview, 2)
	assert.Equal(t, domain.StatusConfirmed, overview[0].LatestStatus)
	assert.Equal(t, "email received", overview[0].LatestNotes)
}

func TestSnapshotEndpoints(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/snapshots", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = app.do(t, http.MethodGet, "/api/snapshots/"+itoa(created["id"]), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"label":"Manual snapshot"`)

	rec = app.do(t, http.MethodGet, "/api/snapshots/404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/snapshots", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Manual snapshot")
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
