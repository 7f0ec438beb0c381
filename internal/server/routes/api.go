package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	appservices "github.com/incognish/incognish/internal/app/services"
)

// APIRoutes registers the JSON tracker endpoints.
type APIRoutes struct {
	tracker *appservices.TrackerService
}

// NewAPIRoutes constructs tracker routes.
func NewAPIRoutes(tracker *appservices.TrackerService) *APIRoutes {
	return &APIRoutes{tracker: tracker}
}

// RegisterRoutes registers API endpoints.
func (a *APIRoutes) RegisterRoutes(s *echo.Echo) {
	s.GET("/healthz", handleHealth)

	api := s.Group("/api")
	api.GET("/profile", a.handleGetProfile)
	api.PUT("/profile", a.handlePutProfile)
	api.GET("/brokers", a.handleBrokers)
	api.GET("/dashboard", a.handleDashboard)
	api.GET("/requests", a.handleListRequests)
	api.POST("/requests/:id/status", a.handleUpdateStatus)
	api.GET("/snapshots", a.handleListSnapshots)
	api.POST("/snapshots", a.handleTakeSnapshot)
	api.GET("/snapshots/:id", a.handleGetSnapshot)
}

func handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (a *APIRoutes) handleGetProfile(c echo.Context) error {
	profile, err := a.tracker.Profile(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (a *APIRoutes) handlePutProfile(c echo.Context) error {
	var fields map[string]string
	if err := json.NewDecoder(c.Request().Body).Decode(&fields); err != nil {
		return badRequest(c, fmt.Sprintf("profile must be a JSON object of strings: %v", err))
	}
	if err := a.tracker.SaveProfile(c.Request().Context(), fields); err != nil {
		return respondError(c, err)
	}
	return a.handleGetProfile(c)
}

func (a *APIRoutes) handleBrokers(c echo.Context) error {
	brokers, err := a.tracker.Brokers(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, brokers)
}

func (a *APIRoutes) handleDashboard(c echo.Context) error {
	dashboard, err := a.tracker.Dashboard(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, dashboard)
}

func (a *APIRoutes) handleListRequests(c echo.Context) error {
	records, err := a.tracker.ListRequests(c.Request().Context(), appservices.RequestQuery{
		BrokerID: c.QueryParam("broker_id"),
		Status:   c.QueryParam("status"),
		RunID:    c.QueryParam("run_id"),
		Since:    c.QueryParam("since"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, records)
}

type statusUpdateRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

func (a *APIRoutes) handleUpdateStatus(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid request id")
	}
	var req statusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid status update")
	}
	if req.Notes != nil && strings.TrimSpace(*req.Notes) == "" {
		req.Notes = nil
	}
	if err := a.tracker.UpdateStatus(c.Request().Context(), id, req.Status, req.Notes); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

func (a *APIRoutes) handleListSnapshots(c echo.Context) error {
	snapshots, err := a.tracker.Snapshots(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, snapshots)
}

type snapshotRequest struct {
	Label string `json:"label"`
}

func (a *APIRoutes) handleTakeSnapshot(c echo.Context) error {
	var req snapshotRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid snapshot request")
		}
	}
	id, err := a.tracker.TakeSnapshot(c.Request().Context(), req.Label)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]int64{"id": id})
}

func (a *APIRoutes) handleGetSnapshot(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid snapshot id")
	}
	snapshot, err := a.tracker.Snapshot(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, snapshot)
}
