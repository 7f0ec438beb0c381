package routes

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/incognish/incognish/internal/app/domain"
	appservices "github.com/incognish/incognish/internal/app/services"
)

// RunRoutes starts runs and streams their progress.
type RunRoutes struct {
	session *appservices.RunSession
	tracker *appservices.TrackerService
}

// NewRunRoutes constructs run routes.
func NewRunRoutes(session *appservices.RunSession, tracker *appservices.TrackerService) *RunRoutes {
	return &RunRoutes{session: session, tracker: tracker}
}

// RegisterRoutes registers run endpoints.
func (r *RunRoutes) RegisterRoutes(s *echo.Echo) {
	api := s.Group("/api/runs")
	api.POST("", r.handleStart)
	api.GET("", r.handleList)
	api.GET("/status", r.handleStatus)
	api.GET("/stream", r.handleStream)
	api.GET("/:id", r.handleGet)
}

type startRunRequest struct {
	BrokerIDs []string `json:"broker_ids" form:"broker_ids"`
}

func (r *RunRoutes) handleStart(c echo.Context) error {
	var req startRunRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid run request")
		}
	}
	if err := r.session.Start(req.BrokerIDs); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusAccepted, map[string]bool{"ok": true})
}

func (r *RunRoutes) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"in_progress": r.session.InProgress()})
}

func (r *RunRoutes) handleList(c echo.Context) error {
	runs, err := r.tracker.Runs(c.Request().Context(), 0)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, runs)
}

func (r *RunRoutes) handleGet(c echo.Context) error {
	run, err := r.tracker.Run(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, run)
}

type streamPayload struct {
	Message string             `json:"message"`
	Done    bool               `json:"done,omitempty"`
	Summary *domain.RunSummary `json:"summary,omitempty"`
}

func (r *RunRoutes) handleStream(c echo.Context) error {
	w := c.Response().Writer
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}
	c.Response().WriteHeader(http.StatusOK)
	flusher.Flush()

	err := r.session.Stream(c.Request().Context(), func(event domain.RunEvent) error {
		payload, err := json.Marshal(streamPayload{
			Message: event.Message,
			Done:    event.Kind == domain.RunEventDone,
			Summary: event.Summary,
		})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		// The client went away; the run continues without an observer.
		return nil
	}

	if _, err := fmt.Fprint(w, "event: end\ndata: {}\n\n"); err != nil {
		return nil
	}
	flusher.Flush()
	return nil
}
