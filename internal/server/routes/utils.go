package routes

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/incognish/incognish/internal/app/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// respondError maps domain errors onto HTTP statuses.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidStatus):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrRunInProgress):
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		c.Logger().Errorf("request failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: message})
}

func pathID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
