package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/smartspend/smartspend-backend/internal/service"
)

// manualSweepTimeout bounds a sweep started over HTTP once it is detached from the request
const manualSweepTimeout = 5 * time.Minute

// AlertSweeper runs a single budget alert sweep on demand
type AlertSweeper interface {
	RunOnce(ctx context.Context) (*service.SweepResult, error)
}

// AlertHandler exposes operator controls for the budget alert worker
type AlertHandler struct {
	sweeper AlertSweeper
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(sweeper AlertSweeper) *AlertHandler {
	return &AlertHandler{sweeper: sweeper}
}

// TriggerSweep handles POST /api/v1/admin/alerts/sweep. The sweep keeps running
// if the client disconnects.
func (h *AlertHandler) TriggerSweep(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), manualSweepTimeout)
	defer cancel()

	result, err := h.sweeper.RunOnce(ctx)
	if err != nil {
		if errors.Is(err, service.ErrSweepInProgress) {
			return NewConflictError(c, "A budget alert sweep is already running")
		}
		log.Error().Err(err).Msg("Manual budget alert sweep failed")
		return NewInternalError(c, "Budget alert sweep failed")
	}

	return c.JSON(http.StatusOK, result)
}
