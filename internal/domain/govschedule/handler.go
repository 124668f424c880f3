package govschedule

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/arogya/reminder/internal/domain/reminder"
	"github.com/arogya/reminder/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole("admin", "caregiver")
	api.POST("/users/:userId/schedule/reconcile", h.Reconcile, role)
}

func (h *Handler) Reconcile(c echo.Context) error {
	var sched Schedule
	if err := c.Bind(&sched); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	created, err := h.svc.Reconcile(c.Request().Context(), c.Param("userId"), sched)
	if err != nil {
		var ve *reminder.ValidationError
		if errors.As(err, &ve) {
			return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"created": created,
		"total":   len(created),
	})
}
