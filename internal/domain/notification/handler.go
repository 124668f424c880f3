package notification

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/arogya/reminder/internal/platform/auth"
	"github.com/arogya/reminder/pkg/pagination"
)

type Handler struct {
	repo       Repository
	dispatcher *Dispatcher
}

func NewHandler(repo Repository, dispatcher *Dispatcher) *Handler {
	return &Handler{repo: repo, dispatcher: dispatcher}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole("admin", "caregiver", "user")

	g := api.Group("", role)
	g.GET("/reminders/:id/notifications", h.ListByReminder)
	g.GET("/users/:userId/notifications", h.ListByUser)

	admin := api.Group("", auth.RequireRole("admin"))
	admin.GET("/notifications/stats", h.Stats)
	admin.POST("/notifications/dispatch", h.Dispatch)
}

func (h *Handler) ListByReminder(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.repo.ListByReminder(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "total": len(items)})
}

func (h *Handler) ListByUser(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.repo.ListByUser(c.Request().Context(), c.Param("userId"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Stats(c echo.Context) error {
	counts, err := h.repo.CountByStatus(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, counts)
}

// Dispatch forces one dispatcher pass instead of waiting for the cadence.
// Useful for operations and smoke tests.
func (h *Handler) Dispatch(c echo.Context) error {
	h.dispatcher.Tick(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]string{"status": "dispatched"})
}
