package reminder

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/arogya/reminder/internal/platform/auth"
	"github.com/arogya/reminder/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole("admin", "caregiver", "user")

	g := api.Group("", role)
	g.POST("/reminders", h.Create)
	g.GET("/reminders/:id", h.Get)
	g.PUT("/reminders/:id", h.Update)
	g.DELETE("/reminders/:id", h.Delete)
	g.POST("/reminders/:id/complete", h.Complete)
	g.POST("/reminders/:id/snooze", h.Snooze)

	g.GET("/users/:userId/reminders", h.ListByUser)
	g.GET("/users/:userId/reminders/overdue", h.ListOverdue)
	g.GET("/users/:userId/reminders/upcoming", h.ListUpcoming)
}

// createRequest is the JSON shape accepted on create. Dates arrive as
// "YYYY-MM-DD" strings and clocks as "HH:MM".
type createRequest struct {
	UserID              string            `json:"user_id"`
	Name                string            `json:"name"`
	Description         string            `json:"description"`
	Notes               string            `json:"notes"`
	ScheduledDate       string            `json:"scheduled_date"`
	ScheduledTime       string            `json:"scheduled_time"`
	IsRecurring         bool              `json:"is_recurring"`
	Recurrence          *RecurringPattern `json:"recurring_pattern"`
	Priority            Priority          `json:"priority"`
	GovernmentMandated  bool              `json:"government_mandated"`
	EnableNotifications bool              `json:"enable_notifications"`
	Channels            []string          `json:"notification_methods"`
	AdvanceDays         []int             `json:"advance_notification_days"`
	NotifyTime          string            `json:"notification_time"`
}

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	scheduled, err := ParseDate(req.ScheduledDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid scheduled_date: "+err.Error())
	}
	r := &Reminder{
		UserID:              req.UserID,
		Name:                req.Name,
		Description:         req.Description,
		Notes:               req.Notes,
		ScheduledDate:       scheduled,
		ScheduledTime:       req.ScheduledTime,
		IsRecurring:         req.IsRecurring,
		Recurrence:          req.Recurrence,
		Priority:            req.Priority,
		GovernmentMandated:  req.GovernmentMandated,
		EnableNotifications: req.EnableNotifications,
		Channels:            req.Channels,
		AdvanceDays:         req.AdvanceDays,
		NotifyTime:          req.NotifyTime,
	}
	if err := h.svc.Create(c.Request().Context(), r); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	r, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, r)
}

// updateRequest mirrors createRequest with every field optional.
type updateRequest struct {
	Name                *string           `json:"name"`
	Description         *string           `json:"description"`
	Notes               *string           `json:"notes"`
	ScheduledDate       *string           `json:"scheduled_date"`
	ScheduledTime       *string           `json:"scheduled_time"`
	IsRecurring         *bool             `json:"is_recurring"`
	Recurrence          *RecurringPattern `json:"recurring_pattern"`
	ClearRecurrence     bool              `json:"clear_recurring_pattern"`
	Priority            *Priority         `json:"priority"`
	Status              *Status           `json:"status"`
	EnableNotifications *bool             `json:"enable_notifications"`
	Channels            *[]string         `json:"notification_methods"`
	AdvanceDays         *[]int            `json:"advance_notification_days"`
	NotifyTime          *string           `json:"notification_time"`
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p := Patch{
		Name:                req.Name,
		Description:         req.Description,
		Notes:               req.Notes,
		ScheduledTime:       req.ScheduledTime,
		IsRecurring:         req.IsRecurring,
		Recurrence:          req.Recurrence,
		ClearRecurrence:     req.ClearRecurrence,
		Priority:            req.Priority,
		Status:              req.Status,
		EnableNotifications: req.EnableNotifications,
		Channels:            req.Channels,
		AdvanceDays:         req.AdvanceDays,
		NotifyTime:          req.NotifyTime,
	}
	if req.ScheduledDate != nil {
		scheduled, err := ParseDate(*req.ScheduledDate)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid scheduled_date: "+err.Error())
		}
		p.ScheduledDate = &scheduled
	}

	r, err := h.svc.Update(c.Request().Context(), id, p)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type completeRequest struct {
	CompletedDate *string `json:"completed_date"`
}

type completeResponse struct {
	Reminder *Reminder `json:"reminder"`
	Next     *Reminder `json:"next_occurrence,omitempty"`
}

func (h *Handler) Complete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req completeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var completedAt *time.Time
	if req.CompletedDate != nil {
		at, err := time.Parse(time.RFC3339, *req.CompletedDate)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid completed_date: "+err.Error())
		}
		completedAt = &at
	}

	done, next, err := h.svc.MarkCompleted(c.Request().Context(), id, completedAt)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, completeResponse{Reminder: done, Next: next})
}

type snoozeRequest struct {
	Days int `json:"days"`
}

// Snooze pushes the scheduled date forward, default one day, and replans the
// notifications from the new date.
func (h *Handler) Snooze(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req snoozeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Days <= 0 {
		req.Days = 1
	}

	r, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	snoozed := r.ScheduledDate.AddDate(0, 0, req.Days)
	r, err = h.svc.Update(c.Request().Context(), id, Patch{ScheduledDate: &snoozed})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) ListByUser(c echo.Context) error {
	if v := c.QueryParam("status"); v != "" {
		status := Status(v)
		switch status {
		case StatusPending, StatusOverdue, StatusCompleted, StatusCancelled:
		default:
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		items, err := h.svc.ListByStatus(c.Request().Context(), c.Param("userId"), status)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "total": len(items)})
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByUser(c.Request().Context(), c.Param("userId"), pg.Limit, pg.Offset)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListOverdue(c echo.Context) error {
	items, err := h.svc.ListOverdue(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "total": len(items)})
}

func (h *Handler) ListUpcoming(c echo.Context) error {
	days := 7
	if v := c.QueryParam("within_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid within_days")
		}
		days = n
	}
	items, err := h.svc.ListUpcoming(c.Request().Context(), c.Param("userId"), days)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "total": len(items)})
}

// toHTTPError maps domain errors onto HTTP statuses.
func toHTTPError(err error) error {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "reminder not found")
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, "reminder is being modified, retry")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
