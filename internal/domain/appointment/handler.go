package appointment

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/scope"
	"github.com/clinicore/clinicore/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/appointments", h.List)
	api.POST("/appointments", h.Create)
	api.GET("/appointments/available-slots", h.AvailableSlots)
	api.GET("/appointments/:id", h.Get)
	api.PUT("/appointments/:id", h.Update)
	api.DELETE("/appointments/:id", h.Delete)
	api.POST("/appointments/:id/confirm", h.Confirm)
	api.POST("/appointments/:id/check-in", h.CheckIn)
	api.POST("/appointments/:id/start", h.Start)
	api.POST("/appointments/:id/complete", h.Complete)
	api.POST("/appointments/:id/cancel", h.Cancel)
	api.POST("/appointments/:id/no-show", h.NoShow)
	api.POST("/appointments/:id/send-reminder", h.SendReminder)

	api.GET("/practitioner-schedules", h.ListSchedules)
	api.POST("/practitioner-schedules", h.CreateSchedule)
	api.PUT("/practitioner-schedules/:id", h.UpdateSchedule)
	api.DELETE("/practitioner-schedules/:id", h.DeleteSchedule)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrOverlap):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidType),
		errors.Is(err, ErrInvalidTime),
		errors.Is(err, ErrEndBeforeStart),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrInvalidWeekday):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func parseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}

func (h *Handler) List(c echo.Context) error {
	actor := scope.FromContext(c)
	pg := pagination.FromContext(c)

	filter := ListFilter{
		Status: c.QueryParam("status"),
		Type:   c.QueryParam("appointment_type"),
		Limit:  pg.Limit,
		Offset: pg.Offset,
	}
	if v := c.QueryParam("patient"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
		}
		filter.PatientID = &id
	}
	if v := c.QueryParam("practitioner"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid practitioner id")
		}
		filter.PractitionerID = &id
	}
	if v := c.QueryParam("start_date"); v != "" {
		d, err := parseDate(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid start_date")
		}
		filter.From = &d
	}
	if v := c.QueryParam("end_date"); v != "" {
		d, err := parseDate(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid end_date")
		}
		filter.To = &d
	}

	// Practitioners only see their own calendar.
	if actor.PractitionerID != nil {
		filter.PractitionerID = actor.PractitionerID
	}

	items, total, err := h.svc.List(c.Request().Context(), actor.VisibleClinics, filter)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Create(c echo.Context) error {
	actor := scope.FromContext(c)
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if a.ClinicID == uuid.Nil {
		a.ClinicID = actor.ClinicID
	}
	if !actor.CanSee(a.ClinicID) {
		return echo.NewHTTPError(http.StatusForbidden, "clinic out of scope")
	}
	if err := h.svc.Create(c.Request().Context(), &a); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

// inScope loads the appointment and enforces clinic visibility.
func (h *Handler) inScope(c echo.Context) (*Appointment, error) {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return nil, httpError(err)
	}
	if !actor.CanSee(a.ClinicID) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	return a, nil
}

func (h *Handler) Get(c echo.Context) error {
	a, err := h.inScope(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Update(c echo.Context) error {
	existing, err := h.inScope(c)
	if err != nil {
		return err
	}
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.ID = existing.ID
	a.ClinicID = existing.ClinicID
	a.Status = existing.Status
	a.ReminderSent = existing.ReminderSent
	a.ReminderSentAt = existing.ReminderSentAt
	if err := h.svc.Update(c.Request().Context(), &a); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Delete(c echo.Context) error {
	a, err := h.inScope(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), a.ID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Status actions --

func (h *Handler) action(c echo.Context, fn func(ctx echo.Context, id uuid.UUID) (*Appointment, error), status string) error {
	a, err := h.inScope(c)
	if err != nil {
		return err
	}
	updated, err := fn(c, a.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      status,
		"appointment": updated,
	})
}

func (h *Handler) Confirm(c echo.Context) error {
	return h.action(c, func(c echo.Context, id uuid.UUID) (*Appointment, error) {
		return h.svc.Confirm(c.Request().Context(), id)
	}, "appointment confirmed")
}

func (h *Handler) CheckIn(c echo.Context) error {
	return h.action(c, func(c echo.Context, id uuid.UUID) (*Appointment, error) {
		return h.svc.CheckIn(c.Request().Context(), id)
	}, "patient checked in")
}

func (h *Handler) Start(c echo.Context) error {
	return h.action(c, func(c echo.Context, id uuid.UUID) (*Appointment, error) {
		return h.svc.Start(c.Request().Context(), id)
	}, "appointment started")
}

func (h *Handler) Complete(c echo.Context) error {
	return h.action(c, func(c echo.Context, id uuid.UUID) (*Appointment, error) {
		return h.svc.Complete(c.Request().Context(), id)
	}, "appointment completed")
}

func (h *Handler) NoShow(c echo.Context) error {
	return h.action(c, func(c echo.Context, id uuid.UUID) (*Appointment, error) {
		return h.svc.NoShow(c.Request().Context(), id)
	}, "appointment marked no-show")
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Cancel(c echo.Context) error {
	actor := scope.FromContext(c)
	a, err := h.inScope(c)
	if err != nil {
		return err
	}
	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	updated, err := h.svc.Cancel(c.Request().Context(), a.ID, actor.UserID, req.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "appointment cancelled",
		"appointment": updated,
	})
}

type reminderRequest struct {
	Recipient   string `json:"recipient"`
	PatientName string `json:"patient_name"`
}

func (h *Handler) SendReminder(c echo.Context) error {
	a, err := h.inScope(c)
	if err != nil {
		return err
	}
	var req reminderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Recipient == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "recipient is required")
	}
	updated, err := h.svc.SendReminder(c.Request().Context(), a.ID, req.Recipient, req.PatientName)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "reminder sent",
		"appointment": updated,
	})
}

func (h *Handler) AvailableSlots(c echo.Context) error {
	practitioner := c.QueryParam("practitioner")
	dateStr := c.QueryParam("date")
	if practitioner == "" || dateStr == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "practitioner and date parameters are required")
	}
	practitionerID, err := uuid.Parse(practitioner)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid practitioner id")
	}
	date, err := parseDate(dateStr)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date")
	}
	slotMinutes, _ := strconv.Atoi(c.QueryParam("slot_minutes"))

	slots, err := h.svc.AvailableSlots(c.Request().Context(), practitionerID, date, slotMinutes)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"available_slots": slots})
}

// -- Schedules --

func (h *Handler) ListSchedules(c echo.Context) error {
	practitioner := c.QueryParam("practitioner")
	if practitioner == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "practitioner parameter is required")
	}
	practitionerID, err := uuid.Parse(practitioner)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid practitioner id")
	}
	schedules, err := h.svc.ListSchedules(c.Request().Context(), practitionerID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, schedules)
}

func (h *Handler) CreateSchedule(c echo.Context) error {
	var s Schedule
	if err := c.Bind(&s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateSchedule(c.Request().Context(), &s); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *Handler) UpdateSchedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.GetSchedule(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	var s Schedule
	if err := c.Bind(&s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s.ID = id
	s.PractitionerID = existing.PractitionerID
	if err := h.svc.UpdateSchedule(c.Request().Context(), &s); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) DeleteSchedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteSchedule(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
