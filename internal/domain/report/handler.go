package report

import (
	"errors"
	"net/http"
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
	api.GET("/reports", h.List)
	api.POST("/reports", h.Generate)
	api.GET("/reports/appointments-summary", h.AppointmentsSummary)
	api.GET("/reports/revenue-summary", h.RevenueSummary)
	api.GET("/reports/patient-statistics", h.PatientStats)
	api.GET("/reports/practitioner-performance", h.PractitionerPerformance)
	api.GET("/reports/dashboard-metrics", h.DashboardMetrics)
	api.GET("/reports/:id", h.Get)
	api.DELETE("/reports/:id", h.Delete)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidType),
		errors.Is(err, ErrTitleRequired),
		errors.Is(err, ErrInvalidRange):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// dateRange reads start_date/end_date query params, defaulting to the last
// thirty days ending today.
func dateRange(c echo.Context) (time.Time, time.Time, error) {
	now := time.Now()
	from := today(now).AddDate(0, 0, -defaultRangeDays)
	to := today(now)
	if v := c.QueryParam("start_date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return from, to, echo.NewHTTPError(http.StatusBadRequest, "invalid start_date")
		}
		from = d
	}
	if v := c.QueryParam("end_date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return from, to, echo.NewHTTPError(http.StatusBadRequest, "invalid end_date")
		}
		to = d
	}
	return from, to, nil
}

func (h *Handler) List(c echo.Context) error {
	actor := scope.FromContext(c)
	pg := pagination.FromContext(c)

	filter := ListFilter{
		Type:   c.QueryParam("report_type"),
		Limit:  pg.Limit,
		Offset: pg.Offset,
	}
	items, total, err := h.svc.List(c.Request().Context(), actor.VisibleClinics, filter)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Generate(c echo.Context) error {
	actor := scope.FromContext(c)
	var rep Report
	if err := c.Bind(&rep); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if rep.ClinicID == uuid.Nil {
		rep.ClinicID = actor.ClinicID
	}
	if !actor.CanSee(rep.ClinicID) {
		return echo.NewHTTPError(http.StatusForbidden, "clinic out of scope")
	}
	rep.GeneratedBy = &actor.UserID
	if err := h.svc.Generate(c.Request().Context(), &rep, actor.VisibleClinics); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, rep)
}

func (h *Handler) Get(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rep, err := h.svc.Get(c.Request().Context(), id, actor.VisibleClinics)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) Delete(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id, actor.VisibleClinics); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AppointmentsSummary(c echo.Context) error {
	actor := scope.FromContext(c)
	from, to, err := dateRange(c)
	if err != nil {
		return err
	}
	sum, err := h.svc.AppointmentsSummary(c.Request().Context(), actor.VisibleClinics, from, to)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *Handler) RevenueSummary(c echo.Context) error {
	actor := scope.FromContext(c)
	from, to, err := dateRange(c)
	if err != nil {
		return err
	}
	sum, err := h.svc.RevenueSummary(c.Request().Context(), actor.VisibleClinics, from, to)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *Handler) PatientStats(c echo.Context) error {
	actor := scope.FromContext(c)
	stats, err := h.svc.PatientStats(c.Request().Context(), actor.VisibleClinics)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) PractitionerPerformance(c echo.Context) error {
	actor := scope.FromContext(c)
	from, to, err := dateRange(c)
	if err != nil {
		return err
	}
	perf, err := h.svc.PractitionerPerformance(c.Request().Context(), actor.VisibleClinics, from, to)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"practitioners": perf})
}

func (h *Handler) DashboardMetrics(c echo.Context) error {
	actor := scope.FromContext(c)
	m, err := h.svc.DashboardMetrics(c.Request().Context(), actor.VisibleClinics)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, m)
}
