package patient

import (
	"errors"
	"net/http"
	"strconv"

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
	api.GET("/patients", h.ListPatients)
	api.POST("/patients", h.CreatePatient)
	api.GET("/patients/:id", h.GetPatient)
	api.PUT("/patients/:id", h.UpdatePatient)
	api.DELETE("/patients/:id", h.DeletePatient)
	api.GET("/patients/:id/intake-forms", h.ListIntakeForms)

	api.POST("/intake-forms", h.CreateIntakeForm)
	api.GET("/intake-forms/:id", h.GetIntakeForm)
	api.PUT("/intake-forms/:id", h.UpdateIntakeForm)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrBirthDateNeeded),
		errors.Is(err, ErrInvalidGender),
		errors.Is(err, ErrComplaintNeeded):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) ListPatients(c echo.Context) error {
	actor := scope.FromContext(c)
	pg := pagination.FromContext(c)
	activeOnly, _ := strconv.ParseBool(c.QueryParam("active"))
	filter := ListFilter{
		Search:     c.QueryParam("search"),
		Gender:     c.QueryParam("gender"),
		ActiveOnly: activeOnly,
		Limit:      pg.Limit,
		Offset:     pg.Offset,
	}
	items, total, err := h.svc.ListPatients(c.Request().Context(), actor.VisibleClinics, filter)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreatePatient(c echo.Context) error {
	actor := scope.FromContext(c)
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if p.ClinicID == uuid.Nil {
		p.ClinicID = actor.ClinicID
	}
	if !actor.CanSee(p.ClinicID) {
		return echo.NewHTTPError(http.StatusForbidden, "clinic out of scope")
	}
	if err := h.svc.CreatePatient(c.Request().Context(), &p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if !actor.CanSee(p.ClinicID) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if !actor.CanSee(existing.ClinicID) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	p.ClinicID = existing.ClinicID
	p.PatientNumber = existing.PatientNumber
	if err := h.svc.UpdatePatient(c.Request().Context(), &p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if !actor.CanSee(existing.ClinicID) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err := h.svc.DeletePatient(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Intake forms --

// patientInScope loads the patient and enforces clinic visibility for
// intake-form routes.
func (h *Handler) patientInScope(c echo.Context, patientID uuid.UUID) (*Patient, error) {
	actor := scope.FromContext(c)
	p, err := h.svc.GetPatient(c.Request().Context(), patientID)
	if err != nil {
		return nil, httpError(err)
	}
	if !actor.CanSee(p.ClinicID) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return p, nil
}

func (h *Handler) ListIntakeForms(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if _, err := h.patientInScope(c, id); err != nil {
		return err
	}
	forms, err := h.svc.ListIntakeForms(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, forms)
}

func (h *Handler) CreateIntakeForm(c echo.Context) error {
	actor := scope.FromContext(c)
	var f IntakeForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if _, err := h.patientInScope(c, f.PatientID); err != nil {
		return err
	}
	f.CompletedBy = &actor.UserID
	if err := h.svc.CreateIntakeForm(c.Request().Context(), &f); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) GetIntakeForm(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	f, err := h.svc.GetIntakeForm(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if _, err := h.patientInScope(c, f.PatientID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) UpdateIntakeForm(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.GetIntakeForm(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if _, err := h.patientInScope(c, existing.PatientID); err != nil {
		return err
	}
	var f IntakeForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f.ID = id
	f.PatientID = existing.PatientID
	f.CompletedBy = existing.CompletedBy
	if err := h.svc.UpdateIntakeForm(c.Request().Context(), &f); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, f)
}
