package clinic

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/auth"
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
	read := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RolePractitioner, auth.RoleStaff))
	read.GET("/clinics", h.ListClinics)
	read.GET("/clinics/:id", h.GetClinic)
	read.GET("/clinics/:id/branches", h.ListBranches)
	read.GET("/locations", h.ListLocations)
	read.GET("/locations/:id", h.GetLocation)
	read.GET("/practitioners", h.ListPractitioners)
	read.GET("/practitioners/:id", h.GetPractitioner)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/clinics/:id/branches", h.CreateBranch)
	admin.PUT("/clinics/:id", h.UpdateClinic)
	admin.DELETE("/clinics/:id", h.DeleteClinic)
	admin.POST("/locations", h.CreateLocation)
	admin.PUT("/locations/:id", h.UpdateLocation)
	admin.DELETE("/locations/:id", h.DeleteLocation)
	admin.POST("/practitioners", h.CreatePractitioner)
	admin.PUT("/practitioners/:id", h.UpdatePractitioner)
	admin.DELETE("/practitioners/:id", h.DeletePractitioner)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrParentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrBranchOfBranch),
		errors.Is(err, ErrInvalidPlan),
		errors.Is(err, ErrNameRequired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// -- Clinics --

func (h *Handler) ListClinics(c echo.Context) error {
	actor := scope.FromContext(c)
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListClinics(c.Request().Context(), actor.VisibleClinics, c.QueryParam("search"), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetClinic(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if !actor.CanSee(id) {
		return echo.NewHTTPError(http.StatusNotFound, "clinic not found")
	}
	clinic, err := h.svc.GetClinic(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, clinic)
}

func (h *Handler) CreateBranch(c echo.Context) error {
	actor := scope.FromContext(c)
	parentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if !actor.CanSee(parentID) {
		return echo.NewHTTPError(http.StatusNotFound, "clinic not found")
	}
	var branch Clinic
	if err := c.Bind(&branch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateBranch(c.Request().Context(), parentID, &branch); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, branch)
}

func (h *Handler) ListBranches(c echo.Context) error {
	actor := scope.FromContext(c)
	parentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if !actor.CanSee(parentID) {
		return echo.NewHTTPError(http.StatusNotFound, "clinic not found")
	}
	branches, err := h.svc.ListBranches(c.Request().Context(), parentID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, branches)
}

func (h *Handler) UpdateClinic(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if !actor.CanSee(id) {
		return echo.NewHTTPError(http.StatusNotFound, "clinic not found")
	}
	var clinic Clinic
	if err := c.Bind(&clinic); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	clinic.ID = id
	if err := h.svc.UpdateClinic(c.Request().Context(), &clinic); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, clinic)
}

func (h *Handler) DeleteClinic(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if !actor.CanSee(id) {
		return echo.NewHTTPError(http.StatusNotFound, "clinic not found")
	}
	if err := h.svc.DeleteClinic(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Locations --

func (h *Handler) CreateLocation(c echo.Context) error {
	actor := scope.FromContext(c)
	var l Location
	if err := c.Bind(&l); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if l.ClinicID == uuid.Nil {
		l.ClinicID = actor.ClinicID
	}
	if !actor.CanSee(l.ClinicID) {
		return echo.NewHTTPError(http.StatusForbidden, "clinic out of scope")
	}
	if err := h.svc.CreateLocation(c.Request().Context(), &l); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) GetLocation(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	l, err := h.svc.GetLocation(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if !actor.CanSee(l.ClinicID) {
		return echo.NewHTTPError(http.StatusNotFound, "location not found")
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) UpdateLocation(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.GetLocation(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if !actor.CanSee(existing.ClinicID) {
		return echo.NewHTTPError(http.StatusNotFound, "location not found")
	}
	var l Location
	if err := c.Bind(&l); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	l.ID = id
	l.ClinicID = existing.ClinicID
	if err := h.svc.UpdateLocation(c.Request().Context(), &l); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) DeleteLocation(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.GetLocation(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if !actor.CanSee(existing.ClinicID) {
		return echo.NewHTTPError(http.StatusNotFound, "location not found")
	}
	if err := h.svc.DeleteLocation(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListLocations(c echo.Context) error {
	actor := scope.FromContext(c)
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListLocations(c.Request().Context(), actor.VisibleClinics, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// -- Practitioners --

func (h *Handler) CreatePractitioner(c echo.Context) error {
	actor := scope.FromContext(c)
	var p Practitioner
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if p.ClinicID == uuid.Nil {
		p.ClinicID = actor.ClinicID
	}
	if !actor.CanSee(p.ClinicID) {
		return echo.NewHTTPError(http.StatusForbidden, "clinic out of scope")
	}
	if err := h.svc.CreatePractitioner(c.Request().Context(), &p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPractitioner(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPractitioner(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if !actor.CanSee(p.ClinicID) {
		return echo.NewHTTPError(http.StatusNotFound, "practitioner not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdatePractitioner(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.GetPractitioner(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if !actor.CanSee(existing.ClinicID) {
		return echo.NewHTTPError(http.StatusNotFound, "practitioner not found")
	}
	var p Practitioner
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	p.UserID = existing.UserID
	p.ClinicID = existing.ClinicID
	if err := h.svc.UpdatePractitioner(c.Request().Context(), &p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePractitioner(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.GetPractitioner(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if !actor.CanSee(existing.ClinicID) {
		return echo.NewHTTPError(http.StatusNotFound, "practitioner not found")
	}
	if err := h.svc.DeletePractitioner(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListPractitioners(c echo.Context) error {
	actor := scope.FromContext(c)
	pg := pagination.FromContext(c)
	acceptingOnly, _ := strconv.ParseBool(c.QueryParam("accepting"))
	items, total, err := h.svc.ListPractitioners(c.Request().Context(), actor.VisibleClinics, acceptingOnly, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
