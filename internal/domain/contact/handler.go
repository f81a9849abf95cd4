package contact

import (
	"errors"
	"net/http"

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
	api.GET("/contacts", h.List)
	api.POST("/contacts", h.Create)
	api.GET("/contacts/stats", h.Stats)
	api.GET("/contacts/:id", h.Get)
	api.PUT("/contacts/:id", h.Update)
	api.DELETE("/contacts/:id", h.Delete)
	api.POST("/contacts/:id/toggle-preferred", h.TogglePreferred)
	api.POST("/contacts/:id/toggle-active", h.ToggleActive)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrPhoneRequired),
		errors.Is(err, ErrInvalidType):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) List(c echo.Context) error {
	actor := scope.FromContext(c)
	pg := pagination.FromContext(c)

	filter := ListFilter{
		Type:          c.QueryParam("contact_type"),
		Search:        c.QueryParam("search"),
		ActiveOnly:    c.QueryParam("active") == "true",
		PreferredOnly: c.QueryParam("preferred") == "true",
		Limit:         pg.Limit,
		Offset:        pg.Offset,
	}
	items, total, err := h.svc.List(c.Request().Context(), actor.VisibleClinics, filter)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Create(c echo.Context) error {
	actor := scope.FromContext(c)
	var contact Contact
	if err := c.Bind(&contact); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if contact.ClinicID == uuid.Nil {
		contact.ClinicID = actor.ClinicID
	}
	if !actor.CanSee(contact.ClinicID) {
		return echo.NewHTTPError(http.StatusForbidden, "clinic out of scope")
	}
	if err := h.svc.Create(c.Request().Context(), &contact); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, contact)
}

func (h *Handler) Get(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	contact, err := h.svc.Get(c.Request().Context(), id, actor.VisibleClinics)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, contact)
}

func (h *Handler) Update(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.Get(c.Request().Context(), id, actor.VisibleClinics)
	if err != nil {
		return httpError(err)
	}
	var contact Contact
	if err := c.Bind(&contact); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	contact.ID = existing.ID
	contact.ClinicID = existing.ClinicID
	contact.ContactNumber = existing.ContactNumber
	if err := h.svc.Update(c.Request().Context(), &contact, actor.VisibleClinics); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, contact)
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

func (h *Handler) TogglePreferred(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	contact, err := h.svc.TogglePreferred(c.Request().Context(), id, actor.VisibleClinics)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, contact)
}

func (h *Handler) ToggleActive(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	contact, err := h.svc.ToggleActive(c.Request().Context(), id, actor.VisibleClinics)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, contact)
}

func (h *Handler) Stats(c echo.Context) error {
	actor := scope.FromContext(c)
	stats, err := h.svc.Stats(c.Request().Context(), actor.VisibleClinics)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stats)
}
