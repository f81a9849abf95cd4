package claim

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/scope"
	"github.com/clinicore/clinicore/pkg/money"
	"github.com/clinicore/clinicore/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes exposes the two claim collections. Both are backed by the
// same service; the kind is fixed by the route.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	for _, col := range []struct {
		prefix string
		kind   string
	}{
		{"/philhealth-claims", KindPhilHealth},
		{"/hmo-claims", KindHMO},
	} {
		kind := col.kind
		g := api.Group(col.prefix)
		g.GET("", func(c echo.Context) error { return h.list(c, kind) })
		g.POST("", func(c echo.Context) error { return h.create(c, kind) })
		g.GET("/:id", h.Get)
		g.PUT("/:id", h.Update)
		g.DELETE("/:id", h.Delete)
		g.POST("/:id/submit", h.Submit)
		g.POST("/:id/process", h.StartProcessing)
		g.POST("/:id/approve", h.Approve)
		g.POST("/:id/deny", h.Deny)
		g.POST("/:id/mark-paid", h.MarkPaid)
	}
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNumberTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidKind),
		errors.Is(err, ErrNumberRequired),
		errors.Is(err, ErrMemberNumberNeeded),
		errors.Is(err, ErrProviderRequired),
		errors.Is(err, ErrAmountNotPositive),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrApprovedAmountNeeded):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) list(c echo.Context, kind string) error {
	actor := scope.FromContext(c)
	pg := pagination.FromContext(c)

	filter := ListFilter{
		Kind:     kind,
		Status:   c.QueryParam("status"),
		Provider: c.QueryParam("hmo_provider"),
		Search:   c.QueryParam("search"),
		Limit:    pg.Limit,
		Offset:   pg.Offset,
	}
	if v := c.QueryParam("patient"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
		}
		filter.PatientID = &id
	}
	if v := c.QueryParam("start_date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid start_date")
		}
		filter.From = &d
	}
	if v := c.QueryParam("end_date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid end_date")
		}
		filter.To = &d
	}

	items, total, err := h.svc.List(c.Request().Context(), actor.VisibleClinics, filter)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) create(c echo.Context, kind string) error {
	actor := scope.FromContext(c)
	var cl Claim
	if err := c.Bind(&cl); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl.Kind = kind
	if cl.ClinicID == uuid.Nil {
		cl.ClinicID = actor.ClinicID
	}
	if !actor.CanSee(cl.ClinicID) {
		return echo.NewHTTPError(http.StatusForbidden, "clinic out of scope")
	}
	if err := h.svc.Create(c.Request().Context(), &cl); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, cl)
}

func (h *Handler) Get(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cl, err := h.svc.Get(c.Request().Context(), id, actor.VisibleClinics)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cl)
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
	var cl Claim
	if err := c.Bind(&cl); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cl.ID = existing.ID
	cl.ClinicID = existing.ClinicID
	cl.Kind = existing.Kind
	cl.ClaimNumber = existing.ClaimNumber
	cl.Status = existing.Status
	cl.SubmissionDate = existing.SubmissionDate
	if err := h.svc.Update(c.Request().Context(), &cl, actor.VisibleClinics); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cl)
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

func (h *Handler) action(c echo.Context, fn func(ctx echo.Context, id uuid.UUID) (*Claim, error), status string) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cl, err := fn(c, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": status,
		"claim":  cl,
	})
}

func (h *Handler) Submit(c echo.Context) error {
	actor := scope.FromContext(c)
	return h.action(c, func(c echo.Context, id uuid.UUID) (*Claim, error) {
		return h.svc.Submit(c.Request().Context(), id, actor.VisibleClinics)
	}, "claim submitted")
}

type processRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) StartProcessing(c echo.Context) error {
	actor := scope.FromContext(c)
	var req processRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return h.action(c, func(c echo.Context, id uuid.UUID) (*Claim, error) {
		return h.svc.StartProcessing(c.Request().Context(), id, actor.VisibleClinics, req.Notes)
	}, "claim processing")
}

type approveRequest struct {
	ApprovedAmount money.Cents `json:"approved_amount"`
}

func (h *Handler) Approve(c echo.Context) error {
	actor := scope.FromContext(c)
	var req approveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return h.action(c, func(c echo.Context, id uuid.UUID) (*Claim, error) {
		return h.svc.Approve(c.Request().Context(), id, actor.VisibleClinics, req.ApprovedAmount)
	}, "claim approved")
}

type denyRequest struct {
	DenialReason string `json:"denial_reason"`
}

func (h *Handler) Deny(c echo.Context) error {
	actor := scope.FromContext(c)
	var req denyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return h.action(c, func(c echo.Context, id uuid.UUID) (*Claim, error) {
		return h.svc.Deny(c.Request().Context(), id, actor.VisibleClinics, req.DenialReason)
	}, "claim denied")
}

func (h *Handler) MarkPaid(c echo.Context) error {
	actor := scope.FromContext(c)
	return h.action(c, func(c echo.Context, id uuid.UUID) (*Claim, error) {
		return h.svc.MarkPaid(c.Request().Context(), id, actor.VisibleClinics)
	}, "claim marked paid")
}
