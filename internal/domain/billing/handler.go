package billing

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
	api.GET("/invoices", h.ListInvoices)
	api.POST("/invoices", h.CreateInvoice)
	api.GET("/invoices/summary", h.Summary)
	api.GET("/invoices/:id", h.GetInvoice)
	api.PUT("/invoices/:id", h.UpdateInvoice)
	api.DELETE("/invoices/:id", h.DeleteInvoice)
	api.POST("/invoices/:id/mark_paid", h.MarkPaid)
	// Hyphenated alias kept for clients that normalize action segments.
	api.POST("/invoices/:id/mark-paid", h.MarkPaid)
	api.POST("/invoices/:id/cancel", h.CancelInvoice)
	api.GET("/invoices/:id/items", h.ListItems)
	api.GET("/invoices/:id/payments", h.ListInvoicePayments)

	api.POST("/invoice-items", h.AddItem)
	api.PUT("/invoice-items/:id", h.UpdateItem)
	api.DELETE("/invoice-items/:id", h.RemoveItem)

	api.GET("/payments", h.ListPayments)
	api.POST("/payments", h.RecordPayment)
	api.GET("/payments/:id", h.GetPayment)

	api.GET("/services", h.ListCatalogServices)
	api.POST("/services", h.CreateCatalogService)
	api.GET("/services/:id", h.GetCatalogService)
	api.PUT("/services/:id", h.UpdateCatalogService)
	api.DELETE("/services/:id", h.DeleteCatalogService)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvoiceCancelled):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidMethod),
		errors.Is(err, ErrAmountNotPositive),
		errors.Is(err, ErrQuantityNotPositive),
		errors.Is(err, ErrDescriptionRequired),
		errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrInvalidPercent):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func parseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}

// -- Invoices --

func (h *Handler) ListInvoices(c echo.Context) error {
	actor := scope.FromContext(c)
	pg := pagination.FromContext(c)

	filter := InvoiceFilter{
		Status: c.QueryParam("status"),
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

	items, total, err := h.svc.ListInvoices(c.Request().Context(), actor.VisibleClinics, filter)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreateInvoice(c echo.Context) error {
	actor := scope.FromContext(c)
	var inv Invoice
	if err := c.Bind(&inv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if inv.ClinicID == uuid.Nil {
		inv.ClinicID = actor.ClinicID
	}
	if !actor.CanSee(inv.ClinicID) {
		return echo.NewHTTPError(http.StatusForbidden, "clinic out of scope")
	}
	if err := h.svc.CreateInvoice(c.Request().Context(), &inv); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) GetInvoice(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	inv, err := h.svc.GetInvoice(c.Request().Context(), id, actor.VisibleClinics)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) UpdateInvoice(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.GetInvoice(c.Request().Context(), id, actor.VisibleClinics)
	if err != nil {
		return httpError(err)
	}
	var inv Invoice
	if err := c.Bind(&inv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	inv.ID = existing.ID
	inv.ClinicID = existing.ClinicID
	inv.InvoiceNumber = existing.InvoiceNumber
	inv.Status = existing.Status
	if err := h.svc.UpdateInvoice(c.Request().Context(), &inv, actor.VisibleClinics); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) DeleteInvoice(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteInvoice(c.Request().Context(), id, actor.VisibleClinics); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) MarkPaid(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	inv, err := h.svc.MarkPaid(c.Request().Context(), id, actor.VisibleClinics, actor.UserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "invoice marked as paid",
		"invoice": inv,
	})
}

func (h *Handler) CancelInvoice(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	inv, err := h.svc.CancelInvoice(c.Request().Context(), id, actor.VisibleClinics)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "invoice cancelled",
		"invoice": inv,
	})
}

func (h *Handler) Summary(c echo.Context) error {
	actor := scope.FromContext(c)
	var from, to *time.Time
	if v := c.QueryParam("start_date"); v != "" {
		d, err := parseDate(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid start_date")
		}
		from = &d
	}
	if v := c.QueryParam("end_date"); v != "" {
		d, err := parseDate(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid end_date")
		}
		to = &d
	}
	summary, err := h.svc.Summary(c.Request().Context(), actor.VisibleClinics, from, to)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

// -- Invoice items --

func (h *Handler) ListItems(c echo.Context) error {
	actor := scope.FromContext(c)
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.ListItems(c.Request().Context(), invoiceID, actor.VisibleClinics)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) AddItem(c echo.Context) error {
	actor := scope.FromContext(c)
	var item InvoiceItem
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.AddItem(c.Request().Context(), &item, actor.VisibleClinics); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) UpdateItem(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var item InvoiceItem
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item.ID = id
	if err := h.svc.UpdateItem(c.Request().Context(), &item, actor.VisibleClinics); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) RemoveItem(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.RemoveItem(c.Request().Context(), id, actor.VisibleClinics); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Payments --

func (h *Handler) ListPayments(c echo.Context) error {
	actor := scope.FromContext(c)
	pg := pagination.FromContext(c)

	filter := PaymentFilter{
		Method: c.QueryParam("payment_method"),
		Limit:  pg.Limit,
		Offset: pg.Offset,
	}
	if v := c.QueryParam("invoice"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid invoice id")
		}
		filter.InvoiceID = &id
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

	items, total, err := h.svc.ListPayments(c.Request().Context(), actor.VisibleClinics, filter)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListInvoicePayments(c echo.Context) error {
	actor := scope.FromContext(c)
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	filter := PaymentFilter{InvoiceID: &invoiceID, Limit: pg.Limit, Offset: pg.Offset}
	items, total, err := h.svc.ListPayments(c.Request().Context(), actor.VisibleClinics, filter)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type paymentRequest struct {
	Payment
	// Recipient, when set, receives the receipt email.
	Recipient string `json:"recipient"`
}

func (h *Handler) RecordPayment(c echo.Context) error {
	actor := scope.FromContext(c)
	var req paymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p := req.Payment
	p.ReceivedBy = &actor.UserID
	inv, err := h.svc.RecordPayment(c.Request().Context(), &p, actor.VisibleClinics, req.Recipient)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"payment": p,
		"invoice": inv,
	})
}

func (h *Handler) GetPayment(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPayment(c.Request().Context(), id, actor.VisibleClinics)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// -- Service catalog --

func (h *Handler) ListCatalogServices(c echo.Context) error {
	actor := scope.FromContext(c)
	pg := pagination.FromContext(c)

	filter := ServiceFilter{
		Search:     c.QueryParam("search"),
		Category:   c.QueryParam("category"),
		ActiveOnly: c.QueryParam("active") == "true",
		Limit:      pg.Limit,
		Offset:     pg.Offset,
	}
	items, total, err := h.svc.ListCatalogServices(c.Request().Context(), actor.VisibleClinics, filter)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreateCatalogService(c echo.Context) error {
	actor := scope.FromContext(c)
	var cs CatalogService
	if err := c.Bind(&cs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if cs.ClinicID == uuid.Nil {
		cs.ClinicID = actor.ClinicID
	}
	if !actor.CanSee(cs.ClinicID) {
		return echo.NewHTTPError(http.StatusForbidden, "clinic out of scope")
	}
	if err := h.svc.CreateCatalogService(c.Request().Context(), &cs); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, cs)
}

func (h *Handler) GetCatalogService(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cs, err := h.svc.GetCatalogService(c.Request().Context(), id, actor.VisibleClinics)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) UpdateCatalogService(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.GetCatalogService(c.Request().Context(), id, actor.VisibleClinics)
	if err != nil {
		return httpError(err)
	}
	var cs CatalogService
	if err := c.Bind(&cs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cs.ID = existing.ID
	cs.ClinicID = existing.ClinicID
	if err := h.svc.UpdateCatalogService(c.Request().Context(), &cs, actor.VisibleClinics); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) DeleteCatalogService(c echo.Context) error {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteCatalogService(c.Request().Context(), id, actor.VisibleClinics); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
