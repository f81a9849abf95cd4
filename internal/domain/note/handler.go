package note

import (
	"errors"
	"net/http"
	"strconv"
	"time"

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
	api.GET("/clinical-templates", h.ListTemplates)
	api.GET("/clinical-templates/active", h.ListActiveTemplates)
	api.GET("/clinical-templates/:id", h.GetTemplate)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/clinical-templates", h.CreateTemplate)
	admin.PUT("/clinical-templates/:id", h.UpdateTemplate)
	admin.DELETE("/clinical-templates/:id", h.DeleteTemplate)
	admin.POST("/clinical-templates/:id/create-version", h.CreateVersion)
	admin.POST("/clinical-templates/:id/archive", h.ArchiveTemplate)

	notes := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RolePractitioner))
	notes.GET("/clinical-notes", h.ListNotes)
	notes.POST("/clinical-notes", h.CreateNote)
	notes.GET("/clinical-notes/:id", h.GetNote)
	notes.PUT("/clinical-notes/:id", h.UpdateNote)
	notes.DELETE("/clinical-notes/:id", h.DeleteNote)
	notes.POST("/clinical-notes/:id/sign", h.SignNote)
	notes.POST("/clinical-notes/:id/autosave", h.AutosaveNote)
	notes.GET("/clinical-notes/:id/audit-log", h.AuditLog)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNoteSigned), errors.Is(err, ErrNotAssignedSigner):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrInvalidCategory),
		errors.Is(err, ErrStructureSections),
		errors.Is(err, ErrStructureImmutable),
		errors.Is(err, ErrTemplateArchived):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func auditActor(c echo.Context) Actor {
	actor := scope.FromContext(c)
	return Actor{
		UserID:         actor.UserID,
		PractitionerID: actor.PractitionerID,
		IPAddress:      c.RealIP(),
		UserAgent:      c.Request().UserAgent(),
	}
}

// -- Templates --

func (h *Handler) ListTemplates(c echo.Context) error {
	actor := scope.FromContext(c)
	pg := pagination.FromContext(c)
	activeOnly, _ := strconv.ParseBool(c.QueryParam("active"))
	includeArchived, _ := strconv.ParseBool(c.QueryParam("include_archived"))
	filter := TemplateFilter{
		Category:        c.QueryParam("category"),
		Search:          c.QueryParam("search"),
		ActiveOnly:      activeOnly,
		IncludeArchived: includeArchived,
		Limit:           pg.Limit,
		Offset:          pg.Offset,
	}
	items, total, err := h.svc.ListTemplates(c.Request().Context(), actor.VisibleClinics, filter)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListActiveTemplates(c echo.Context) error {
	actor := scope.FromContext(c)
	items, err := h.svc.ListActiveTemplates(c.Request().Context(), actor.VisibleClinics)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) templateInScope(c echo.Context) (*ClinicalTemplate, error) {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	t, err := h.svc.GetTemplate(c.Request().Context(), id)
	if err != nil {
		return nil, httpError(err)
	}
	if !actor.CanSee(t.ClinicID) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "template not found")
	}
	return t, nil
}

func (h *Handler) GetTemplate(c echo.Context) error {
	t, err := h.templateInScope(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) CreateTemplate(c echo.Context) error {
	actor := scope.FromContext(c)
	var t ClinicalTemplate
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if t.ClinicID == uuid.Nil {
		t.ClinicID = actor.ClinicID
	}
	if !actor.CanSee(t.ClinicID) {
		return echo.NewHTTPError(http.StatusForbidden, "clinic out of scope")
	}
	t.CreatedBy = &actor.UserID
	if err := h.svc.CreateTemplate(c.Request().Context(), &t); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) UpdateTemplate(c echo.Context) error {
	existing, err := h.templateInScope(c)
	if err != nil {
		return err
	}
	var t ClinicalTemplate
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t.ID = existing.ID
	t.ClinicID = existing.ClinicID
	t.CreatedBy = existing.CreatedBy
	t.Version = existing.Version
	t.ParentTemplateID = existing.ParentTemplateID
	if err := h.svc.UpdateTemplate(c.Request().Context(), &t); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) DeleteTemplate(c echo.Context) error {
	existing, err := h.templateInScope(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteTemplate(c.Request().Context(), existing.ID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateVersion(c echo.Context) error {
	actor := scope.FromContext(c)
	existing, err := h.templateInScope(c)
	if err != nil {
		return err
	}
	next, err := h.svc.CreateVersion(c.Request().Context(), existing.ID, actor.UserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, next)
}

func (h *Handler) ArchiveTemplate(c echo.Context) error {
	existing, err := h.templateInScope(c)
	if err != nil {
		return err
	}
	t, err := h.svc.ArchiveTemplate(c.Request().Context(), existing.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

// -- Notes --

func (h *Handler) ListNotes(c echo.Context) error {
	actor := scope.FromContext(c)
	pg := pagination.FromContext(c)

	filter := NoteFilter{Limit: pg.Limit, Offset: pg.Offset}
	if v := c.QueryParam("patient"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
		}
		filter.PatientID = &id
	}
	if v := c.QueryParam("date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date")
		}
		filter.Date = &d
	}
	if v := c.QueryParam("is_draft"); v != "" {
		b, _ := strconv.ParseBool(v)
		filter.IsDraft = &b
	}
	if v := c.QueryParam("is_signed"); v != "" {
		b, _ := strconv.ParseBool(v)
		filter.IsSigned = &b
	}

	// Practitioners see only their own notes.
	if !actor.IsAdmin() && actor.PractitionerID != nil {
		filter.PractitionerID = actor.PractitionerID
	}

	items, total, err := h.svc.ListNotes(c.Request().Context(), actor.VisibleClinics, filter)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type noteRequest struct {
	PatientID      uuid.UUID              `json:"patient_id"`
	PractitionerID uuid.UUID              `json:"practitioner_id"`
	AppointmentID  *uuid.UUID             `json:"appointment_id"`
	ClinicID       uuid.UUID              `json:"clinic_id"`
	TemplateID     *uuid.UUID             `json:"template_id"`
	Date           string                 `json:"date"`
	NoteType       string                 `json:"note_type"`
	Content        map[string]interface{} `json:"content"`
}

func (h *Handler) CreateNote(c echo.Context) error {
	actor := scope.FromContext(c)
	var req noteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ClinicID == uuid.Nil {
		req.ClinicID = actor.ClinicID
	}
	if !actor.CanSee(req.ClinicID) {
		return echo.NewHTTPError(http.StatusForbidden, "clinic out of scope")
	}
	if req.PractitionerID == uuid.Nil && actor.PractitionerID != nil {
		req.PractitionerID = *actor.PractitionerID
	}
	n := &ClinicalNote{
		PatientID:      req.PatientID,
		PractitionerID: req.PractitionerID,
		AppointmentID:  req.AppointmentID,
		ClinicID:       req.ClinicID,
		TemplateID:     req.TemplateID,
		NoteType:       req.NoteType,
	}
	if req.Date != "" {
		d, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date")
		}
		n.Date = d
	}
	result, err := h.svc.CreateNote(c.Request().Context(), n, req.Content, auditActor(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

// noteInScope loads a note without decrypting it and enforces clinic and
// practitioner visibility.
func (h *Handler) noteInScope(c echo.Context) (*ClinicalNote, error) {
	actor := scope.FromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	n, err := h.svc.PeekNote(c.Request().Context(), id)
	if err != nil {
		return nil, httpError(err)
	}
	if !actor.CanSee(n.ClinicID) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "clinical note not found")
	}
	if !actor.IsAdmin() && actor.PractitionerID != nil && *actor.PractitionerID != n.PractitionerID {
		return nil, echo.NewHTTPError(http.StatusNotFound, "clinical note not found")
	}
	return n, nil
}

func (h *Handler) GetNote(c echo.Context) error {
	n, err := h.noteInScope(c)
	if err != nil {
		return err
	}
	result, err := h.svc.GetNote(c.Request().Context(), n.ID, auditActor(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

type noteUpdateRequest struct {
	Date    string                 `json:"date"`
	Content map[string]interface{} `json:"content"`
}

func (h *Handler) UpdateNote(c echo.Context) error {
	n, err := h.noteInScope(c)
	if err != nil {
		return err
	}
	var req noteUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var date *time.Time
	if req.Date != "" {
		d, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date")
		}
		date = &d
	}
	result, err := h.svc.UpdateNote(c.Request().Context(), n.ID, req.Content, date, auditActor(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) DeleteNote(c echo.Context) error {
	n, err := h.noteInScope(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteNote(c.Request().Context(), n.ID, auditActor(c)); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SignNote(c echo.Context) error {
	n, err := h.noteInScope(c)
	if err != nil {
		return err
	}
	signed, err := h.svc.Sign(c.Request().Context(), n.ID, auditActor(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, signed)
}

type autosaveRequest struct {
	Content map[string]interface{} `json:"content"`
}

func (h *Handler) AutosaveNote(c echo.Context) error {
	n, err := h.noteInScope(c)
	if err != nil {
		return err
	}
	var req autosaveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	saved, err := h.svc.Autosave(c.Request().Context(), n.ID, req.Content)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"detail":        "Draft saved",
		"last_autosave": saved.LastAutosave,
	})
}

func (h *Handler) AuditLog(c echo.Context) error {
	n, err := h.noteInScope(c)
	if err != nil {
		return err
	}
	entries, err := h.svc.AuditTrail(c.Request().Context(), n.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, entries)
}
