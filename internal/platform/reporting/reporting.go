// Package reporting exposes ad-hoc operational measures as raw result rows,
// complementing the structured report snapshots under /reports. Every measure
// is scoped to the clinics the requesting user may see and bounded by an
// optional date range.
package reporting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/internal/platform/scope"
)

// MeasureDefinition defines a reporting measure with its SQL query. Every
// query takes three parameters: $1 the visible clinic IDs, $2 the start of
// the reporting window, $3 the end (exclusive).
type MeasureDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SQL         string `json:"-"`
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	From        time.Time                `json:"from"`
	To          time.Time                `json:"to"`
	Results     []map[string]interface{} `json:"results"`
}

// PredefinedMeasures is the list of available reporting measures.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "appointments-by-status",
		Name:        "Appointments by Status",
		Description: "Appointment counts grouped by status within the reporting window",
		SQL: `SELECT status, COUNT(*) AS total
		      FROM appointments
		      WHERE clinic_id = ANY($1) AND deleted_at IS NULL
		        AND date >= $2 AND date < $3
		      GROUP BY status ORDER BY total DESC`,
	},
	{
		ID:          "outstanding-invoices",
		Name:        "Outstanding Invoices",
		Description: "Invoice counts and unpaid balances grouped by status within the reporting window",
		SQL: `SELECT status, COUNT(*) AS total,
		             COALESCE(SUM(balance_cents), 0) AS outstanding_cents
		      FROM invoices
		      WHERE clinic_id = ANY($1) AND deleted_at IS NULL
		        AND invoice_date >= $2 AND invoice_date < $3
		      GROUP BY status ORDER BY outstanding_cents DESC`,
	},
	{
		ID:          "claims-summary",
		Name:        "Claims Summary",
		Description: "PhilHealth and HMO claim counts and amounts grouped by status",
		SQL: `SELECT kind, status, COUNT(*) AS total,
		             COALESCE(SUM(claim_amount_cents), 0) AS claimed_cents,
		             COALESCE(SUM(approved_amount_cents), 0) AS approved_cents
		      FROM insurance_claims
		      WHERE clinic_id = ANY($1) AND deleted_at IS NULL
		        AND claim_date >= $2 AND claim_date < $3
		      GROUP BY kind, status
		      ORDER BY kind, status`,
	},
	{
		ID:          "new-patient-registrations",
		Name:        "New Patient Registrations",
		Description: "Patients registered per week within the reporting window",
		SQL: `SELECT date_trunc('week', created_at)::date AS week, COUNT(*) AS registered
		      FROM patients
		      WHERE clinic_id = ANY($1) AND deleted_at IS NULL
		        AND created_at >= $2 AND created_at < $3
		      GROUP BY week ORDER BY week`,
	},
	{
		ID:          "unsigned-notes",
		Name:        "Unsigned Notes",
		Description: "Clinical note counts per type with how many remain unsigned",
		SQL: `SELECT note_type, COUNT(*) AS total,
		             COUNT(*) FILTER (WHERE NOT is_signed) AS unsigned
		      FROM clinical_notes
		      WHERE clinic_id = ANY($1) AND deleted_at IS NULL
		        AND date >= $2 AND date < $3
		      GROUP BY note_type ORDER BY total DESC`,
	},
}

// Handler provides HTTP handlers for the reporting API.
type Handler struct {
	pool *pgxpool.Pool
}

// NewHandler creates a new reporting handler.
func NewHandler(pool *pgxpool.Pool) *Handler {
	return &Handler{pool: pool}
}

// RegisterRoutes registers the reporting API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	measures := api.Group("/measures", auth.RequireRole(auth.RoleAdmin, auth.RolePractitioner))
	measures.GET("", h.ListMeasures)
	measures.GET("/evaluation", h.EvaluateAll)
	measures.GET("/:id/evaluate", h.EvaluateMeasure)
}

// ListMeasures returns all available measure definitions.
func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

// EvaluateMeasure executes a measure scoped to the actor's visible clinics.
// Optional from/to query parameters bound the reporting window; the default
// window is the last 30 days.
func (h *Handler) EvaluateMeasure(c echo.Context) error {
	measure := FindMeasure(c.Param("id"))
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}

	actor := scope.FromContext(c)
	if actor == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	from, to, err := reportingWindow(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	results, err := h.executeSQL(c.Request().Context(), measure.SQL, actor.VisibleClinics, from, to)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
	}

	return c.JSON(http.StatusOK, MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		GeneratedAt: time.Now().UTC(),
		From:        from,
		To:          to,
		Results:     results,
	})
}

// EvaluateAll evaluates every predefined measure in one call for front-end
// dashboards.
func (h *Handler) EvaluateAll(c echo.Context) error {
	actor := scope.FromContext(c)
	if actor == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	from, to, err := reportingWindow(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	out := make(map[string]MeasureReport, len(PredefinedMeasures))
	for i := range PredefinedMeasures {
		measure := &PredefinedMeasures[i]
		results, err := h.executeSQL(c.Request().Context(), measure.SQL, actor.VisibleClinics, from, to)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
		}
		out[measure.ID] = MeasureReport{
			MeasureID:   measure.ID,
			MeasureName: measure.Name,
			GeneratedAt: time.Now().UTC(),
			From:        from,
			To:          to,
			Results:     results,
		}
	}
	return c.JSON(http.StatusOK, out)
}

func reportingWindow(c echo.Context) (from, to time.Time, err error) {
	now := time.Now().UTC()
	from = now.AddDate(0, 0, -30)
	to = now.AddDate(0, 0, 1)

	if v := c.QueryParam("from"); v != "" {
		from, err = time.Parse("2006-01-02", v)
		if err != nil {
			return from, to, fmt.Errorf("invalid from date %q, expected YYYY-MM-DD", v)
		}
	}
	if v := c.QueryParam("to"); v != "" {
		to, err = time.Parse("2006-01-02", v)
		if err != nil {
			return from, to, fmt.Errorf("invalid to date %q, expected YYYY-MM-DD", v)
		}
		// Make the upper bound exclusive of the following midnight.
		to = to.AddDate(0, 0, 1)
	}
	if !from.Before(to) {
		return from, to, fmt.Errorf("from must be before to")
	}
	return from, to, nil
}

// executeSQL runs a measure query and returns results as a slice of maps.
func (h *Handler) executeSQL(ctx context.Context, sql string, clinicIDs []uuid.UUID, from, to time.Time) ([]map[string]interface{}, error) {
	rows, err := h.pool.Query(ctx, sql, clinicIDs, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	var results []map[string]interface{}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[string(fd.Name)] = values[i]
		}
		results = append(results, row)
	}

	if results == nil {
		results = []map[string]interface{}{}
	}

	return results, rows.Err()
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}
