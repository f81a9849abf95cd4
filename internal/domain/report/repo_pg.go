package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/platform/db"
	"github.com/clinicore/clinicore/pkg/money"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const reportCols = `id, clinic_id, generated_by, report_type, title,
	start_date, end_date, filters, data, created_at, updated_at`

func scanReport(row pgx.Row) (*Report, error) {
	var rep Report
	err := row.Scan(&rep.ID, &rep.ClinicID, &rep.GeneratedBy, &rep.ReportType,
		&rep.Title, &rep.StartDate, &rep.EndDate, &rep.Filters, &rep.Data,
		&rep.CreatedAt, &rep.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &rep, err
}

func (r *repoPG) Create(ctx context.Context, rep *Report) error {
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	if rep.Filters == nil {
		rep.Filters = map[string]interface{}{}
	}
	if rep.Data == nil {
		rep.Data = map[string]interface{}{}
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO reports (id, clinic_id, generated_by, report_type, title,
			start_date, end_date, filters, data)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		rep.ID, rep.ClinicID, rep.GeneratedBy, rep.ReportType, rep.Title,
		rep.StartDate, rep.EndDate, rep.Filters, rep.Data)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID, visible []uuid.UUID) (*Report, error) {
	return scanReport(r.conn(ctx).QueryRow(ctx,
		`SELECT `+reportCols+` FROM reports
		WHERE id = $1 AND clinic_id = ANY($2)`, id, visible))
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID, visible []uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM reports WHERE id = $1 AND clinic_id = ANY($2)`, id, visible)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, visible []uuid.UUID, filter ListFilter) ([]*Report, int, error) {
	where := ` WHERE clinic_id = ANY($1)`
	args := []interface{}{visible}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where += fmt.Sprintf(" AND report_type = $%d", len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM reports`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+reportCols+` FROM reports`+where+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var reports []*Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		reports = append(reports, rep)
	}
	return reports, total, rows.Err()
}

type statsRepoPG struct{ pool *pgxpool.Pool }

func NewStatsRepoPG(pool *pgxpool.Pool) StatsRepository {
	return &statsRepoPG{pool: pool}
}

func (r *statsRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *statsRepoPG) AppointmentsSummary(ctx context.Context, visible []uuid.UUID, from, to time.Time) (*AppointmentsSummary, error) {
	sum := &AppointmentsSummary{
		ByType:         map[string]int{},
		ByPractitioner: []PractitionerCount{},
	}
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'COMPLETED'),
			COUNT(*) FILTER (WHERE status = 'CANCELLED'),
			COUNT(*) FILTER (WHERE status = 'NO_SHOW')
		FROM appointments
		WHERE clinic_id = ANY($1) AND date BETWEEN $2 AND $3
			AND deleted_at IS NULL`,
		visible, from, to).Scan(&sum.TotalAppointments, &sum.Completed,
		&sum.Cancelled, &sum.NoShow)
	if err != nil {
		return nil, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT appointment_type, COUNT(*) FROM appointments
		WHERE clinic_id = ANY($1) AND date BETWEEN $2 AND $3
			AND deleted_at IS NULL
		GROUP BY appointment_type`, visible, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		sum.ByType[typ] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.conn(ctx).Query(ctx, `
		SELECT a.practitioner_id, u.first_name || ' ' || u.last_name, COUNT(*)
		FROM appointments a
		JOIN practitioners pr ON pr.id = a.practitioner_id
		JOIN users u ON u.id = pr.user_id
		WHERE a.clinic_id = ANY($1) AND a.date BETWEEN $2 AND $3
			AND a.deleted_at IS NULL
		GROUP BY a.practitioner_id, u.first_name, u.last_name
		ORDER BY COUNT(*) DESC`, visible, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var pc PractitionerCount
		if err := rows.Scan(&pc.PractitionerID, &pc.Name, &pc.Count); err != nil {
			return nil, err
		}
		sum.ByPractitioner = append(sum.ByPractitioner, pc)
	}
	return sum, rows.Err()
}

func (r *statsRepoPG) RevenueSummary(ctx context.Context, visible []uuid.UUID, from, to time.Time) (*RevenueSummary, error) {
	sum := &RevenueSummary{ByMethod: map[string]money.Cents{}}
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(total_cents), 0),
			COALESCE(SUM(paid_cents), 0),
			COALESCE(SUM(balance_cents), 0)
		FROM invoices
		WHERE clinic_id = ANY($1) AND invoice_date BETWEEN $2 AND $3
			AND status <> 'CANCELLED' AND deleted_at IS NULL`,
		visible, from, to).Scan(&sum.InvoiceCount, &sum.TotalInvoiced,
		&sum.TotalPaid, &sum.Outstanding)
	if err != nil {
		return nil, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT p.payment_method, COUNT(*), COALESCE(SUM(p.amount_cents), 0)
		FROM payments p
		JOIN invoices i ON i.id = p.invoice_id
		WHERE i.clinic_id = ANY($1) AND p.payment_date BETWEEN $2 AND $3
		GROUP BY p.payment_method`, visible, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var method string
		var n int
		var amount money.Cents
		if err := rows.Scan(&method, &n, &amount); err != nil {
			return nil, err
		}
		sum.ByMethod[method] = amount
		sum.PaymentCount += n
	}
	return sum, rows.Err()
}

func (r *statsRepoPG) PatientStats(ctx context.Context, visible []uuid.UUID, monthStart time.Time) (*PatientStats, error) {
	stats := &PatientStats{ByGender: map[string]int{}}
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE is_active),
			COUNT(*) FILTER (WHERE created_at >= $2)
		FROM patients
		WHERE clinic_id = ANY($1) AND deleted_at IS NULL`,
		visible, monthStart).Scan(&stats.TotalPatients, &stats.ActivePatients,
		&stats.NewThisMonth)
	if err != nil {
		return nil, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT gender, COUNT(*) FROM patients
		WHERE clinic_id = ANY($1) AND deleted_at IS NULL
		GROUP BY gender`, visible)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var gender string
		var n int
		if err := rows.Scan(&gender, &n); err != nil {
			return nil, err
		}
		stats.ByGender[gender] = n
	}
	return stats, rows.Err()
}

func (r *statsRepoPG) PractitionerPerformance(ctx context.Context, visible []uuid.UUID, from, to time.Time) ([]*PractitionerPerformance, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT a.practitioner_id, u.first_name || ' ' || u.last_name,
			COUNT(*),
			COUNT(*) FILTER (WHERE a.status = 'COMPLETED'),
			COUNT(*) FILTER (WHERE a.status = 'CANCELLED')
		FROM appointments a
		JOIN practitioners pr ON pr.id = a.practitioner_id
		JOIN users u ON u.id = pr.user_id
		WHERE a.clinic_id = ANY($1) AND a.date BETWEEN $2 AND $3
			AND a.deleted_at IS NULL
		GROUP BY a.practitioner_id, u.first_name, u.last_name
		ORDER BY COUNT(*) DESC`, visible, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perf []*PractitionerPerformance
	byID := map[uuid.UUID]*PractitionerPerformance{}
	for rows.Next() {
		var p PractitionerPerformance
		if err := rows.Scan(&p.PractitionerID, &p.Name, &p.TotalAppointments,
			&p.Completed, &p.Cancelled); err != nil {
			return nil, err
		}
		perf = append(perf, &p)
		byID[p.PractitionerID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Collected payments attributed through the appointment on the invoice.
	rows, err = r.conn(ctx).Query(ctx, `
		SELECT a.practitioner_id, COALESCE(SUM(i.paid_cents), 0)
		FROM invoices i
		JOIN appointments a ON a.id = i.appointment_id
		WHERE i.clinic_id = ANY($1) AND i.invoice_date BETWEEN $2 AND $3
			AND i.status <> 'CANCELLED' AND i.deleted_at IS NULL
		GROUP BY a.practitioner_id`, visible, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		var revenue money.Cents
		if err := rows.Scan(&id, &revenue); err != nil {
			return nil, err
		}
		if p, ok := byID[id]; ok {
			p.Revenue = revenue
		}
	}
	return perf, rows.Err()
}

func (r *statsRepoPG) DashboardMetrics(ctx context.Context, visible []uuid.UUID, today time.Time) (*DashboardMetrics, error) {
	m := &DashboardMetrics{}
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'COMPLETED'),
			COUNT(*) FILTER (WHERE status IN ('SCHEDULED', 'CONFIRMED'))
		FROM appointments
		WHERE clinic_id = ANY($1) AND date = $2 AND deleted_at IS NULL`,
		visible, today).Scan(&m.TodayAppointments, &m.TodayCompleted,
		&m.TodayPending)
	if err != nil {
		return nil, err
	}

	err = r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(paid_cents) FILTER (
				WHERE invoice_date >= date_trunc('month', $2::date)
					AND status <> 'CANCELLED'), 0),
			COUNT(*) FILTER (WHERE status = 'PENDING')
		FROM invoices
		WHERE clinic_id = ANY($1) AND deleted_at IS NULL`,
		visible, today).Scan(&m.MonthRevenue, &m.PendingInvoices)
	if err != nil {
		return nil, err
	}

	err = r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM patients
		WHERE clinic_id = ANY($1) AND is_active AND deleted_at IS NULL`,
		visible).Scan(&m.ActivePatients)
	return m, err
}
