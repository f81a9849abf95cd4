package appointment

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

const appointmentCols = `id, clinic_id, patient_id, practitioner_id,
	location_id, appointment_type, status, date, start_time, end_time,
	duration_minutes, chief_complaint, notes, patient_notes, reminder_sent,
	reminder_sent_at, cancelled_by, cancellation_reason, cancelled_at,
	created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.ClinicID, &a.PatientID, &a.PractitionerID,
		&a.LocationID, &a.AppointmentType, &a.Status, &a.Date, &a.StartTime,
		&a.EndTime, &a.DurationMinutes, &a.ChiefComplaint, &a.Notes,
		&a.PatientNotes, &a.ReminderSent, &a.ReminderSentAt, &a.CancelledBy,
		&a.CancellationReason, &a.CancelledAt, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (id, clinic_id, patient_id, practitioner_id,
			location_id, appointment_type, status, date, start_time, end_time,
			duration_minutes, chief_complaint, notes, patient_notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		a.ID, a.ClinicID, a.PatientID, a.PractitionerID, a.LocationID,
		a.AppointmentType, a.Status, a.Date, a.StartTime, a.EndTime,
		a.DurationMinutes, a.ChiefComplaint, a.Notes, a.PatientNotes)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET patient_id=$2, practitioner_id=$3,
			location_id=$4, appointment_type=$5, status=$6, date=$7,
			start_time=$8, end_time=$9, duration_minutes=$10,
			chief_complaint=$11, notes=$12, patient_notes=$13,
			reminder_sent=$14, reminder_sent_at=$15, cancelled_by=$16,
			cancellation_reason=$17, cancelled_at=$18, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		a.ID, a.PatientID, a.PractitionerID, a.LocationID, a.AppointmentType,
		a.Status, a.Date, a.StartTime, a.EndTime, a.DurationMinutes,
		a.ChiefComplaint, a.Notes, a.PatientNotes, a.ReminderSent,
		a.ReminderSentAt, a.CancelledBy, a.CancellationReason, a.CancelledAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointments SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, visible []uuid.UUID, filter ListFilter) ([]*Appointment, int, error) {
	where := `WHERE clinic_id = ANY($1) AND deleted_at IS NULL`
	args := []interface{}{visible}
	if filter.PatientID != nil {
		args = append(args, *filter.PatientID)
		where += fmt.Sprintf(` AND patient_id = $%d`, len(args))
	}
	if filter.PractitionerID != nil {
		args = append(args, *filter.PractitionerID)
		where += fmt.Sprintf(` AND practitioner_id = $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where += fmt.Sprintf(` AND appointment_type = $%d`, len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += fmt.Sprintf(` AND date >= $%d`, len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += fmt.Sprintf(` AND date <= $%d`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM appointments %s ORDER BY date DESC, start_time DESC LIMIT $%d OFFSET $%d`,
		appointmentCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListActiveForDay(ctx context.Context, practitionerID uuid.UUID, date time.Time, excludeID *uuid.UUID) ([]*Appointment, error) {
	query := `SELECT ` + appointmentCols + ` FROM appointments
		WHERE practitioner_id = $1 AND date = $2 AND status = ANY($3)
		  AND deleted_at IS NULL`
	args := []interface{}{practitionerID, date, ActiveStatuses}
	if excludeID != nil {
		args = append(args, *excludeID)
		query += fmt.Sprintf(` AND id <> $%d`, len(args))
	}
	query += ` ORDER BY start_time`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// -- Schedules --

type scheduleRepoPG struct{ pool *pgxpool.Pool }

func NewScheduleRepoPG(pool *pgxpool.Pool) ScheduleRepository {
	return &scheduleRepoPG{pool: pool}
}

func (r *scheduleRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const scheduleCols = `id, practitioner_id, location_id, weekday, start_time,
	end_time, is_available, created_at, updated_at`

func scanSchedule(row pgx.Row) (*Schedule, error) {
	var s Schedule
	err := row.Scan(&s.ID, &s.PractitionerID, &s.LocationID, &s.Weekday,
		&s.StartTime, &s.EndTime, &s.IsAvailable, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &s, err
}

func (r *scheduleRepoPG) Create(ctx context.Context, s *Schedule) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO practitioner_schedules (id, practitioner_id, location_id,
			weekday, start_time, end_time, is_available)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		s.ID, s.PractitionerID, s.LocationID, s.Weekday, s.StartTime,
		s.EndTime, s.IsAvailable)
	return err
}

func (r *scheduleRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	return scanSchedule(r.conn(ctx).QueryRow(ctx,
		`SELECT `+scheduleCols+` FROM practitioner_schedules WHERE id = $1`, id))
}

func (r *scheduleRepoPG) Update(ctx context.Context, s *Schedule) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE practitioner_schedules SET location_id=$2, weekday=$3,
			start_time=$4, end_time=$5, is_available=$6, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.LocationID, s.Weekday, s.StartTime, s.EndTime, s.IsAvailable)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *scheduleRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM practitioner_schedules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *scheduleRepoPG) ListByPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]*Schedule, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+scheduleCols+` FROM practitioner_schedules WHERE practitioner_id = $1 ORDER BY weekday, start_time`, practitionerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
