package patient

import (
	"context"
	"errors"
	"fmt"

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

const patientCols = `id, clinic_id, first_name, middle_name, last_name,
	date_of_birth, gender, email, phone, address, city, province, postal_code,
	emergency_contact_name, emergency_contact_phone,
	emergency_contact_relationship, philhealth_number, hmo_provider,
	hmo_number, medical_conditions, allergies, medications, patient_number,
	is_active, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.ClinicID, &p.FirstName, &p.MiddleName,
		&p.LastName, &p.DateOfBirth, &p.Gender, &p.Email, &p.Phone, &p.Address,
		&p.City, &p.Province, &p.PostalCode, &p.EmergencyContactName,
		&p.EmergencyContactPhone, &p.EmergencyContactRelationship,
		&p.PhilHealthNumber, &p.HMOProvider, &p.HMONumber,
		&p.MedicalConditions, &p.Allergies, &p.Medications, &p.PatientNumber,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, clinic_id, first_name, middle_name, last_name,
			date_of_birth, gender, email, phone, address, city, province,
			postal_code, emergency_contact_name, emergency_contact_phone,
			emergency_contact_relationship, philhealth_number, hmo_provider,
			hmo_number, medical_conditions, allergies, medications,
			patient_number, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,
			$18,$19,$20,$21,$22,$23,$24)`,
		p.ID, p.ClinicID, p.FirstName, p.MiddleName, p.LastName, p.DateOfBirth,
		p.Gender, p.Email, p.Phone, p.Address, p.City, p.Province, p.PostalCode,
		p.EmergencyContactName, p.EmergencyContactPhone,
		p.EmergencyContactRelationship, p.PhilHealthNumber, p.HMOProvider,
		p.HMONumber, p.MedicalConditions, p.Allergies, p.Medications,
		p.PatientNumber, p.IsActive)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) GetByNumber(ctx context.Context, number string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE patient_number = $1 AND deleted_at IS NULL`, number))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET first_name=$2, middle_name=$3, last_name=$4,
			date_of_birth=$5, gender=$6, email=$7, phone=$8, address=$9,
			city=$10, province=$11, postal_code=$12,
			emergency_contact_name=$13, emergency_contact_phone=$14,
			emergency_contact_relationship=$15, philhealth_number=$16,
			hmo_provider=$17, hmo_number=$18, medical_conditions=$19,
			allergies=$20, medications=$21, is_active=$22, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		p.ID, p.FirstName, p.MiddleName, p.LastName, p.DateOfBirth, p.Gender,
		p.Email, p.Phone, p.Address, p.City, p.Province, p.PostalCode,
		p.EmergencyContactName, p.EmergencyContactPhone,
		p.EmergencyContactRelationship, p.PhilHealthNumber, p.HMOProvider,
		p.HMONumber, p.MedicalConditions, p.Allergies, p.Medications,
		p.IsActive)
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
		`UPDATE patients SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, visible []uuid.UUID, filter ListFilter) ([]*Patient, int, error) {
	where := `WHERE clinic_id = ANY($1) AND deleted_at IS NULL`
	args := []interface{}{visible}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(` AND (first_name ILIKE $%d OR last_name ILIKE $%d
			OR patient_number ILIKE $%d OR phone ILIKE $%d OR email ILIKE $%d)`,
			len(args), len(args), len(args), len(args), len(args))
	}
	if filter.Gender != "" {
		args = append(args, filter.Gender)
		where += fmt.Sprintf(` AND gender = $%d`, len(args))
	}
	if filter.ActiveOnly {
		where += ` AND is_active`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM patients %s ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`,
		patientCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// -- Intake forms --

type intakeFormRepoPG struct{ pool *pgxpool.Pool }

func NewIntakeFormRepoPG(pool *pgxpool.Pool) IntakeFormRepository {
	return &intakeFormRepoPG{pool: pool}
}

func (r *intakeFormRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const intakeFormCols = `id, patient_id, completed_by, chief_complaint,
	complaint_onset, past_medical_history, surgical_history, family_history,
	social_history, system_review, consent_given, consent_date, created_at,
	updated_at`

func scanIntakeForm(row pgx.Row) (*IntakeForm, error) {
	var f IntakeForm
	err := row.Scan(&f.ID, &f.PatientID, &f.CompletedBy, &f.ChiefComplaint,
		&f.ComplaintOnset, &f.PastMedicalHistory, &f.SurgicalHistory,
		&f.FamilyHistory, &f.SocialHistory, &f.SystemReview, &f.ConsentGiven,
		&f.ConsentDate, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &f, err
}

func (r *intakeFormRepoPG) Create(ctx context.Context, f *IntakeForm) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.SystemReview == nil {
		f.SystemReview = map[string]interface{}{}
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_intake_forms (id, patient_id, completed_by,
			chief_complaint, complaint_onset, past_medical_history,
			surgical_history, family_history, social_history, system_review,
			consent_given, consent_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		f.ID, f.PatientID, f.CompletedBy, f.ChiefComplaint, f.ComplaintOnset,
		f.PastMedicalHistory, f.SurgicalHistory, f.FamilyHistory,
		f.SocialHistory, f.SystemReview, f.ConsentGiven, f.ConsentDate)
	return err
}

func (r *intakeFormRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*IntakeForm, error) {
	return scanIntakeForm(r.conn(ctx).QueryRow(ctx,
		`SELECT `+intakeFormCols+` FROM patient_intake_forms WHERE id = $1`, id))
}

func (r *intakeFormRepoPG) Update(ctx context.Context, f *IntakeForm) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_intake_forms SET chief_complaint=$2, complaint_onset=$3,
			past_medical_history=$4, surgical_history=$5, family_history=$6,
			social_history=$7, system_review=$8, consent_given=$9,
			consent_date=$10, updated_at=NOW()
		WHERE id = $1`,
		f.ID, f.ChiefComplaint, f.ComplaintOnset, f.PastMedicalHistory,
		f.SurgicalHistory, f.FamilyHistory, f.SocialHistory, f.SystemReview,
		f.ConsentGiven, f.ConsentDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *intakeFormRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*IntakeForm, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+intakeFormCols+` FROM patient_intake_forms WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*IntakeForm
	for rows.Next() {
		f, err := scanIntakeForm(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}
