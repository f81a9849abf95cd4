package clinic

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

// -- Clinic --

type clinicRepoPG struct{ pool *pgxpool.Pool }

func NewClinicRepoPG(pool *pgxpool.Pool) ClinicRepository {
	return &clinicRepoPG{pool: pool}
}

func (r *clinicRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const clinicCols = `id, name, email, phone, address, city, province, postal_code,
	tin, philhealth_accreditation, website, timezone, is_active,
	subscription_plan, subscription_expires, parent_clinic_id, branch_code,
	created_at, updated_at`

func scanClinic(row pgx.Row) (*Clinic, error) {
	var c Clinic
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.City,
		&c.Province, &c.PostalCode, &c.TIN, &c.PhilHealthAccreditation,
		&c.Website, &c.Timezone, &c.IsActive, &c.SubscriptionPlan,
		&c.SubscriptionExpires, &c.ParentClinicID, &c.BranchCode,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &c, err
}

func (r *clinicRepoPG) Create(ctx context.Context, c *Clinic) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinics (id, name, email, phone, address, city, province,
			postal_code, tin, philhealth_accreditation, website, timezone,
			is_active, subscription_plan, subscription_expires,
			parent_clinic_id, branch_code)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		c.ID, c.Name, c.Email, c.Phone, c.Address, c.City, c.Province,
		c.PostalCode, c.TIN, c.PhilHealthAccreditation, c.Website, c.Timezone,
		c.IsActive, c.SubscriptionPlan, c.SubscriptionExpires,
		c.ParentClinicID, c.BranchCode)
	return err
}

func (r *clinicRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	return scanClinic(r.conn(ctx).QueryRow(ctx,
		`SELECT `+clinicCols+` FROM clinics WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *clinicRepoPG) Update(ctx context.Context, c *Clinic) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE clinics SET name=$2, email=$3, phone=$4, address=$5, city=$6,
			province=$7, postal_code=$8, tin=$9, philhealth_accreditation=$10,
			website=$11, timezone=$12, is_active=$13, subscription_plan=$14,
			subscription_expires=$15, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		c.ID, c.Name, c.Email, c.Phone, c.Address, c.City, c.Province,
		c.PostalCode, c.TIN, c.PhilHealthAccreditation, c.Website, c.Timezone,
		c.IsActive, c.SubscriptionPlan, c.SubscriptionExpires)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *clinicRepoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE clinics SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *clinicRepoPG) List(ctx context.Context, visible []uuid.UUID, search string, limit, offset int) ([]*Clinic, int, error) {
	where := `WHERE id = ANY($1) AND deleted_at IS NULL`
	args := []interface{}{visible}
	if search != "" {
		where += ` AND (name ILIKE $2 OR city ILIKE $2 OR province ILIKE $2)`
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinics `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM clinics %s ORDER BY name LIMIT $%d OFFSET $%d`,
		clinicCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Clinic
	for rows.Next() {
		c, err := scanClinic(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *clinicRepoPG) ListBranches(ctx context.Context, parentID uuid.UUID) ([]*Clinic, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+clinicCols+` FROM clinics WHERE parent_clinic_id = $1 AND deleted_at IS NULL ORDER BY name`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Clinic
	for rows.Next() {
		c, err := scanClinic(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *clinicRepoPG) BranchCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM clinics WHERE branch_code = $1)`, code).Scan(&exists)
	return exists, err
}

// VisibleClinicIDs walks to the root of the clinic family and enumerates the
// root plus all of its branches.
func (r *clinicRepoPG) VisibleClinicIDs(ctx context.Context, clinicID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		WITH root AS (
			SELECT COALESCE(parent_clinic_id, id) AS id
			FROM clinics WHERE id = $1
		)
		SELECT c.id FROM clinics c, root
		WHERE (c.id = root.id OR c.parent_clinic_id = root.id)
		  AND c.deleted_at IS NULL`, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		// Clinic row is missing; fall back to the clinic itself so the
		// caller is never scoped to nothing.
		ids = []uuid.UUID{clinicID}
	}
	return ids, rows.Err()
}

func (r *clinicRepoPG) PractitionerIDForUser(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	var id uuid.UUID
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id FROM practitioners WHERE user_id = $1 AND deleted_at IS NULL`, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// -- Location --

type locationRepoPG struct{ pool *pgxpool.Pool }

func NewLocationRepoPG(pool *pgxpool.Pool) LocationRepository {
	return &locationRepoPG{pool: pool}
}

func (r *locationRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const locationCols = `id, clinic_id, name, address, city, province, postal_code,
	phone, is_primary, is_active, created_at, updated_at`

func scanLocation(row pgx.Row) (*Location, error) {
	var l Location
	err := row.Scan(&l.ID, &l.ClinicID, &l.Name, &l.Address, &l.City,
		&l.Province, &l.PostalCode, &l.Phone, &l.IsPrimary, &l.IsActive,
		&l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &l, err
}

func (r *locationRepoPG) Create(ctx context.Context, l *Location) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinic_locations (id, clinic_id, name, address, city,
			province, postal_code, phone, is_primary, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		l.ID, l.ClinicID, l.Name, l.Address, l.City, l.Province, l.PostalCode,
		l.Phone, l.IsPrimary, l.IsActive)
	return err
}

func (r *locationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Location, error) {
	return scanLocation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+locationCols+` FROM clinic_locations WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *locationRepoPG) Update(ctx context.Context, l *Location) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE clinic_locations SET name=$2, address=$3, city=$4, province=$5,
			postal_code=$6, phone=$7, is_primary=$8, is_active=$9, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		l.ID, l.Name, l.Address, l.City, l.Province, l.PostalCode, l.Phone,
		l.IsPrimary, l.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *locationRepoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE clinic_locations SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *locationRepoPG) List(ctx context.Context, visible []uuid.UUID, limit, offset int) ([]*Location, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM clinic_locations WHERE clinic_id = ANY($1) AND deleted_at IS NULL`,
		visible).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+locationCols+` FROM clinic_locations
		WHERE clinic_id = ANY($1) AND deleted_at IS NULL
		ORDER BY is_primary DESC, name LIMIT $2 OFFSET $3`, visible, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}
	return items, total, rows.Err()
}

// -- Practitioner --

type practitionerRepoPG struct{ pool *pgxpool.Pool }

func NewPractitionerRepoPG(pool *pgxpool.Pool) PractitionerRepository {
	return &practitionerRepoPG{pool: pool}
}

func (r *practitionerRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const practitionerCols = `id, user_id, clinic_id, license_number, specialization,
	prc_license, philhealth_accreditation, consultation_fee_cents, bio,
	is_accepting_patients, created_at, updated_at`

func scanPractitioner(row pgx.Row) (*Practitioner, error) {
	var p Practitioner
	err := row.Scan(&p.ID, &p.UserID, &p.ClinicID, &p.LicenseNumber,
		&p.Specialization, &p.PRCLicense, &p.PhilHealthAccreditation,
		&p.ConsultationFee, &p.Bio, &p.IsAcceptingPatients,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *practitionerRepoPG) Create(ctx context.Context, p *Practitioner) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO practitioners (id, user_id, clinic_id, license_number,
			specialization, prc_license, philhealth_accreditation,
			consultation_fee_cents, bio, is_accepting_patients)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.UserID, p.ClinicID, p.LicenseNumber, p.Specialization,
		p.PRCLicense, p.PhilHealthAccreditation, p.ConsultationFee, p.Bio,
		p.IsAcceptingPatients)
	return err
}

func (r *practitionerRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	return scanPractitioner(r.conn(ctx).QueryRow(ctx,
		`SELECT `+practitionerCols+` FROM practitioners WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *practitionerRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Practitioner, error) {
	return scanPractitioner(r.conn(ctx).QueryRow(ctx,
		`SELECT `+practitionerCols+` FROM practitioners WHERE user_id = $1 AND deleted_at IS NULL`, userID))
}

func (r *practitionerRepoPG) Update(ctx context.Context, p *Practitioner) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE practitioners SET license_number=$2, specialization=$3,
			prc_license=$4, philhealth_accreditation=$5,
			consultation_fee_cents=$6, bio=$7, is_accepting_patients=$8,
			updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		p.ID, p.LicenseNumber, p.Specialization, p.PRCLicense,
		p.PhilHealthAccreditation, p.ConsultationFee, p.Bio,
		p.IsAcceptingPatients)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *practitionerRepoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE practitioners SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *practitionerRepoPG) List(ctx context.Context, visible []uuid.UUID, acceptingOnly bool, limit, offset int) ([]*Practitioner, int, error) {
	where := `WHERE clinic_id = ANY($1) AND deleted_at IS NULL`
	if acceptingOnly {
		where += ` AND is_accepting_patients`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM practitioners `+where, visible).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+practitionerCols+` FROM practitioners `+where+
			` ORDER BY created_at DESC LIMIT $2 OFFSET $3`, visible, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Practitioner
	for rows.Next() {
		p, err := scanPractitioner(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
