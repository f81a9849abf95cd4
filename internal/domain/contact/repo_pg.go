package contact

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

const contactCols = `id, clinic_id, contact_number, contact_type, first_name,
	middle_name, last_name, organization_name, specialty, license_number,
	email, phone, alternative_phone, address, city, province, postal_code,
	notes, website, is_active, is_preferred, created_at, updated_at`

func scanContact(row pgx.Row) (*Contact, error) {
	var c Contact
	err := row.Scan(&c.ID, &c.ClinicID, &c.ContactNumber, &c.ContactType,
		&c.FirstName, &c.MiddleName, &c.LastName, &c.OrganizationName,
		&c.Specialty, &c.LicenseNumber, &c.Email, &c.Phone,
		&c.AlternativePhone, &c.Address, &c.City, &c.Province, &c.PostalCode,
		&c.Notes, &c.Website, &c.IsActive, &c.IsPreferred, &c.CreatedAt,
		&c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &c, err
}

func (r *repoPG) Create(ctx context.Context, c *Contact) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO contacts (id, clinic_id, contact_number, contact_type,
			first_name, middle_name, last_name, organization_name, specialty,
			license_number, email, phone, alternative_phone, address, city,
			province, postal_code, notes, website, is_active, is_preferred)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		c.ID, c.ClinicID, c.ContactNumber, c.ContactType, c.FirstName,
		c.MiddleName, c.LastName, c.OrganizationName, c.Specialty,
		c.LicenseNumber, c.Email, c.Phone, c.AlternativePhone, c.Address,
		c.City, c.Province, c.PostalCode, c.Notes, c.Website, c.IsActive,
		c.IsPreferred)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID, visible []uuid.UUID) (*Contact, error) {
	return scanContact(r.conn(ctx).QueryRow(ctx,
		`SELECT `+contactCols+` FROM contacts
		WHERE id = $1 AND clinic_id = ANY($2) AND deleted_at IS NULL`, id, visible))
}

func (r *repoPG) Update(ctx context.Context, c *Contact) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE contacts SET contact_type=$2, first_name=$3, middle_name=$4,
			last_name=$5, organization_name=$6, specialty=$7,
			license_number=$8, email=$9, phone=$10, alternative_phone=$11,
			address=$12, city=$13, province=$14, postal_code=$15, notes=$16,
			website=$17, is_active=$18, is_preferred=$19, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		c.ID, c.ContactType, c.FirstName, c.MiddleName, c.LastName,
		c.OrganizationName, c.Specialty, c.LicenseNumber, c.Email, c.Phone,
		c.AlternativePhone, c.Address, c.City, c.Province, c.PostalCode,
		c.Notes, c.Website, c.IsActive, c.IsPreferred)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) SoftDelete(ctx context.Context, id uuid.UUID, visible []uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE contacts SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND clinic_id = ANY($2) AND deleted_at IS NULL`, id, visible)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, visible []uuid.UUID, filter ListFilter) ([]*Contact, int, error) {
	where := `WHERE clinic_id = ANY($1) AND deleted_at IS NULL`
	args := []interface{}{visible}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where += fmt.Sprintf(` AND contact_type = $%d`, len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(` AND (first_name ILIKE $%d OR last_name ILIKE $%d
			OR organization_name ILIKE $%d OR specialty ILIKE $%d
			OR email ILIKE $%d OR phone ILIKE $%d OR contact_number ILIKE $%d)`,
			len(args), len(args), len(args), len(args), len(args), len(args), len(args))
	}
	if filter.ActiveOnly {
		where += ` AND is_active`
	}
	if filter.PreferredOnly {
		where += ` AND is_preferred`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM contacts `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM contacts %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		contactCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Stats(ctx context.Context, visible []uuid.UUID) (*Stats, error) {
	stats := &Stats{ByType: map[string]int{}}
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE is_active),
			COUNT(*) FILTER (WHERE NOT is_active)
		FROM contacts WHERE clinic_id = ANY($1) AND deleted_at IS NULL`, visible).
		Scan(&stats.Total, &stats.Active, &stats.Inactive)
	if err != nil {
		return nil, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT contact_type, COUNT(*) FROM contacts
		WHERE clinic_id = ANY($1) AND deleted_at IS NULL
		GROUP BY contact_type`, visible)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var contactType string
		var count int
		if err := rows.Scan(&contactType, &count); err != nil {
			return nil, err
		}
		stats.ByType[contactType] = count
	}
	return stats, rows.Err()
}
