package note

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

// -- Templates --

type templateRepoPG struct{ pool *pgxpool.Pool }

func NewTemplateRepoPG(pool *pgxpool.Pool) TemplateRepository {
	return &templateRepoPG{pool: pool}
}

func (r *templateRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const templateCols = `id, clinic_id, created_by, name, description, category,
	structure, version, parent_template_id, is_active, is_archived,
	created_at, updated_at`

func scanTemplate(row pgx.Row) (*ClinicalTemplate, error) {
	var t ClinicalTemplate
	err := row.Scan(&t.ID, &t.ClinicID, &t.CreatedBy, &t.Name, &t.Description,
		&t.Category, &t.Structure, &t.Version, &t.ParentTemplateID,
		&t.IsActive, &t.IsArchived, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &t, err
}

func (r *templateRepoPG) Create(ctx context.Context, t *ClinicalTemplate) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinical_templates (id, clinic_id, created_by, name,
			description, category, structure, version, parent_template_id,
			is_active, is_archived)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		t.ID, t.ClinicID, t.CreatedBy, t.Name, t.Description, t.Category,
		t.Structure, t.Version, t.ParentTemplateID, t.IsActive, t.IsArchived)
	return err
}

func (r *templateRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ClinicalTemplate, error) {
	return scanTemplate(r.conn(ctx).QueryRow(ctx,
		`SELECT `+templateCols+` FROM clinical_templates WHERE id = $1 AND deleted_at IS NULL`, id))
}

// Update writes template metadata only. The structure column is written once
// at insert; new structures always land in a new version row.
func (r *templateRepoPG) Update(ctx context.Context, t *ClinicalTemplate) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE clinical_templates SET name=$2, description=$3, category=$4,
			is_active=$5, is_archived=$6, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		t.ID, t.Name, t.Description, t.Category, t.IsActive, t.IsArchived)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *templateRepoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE clinical_templates SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *templateRepoPG) List(ctx context.Context, visible []uuid.UUID, filter TemplateFilter) ([]*ClinicalTemplate, int, error) {
	where := `WHERE clinic_id = ANY($1) AND deleted_at IS NULL`
	args := []interface{}{visible}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(` AND (name ILIKE $%d OR description ILIKE $%d)`, len(args), len(args))
	}
	if filter.ActiveOnly {
		where += ` AND is_active`
	}
	if !filter.IncludeArchived {
		where += ` AND NOT is_archived`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinical_templates `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM clinical_templates %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		templateCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*ClinicalTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

// -- Notes --

type noteRepoPG struct{ pool *pgxpool.Pool }

func NewNoteRepoPG(pool *pgxpool.Pool) NoteRepository {
	return &noteRepoPG{pool: pool}
}

func (r *noteRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const noteCols = `id, patient_id, practitioner_id, appointment_id, clinic_id,
	template_id, template_version, encrypted_content, date, note_type,
	is_signed, signed_at, is_draft, last_autosave, created_at, updated_at`

func scanNote(row pgx.Row) (*ClinicalNote, error) {
	var n ClinicalNote
	err := row.Scan(&n.ID, &n.PatientID, &n.PractitionerID, &n.AppointmentID,
		&n.ClinicID, &n.TemplateID, &n.TemplateVersion, &n.EncryptedContent,
		&n.Date, &n.NoteType, &n.IsSigned, &n.SignedAt, &n.IsDraft,
		&n.LastAutosave, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &n, err
}

func (r *noteRepoPG) Create(ctx context.Context, n *ClinicalNote) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinical_notes (id, patient_id, practitioner_id,
			appointment_id, clinic_id, template_id, template_version,
			encrypted_content, date, note_type, is_signed, is_draft)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		n.ID, n.PatientID, n.PractitionerID, n.AppointmentID, n.ClinicID,
		n.TemplateID, n.TemplateVersion, n.EncryptedContent, n.Date,
		n.NoteType, n.IsSigned, n.IsDraft)
	return err
}

func (r *noteRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ClinicalNote, error) {
	return scanNote(r.conn(ctx).QueryRow(ctx,
		`SELECT `+noteCols+` FROM clinical_notes WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *noteRepoPG) Update(ctx context.Context, n *ClinicalNote) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE clinical_notes SET encrypted_content=$2, date=$3, note_type=$4,
			is_signed=$5, signed_at=$6, is_draft=$7, last_autosave=$8,
			updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		n.ID, n.EncryptedContent, n.Date, n.NoteType, n.IsSigned, n.SignedAt,
		n.IsDraft, n.LastAutosave)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *noteRepoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE clinical_notes SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *noteRepoPG) List(ctx context.Context, visible []uuid.UUID, filter NoteFilter) ([]*ClinicalNote, int, error) {
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
	if filter.Date != nil {
		args = append(args, *filter.Date)
		where += fmt.Sprintf(` AND date = $%d`, len(args))
	}
	if filter.IsDraft != nil {
		args = append(args, *filter.IsDraft)
		where += fmt.Sprintf(` AND is_draft = $%d`, len(args))
	}
	if filter.IsSigned != nil {
		args = append(args, *filter.IsSigned)
		where += fmt.Sprintf(` AND is_signed = $%d`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinical_notes `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM clinical_notes %s ORDER BY date DESC, created_at DESC LIMIT $%d OFFSET $%d`,
		noteCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*ClinicalNote
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

// -- Audit log --

type auditRepoPG struct{ pool *pgxpool.Pool }

func NewAuditRepoPG(pool *pgxpool.Pool) AuditRepository {
	return &auditRepoPG{pool: pool}
}

func (r *auditRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const auditCols = `id, clinical_note_id, user_id, action, ip_address,
	user_agent, changes, created_at`

func (r *auditRepoPG) Append(ctx context.Context, entry *AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Changes == nil {
		entry.Changes = map[string]interface{}{}
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinical_note_audit_logs (id, clinical_note_id, user_id,
			action, ip_address, user_agent, changes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		entry.ID, entry.ClinicalNoteID, entry.UserID, entry.Action,
		entry.IPAddress, entry.UserAgent, entry.Changes)
	return err
}

func (r *auditRepoPG) ListByNote(ctx context.Context, noteID uuid.UUID) ([]*AuditLog, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+auditCols+` FROM clinical_note_audit_logs WHERE clinical_note_id = $1 ORDER BY created_at DESC`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*AuditLog
	for rows.Next() {
		var e AuditLog
		if err := rows.Scan(&e.ID, &e.ClinicalNoteID, &e.UserID, &e.Action,
			&e.IPAddress, &e.UserAgent, &e.Changes, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &e)
	}
	return items, rows.Err()
}
