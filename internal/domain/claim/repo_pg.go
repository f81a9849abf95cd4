package claim

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

const claimCols = `id, clinic_id, patient_id, invoice_id, kind, claim_number,
	claim_date, service_date, philhealth_number, case_type, hmo_provider,
	hmo_number, authorization_code, claim_amount_cents, approved_amount_cents,
	status, documents, submission_date, processing_notes, denial_reason,
	created_at, updated_at`

func scanClaim(row pgx.Row) (*Claim, error) {
	var cl Claim
	err := row.Scan(&cl.ID, &cl.ClinicID, &cl.PatientID, &cl.InvoiceID,
		&cl.Kind, &cl.ClaimNumber, &cl.ClaimDate, &cl.ServiceDate,
		&cl.PhilHealthNumber, &cl.CaseType, &cl.HMOProvider, &cl.HMONumber,
		&cl.AuthorizationCode, &cl.ClaimAmount, &cl.ApprovedAmount, &cl.Status,
		&cl.Documents, &cl.SubmissionDate, &cl.ProcessingNotes,
		&cl.DenialReason, &cl.CreatedAt, &cl.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &cl, err
}

func (r *repoPG) Create(ctx context.Context, cl *Claim) error {
	if cl.ID == uuid.Nil {
		cl.ID = uuid.New()
	}
	if cl.Documents == nil {
		cl.Documents = []string{}
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO insurance_claims (id, clinic_id, patient_id, invoice_id,
			kind, claim_number, claim_date, service_date, philhealth_number,
			case_type, hmo_provider, hmo_number, authorization_code,
			claim_amount_cents, approved_amount_cents, status, documents,
			submission_date, processing_notes, denial_reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		cl.ID, cl.ClinicID, cl.PatientID, cl.InvoiceID, cl.Kind,
		cl.ClaimNumber, cl.ClaimDate, cl.ServiceDate, cl.PhilHealthNumber,
		cl.CaseType, cl.HMOProvider, cl.HMONumber, cl.AuthorizationCode,
		cl.ClaimAmount, cl.ApprovedAmount, cl.Status, cl.Documents,
		cl.SubmissionDate, cl.ProcessingNotes, cl.DenialReason)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID, visible []uuid.UUID) (*Claim, error) {
	return scanClaim(r.conn(ctx).QueryRow(ctx,
		`SELECT `+claimCols+` FROM insurance_claims
		WHERE id = $1 AND clinic_id = ANY($2) AND deleted_at IS NULL`, id, visible))
}

func (r *repoPG) GetByNumber(ctx context.Context, number string) (*Claim, error) {
	return scanClaim(r.conn(ctx).QueryRow(ctx,
		`SELECT `+claimCols+` FROM insurance_claims
		WHERE claim_number = $1 AND deleted_at IS NULL`, number))
}

func (r *repoPG) Update(ctx context.Context, cl *Claim) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE insurance_claims SET invoice_id=$2, claim_date=$3,
			service_date=$4, philhealth_number=$5, case_type=$6,
			hmo_provider=$7, hmo_number=$8, authorization_code=$9,
			claim_amount_cents=$10, approved_amount_cents=$11, status=$12,
			documents=$13, submission_date=$14, processing_notes=$15,
			denial_reason=$16, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		cl.ID, cl.InvoiceID, cl.ClaimDate, cl.ServiceDate,
		cl.PhilHealthNumber, cl.CaseType, cl.HMOProvider, cl.HMONumber,
		cl.AuthorizationCode, cl.ClaimAmount, cl.ApprovedAmount, cl.Status,
		cl.Documents, cl.SubmissionDate, cl.ProcessingNotes, cl.DenialReason)
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
		UPDATE insurance_claims SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND clinic_id = ANY($2) AND deleted_at IS NULL`, id, visible)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, visible []uuid.UUID, filter ListFilter) ([]*Claim, int, error) {
	where := `WHERE clinic_id = ANY($1) AND deleted_at IS NULL`
	args := []interface{}{visible}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		where += fmt.Sprintf(` AND kind = $%d`, len(args))
	}
	if filter.PatientID != nil {
		args = append(args, *filter.PatientID)
		where += fmt.Sprintf(` AND patient_id = $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filter.Provider != "" {
		args = append(args, filter.Provider)
		where += fmt.Sprintf(` AND hmo_provider = $%d`, len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(` AND (claim_number ILIKE $%d OR philhealth_number ILIKE $%d OR hmo_number ILIKE $%d)`,
			len(args), len(args), len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += fmt.Sprintf(` AND claim_date >= $%d`, len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += fmt.Sprintf(` AND claim_date <= $%d`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM insurance_claims `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM insurance_claims %s ORDER BY claim_date DESC LIMIT $%d OFFSET $%d`,
		claimCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Claim
	for rows.Next() {
		cl, err := scanClaim(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, cl)
	}
	return items, total, rows.Err()
}
