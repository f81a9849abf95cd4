package billing

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

// -- Invoices --

type invoiceRepoPG struct{ pool *pgxpool.Pool }

func NewInvoiceRepoPG(pool *pgxpool.Pool) InvoiceRepository {
	return &invoiceRepoPG{pool: pool}
}

func (r *invoiceRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const invoiceCols = `id, clinic_id, patient_id, appointment_id, invoice_number,
	invoice_date, due_date, status, subtotal_cents, discount_cents, tax_cents,
	total_cents, paid_cents, balance_cents, payment_method, payment_notes,
	philhealth_cents, hmo_cents, notes, terms_conditions, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.ClinicID, &inv.PatientID, &inv.AppointmentID,
		&inv.InvoiceNumber, &inv.InvoiceDate, &inv.DueDate, &inv.Status,
		&inv.Subtotal, &inv.DiscountAmount, &inv.TaxAmount, &inv.TotalAmount,
		&inv.AmountPaid, &inv.BalanceDue, &inv.PaymentMethod, &inv.PaymentNotes,
		&inv.PhilHealthCoverage, &inv.HMOCoverage, &inv.Notes,
		&inv.TermsConditions, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &inv, err
}

func (r *invoiceRepoPG) Create(ctx context.Context, inv *Invoice) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO invoices (id, clinic_id, patient_id, appointment_id,
			invoice_number, invoice_date, due_date, status, subtotal_cents,
			discount_cents, tax_cents, total_cents, paid_cents, balance_cents,
			payment_method, payment_notes, philhealth_cents, hmo_cents, notes,
			terms_conditions)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		inv.ID, inv.ClinicID, inv.PatientID, inv.AppointmentID,
		inv.InvoiceNumber, inv.InvoiceDate, inv.DueDate, inv.Status,
		inv.Subtotal, inv.DiscountAmount, inv.TaxAmount, inv.TotalAmount,
		inv.AmountPaid, inv.BalanceDue, inv.PaymentMethod, inv.PaymentNotes,
		inv.PhilHealthCoverage, inv.HMOCoverage, inv.Notes, inv.TermsConditions)
	return err
}

func (r *invoiceRepoPG) GetByID(ctx context.Context, id uuid.UUID, visible []uuid.UUID) (*Invoice, error) {
	return scanInvoice(r.conn(ctx).QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM invoices
		WHERE id = $1 AND clinic_id = ANY($2) AND deleted_at IS NULL`, id, visible))
}

func (r *invoiceRepoPG) Update(ctx context.Context, inv *Invoice) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE invoices SET patient_id=$2, appointment_id=$3, invoice_date=$4,
			due_date=$5, status=$6, subtotal_cents=$7, discount_cents=$8,
			tax_cents=$9, total_cents=$10, paid_cents=$11, balance_cents=$12,
			payment_method=$13, payment_notes=$14, philhealth_cents=$15,
			hmo_cents=$16, notes=$17, terms_conditions=$18, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		inv.ID, inv.PatientID, inv.AppointmentID, inv.InvoiceDate, inv.DueDate,
		inv.Status, inv.Subtotal, inv.DiscountAmount, inv.TaxAmount,
		inv.TotalAmount, inv.AmountPaid, inv.BalanceDue, inv.PaymentMethod,
		inv.PaymentNotes, inv.PhilHealthCoverage, inv.HMOCoverage, inv.Notes,
		inv.TermsConditions)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *invoiceRepoPG) SoftDelete(ctx context.Context, id uuid.UUID, visible []uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE invoices SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND clinic_id = ANY($2) AND deleted_at IS NULL`, id, visible)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *invoiceRepoPG) List(ctx context.Context, visible []uuid.UUID, filter InvoiceFilter) ([]*Invoice, int, error) {
	where := `WHERE clinic_id = ANY($1) AND deleted_at IS NULL`
	args := []interface{}{visible}
	if filter.PatientID != nil {
		args = append(args, *filter.PatientID)
		where += fmt.Sprintf(` AND patient_id = $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += fmt.Sprintf(` AND invoice_date >= $%d`, len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += fmt.Sprintf(` AND invoice_date <= $%d`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM invoices `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM invoices %s ORDER BY invoice_date DESC, invoice_number DESC LIMIT $%d OFFSET $%d`,
		invoiceCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, inv)
	}
	return items, total, rows.Err()
}

func (r *invoiceRepoPG) Summarize(ctx context.Context, visible []uuid.UUID, from, to *time.Time) (*Summary, error) {
	where := `WHERE clinic_id = ANY($1) AND deleted_at IS NULL AND status <> 'CANCELLED'`
	args := []interface{}{visible}
	if from != nil {
		args = append(args, *from)
		where += fmt.Sprintf(` AND invoice_date >= $%d`, len(args))
	}
	if to != nil {
		args = append(args, *to)
		where += fmt.Sprintf(` AND invoice_date <= $%d`, len(args))
	}

	var s Summary
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(total_cents), 0),
			COALESCE(SUM(paid_cents), 0),
			COALESCE(SUM(balance_cents), 0)
		FROM invoices `+where, args...).
		Scan(&s.TotalInvoices, &s.TotalAmount, &s.TotalPaid, &s.TotalOutstanding)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// -- Invoice items --

type itemRepoPG struct{ pool *pgxpool.Pool }

func NewItemRepoPG(pool *pgxpool.Pool) ItemRepository {
	return &itemRepoPG{pool: pool}
}

func (r *itemRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const itemCols = `id, invoice_id, description, quantity, unit_price_cents,
	discount_percent, tax_percent, total_cents, service_code, created_at,
	updated_at`

func scanItem(row pgx.Row) (*InvoiceItem, error) {
	var it InvoiceItem
	err := row.Scan(&it.ID, &it.InvoiceID, &it.Description, &it.Quantity,
		&it.UnitPrice, &it.DiscountPercent, &it.TaxPercent, &it.Total,
		&it.ServiceCode, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &it, err
}

func (r *itemRepoPG) Create(ctx context.Context, item *InvoiceItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO invoice_items (id, invoice_id, description, quantity,
			unit_price_cents, discount_percent, tax_percent, total_cents,
			service_code)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		item.ID, item.InvoiceID, item.Description, item.Quantity,
		item.UnitPrice, item.DiscountPercent, item.TaxPercent, item.Total,
		item.ServiceCode)
	return err
}

func (r *itemRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*InvoiceItem, error) {
	return scanItem(r.conn(ctx).QueryRow(ctx,
		`SELECT `+itemCols+` FROM invoice_items WHERE id = $1`, id))
}

func (r *itemRepoPG) Update(ctx context.Context, item *InvoiceItem) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE invoice_items SET description=$2, quantity=$3,
			unit_price_cents=$4, discount_percent=$5, tax_percent=$6,
			total_cents=$7, service_code=$8, updated_at=NOW()
		WHERE id = $1`,
		item.ID, item.Description, item.Quantity, item.UnitPrice,
		item.DiscountPercent, item.TaxPercent, item.Total, item.ServiceCode)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *itemRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM invoice_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *itemRepoPG) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*InvoiceItem, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+itemCols+` FROM invoice_items WHERE invoice_id = $1 ORDER BY created_at`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*InvoiceItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// -- Payments --

type paymentRepoPG struct{ pool *pgxpool.Pool }

func NewPaymentRepoPG(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepoPG{pool: pool}
}

func (r *paymentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const paymentCols = `p.id, p.invoice_id, p.payment_date, p.amount_cents,
	p.payment_method, p.reference_number, p.notes, p.receipt_number,
	p.received_by, p.created_at, p.updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.InvoiceID, &p.PaymentDate, &p.Amount,
		&p.PaymentMethod, &p.ReferenceNumber, &p.Notes, &p.ReceiptNumber,
		&p.ReceivedBy, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *paymentRepoPG) Create(ctx context.Context, p *Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO payments (id, invoice_id, payment_date, amount_cents,
			payment_method, reference_number, notes, receipt_number, received_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.InvoiceID, p.PaymentDate, p.Amount, p.PaymentMethod,
		p.ReferenceNumber, p.Notes, p.ReceiptNumber, p.ReceivedBy)
	return err
}

func (r *paymentRepoPG) GetByID(ctx context.Context, id uuid.UUID, visible []uuid.UUID) (*Payment, error) {
	return scanPayment(r.conn(ctx).QueryRow(ctx, `
		SELECT `+paymentCols+` FROM payments p
		JOIN invoices i ON i.id = p.invoice_id
		WHERE p.id = $1 AND i.clinic_id = ANY($2)`, id, visible))
}

func (r *paymentRepoPG) List(ctx context.Context, visible []uuid.UUID, filter PaymentFilter) ([]*Payment, int, error) {
	where := `JOIN invoices i ON i.id = p.invoice_id WHERE i.clinic_id = ANY($1)`
	args := []interface{}{visible}
	if filter.InvoiceID != nil {
		args = append(args, *filter.InvoiceID)
		where += fmt.Sprintf(` AND p.invoice_id = $%d`, len(args))
	}
	if filter.Method != "" {
		args = append(args, filter.Method)
		where += fmt.Sprintf(` AND p.payment_method = $%d`, len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += fmt.Sprintf(` AND p.payment_date >= $%d`, len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += fmt.Sprintf(` AND p.payment_date <= $%d`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM payments p `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM payments p %s ORDER BY p.payment_date DESC LIMIT $%d OFFSET $%d`,
		paymentCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *paymentRepoPG) SumForInvoice(ctx context.Context, invoiceID uuid.UUID) (money.Cents, error) {
	var sum money.Cents
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE invoice_id = $1`, invoiceID).Scan(&sum)
	return sum, err
}

// -- Service catalog --

type serviceRepoPG struct{ pool *pgxpool.Pool }

func NewServiceRepoPG(pool *pgxpool.Pool) ServiceRepository {
	return &serviceRepoPG{pool: pool}
}

func (r *serviceRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const serviceCols = `id, clinic_id, name, description, service_code,
	default_price_cents, category, is_active, created_at, updated_at`

func scanCatalogService(row pgx.Row) (*CatalogService, error) {
	var s CatalogService
	err := row.Scan(&s.ID, &s.ClinicID, &s.Name, &s.Description, &s.ServiceCode,
		&s.DefaultPrice, &s.Category, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &s, err
}

func (r *serviceRepoPG) Create(ctx context.Context, s *CatalogService) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO services (id, clinic_id, name, description, service_code,
			default_price_cents, category, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		s.ID, s.ClinicID, s.Name, s.Description, s.ServiceCode, s.DefaultPrice,
		s.Category, s.IsActive)
	return err
}

func (r *serviceRepoPG) GetByID(ctx context.Context, id uuid.UUID, visible []uuid.UUID) (*CatalogService, error) {
	return scanCatalogService(r.conn(ctx).QueryRow(ctx,
		`SELECT `+serviceCols+` FROM services
		WHERE id = $1 AND clinic_id = ANY($2) AND deleted_at IS NULL`, id, visible))
}

func (r *serviceRepoPG) Update(ctx context.Context, s *CatalogService) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE services SET name=$2, description=$3, service_code=$4,
			default_price_cents=$5, category=$6, is_active=$7, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		s.ID, s.Name, s.Description, s.ServiceCode, s.DefaultPrice, s.Category,
		s.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *serviceRepoPG) SoftDelete(ctx context.Context, id uuid.UUID, visible []uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE services SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND clinic_id = ANY($2) AND deleted_at IS NULL`, id, visible)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *serviceRepoPG) List(ctx context.Context, visible []uuid.UUID, filter ServiceFilter) ([]*CatalogService, int, error) {
	where := `WHERE clinic_id = ANY($1) AND deleted_at IS NULL`
	args := []interface{}{visible}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(` AND (name ILIKE $%d OR service_code ILIKE $%d)`,
			len(args), len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	if filter.ActiveOnly {
		where += ` AND is_active`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM services `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM services %s ORDER BY name LIMIT $%d OFFSET $%d`,
		serviceCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*CatalogService
	for rows.Next() {
		s, err := scanCatalogService(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}
