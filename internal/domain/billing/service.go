package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/clinicore/internal/platform/messaging"
)

var (
	ErrNotFound            = errors.New("billing record not found")
	ErrInvalidMethod       = errors.New("invalid payment method")
	ErrAmountNotPositive   = errors.New("amount must be positive")
	ErrQuantityNotPositive = errors.New("quantity must be positive")
	ErrDescriptionRequired = errors.New("description is required")
	ErrNameRequired        = errors.New("name is required")
	ErrInvalidPercent      = errors.New("percentages must be between 0 and 100")
	ErrInvoiceCancelled    = errors.New("invoice is cancelled")
)

const defaultDueDays = 30

// NumberSequencer issues invoice and receipt numbers. Satisfied by
// *db.Sequencer.
type NumberSequencer interface {
	InvoiceNumber(ctx context.Context, day time.Time) (string, error)
	ReceiptNumber(ctx context.Context, day time.Time) (string, error)
}

// Mailer sends receipt emails. Satisfied by messaging.Dispatcher.
type Mailer interface {
	SendTemplate(ctx context.Context, templateID, recipient string, data map[string]string) error
}

type Service struct {
	invoices InvoiceRepository
	items    ItemRepository
	payments PaymentRepository
	catalog  ServiceRepository
	seq      NumberSequencer
	mailer   Mailer
}

func NewService(invoices InvoiceRepository, items ItemRepository, payments PaymentRepository, catalog ServiceRepository, seq NumberSequencer, mailer Mailer) *Service {
	return &Service{
		invoices: invoices,
		items:    items,
		payments: payments,
		catalog:  catalog,
		seq:      seq,
		mailer:   mailer,
	}
}

// -- Invoices --

func (s *Service) CreateInvoice(ctx context.Context, inv *Invoice) error {
	if inv.PaymentMethod != "" && !ValidMethod(inv.PaymentMethod) {
		return ErrInvalidMethod
	}
	if inv.InvoiceDate.IsZero() {
		inv.InvoiceDate = time.Now()
	}
	if inv.DueDate.IsZero() {
		inv.DueDate = inv.InvoiceDate.AddDate(0, 0, defaultDueDays)
	}
	number, err := s.seq.InvoiceNumber(ctx, inv.InvoiceDate)
	if err != nil {
		return err
	}
	inv.InvoiceNumber = number
	inv.Status = StatusDraft
	inv.Recalculate(nil, 0)
	return s.invoices.Create(ctx, inv)
}

func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID, visible []uuid.UUID) (*Invoice, error) {
	return s.invoices.GetByID(ctx, id, visible)
}

func (s *Service) UpdateInvoice(ctx context.Context, inv *Invoice, visible []uuid.UUID) error {
	if inv.PaymentMethod != "" && !ValidMethod(inv.PaymentMethod) {
		return ErrInvalidMethod
	}
	if _, err := s.invoices.GetByID(ctx, inv.ID, visible); err != nil {
		return err
	}
	if err := s.invoices.Update(ctx, inv); err != nil {
		return err
	}
	updated, err := s.recalc(ctx, inv.ID, visible)
	if err != nil {
		return err
	}
	*inv = *updated
	return nil
}

func (s *Service) DeleteInvoice(ctx context.Context, id uuid.UUID, visible []uuid.UUID) error {
	return s.invoices.SoftDelete(ctx, id, visible)
}

func (s *Service) ListInvoices(ctx context.Context, visible []uuid.UUID, filter InvoiceFilter) ([]*Invoice, int, error) {
	return s.invoices.List(ctx, visible, filter)
}

// MarkPaid settles the outstanding balance by recording a balancing payment,
// leaving amount paid equal to the total. Already settled invoices are
// returned unchanged.
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID, visible []uuid.UUID, receivedBy uuid.UUID) (*Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id, visible)
	if err != nil {
		return nil, err
	}
	if inv.Status == StatusCancelled {
		return nil, ErrInvoiceCancelled
	}
	outstanding := inv.TotalAmount - inv.AmountPaid
	if outstanding <= 0 {
		return inv, nil
	}
	method := inv.PaymentMethod
	if method == "" {
		method = MethodCash
	}
	p := &Payment{
		InvoiceID:     inv.ID,
		PaymentDate:   time.Now(),
		Amount:        outstanding,
		PaymentMethod: method,
		ReceivedBy:    &receivedBy,
	}
	receipt, err := s.seq.ReceiptNumber(ctx, p.PaymentDate)
	if err != nil {
		return nil, err
	}
	p.ReceiptNumber = receipt
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}
	return s.recalc(ctx, inv.ID, visible)
}

func (s *Service) CancelInvoice(ctx context.Context, id uuid.UUID, visible []uuid.UUID) (*Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id, visible)
	if err != nil {
		return nil, err
	}
	inv.Status = StatusCancelled
	if err := s.invoices.Update(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) Summary(ctx context.Context, visible []uuid.UUID, from, to *time.Time) (*Summary, error) {
	return s.invoices.Summarize(ctx, visible, from, to)
}

// -- Invoice items --

func (s *Service) AddItem(ctx context.Context, item *InvoiceItem, visible []uuid.UUID) error {
	inv, err := s.invoices.GetByID(ctx, item.InvoiceID, visible)
	if err != nil {
		return err
	}
	if inv.Status == StatusCancelled {
		return ErrInvoiceCancelled
	}
	if err := validateItem(item); err != nil {
		return err
	}
	item.ComputeTotal()
	if err := s.items.Create(ctx, item); err != nil {
		return err
	}
	_, err = s.recalc(ctx, item.InvoiceID, visible)
	return err
}

func (s *Service) UpdateItem(ctx context.Context, item *InvoiceItem, visible []uuid.UUID) error {
	existing, err := s.items.GetByID(ctx, item.ID)
	if err != nil {
		return err
	}
	item.InvoiceID = existing.InvoiceID
	inv, err := s.invoices.GetByID(ctx, item.InvoiceID, visible)
	if err != nil {
		return err
	}
	if inv.Status == StatusCancelled {
		return ErrInvoiceCancelled
	}
	if err := validateItem(item); err != nil {
		return err
	}
	item.ComputeTotal()
	if err := s.items.Update(ctx, item); err != nil {
		return err
	}
	_, err = s.recalc(ctx, item.InvoiceID, visible)
	return err
}

func (s *Service) RemoveItem(ctx context.Context, id uuid.UUID, visible []uuid.UUID) error {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.invoices.GetByID(ctx, item.InvoiceID, visible); err != nil {
		return err
	}
	if err := s.items.Delete(ctx, id); err != nil {
		return err
	}
	_, err = s.recalc(ctx, item.InvoiceID, visible)
	return err
}

func (s *Service) ListItems(ctx context.Context, invoiceID uuid.UUID, visible []uuid.UUID) ([]*InvoiceItem, error) {
	if _, err := s.invoices.GetByID(ctx, invoiceID, visible); err != nil {
		return nil, err
	}
	return s.items.ListByInvoice(ctx, invoiceID)
}

func validateItem(item *InvoiceItem) error {
	if item.Description == "" {
		return ErrDescriptionRequired
	}
	if item.Quantity <= 0 {
		return ErrQuantityNotPositive
	}
	if item.UnitPrice < 0 {
		return ErrAmountNotPositive
	}
	if item.DiscountPercent < 0 || item.DiscountPercent > 100 ||
		item.TaxPercent < 0 || item.TaxPercent > 100 {
		return ErrInvalidPercent
	}
	return nil
}

// -- Payments --

// RecordPayment stores a payment against an invoice, assigns its receipt
// number and recomputes the invoice balance. When recipient is non-empty a
// receipt email is sent best-effort.
func (s *Service) RecordPayment(ctx context.Context, p *Payment, visible []uuid.UUID, recipient string) (*Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, p.InvoiceID, visible)
	if err != nil {
		return nil, err
	}
	if inv.Status == StatusCancelled {
		return nil, ErrInvoiceCancelled
	}
	if p.Amount <= 0 {
		return nil, ErrAmountNotPositive
	}
	if !ValidMethod(p.PaymentMethod) {
		return nil, ErrInvalidMethod
	}
	if p.PaymentDate.IsZero() {
		p.PaymentDate = time.Now()
	}
	receipt, err := s.seq.ReceiptNumber(ctx, p.PaymentDate)
	if err != nil {
		return nil, err
	}
	p.ReceiptNumber = receipt
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}
	inv, err = s.recalc(ctx, p.InvoiceID, visible)
	if err != nil {
		return nil, err
	}
	if recipient != "" {
		data := map[string]string{
			"receipt_number": p.ReceiptNumber,
			"invoice_number": inv.InvoiceNumber,
			"amount":         p.Amount.String(),
			"balance_due":    inv.BalanceDue.String(),
		}
		if err := s.mailer.SendTemplate(ctx, messaging.TemplateInvoiceReceipt, recipient, data); err != nil {
			log.Warn().Err(err).
				Str("receipt_number", p.ReceiptNumber).
				Msg("receipt email failed")
		}
	}
	return inv, nil
}

func (s *Service) GetPayment(ctx context.Context, id uuid.UUID, visible []uuid.UUID) (*Payment, error) {
	return s.payments.GetByID(ctx, id, visible)
}

func (s *Service) ListPayments(ctx context.Context, visible []uuid.UUID, filter PaymentFilter) ([]*Payment, int, error) {
	return s.payments.List(ctx, visible, filter)
}

// recalc reloads an invoice's items and payment total and persists the
// derived amounts.
func (s *Service) recalc(ctx context.Context, invoiceID uuid.UUID, visible []uuid.UUID) (*Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, invoiceID, visible)
	if err != nil {
		return nil, err
	}
	items, err := s.items.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	paid, err := s.payments.SumForInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	inv.Recalculate(items, paid)
	if err := s.invoices.Update(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// -- Service catalog --

func (s *Service) CreateCatalogService(ctx context.Context, cs *CatalogService) error {
	if err := validateCatalogService(cs); err != nil {
		return err
	}
	cs.IsActive = true
	return s.catalog.Create(ctx, cs)
}

func (s *Service) GetCatalogService(ctx context.Context, id uuid.UUID, visible []uuid.UUID) (*CatalogService, error) {
	return s.catalog.GetByID(ctx, id, visible)
}

func (s *Service) UpdateCatalogService(ctx context.Context, cs *CatalogService, visible []uuid.UUID) error {
	if err := validateCatalogService(cs); err != nil {
		return err
	}
	if _, err := s.catalog.GetByID(ctx, cs.ID, visible); err != nil {
		return err
	}
	return s.catalog.Update(ctx, cs)
}

func (s *Service) DeleteCatalogService(ctx context.Context, id uuid.UUID, visible []uuid.UUID) error {
	return s.catalog.SoftDelete(ctx, id, visible)
}

func (s *Service) ListCatalogServices(ctx context.Context, visible []uuid.UUID, filter ServiceFilter) ([]*CatalogService, int, error) {
	return s.catalog.List(ctx, visible, filter)
}

func validateCatalogService(cs *CatalogService) error {
	if cs.Name == "" {
		return ErrNameRequired
	}
	if cs.DefaultPrice < 0 {
		return ErrAmountNotPositive
	}
	return nil
}
