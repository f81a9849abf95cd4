// Package billing covers invoices, their line items and payments, and the
// clinic's service catalog. All amounts are integer centavos; invoice
// totals are derived from items and payments on every mutating save.
package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/pkg/money"
)

const (
	StatusDraft         = "DRAFT"
	StatusPending       = "PENDING"
	StatusPaid          = "PAID"
	StatusPartiallyPaid = "PARTIALLY_PAID"
	StatusOverdue       = "OVERDUE"
	StatusCancelled     = "CANCELLED"
)

const (
	MethodCash         = "CASH"
	MethodCreditCard   = "CREDIT_CARD"
	MethodDebitCard    = "DEBIT_CARD"
	MethodBankTransfer = "BANK_TRANSFER"
	MethodGCash        = "GCASH"
	MethodPayMaya      = "PAYMAYA"
	MethodCheck        = "CHECK"
)

func ValidMethod(m string) bool {
	switch m {
	case MethodCash, MethodCreditCard, MethodDebitCard, MethodBankTransfer,
		MethodGCash, MethodPayMaya, MethodCheck:
		return true
	}
	return false
}

type Invoice struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	ClinicID      uuid.UUID  `json:"clinic_id" db:"clinic_id"`
	PatientID     uuid.UUID  `json:"patient_id" db:"patient_id"`
	AppointmentID *uuid.UUID `json:"appointment_id" db:"appointment_id"`

	InvoiceNumber string    `json:"invoice_number" db:"invoice_number"`
	InvoiceDate   time.Time `json:"invoice_date" db:"invoice_date"`
	DueDate       time.Time `json:"due_date" db:"due_date"`
	Status        string    `json:"status" db:"status"`

	Subtotal       money.Cents `json:"subtotal" db:"subtotal_cents"`
	DiscountAmount money.Cents `json:"discount_amount" db:"discount_cents"`
	TaxAmount      money.Cents `json:"tax_amount" db:"tax_cents"`
	TotalAmount    money.Cents `json:"total_amount" db:"total_cents"`
	AmountPaid     money.Cents `json:"amount_paid" db:"paid_cents"`
	BalanceDue     money.Cents `json:"balance_due" db:"balance_cents"`

	PaymentMethod string `json:"payment_method" db:"payment_method"`
	PaymentNotes  string `json:"payment_notes" db:"payment_notes"`

	PhilHealthCoverage money.Cents `json:"philhealth_coverage" db:"philhealth_cents"`
	HMOCoverage        money.Cents `json:"hmo_coverage" db:"hmo_cents"`

	Notes           string `json:"notes" db:"notes"`
	TermsConditions string `json:"terms_conditions" db:"terms_conditions"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Recalculate derives subtotal, total, amount paid and balance from the
// invoice's items and payments. Overpayment leaves a negative balance with
// status PAID. Cancelled invoices keep their status.
func (inv *Invoice) Recalculate(items []*InvoiceItem, paymentsTotal money.Cents) {
	inv.Subtotal = 0
	for _, item := range items {
		inv.Subtotal += item.Total
	}
	inv.TotalAmount = inv.Subtotal - inv.DiscountAmount + inv.TaxAmount
	inv.AmountPaid = paymentsTotal
	inv.BalanceDue = inv.TotalAmount - inv.AmountPaid - inv.PhilHealthCoverage - inv.HMOCoverage

	if inv.Status == StatusCancelled {
		return
	}
	switch {
	case inv.AmountPaid > 0 && inv.AmountPaid >= inv.TotalAmount:
		inv.Status = StatusPaid
	case inv.AmountPaid > 0:
		inv.Status = StatusPartiallyPaid
	}
}

type InvoiceItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	InvoiceID uuid.UUID `json:"invoice_id" db:"invoice_id"`

	Description     string      `json:"description" db:"description"`
	Quantity        int64       `json:"quantity" db:"quantity"`
	UnitPrice       money.Cents `json:"unit_price" db:"unit_price_cents"`
	DiscountPercent float64     `json:"discount_percent" db:"discount_percent"`
	TaxPercent      float64     `json:"tax_percent" db:"tax_percent"`
	Total           money.Cents `json:"total" db:"total_cents"`

	ServiceCode string `json:"service_code" db:"service_code"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ComputeTotal recomputes the line total: quantity times unit price, minus
// the discount percentage, plus tax on the discounted amount.
func (it *InvoiceItem) ComputeTotal() {
	subtotal := it.UnitPrice.Mul(it.Quantity)
	afterDiscount := subtotal - subtotal.Percent(it.DiscountPercent)
	it.Total = afterDiscount + afterDiscount.Percent(it.TaxPercent)
}

type Payment struct {
	ID        uuid.UUID `json:"id" db:"id"`
	InvoiceID uuid.UUID `json:"invoice_id" db:"invoice_id"`

	PaymentDate   time.Time   `json:"payment_date" db:"payment_date"`
	Amount        money.Cents `json:"amount" db:"amount_cents"`
	PaymentMethod string      `json:"payment_method" db:"payment_method"`

	ReferenceNumber string `json:"reference_number" db:"reference_number"`
	Notes           string `json:"notes" db:"notes"`

	// Assigned once on create, format RCP-YYYYMMDD-NNNN.
	ReceiptNumber string     `json:"receipt_number" db:"receipt_number"`
	ReceivedBy    *uuid.UUID `json:"received_by" db:"received_by"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CatalogService is a catalog entry used to prefill invoice items.
type CatalogService struct {
	ID       uuid.UUID `json:"id" db:"id"`
	ClinicID uuid.UUID `json:"clinic_id" db:"clinic_id"`

	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	ServiceCode string `json:"service_code" db:"service_code"`

	DefaultPrice money.Cents `json:"default_price" db:"default_price_cents"`
	Category     string      `json:"category" db:"category"`
	IsActive     bool        `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Summary aggregates invoice statistics across the caller's visible clinics.
type Summary struct {
	TotalInvoices    int         `json:"total_invoices"`
	TotalAmount      money.Cents `json:"total_amount"`
	TotalPaid        money.Cents `json:"total_paid"`
	TotalOutstanding money.Cents `json:"total_outstanding"`
}
