package billing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/pkg/money"
)

type InvoiceFilter struct {
	PatientID *uuid.UUID
	Status    string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id uuid.UUID, visible []uuid.UUID) (*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
	SoftDelete(ctx context.Context, id uuid.UUID, visible []uuid.UUID) error
	List(ctx context.Context, visible []uuid.UUID, filter InvoiceFilter) ([]*Invoice, int, error)
	Summarize(ctx context.Context, visible []uuid.UUID, from, to *time.Time) (*Summary, error)
}

type ItemRepository interface {
	Create(ctx context.Context, item *InvoiceItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*InvoiceItem, error)
	Update(ctx context.Context, item *InvoiceItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*InvoiceItem, error)
}

type PaymentFilter struct {
	InvoiceID *uuid.UUID
	Method    string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID, visible []uuid.UUID) (*Payment, error)
	List(ctx context.Context, visible []uuid.UUID, filter PaymentFilter) ([]*Payment, int, error)
	SumForInvoice(ctx context.Context, invoiceID uuid.UUID) (money.Cents, error)
}

type ServiceFilter struct {
	Search     string
	Category   string
	ActiveOnly bool
	Limit      int
	Offset     int
}

type ServiceRepository interface {
	Create(ctx context.Context, s *CatalogService) error
	GetByID(ctx context.Context, id uuid.UUID, visible []uuid.UUID) (*CatalogService, error)
	Update(ctx context.Context, s *CatalogService) error
	SoftDelete(ctx context.Context, id uuid.UUID, visible []uuid.UUID) error
	List(ctx context.Context, visible []uuid.UUID, filter ServiceFilter) ([]*CatalogService, int, error)
}
