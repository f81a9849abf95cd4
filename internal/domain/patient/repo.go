package patient

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows patient listings. Search matches name, patient number,
// phone and email.
type ListFilter struct {
	Search     string
	Gender     string
	ActiveOnly bool
	Limit      int
	Offset     int
}

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByNumber(ctx context.Context, number string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, visible []uuid.UUID, filter ListFilter) ([]*Patient, int, error)
}

type IntakeFormRepository interface {
	Create(ctx context.Context, f *IntakeForm) error
	GetByID(ctx context.Context, id uuid.UUID) (*IntakeForm, error)
	Update(ctx context.Context, f *IntakeForm) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*IntakeForm, error)
}
