package claim

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ListFilter struct {
	Kind      string
	PatientID *uuid.UUID
	Status    string
	Provider  string
	Search    string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

type Repository interface {
	Create(ctx context.Context, cl *Claim) error
	GetByID(ctx context.Context, id uuid.UUID, visible []uuid.UUID) (*Claim, error)
	GetByNumber(ctx context.Context, number string) (*Claim, error)
	Update(ctx context.Context, cl *Claim) error
	SoftDelete(ctx context.Context, id uuid.UUID, visible []uuid.UUID) error
	List(ctx context.Context, visible []uuid.UUID, filter ListFilter) ([]*Claim, int, error)
}
