package contact

import (
	"context"

	"github.com/google/uuid"
)

type ListFilter struct {
	Type          string
	Search        string
	ActiveOnly    bool
	PreferredOnly bool
	Limit         int
	Offset        int
}

type Repository interface {
	Create(ctx context.Context, c *Contact) error
	GetByID(ctx context.Context, id uuid.UUID, visible []uuid.UUID) (*Contact, error)
	Update(ctx context.Context, c *Contact) error
	SoftDelete(ctx context.Context, id uuid.UUID, visible []uuid.UUID) error
	List(ctx context.Context, visible []uuid.UUID, filter ListFilter) ([]*Contact, int, error)
	Stats(ctx context.Context, visible []uuid.UUID) (*Stats, error)
}
