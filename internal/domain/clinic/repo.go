package clinic

import (
	"context"

	"github.com/google/uuid"
)

type ClinicRepository interface {
	Create(ctx context.Context, c *Clinic) error
	GetByID(ctx context.Context, id uuid.UUID) (*Clinic, error)
	Update(ctx context.Context, c *Clinic) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, visible []uuid.UUID, search string, limit, offset int) ([]*Clinic, int, error)
	ListBranches(ctx context.Context, parentID uuid.UUID) ([]*Clinic, error)
	BranchCodeExists(ctx context.Context, code string) (bool, error)

	// VisibleClinicIDs and PractitionerIDForUser implement scope.Resolver.
	VisibleClinicIDs(ctx context.Context, clinicID uuid.UUID) ([]uuid.UUID, error)
	PractitionerIDForUser(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error)
}

type LocationRepository interface {
	Create(ctx context.Context, l *Location) error
	GetByID(ctx context.Context, id uuid.UUID) (*Location, error)
	Update(ctx context.Context, l *Location) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, visible []uuid.UUID, limit, offset int) ([]*Location, int, error)
}

type PractitionerRepository interface {
	Create(ctx context.Context, p *Practitioner) error
	GetByID(ctx context.Context, id uuid.UUID) (*Practitioner, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Practitioner, error)
	Update(ctx context.Context, p *Practitioner) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, visible []uuid.UUID, acceptingOnly bool, limit, offset int) ([]*Practitioner, int, error)
}
