package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows appointment listings. From/To bound the appointment
// date inclusively.
type ListFilter struct {
	PatientID      *uuid.UUID
	PractitionerID *uuid.UUID
	Status         string
	Type           string
	From           *time.Time
	To             *time.Time
	Limit          int
	Offset         int
}

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, visible []uuid.UUID, filter ListFilter) ([]*Appointment, int, error)
	// ListActiveForDay returns the practitioner's appointments in an active
	// status on the given date, excluding excludeID when non-nil.
	ListActiveForDay(ctx context.Context, practitionerID uuid.UUID, date time.Time, excludeID *uuid.UUID) ([]*Appointment, error)
}

type ScheduleRepository interface {
	Create(ctx context.Context, s *Schedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error)
	Update(ctx context.Context, s *Schedule) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]*Schedule, error)
}
