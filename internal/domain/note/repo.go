package note

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TemplateFilter struct {
	Category        string
	Search          string
	ActiveOnly      bool
	IncludeArchived bool
	Limit           int
	Offset          int
}

type TemplateRepository interface {
	Create(ctx context.Context, t *ClinicalTemplate) error
	GetByID(ctx context.Context, id uuid.UUID) (*ClinicalTemplate, error)
	Update(ctx context.Context, t *ClinicalTemplate) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, visible []uuid.UUID, filter TemplateFilter) ([]*ClinicalTemplate, int, error)
}

type NoteFilter struct {
	PatientID      *uuid.UUID
	PractitionerID *uuid.UUID
	Date           *time.Time
	IsDraft        *bool
	IsSigned       *bool
	Limit          int
	Offset         int
}

type NoteRepository interface {
	Create(ctx context.Context, n *ClinicalNote) error
	GetByID(ctx context.Context, id uuid.UUID) (*ClinicalNote, error)
	Update(ctx context.Context, n *ClinicalNote) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, visible []uuid.UUID, filter NoteFilter) ([]*ClinicalNote, int, error)
}

// AuditRepository is append-only: entries are never updated or removed.
type AuditRepository interface {
	Append(ctx context.Context, entry *AuditLog) error
	ListByNote(ctx context.Context, noteID uuid.UUID) ([]*AuditLog, error)
}
