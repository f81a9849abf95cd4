package report

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ListFilter struct {
	Type   string
	Limit  int
	Offset int
}

type Repository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id uuid.UUID, visible []uuid.UUID) (*Report, error)
	Delete(ctx context.Context, id uuid.UUID, visible []uuid.UUID) error
	List(ctx context.Context, visible []uuid.UUID, filter ListFilter) ([]*Report, int, error)
}

// StatsRepository runs the aggregate queries behind each summary. Ranges are
// inclusive of both endpoints.
type StatsRepository interface {
	AppointmentsSummary(ctx context.Context, visible []uuid.UUID, from, to time.Time) (*AppointmentsSummary, error)
	RevenueSummary(ctx context.Context, visible []uuid.UUID, from, to time.Time) (*RevenueSummary, error)
	PatientStats(ctx context.Context, visible []uuid.UUID, monthStart time.Time) (*PatientStats, error)
	PractitionerPerformance(ctx context.Context, visible []uuid.UUID, from, to time.Time) ([]*PractitionerPerformance, error)
	DashboardMetrics(ctx context.Context, visible []uuid.UUID, today time.Time) (*DashboardMetrics, error)
}
