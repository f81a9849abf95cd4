package report

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("report not found")
	ErrInvalidType   = errors.New("invalid report type")
	ErrTitleRequired = errors.New("title is required")
	ErrInvalidRange  = errors.New("end date is before start date")
)

const defaultRangeDays = 30

type Service struct {
	reports Repository
	stats   StatsRepository
}

func NewService(reports Repository, stats StatsRepository) *Service {
	return &Service{reports: reports, stats: stats}
}

// Generate runs the aggregate for the report's type over its date range and
// persists the result as a snapshot, so the figures survive later edits to
// the underlying rows. CLINICAL reports carry caller-supplied data only.
func (s *Service) Generate(ctx context.Context, rep *Report, visible []uuid.UUID) error {
	if rep.Title == "" {
		return ErrTitleRequired
	}
	if !ValidType(rep.ReportType) {
		return ErrInvalidType
	}
	if rep.EndDate.IsZero() {
		rep.EndDate = time.Now()
	}
	if rep.StartDate.IsZero() {
		rep.StartDate = rep.EndDate.AddDate(0, 0, -defaultRangeDays)
	}
	if rep.EndDate.Before(rep.StartDate) {
		return ErrInvalidRange
	}

	var (
		result interface{}
		err    error
	)
	switch rep.ReportType {
	case TypeAppointments:
		result, err = s.stats.AppointmentsSummary(ctx, visible, rep.StartDate, rep.EndDate)
	case TypeRevenue:
		result, err = s.stats.RevenueSummary(ctx, visible, rep.StartDate, rep.EndDate)
	case TypePatient:
		result, err = s.stats.PatientStats(ctx, visible, monthStart(rep.EndDate))
	case TypePractitioner:
		var perf []*PractitionerPerformance
		perf, err = s.stats.PractitionerPerformance(ctx, visible, rep.StartDate, rep.EndDate)
		result = map[string]interface{}{"practitioners": perf}
	case TypeClinical:
		result = nil
	}
	if err != nil {
		return err
	}
	if result != nil {
		data, err := snapshot(result)
		if err != nil {
			return err
		}
		rep.Data = data
	}
	return s.reports.Create(ctx, rep)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, visible []uuid.UUID) (*Report, error) {
	return s.reports.GetByID(ctx, id, visible)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID, visible []uuid.UUID) error {
	return s.reports.Delete(ctx, id, visible)
}

func (s *Service) List(ctx context.Context, visible []uuid.UUID, filter ListFilter) ([]*Report, int, error) {
	if filter.Type != "" && !ValidType(filter.Type) {
		return nil, 0, ErrInvalidType
	}
	return s.reports.List(ctx, visible, filter)
}

func (s *Service) AppointmentsSummary(ctx context.Context, visible []uuid.UUID, from, to time.Time) (*AppointmentsSummary, error) {
	if to.Before(from) {
		return nil, ErrInvalidRange
	}
	return s.stats.AppointmentsSummary(ctx, visible, from, to)
}

func (s *Service) RevenueSummary(ctx context.Context, visible []uuid.UUID, from, to time.Time) (*RevenueSummary, error) {
	if to.Before(from) {
		return nil, ErrInvalidRange
	}
	return s.stats.RevenueSummary(ctx, visible, from, to)
}

func (s *Service) PatientStats(ctx context.Context, visible []uuid.UUID) (*PatientStats, error) {
	return s.stats.PatientStats(ctx, visible, monthStart(time.Now()))
}

func (s *Service) PractitionerPerformance(ctx context.Context, visible []uuid.UUID, from, to time.Time) ([]*PractitionerPerformance, error) {
	if to.Before(from) {
		return nil, ErrInvalidRange
	}
	return s.stats.PractitionerPerformance(ctx, visible, from, to)
}

func (s *Service) DashboardMetrics(ctx context.Context, visible []uuid.UUID) (*DashboardMetrics, error) {
	return s.stats.DashboardMetrics(ctx, visible, today(time.Now()))
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func today(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func snapshot(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}
