package report

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore/pkg/money"
)

type mockRepo struct {
	reports map[uuid.UUID]*Report
}

func newMockRepo() *mockRepo {
	return &mockRepo{reports: map[uuid.UUID]*Report{}}
}

func visibleTo(clinicID uuid.UUID, visible []uuid.UUID) bool {
	for _, id := range visible {
		if id == clinicID {
			return true
		}
	}
	return false
}

func (m *mockRepo) Create(_ context.Context, r *Report) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	clone := *r
	m.reports[r.ID] = &clone
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID, visible []uuid.UUID) (*Report, error) {
	r, ok := m.reports[id]
	if !ok || !visibleTo(r.ClinicID, visible) {
		return nil, ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID, visible []uuid.UUID) error {
	r, ok := m.reports[id]
	if !ok || !visibleTo(r.ClinicID, visible) {
		return ErrNotFound
	}
	delete(m.reports, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, visible []uuid.UUID, filter ListFilter) ([]*Report, int, error) {
	var items []*Report
	for _, r := range m.reports {
		if !visibleTo(r.ClinicID, visible) {
			continue
		}
		if filter.Type != "" && r.ReportType != filter.Type {
			continue
		}
		clone := *r
		items = append(items, &clone)
	}
	return items, len(items), nil
}

// mockStats returns canned aggregates and records the ranges it was asked for.
type mockStats struct {
	appointments *AppointmentsSummary
	revenue      *RevenueSummary
	patients     *PatientStats
	performance  []*PractitionerPerformance
	dashboard    *DashboardMetrics

	lastFrom time.Time
	lastTo   time.Time
}

func (m *mockStats) AppointmentsSummary(_ context.Context, _ []uuid.UUID, from, to time.Time) (*AppointmentsSummary, error) {
	m.lastFrom, m.lastTo = from, to
	return m.appointments, nil
}

func (m *mockStats) RevenueSummary(_ context.Context, _ []uuid.UUID, from, to time.Time) (*RevenueSummary, error) {
	m.lastFrom, m.lastTo = from, to
	return m.revenue, nil
}

func (m *mockStats) PatientStats(_ context.Context, _ []uuid.UUID, monthStart time.Time) (*PatientStats, error) {
	m.lastFrom = monthStart
	return m.patients, nil
}

func (m *mockStats) PractitionerPerformance(_ context.Context, _ []uuid.UUID, from, to time.Time) ([]*PractitionerPerformance, error) {
	m.lastFrom, m.lastTo = from, to
	return m.performance, nil
}

func (m *mockStats) DashboardMetrics(_ context.Context, _ []uuid.UUID, today time.Time) (*DashboardMetrics, error) {
	m.lastFrom = today
	return m.dashboard, nil
}

func newFixture() (*Service, *mockRepo, *mockStats, uuid.UUID) {
	repo := newMockRepo()
	stats := &mockStats{
		appointments: &AppointmentsSummary{
			TotalAppointments: 12,
			Completed:         9,
			Cancelled:         2,
			NoShow:            1,
			ByType:            map[string]int{"CONSULTATION": 8, "FOLLOW_UP": 4},
		},
		revenue: &RevenueSummary{
			TotalInvoiced: 500000,
			TotalPaid:     350000,
			Outstanding:   150000,
			ByMethod:      map[string]money.Cents{"CASH": 200000, "GCASH": 150000},
			InvoiceCount:  5,
			PaymentCount:  4,
		},
		patients: &PatientStats{TotalPatients: 40, ActivePatients: 35, NewThisMonth: 3},
		performance: []*PractitionerPerformance{
			{PractitionerID: uuid.New(), Name: "Maria Santos", TotalAppointments: 12, Completed: 9, Revenue: 350000},
		},
		dashboard: &DashboardMetrics{TodayAppointments: 4, TodayPending: 2, MonthRevenue: 120000},
	}
	clinicID := uuid.New()
	return NewService(repo, stats), repo, stats, clinicID
}

func TestGenerateAppointmentsSnapshot(t *testing.T) {
	svc, repo, _, clinicID := newFixture()
	ctx := context.Background()

	rep := &Report{
		ClinicID:   clinicID,
		ReportType: TypeAppointments,
		Title:      "September appointments",
		StartDate:  time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, svc.Generate(ctx, rep, []uuid.UUID{clinicID}))

	stored, err := repo.GetByID(ctx, rep.ID, []uuid.UUID{clinicID})
	require.NoError(t, err)
	assert.Equal(t, float64(12), stored.Data["total_appointments"])
	assert.Equal(t, float64(9), stored.Data["completed"])
	byType, ok := stored.Data["by_type"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(8), byType["CONSULTATION"])
}

func TestGenerateDefaultsRange(t *testing.T) {
	svc, _, stats, clinicID := newFixture()

	rep := &Report{ClinicID: clinicID, ReportType: TypeRevenue, Title: "Revenue"}
	require.NoError(t, svc.Generate(context.Background(), rep, []uuid.UUID{clinicID}))

	assert.False(t, rep.StartDate.IsZero())
	assert.False(t, rep.EndDate.IsZero())
	assert.Equal(t, rep.EndDate.AddDate(0, 0, -defaultRangeDays), rep.StartDate)
	assert.Equal(t, rep.StartDate, stats.lastFrom)
	assert.Equal(t, rep.EndDate, stats.lastTo)
}

func TestGeneratePractitionerWrapsSlice(t *testing.T) {
	svc, repo, _, clinicID := newFixture()
	ctx := context.Background()

	rep := &Report{ClinicID: clinicID, ReportType: TypePractitioner, Title: "Performance"}
	require.NoError(t, svc.Generate(ctx, rep, []uuid.UUID{clinicID}))

	stored, err := repo.GetByID(ctx, rep.ID, []uuid.UUID{clinicID})
	require.NoError(t, err)
	practitioners, ok := stored.Data["practitioners"].([]interface{})
	require.True(t, ok)
	require.Len(t, practitioners, 1)
	first, ok := practitioners[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Maria Santos", first["name"])
}

func TestGenerateClinicalKeepsCallerData(t *testing.T) {
	svc, repo, _, clinicID := newFixture()
	ctx := context.Background()

	rep := &Report{
		ClinicID:   clinicID,
		ReportType: TypeClinical,
		Title:      "Chart audit",
		Data:       map[string]interface{}{"notes_reviewed": 17},
	}
	require.NoError(t, svc.Generate(ctx, rep, []uuid.UUID{clinicID}))

	stored, err := repo.GetByID(ctx, rep.ID, []uuid.UUID{clinicID})
	require.NoError(t, err)
	assert.Equal(t, 17, stored.Data["notes_reviewed"])
}

func TestGenerateValidation(t *testing.T) {
	svc, _, _, clinicID := newFixture()
	ctx := context.Background()
	visible := []uuid.UUID{clinicID}

	cases := []struct {
		name string
		rep  *Report
		want error
	}{
		{"missing title", &Report{ClinicID: clinicID, ReportType: TypeRevenue}, ErrTitleRequired},
		{"unknown type", &Report{ClinicID: clinicID, ReportType: "WEATHER", Title: "x"}, ErrInvalidType},
		{"inverted range", &Report{
			ClinicID:   clinicID,
			ReportType: TypeRevenue,
			Title:      "x",
			StartDate:  time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
			EndDate:    time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		}, ErrInvalidRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, svc.Generate(ctx, tc.rep, visible), tc.want)
		})
	}
}

func TestLiveSummariesRejectInvertedRange(t *testing.T) {
	svc, _, _, clinicID := newFixture()
	ctx := context.Background()
	visible := []uuid.UUID{clinicID}
	from := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.AppointmentsSummary(ctx, visible, from, to)
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = svc.RevenueSummary(ctx, visible, from, to)
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = svc.PractitionerPerformance(ctx, visible, from, to)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestPatientStatsUsesMonthStart(t *testing.T) {
	svc, _, stats, clinicID := newFixture()

	got, err := svc.PatientStats(context.Background(), []uuid.UUID{clinicID})
	require.NoError(t, err)
	assert.Equal(t, 40, got.TotalPatients)
	assert.Equal(t, 1, stats.lastFrom.Day())
	assert.Equal(t, 0, stats.lastFrom.Hour())
}

func TestDashboardMetricsUsesToday(t *testing.T) {
	svc, _, stats, clinicID := newFixture()

	got, err := svc.DashboardMetrics(context.Background(), []uuid.UUID{clinicID})
	require.NoError(t, err)
	assert.Equal(t, 4, got.TodayAppointments)
	assert.Equal(t, 0, stats.lastFrom.Hour())
	assert.Equal(t, time.Now().Day(), stats.lastFrom.Day())
}

func TestListFiltersByType(t *testing.T) {
	svc, repo, _, clinicID := newFixture()
	ctx := context.Background()
	visible := []uuid.UUID{clinicID}

	require.NoError(t, repo.Create(ctx, &Report{ClinicID: clinicID, ReportType: TypeRevenue, Title: "a"}))
	require.NoError(t, repo.Create(ctx, &Report{ClinicID: clinicID, ReportType: TypeAppointments, Title: "b"}))

	items, total, err := svc.List(ctx, visible, ListFilter{Type: TypeRevenue})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].Title)

	_, _, err = svc.List(ctx, visible, ListFilter{Type: "WEATHER"})
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestReportVisibility(t *testing.T) {
	svc, repo, _, clinicID := newFixture()
	ctx := context.Background()

	rep := &Report{ClinicID: clinicID, ReportType: TypeRevenue, Title: "mine"}
	require.NoError(t, repo.Create(ctx, rep))

	other := []uuid.UUID{uuid.New()}
	_, err := svc.Get(ctx, rep.ID, other)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, rep.ID, other), ErrNotFound)

	_, err = svc.Get(ctx, rep.ID, []uuid.UUID{clinicID})
	assert.NoError(t, err)
}
