package patient

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPatientRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockPatientRepo) GetByNumber(_ context.Context, number string) (*Patient, error) {
	for _, p := range m.patients {
		if p.PatientNumber == number {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return ErrNotFound
	}
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.patients[id]; !ok {
		return ErrNotFound
	}
	delete(m.patients, id)
	return nil
}

func (m *mockPatientRepo) List(_ context.Context, visible []uuid.UUID, filter ListFilter) ([]*Patient, int, error) {
	var out []*Patient
	for _, p := range m.patients {
		inScope := false
		for _, cid := range visible {
			if p.ClinicID == cid {
				inScope = true
			}
		}
		if !inScope {
			continue
		}
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		if filter.Gender != "" && p.Gender != filter.Gender {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			hay := strings.ToLower(p.FirstName + " " + p.LastName + " " + p.PatientNumber + " " + p.Phone)
			if !strings.Contains(hay, needle) {
				continue
			}
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

type mockIntakeRepo struct {
	forms map[uuid.UUID]*IntakeForm
}

func newMockIntakeRepo() *mockIntakeRepo {
	return &mockIntakeRepo{forms: make(map[uuid.UUID]*IntakeForm)}
}

func (m *mockIntakeRepo) Create(_ context.Context, f *IntakeForm) error {
	f.ID = uuid.New()
	f.CreatedAt = time.Now()
	m.forms[f.ID] = f
	return nil
}

func (m *mockIntakeRepo) GetByID(_ context.Context, id uuid.UUID) (*IntakeForm, error) {
	f, ok := m.forms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return f, nil
}

func (m *mockIntakeRepo) Update(_ context.Context, f *IntakeForm) error {
	if _, ok := m.forms[f.ID]; !ok {
		return ErrNotFound
	}
	m.forms[f.ID] = f
	return nil
}

func (m *mockIntakeRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*IntakeForm, error) {
	var out []*IntakeForm
	for _, f := range m.forms {
		if f.PatientID == patientID {
			out = append(out, f)
		}
	}
	return out, nil
}

type mockSequencer struct {
	n int64
}

func (m *mockSequencer) PatientNumber(_ context.Context, day time.Time) (string, error) {
	m.n++
	return fmt.Sprintf("%s-%04d", day.Format("20060102"), m.n), nil
}

func newTestService() (*Service, *mockPatientRepo, *mockIntakeRepo) {
	patients := newMockPatientRepo()
	intake := newMockIntakeRepo()
	return NewService(patients, intake, &mockSequencer{}), patients, intake
}

func validPatient(clinicID uuid.UUID) *Patient {
	return &Patient{
		ClinicID:    clinicID,
		FirstName:   "Maria",
		LastName:    "Santos",
		DateOfBirth: time.Date(1990, 5, 20, 0, 0, 0, 0, time.UTC),
		Gender:      GenderFemale,
		Phone:       "+639171234567",
	}
}

func TestCreatePatientAssignsNumber(t *testing.T) {
	svc, _, _ := newTestService()
	p := validPatient(uuid.New())

	require.NoError(t, svc.CreatePatient(context.Background(), p))

	today := time.Now().Format("20060102")
	assert.Equal(t, today+"-0001", p.PatientNumber)
	assert.True(t, p.IsActive)

	q := validPatient(p.ClinicID)
	require.NoError(t, svc.CreatePatient(context.Background(), q))
	assert.Equal(t, today+"-0002", q.PatientNumber)
}

func TestCreatePatientValidation(t *testing.T) {
	svc, _, _ := newTestService()

	p := validPatient(uuid.New())
	p.FirstName = "  "
	assert.ErrorIs(t, svc.CreatePatient(context.Background(), p), ErrNameRequired)

	p = validPatient(uuid.New())
	p.DateOfBirth = time.Time{}
	assert.ErrorIs(t, svc.CreatePatient(context.Background(), p), ErrBirthDateNeeded)

	p = validPatient(uuid.New())
	p.Gender = "X"
	assert.ErrorIs(t, svc.CreatePatient(context.Background(), p), ErrInvalidGender)
}

func TestListPatientsScopedAndFiltered(t *testing.T) {
	svc, _, _ := newTestService()
	mine := uuid.New()
	other := uuid.New()

	a := validPatient(mine)
	require.NoError(t, svc.CreatePatient(context.Background(), a))
	b := validPatient(mine)
	b.FirstName = "Juan"
	b.Gender = GenderMale
	require.NoError(t, svc.CreatePatient(context.Background(), b))
	c := validPatient(other)
	require.NoError(t, svc.CreatePatient(context.Background(), c))

	items, total, err := svc.ListPatients(context.Background(), []uuid.UUID{mine}, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)

	items, _, err = svc.ListPatients(context.Background(), []uuid.UUID{mine}, ListFilter{Gender: GenderMale})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Juan", items[0].FirstName)

	items, _, err = svc.ListPatients(context.Background(), []uuid.UUID{mine}, ListFilter{Search: b.PatientNumber})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ID)
}

func TestPatientFullNameAndAge(t *testing.T) {
	p := &Patient{FirstName: "Maria", LastName: "Santos"}
	assert.Equal(t, "Maria Santos", p.FullName())

	p.MiddleName = "Clara"
	assert.Equal(t, "Maria Clara Santos", p.FullName())

	p.DateOfBirth = time.Now().AddDate(-30, 0, -1)
	assert.Equal(t, 30, p.Age())
}

func TestCreateIntakeForm(t *testing.T) {
	svc, _, _ := newTestService()
	p := validPatient(uuid.New())
	require.NoError(t, svc.CreatePatient(context.Background(), p))

	f := &IntakeForm{
		PatientID:      p.ID,
		ChiefComplaint: "Tooth pain",
		ComplaintOnset: "3 days ago",
		ConsentGiven:   true,
	}
	require.NoError(t, svc.CreateIntakeForm(context.Background(), f))
	assert.NotNil(t, f.ConsentDate)

	forms, err := svc.ListIntakeForms(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Len(t, forms, 1)
}

func TestCreateIntakeFormValidation(t *testing.T) {
	svc, _, _ := newTestService()
	p := validPatient(uuid.New())
	require.NoError(t, svc.CreatePatient(context.Background(), p))

	err := svc.CreateIntakeForm(context.Background(), &IntakeForm{PatientID: p.ID})
	assert.ErrorIs(t, err, ErrComplaintNeeded)

	err = svc.CreateIntakeForm(context.Background(), &IntakeForm{
		PatientID:      uuid.New(),
		ChiefComplaint: "Headache",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}
