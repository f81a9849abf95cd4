package patient

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("patient not found")
	ErrNameRequired    = errors.New("first and last name are required")
	ErrBirthDateNeeded = errors.New("date of birth is required")
	ErrInvalidGender   = errors.New("gender must be M, F or O")
	ErrComplaintNeeded = errors.New("chief complaint is required")
)

// NumberSequencer hands out date-scoped patient numbers.
type NumberSequencer interface {
	PatientNumber(ctx context.Context, day time.Time) (string, error)
}

type Service struct {
	patients Repository
	intake   IntakeFormRepository
	seq      NumberSequencer
}

func NewService(patients Repository, intake IntakeFormRepository, seq NumberSequencer) *Service {
	return &Service{patients: patients, intake: intake, seq: seq}
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if err := validatePatient(p); err != nil {
		return err
	}
	number, err := s.seq.PatientNumber(ctx, time.Now())
	if err != nil {
		return err
	}
	p.PatientNumber = number
	p.IsActive = true
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetPatientByNumber(ctx context.Context, number string) (*Patient, error) {
	return s.patients.GetByNumber(ctx, number)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if err := validatePatient(p); err != nil {
		return err
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.patients.SoftDelete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, visible []uuid.UUID, filter ListFilter) ([]*Patient, int, error) {
	return s.patients.List(ctx, visible, filter)
}

func validatePatient(p *Patient) error {
	if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
		return ErrNameRequired
	}
	if p.DateOfBirth.IsZero() {
		return ErrBirthDateNeeded
	}
	if !ValidGender(p.Gender) {
		return ErrInvalidGender
	}
	return nil
}

// -- Intake forms --

func (s *Service) CreateIntakeForm(ctx context.Context, f *IntakeForm) error {
	if strings.TrimSpace(f.ChiefComplaint) == "" {
		return ErrComplaintNeeded
	}
	if _, err := s.patients.GetByID(ctx, f.PatientID); err != nil {
		return err
	}
	if f.ConsentGiven && f.ConsentDate == nil {
		now := time.Now()
		f.ConsentDate = &now
	}
	return s.intake.Create(ctx, f)
}

func (s *Service) GetIntakeForm(ctx context.Context, id uuid.UUID) (*IntakeForm, error) {
	return s.intake.GetByID(ctx, id)
}

func (s *Service) UpdateIntakeForm(ctx context.Context, f *IntakeForm) error {
	if strings.TrimSpace(f.ChiefComplaint) == "" {
		return ErrComplaintNeeded
	}
	if f.ConsentGiven && f.ConsentDate == nil {
		now := time.Now()
		f.ConsentDate = &now
	}
	return s.intake.Update(ctx, f)
}

func (s *Service) ListIntakeForms(ctx context.Context, patientID uuid.UUID) ([]*IntakeForm, error) {
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, err
	}
	return s.intake.ListByPatient(ctx, patientID)
}
