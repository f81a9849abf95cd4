package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrBranchOfBranch      = errors.New("a branch cannot have branches of its own")
	ErrInvalidPlan         = errors.New("invalid subscription plan")
	ErrNameRequired        = errors.New("name is required")
	ErrParentNotFound      = errors.New("parent clinic not found")
	ErrBranchCodeExhausted = errors.New("could not allocate a unique branch code")
)

// BranchSequencer allocates monotonically increasing branch numbers per root
// clinic family.
type BranchSequencer interface {
	BranchSequence(ctx context.Context, rootClinicID string) (int64, error)
}

type Service struct {
	clinics       ClinicRepository
	locations     LocationRepository
	practitioners PractitionerRepository
	seq           BranchSequencer
}

func NewService(clinics ClinicRepository, locations LocationRepository, practitioners PractitionerRepository, seq BranchSequencer) *Service {
	return &Service{
		clinics:       clinics,
		locations:     locations,
		practitioners: practitioners,
		seq:           seq,
	}
}

// -- Clinics --

func (s *Service) CreateClinic(ctx context.Context, c *Clinic) error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameRequired
	}
	if c.SubscriptionPlan == "" {
		c.SubscriptionPlan = PlanTrial
	}
	if !ValidPlan(c.SubscriptionPlan) {
		return ErrInvalidPlan
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Manila"
	}
	c.IsActive = true
	c.ParentClinicID = nil
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	// Every clinic gets a code from its family counter; the root draws the
	// first number, so its branches continue at -0002.
	code, err := s.allocateBranchCode(ctx, c)
	if err != nil {
		return err
	}
	c.BranchCode = code
	return s.clinics.Create(ctx, c)
}

// CreateBranch creates a branch under a root clinic, allocating its branch
// code from the family's counter. Registering a branch under another branch
// is rejected.
func (s *Service) CreateBranch(ctx context.Context, parentID uuid.UUID, c *Clinic) error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameRequired
	}
	parent, err := s.clinics.GetByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrParentNotFound
		}
		return err
	}
	if parent.IsBranch() {
		return ErrBranchOfBranch
	}

	code, err := s.allocateBranchCode(ctx, parent)
	if err != nil {
		return err
	}

	if c.SubscriptionPlan == "" {
		c.SubscriptionPlan = parent.SubscriptionPlan
	}
	if !ValidPlan(c.SubscriptionPlan) {
		return ErrInvalidPlan
	}
	if c.Timezone == "" {
		c.Timezone = parent.Timezone
	}
	c.IsActive = true
	c.ParentClinicID = &parent.ID
	c.BranchCode = code
	return s.clinics.Create(ctx, c)
}

// allocateBranchCode draws numbers from the family counter until a free code
// is found. The counter makes concurrent registrations draw distinct numbers;
// the existence probe only matters when codes were assigned out of band.
func (s *Service) allocateBranchCode(ctx context.Context, root *Clinic) (string, error) {
	prefix := sanitizeName(root.Name)
	for attempt := 0; attempt < 25; attempt++ {
		n, err := s.seq.BranchSequence(ctx, root.ID.String())
		if err != nil {
			return "", fmt.Errorf("allocate branch sequence: %w", err)
		}
		code := fmt.Sprintf("%s-%04d", prefix, n)
		exists, err := s.clinics.BranchCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrBranchCodeExhausted
}

// sanitizeName strips whitespace and non-alphanumerics from a clinic name,
// preserving case, so "Clinic Test" prefixes codes as "ClinicTest".
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		out = "Clinic"
	}
	return out
}

func (s *Service) GetClinic(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	return s.clinics.GetByID(ctx, id)
}

func (s *Service) UpdateClinic(ctx context.Context, c *Clinic) error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameRequired
	}
	if !ValidPlan(c.SubscriptionPlan) {
		return ErrInvalidPlan
	}
	return s.clinics.Update(ctx, c)
}

func (s *Service) DeleteClinic(ctx context.Context, id uuid.UUID) error {
	return s.clinics.SoftDelete(ctx, id)
}

func (s *Service) ListClinics(ctx context.Context, visible []uuid.UUID, search string, limit, offset int) ([]*Clinic, int, error) {
	return s.clinics.List(ctx, visible, search, limit, offset)
}

func (s *Service) ListBranches(ctx context.Context, parentID uuid.UUID) ([]*Clinic, error) {
	return s.clinics.ListBranches(ctx, parentID)
}

// -- Locations --

func (s *Service) CreateLocation(ctx context.Context, l *Location) error {
	if strings.TrimSpace(l.Name) == "" {
		return ErrNameRequired
	}
	l.IsActive = true
	return s.locations.Create(ctx, l)
}

func (s *Service) GetLocation(ctx context.Context, id uuid.UUID) (*Location, error) {
	return s.locations.GetByID(ctx, id)
}

func (s *Service) UpdateLocation(ctx context.Context, l *Location) error {
	if strings.TrimSpace(l.Name) == "" {
		return ErrNameRequired
	}
	return s.locations.Update(ctx, l)
}

func (s *Service) DeleteLocation(ctx context.Context, id uuid.UUID) error {
	return s.locations.SoftDelete(ctx, id)
}

func (s *Service) ListLocations(ctx context.Context, visible []uuid.UUID, limit, offset int) ([]*Location, int, error) {
	return s.locations.List(ctx, visible, limit, offset)
}

// -- Practitioners --

func (s *Service) CreatePractitioner(ctx context.Context, p *Practitioner) error {
	if p.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required")
	}
	if strings.TrimSpace(p.LicenseNumber) == "" {
		return fmt.Errorf("license_number is required")
	}
	return s.practitioners.Create(ctx, p)
}

func (s *Service) GetPractitioner(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	return s.practitioners.GetByID(ctx, id)
}

func (s *Service) GetPractitionerByUser(ctx context.Context, userID uuid.UUID) (*Practitioner, error) {
	return s.practitioners.GetByUserID(ctx, userID)
}

func (s *Service) UpdatePractitioner(ctx context.Context, p *Practitioner) error {
	if strings.TrimSpace(p.LicenseNumber) == "" {
		return fmt.Errorf("license_number is required")
	}
	return s.practitioners.Update(ctx, p)
}

func (s *Service) DeletePractitioner(ctx context.Context, id uuid.UUID) error {
	return s.practitioners.SoftDelete(ctx, id)
}

func (s *Service) ListPractitioners(ctx context.Context, visible []uuid.UUID, acceptingOnly bool, limit, offset int) ([]*Practitioner, int, error) {
	return s.practitioners.List(ctx, visible, acceptingOnly, limit, offset)
}
