package contact

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("contact not found")
	ErrNameRequired  = errors.New("first and last name are required")
	ErrPhoneRequired = errors.New("phone is required")
	ErrInvalidType   = errors.New("invalid contact type")
)

// NumberSequencer issues per-clinic contact numbers. Satisfied by
// *db.Sequencer.
type NumberSequencer interface {
	ContactNumber(ctx context.Context, clinicID string) (string, error)
}

type Service struct {
	contacts Repository
	seq      NumberSequencer
}

func NewService(contacts Repository, seq NumberSequencer) *Service {
	return &Service{contacts: contacts, seq: seq}
}

func (s *Service) Create(ctx context.Context, c *Contact) error {
	if err := validateContact(c); err != nil {
		return err
	}
	number, err := s.seq.ContactNumber(ctx, c.ClinicID.String())
	if err != nil {
		return err
	}
	c.ContactNumber = number
	c.IsActive = true
	return s.contacts.Create(ctx, c)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, visible []uuid.UUID) (*Contact, error) {
	return s.contacts.GetByID(ctx, id, visible)
}

func (s *Service) Update(ctx context.Context, c *Contact, visible []uuid.UUID) error {
	if err := validateContact(c); err != nil {
		return err
	}
	if _, err := s.contacts.GetByID(ctx, c.ID, visible); err != nil {
		return err
	}
	return s.contacts.Update(ctx, c)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID, visible []uuid.UUID) error {
	return s.contacts.SoftDelete(ctx, id, visible)
}

func (s *Service) List(ctx context.Context, visible []uuid.UUID, filter ListFilter) ([]*Contact, int, error) {
	return s.contacts.List(ctx, visible, filter)
}

func (s *Service) TogglePreferred(ctx context.Context, id uuid.UUID, visible []uuid.UUID) (*Contact, error) {
	c, err := s.contacts.GetByID(ctx, id, visible)
	if err != nil {
		return nil, err
	}
	c.IsPreferred = !c.IsPreferred
	if err := s.contacts.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ToggleActive(ctx context.Context, id uuid.UUID, visible []uuid.UUID) (*Contact, error) {
	c, err := s.contacts.GetByID(ctx, id, visible)
	if err != nil {
		return nil, err
	}
	c.IsActive = !c.IsActive
	if err := s.contacts.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Stats(ctx context.Context, visible []uuid.UUID) (*Stats, error) {
	return s.contacts.Stats(ctx, visible)
}

func validateContact(c *Contact) error {
	if c.ContactType == "" {
		c.ContactType = TypeOther
	}
	if !ValidType(c.ContactType) {
		return ErrInvalidType
	}
	if c.FirstName == "" || c.LastName == "" {
		return ErrNameRequired
	}
	if c.Phone == "" {
		return ErrPhoneRequired
	}
	return nil
}
