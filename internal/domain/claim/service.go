package claim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/pkg/money"
)

var (
	ErrNotFound             = errors.New("claim not found")
	ErrInvalidKind          = errors.New("invalid claim kind")
	ErrNumberRequired       = errors.New("claim number is required")
	ErrNumberTaken          = errors.New("claim number already in use")
	ErrMemberNumberNeeded   = errors.New("member number is required")
	ErrProviderRequired     = errors.New("hmo provider is required")
	ErrAmountNotPositive    = errors.New("claim amount must be positive")
	ErrInvalidTransition    = errors.New("claim status transition not allowed")
	ErrApprovedAmountNeeded = errors.New("approved amount is required")
)

type Service struct {
	claims Repository
}

func NewService(claims Repository) *Service {
	return &Service{claims: claims}
}

func (s *Service) Create(ctx context.Context, cl *Claim) error {
	if err := validateClaim(cl); err != nil {
		return err
	}
	if existing, err := s.claims.GetByNumber(ctx, cl.ClaimNumber); err == nil && existing != nil {
		return ErrNumberTaken
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if cl.ClaimDate.IsZero() {
		cl.ClaimDate = time.Now()
	}
	cl.Status = StatusDraft
	return s.claims.Create(ctx, cl)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, visible []uuid.UUID) (*Claim, error) {
	return s.claims.GetByID(ctx, id, visible)
}

func (s *Service) Update(ctx context.Context, cl *Claim, visible []uuid.UUID) error {
	if err := validateClaim(cl); err != nil {
		return err
	}
	if _, err := s.claims.GetByID(ctx, cl.ID, visible); err != nil {
		return err
	}
	return s.claims.Update(ctx, cl)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID, visible []uuid.UUID) error {
	return s.claims.SoftDelete(ctx, id, visible)
}

func (s *Service) List(ctx context.Context, visible []uuid.UUID, filter ListFilter) ([]*Claim, int, error) {
	return s.claims.List(ctx, visible, filter)
}

// Submit moves a draft claim to SUBMITTED and stamps the submission date.
func (s *Service) Submit(ctx context.Context, id uuid.UUID, visible []uuid.UUID) (*Claim, error) {
	return s.transition(ctx, id, visible, StatusSubmitted, func(cl *Claim) {
		now := time.Now()
		cl.SubmissionDate = &now
	})
}

func (s *Service) StartProcessing(ctx context.Context, id uuid.UUID, visible []uuid.UUID, notes string) (*Claim, error) {
	return s.transition(ctx, id, visible, StatusProcessing, func(cl *Claim) {
		if notes != "" {
			cl.ProcessingNotes = notes
		}
	})
}

func (s *Service) Approve(ctx context.Context, id uuid.UUID, visible []uuid.UUID, approved money.Cents) (*Claim, error) {
	if approved <= 0 {
		return nil, ErrApprovedAmountNeeded
	}
	return s.transition(ctx, id, visible, StatusApproved, func(cl *Claim) {
		cl.ApprovedAmount = &approved
	})
}

func (s *Service) Deny(ctx context.Context, id uuid.UUID, visible []uuid.UUID, reason string) (*Claim, error) {
	return s.transition(ctx, id, visible, StatusDenied, func(cl *Claim) {
		cl.DenialReason = reason
	})
}

func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID, visible []uuid.UUID) (*Claim, error) {
	return s.transition(ctx, id, visible, StatusPaid, nil)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, visible []uuid.UUID, to string, apply func(*Claim)) (*Claim, error) {
	cl, err := s.claims.GetByID(ctx, id, visible)
	if err != nil {
		return nil, err
	}
	if !canTransition(cl.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cl.Status, to)
	}
	cl.Status = to
	if apply != nil {
		apply(cl)
	}
	if err := s.claims.Update(ctx, cl); err != nil {
		return nil, err
	}
	return cl, nil
}

func validateClaim(cl *Claim) error {
	switch cl.Kind {
	case KindPhilHealth:
		if cl.PhilHealthNumber == "" {
			return ErrMemberNumberNeeded
		}
	case KindHMO:
		if cl.HMOProvider == "" {
			return ErrProviderRequired
		}
		if cl.HMONumber == "" {
			return ErrMemberNumberNeeded
		}
	default:
		return ErrInvalidKind
	}
	if cl.ClaimNumber == "" {
		return ErrNumberRequired
	}
	if cl.ClaimAmount <= 0 {
		return ErrAmountNotPositive
	}
	return nil
}
