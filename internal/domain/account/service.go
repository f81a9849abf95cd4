package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/domain/clinic"
	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/internal/platform/messaging"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// TxRunner executes fn inside a database transaction.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// ClinicCreator is the slice of the clinic service the account service needs
// for admin registration.
type ClinicCreator interface {
	CreateClinic(ctx context.Context, c *clinic.Clinic) error
}

// Mailer dispatches templated messages. Satisfied by messaging.Dispatcher.
type Mailer interface {
	SendTemplate(ctx context.Context, templateID, recipient string, data map[string]string) error
}

type Service struct {
	users   UserRepository
	clinics ClinicCreator
	issuer  *auth.TokenIssuer
	revoked *auth.RevocationStore
	mailer  Mailer
	runTx   TxRunner
	logger  zerolog.Logger
}

func NewService(users UserRepository, clinics ClinicCreator, issuer *auth.TokenIssuer, revoked *auth.RevocationStore, mailer Mailer, runTx TxRunner, logger zerolog.Logger) *Service {
	return &Service{
		users:   users,
		clinics: clinics,
		issuer:  issuer,
		revoked: revoked,
		mailer:  mailer,
		runTx:   runTx,
		logger:  logger,
	}
}

// RegisterAdminInput carries the clinic and administrator details for
// first-time clinic registration.
type RegisterAdminInput struct {
	ClinicName     string `json:"clinic_name"`
	ClinicEmail    string `json:"clinic_email"`
	ClinicPhone    string `json:"clinic_phone"`
	ClinicAddress  string `json:"clinic_address"`
	City           string `json:"city"`
	Province       string `json:"province"`
	PostalCode     string `json:"postal_code"`
	AdminEmail     string `json:"admin_email"`
	AdminFirstName string `json:"admin_first_name"`
	AdminLastName  string `json:"admin_last_name"`
	AdminPhone     string `json:"admin_phone"`
}

// RegisterAdminResult is returned by RegisterAdmin. The temp password is
// never returned to the caller; it travels only in the credentials email.
type RegisterAdminResult struct {
	Clinic    *clinic.Clinic `json:"clinic"`
	User      *User          `json:"user"`
	EmailSent bool           `json:"email_sent"`
}

// RegisterAdmin creates a clinic and its first ADMIN user atomically, then
// emails the generated credentials. Email failure does not roll back the
// registration; it is reported via EmailSent.
func (s *Service) RegisterAdmin(ctx context.Context, in RegisterAdminInput) (*RegisterAdminResult, error) {
	if strings.TrimSpace(in.ClinicName) == "" {
		return nil, clinic.ErrNameRequired
	}
	if strings.TrimSpace(in.AdminEmail) == "" {
		return nil, fmt.Errorf("admin_email is required")
	}

	tempPassword, err := auth.GenerateTempPassword(12)
	if err != nil {
		return nil, fmt.Errorf("generate temp password: %w", err)
	}
	passwordHash, err := auth.HashPassword(tempPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	newClinic := &clinic.Clinic{
		Name:       in.ClinicName,
		Email:      in.ClinicEmail,
		Phone:      in.ClinicPhone,
		Address:    in.ClinicAddress,
		City:       in.City,
		Province:   in.Province,
		PostalCode: in.PostalCode,
	}
	admin := &User{
		Email:               in.AdminEmail,
		PasswordHash:        passwordHash,
		FirstName:           in.AdminFirstName,
		LastName:            in.AdminLastName,
		Role:                auth.RoleAdmin,
		Phone:               in.AdminPhone,
		IsActive:            true,
		NeedsPasswordChange: true,
	}

	err = s.runTx(ctx, func(ctx context.Context) error {
		if err := s.clinics.CreateClinic(ctx, newClinic); err != nil {
			return err
		}
		admin.ClinicID = &newClinic.ID
		return s.users.Create(ctx, admin)
	})
	if err != nil {
		return nil, err
	}

	emailSent := true
	if err := s.mailer.SendTemplate(ctx, messaging.TemplateAdminCredentials, admin.Email, map[string]string{
		"admin_name":    admin.FullName(),
		"clinic_name":   newClinic.Name,
		"email":         admin.Email,
		"temp_password": tempPassword,
	}); err != nil {
		emailSent = false
		s.logger.Warn().Err(err).Str("email", admin.Email).Msg("credentials email failed")
	}

	return &RegisterAdminResult{Clinic: newClinic, User: admin, EmailSent: emailSent}, nil
}

// LoginResult bundles the token pair with the authenticated user.
type LoginResult struct {
	User                *User           `json:"user"`
	Tokens              *auth.TokenPair `json:"tokens"`
	NeedsPasswordChange bool            `json:"needs_password_change"`
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}

	clinicID := uuid.Nil
	if u.ClinicID != nil {
		clinicID = *u.ClinicID
	}
	pair, err := s.issuer.IssuePair(u.ID, clinicID, u.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: u, Tokens: pair, NeedsPasswordChange: u.NeedsPasswordChange}, nil
}

// Logout revokes the refresh token so it cannot mint new access tokens.
func (s *Service) Logout(_ context.Context, refreshToken string) error {
	claims, err := s.issuer.Verify(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return err
	}
	s.revoked.Revoke(claims.ID, claims.ExpiresAt.Time)
	return nil
}

// Refresh rotates the token pair from a live refresh token. The presented
// token's jti is revoked so each refresh token is single use.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.issuer.Verify(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	if s.revoked.IsRevoked(claims.ID) {
		return nil, auth.ErrTokenRevoked
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}

	s.revoked.Revoke(claims.ID, claims.ExpiresAt.Time)

	clinicID := uuid.Nil
	if u.ClinicID != nil {
		clinicID = *u.ClinicID
	}
	return s.issuer.IssuePair(u.ID, clinicID, u.Role)
}

// VerifyToken validates an access token and returns its claims.
func (s *Service) VerifyToken(_ context.Context, token string) (*auth.Claims, error) {
	return s.issuer.Verify(token, auth.TokenTypeAccess)
}

// ChangePassword verifies the current password before storing the new hash
// and clearing the needs_password_change flag.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	if len(next) < 8 {
		return ErrWeakPassword
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.CheckPassword(u.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash, false)
}

// -- User CRUD --

// CreateUser creates a staff or practitioner account with a generated temp
// password and emails the credentials.
func (s *Service) CreateUser(ctx context.Context, u *User, clinicName string) (emailSent bool, err error) {
	if strings.TrimSpace(u.Email) == "" {
		return false, fmt.Errorf("email is required")
	}
	if !u.Role.Valid() {
		return false, auth.ErrInvalidRole
	}

	tempPassword, err := auth.GenerateTempPassword(12)
	if err != nil {
		return false, err
	}
	u.PasswordHash, err = auth.HashPassword(tempPassword)
	if err != nil {
		return false, err
	}
	u.IsActive = true
	u.NeedsPasswordChange = true

	if err := s.users.Create(ctx, u); err != nil {
		return false, err
	}

	emailSent = true
	if err := s.mailer.SendTemplate(ctx, messaging.TemplateAdminCredentials, u.Email, map[string]string{
		"admin_name":    u.FullName(),
		"clinic_name":   clinicName,
		"email":         u.Email,
		"temp_password": tempPassword,
	}); err != nil {
		emailSent = false
		s.logger.Warn().Err(err).Str("email", u.Email).Msg("credentials email failed")
	}
	return emailSent, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) UpdateUser(ctx context.Context, u *User) error {
	if !u.Role.Valid() {
		return auth.ErrInvalidRole
	}
	return s.users.Update(ctx, u)
}

func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.users.SoftDelete(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, visible []uuid.UUID, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, visible, limit, offset)
}
