// Package auth provides JWT issuance and verification, role-based access
// control, and password handling for the PMS API.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role is a user's access level within a clinic.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RolePractitioner Role = "PRACTITIONER"
	RoleStaff        Role = "STAFF"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePractitioner, RoleStaff:
		return true
	}
	return false
}

// Token types carried in the "typ" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrWrongTokenType   = errors.New("wrong token type")
	ErrTokenRevoked     = errors.New("token revoked")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrAccountDisabled  = errors.New("account disabled")
	ErrInvalidRole      = errors.New("invalid role")
	ErrMissingAuthToken = errors.New("missing authorization token")
)

// Claims is the JWT payload for both access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID    uuid.UUID `json:"uid"`
	ClinicID  uuid.UUID `json:"cid"`
	Role      Role      `json:"role"`
	TokenType string    `json:"typ"`
}

// TokenIssuer signs and verifies HS256 token pairs.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
}

// IssuePair mints an access/refresh token pair for the given user.
// The refresh token carries a random jti so it can be revoked on logout.
func (ti *TokenIssuer) IssuePair(userID, clinicID uuid.UUID, role Role) (*TokenPair, error) {
	now := time.Now()

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.accessTTL)),
		},
		UserID:    userID,
		ClinicID:  clinicID,
		Role:      role,
		TokenType: TokenTypeAccess,
	})
	accessStr, err := access.SignedString(ti.secret)
	if err != nil {
		return nil, err
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.refreshTTL)),
		},
		UserID:    userID,
		ClinicID:  clinicID,
		Role:      role,
		TokenType: TokenTypeRefresh,
	})
	refreshStr, err := refresh.SignedString(ti.secret)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      accessStr,
		RefreshToken:     refreshStr,
		TokenType:        "Bearer",
		ExpiresIn:        int64(ti.accessTTL.Seconds()),
		RefreshExpiresIn: int64(ti.refreshTTL.Seconds()),
	}, nil
}

// Verify parses and validates a token string, requiring the given token type.
func (ti *TokenIssuer) Verify(tokenStr, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return ti.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != wantType {
		return nil, ErrWrongTokenType
	}
	if !claims.Role.Valid() {
		return nil, ErrInvalidRole
	}
	return claims, nil
}
