package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIssuer() *TokenIssuer {
	return NewTokenIssuer("test-secret-key-for-unit-tests-only!", 15*time.Minute, 7*24*time.Hour)
}

func TestIssuePairAndVerify(t *testing.T) {
	issuer := testIssuer()
	userID := uuid.New()
	clinicID := uuid.New()

	pair, err := issuer.IssuePair(userID, clinicID, RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	claims, err := issuer.Verify(pair.AccessToken, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, clinicID, claims.ClinicID)
	assert.Equal(t, RoleAdmin, claims.Role)

	refreshClaims, err := issuer.Verify(pair.RefreshToken, TokenTypeRefresh)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshClaims.ID, "refresh token must carry a jti")
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	issuer := testIssuer()
	pair, err := issuer.IssuePair(uuid.New(), uuid.New(), RoleStaff)
	require.NoError(t, err)

	_, err = issuer.Verify(pair.RefreshToken, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = issuer.Verify(pair.AccessToken, TokenTypeRefresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	pair, err := testIssuer().IssuePair(uuid.New(), uuid.New(), RoleStaff)
	require.NoError(t, err)

	other := NewTokenIssuer("a-completely-different-signing-secret", time.Minute, time.Hour)
	_, err = other.Verify(pair.AccessToken, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-key-for-unit-tests-only!", -time.Minute, time.Hour)
	pair, err := issuer.IssuePair(uuid.New(), uuid.New(), RolePractitioner)
	require.NoError(t, err)

	_, err = issuer.Verify(pair.AccessToken, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddlewareAndRequireRole(t *testing.T) {
	issuer := testIssuer()
	userID := uuid.New()
	pair, err := issuer.IssuePair(userID, uuid.New(), RoleStaff)
	require.NoError(t, err)

	e := echo.New()
	handler := func(c echo.Context) error {
		claims := ClaimsFromContext(c)
		require.NotNil(t, claims)
		assert.Equal(t, userID, claims.UserID)
		return c.NoContent(http.StatusOK)
	}

	t.Run("valid token passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+pair.AccessToken)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := Middleware(issuer)(handler)(c)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing header rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		c := e.NewContext(req, httptest.NewRecorder())

		err := Middleware(issuer)(handler)(c)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	})

	t.Run("role enforced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+pair.AccessToken)
		c := e.NewContext(req, httptest.NewRecorder())

		chain := Middleware(issuer)(RequireRole(RoleAdmin)(handler))
		err := chain(c)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusForbidden, httpErr.Code)

		c2 := e.NewContext(req.Clone(req.Context()), httptest.NewRecorder())
		chain = Middleware(issuer)(RequireRole(RoleAdmin, RoleStaff)(handler))
		require.NoError(t, chain(c2))
	})
}

func TestRevocationStore(t *testing.T) {
	store := NewRevocationStore()
	defer store.Close()

	assert.False(t, store.IsRevoked("unknown"))

	store.Revoke("jti-1", time.Now().Add(time.Hour))
	assert.True(t, store.IsRevoked("jti-1"))

	store.Revoke("jti-2", time.Now().Add(-time.Minute))
	assert.False(t, store.IsRevoked("jti-2"), "expired entries are not revoked")
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	require.NoError(t, CheckPassword(hash, "s3cret-pass"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong"), ErrInvalidPassword)
}

func TestGenerateTempPassword(t *testing.T) {
	pw, err := GenerateTempPassword(12)
	require.NoError(t, err)
	assert.Len(t, pw, 12)

	short, err := GenerateTempPassword(3)
	require.NoError(t, err)
	assert.Len(t, short, 8, "length floor is 8")

	other, err := GenerateTempPassword(12)
	require.NoError(t, err)
	assert.NotEqual(t, pw, other)
}
