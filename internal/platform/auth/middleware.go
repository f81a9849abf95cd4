package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Echo context keys populated by Middleware.
const (
	ContextKeyClaims   = "auth.claims"
	ContextKeyUserID   = "auth.user_id"
	ContextKeyClinicID = "auth.clinic_id"
	ContextKeyRole     = "auth.role"
)

// Middleware verifies the Bearer access token and stores the claims on the
// echo context. Revoked refresh tokens are handled at the account service
// level; access tokens are short-lived and checked here only for validity.
func Middleware(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr, err := bearerToken(c.Request())
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}

			claims, err := issuer.Verify(tokenStr, TokenTypeAccess)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			c.Set(ContextKeyClaims, claims)
			c.Set(ContextKeyUserID, claims.UserID)
			c.Set(ContextKeyClinicID, claims.ClinicID)
			c.Set(ContextKeyRole, claims.Role)
			return next(c)
		}
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", ErrMissingAuthToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrMissingAuthToken
	}
	return parts[1], nil
}

// ClaimsFromContext returns the verified claims set by Middleware, or nil.
func ClaimsFromContext(c echo.Context) *Claims {
	claims, _ := c.Get(ContextKeyClaims).(*Claims)
	return claims
}

// RequireRole allows the request through only when the authenticated user
// holds one of the given roles.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	allowed := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(ContextKeyRole).(Role)
			if _, ok := allowed[role]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
			}
			return next(c)
		}
	}
}
