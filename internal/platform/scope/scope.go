// Package scope resolves the authenticated user's clinic visibility for
// row-level tenancy. Admins of a root clinic see the root plus all of its
// branches; every other user sees only their own clinic.
package scope

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/auth"
)

// Actor is the resolved identity attached to every scoped request.
type Actor struct {
	UserID         uuid.UUID
	Role           auth.Role
	ClinicID       uuid.UUID
	PractitionerID *uuid.UUID
	VisibleClinics []uuid.UUID
}

// CanSee reports whether the actor may access rows belonging to clinicID.
func (a *Actor) CanSee(clinicID uuid.UUID) bool {
	for _, id := range a.VisibleClinics {
		if id == clinicID {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the actor holds the ADMIN role.
func (a *Actor) IsAdmin() bool {
	return a.Role == auth.RoleAdmin
}

// Resolver supplies the clinic hierarchy and practitioner linkage needed to
// build an Actor. Implemented by the clinic domain repository.
type Resolver interface {
	// VisibleClinicIDs returns the clinic IDs an admin of clinicID may see:
	// the clinic itself plus, when it is a root clinic, all of its branches.
	VisibleClinicIDs(ctx context.Context, clinicID uuid.UUID) ([]uuid.UUID, error)
	// PractitionerIDForUser returns the practitioner record linked to the
	// user, or nil when the user is not a practitioner.
	PractitionerIDForUser(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error)
}

const contextKeyActor = "scope.actor"

// Middleware builds the Actor from the verified auth claims and stores it on
// the echo context. It must run after auth.Middleware.
func Middleware(resolver Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := auth.ClaimsFromContext(c)
			if claims == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}

			actor := &Actor{
				UserID:   claims.UserID,
				Role:     claims.Role,
				ClinicID: claims.ClinicID,
			}

			ctx := c.Request().Context()
			if claims.Role == auth.RoleAdmin {
				visible, err := resolver.VisibleClinicIDs(ctx, claims.ClinicID)
				if err != nil {
					return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve clinic scope")
				}
				actor.VisibleClinics = visible
			} else {
				actor.VisibleClinics = []uuid.UUID{claims.ClinicID}
			}

			if claims.Role == auth.RolePractitioner {
				practitionerID, err := resolver.PractitionerIDForUser(ctx, claims.UserID)
				if err != nil {
					return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve practitioner")
				}
				actor.PractitionerID = practitionerID
			}

			c.Set(contextKeyActor, actor)
			return next(c)
		}
	}
}

// FromContext returns the Actor set by Middleware, or nil.
func FromContext(c echo.Context) *Actor {
	actor, _ := c.Get(contextKeyActor).(*Actor)
	return actor
}
