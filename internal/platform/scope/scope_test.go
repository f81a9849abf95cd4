package scope

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore/internal/platform/auth"
)

type mockResolver struct {
	visible        []uuid.UUID
	practitionerID *uuid.UUID
}

func (m *mockResolver) VisibleClinicIDs(_ context.Context, clinicID uuid.UUID) ([]uuid.UUID, error) {
	if m.visible != nil {
		return m.visible, nil
	}
	return []uuid.UUID{clinicID}, nil
}

func (m *mockResolver) PractitionerIDForUser(_ context.Context, _ uuid.UUID) (*uuid.UUID, error) {
	return m.practitionerID, nil
}

func runScoped(t *testing.T, role auth.Role, resolver Resolver) *Actor {
	t.Helper()
	issuer := auth.NewTokenIssuer("test-secret-key-for-unit-tests-only!", time.Minute, time.Hour)
	pair, err := issuer.IssuePair(uuid.New(), uuid.New(), role)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+pair.AccessToken)
	c := e.NewContext(req, httptest.NewRecorder())

	var actor *Actor
	handler := func(c echo.Context) error {
		actor = FromContext(c)
		return c.NoContent(http.StatusOK)
	}
	chain := auth.Middleware(issuer)(Middleware(resolver)(handler))
	require.NoError(t, chain(c))
	require.NotNil(t, actor)
	return actor
}

func TestAdminSeesBranchFamily(t *testing.T) {
	root := uuid.New()
	branch := uuid.New()
	actor := runScoped(t, auth.RoleAdmin, &mockResolver{visible: []uuid.UUID{root, branch}})

	assert.True(t, actor.IsAdmin())
	assert.True(t, actor.CanSee(root))
	assert.True(t, actor.CanSee(branch))
	assert.False(t, actor.CanSee(uuid.New()))
}

func TestStaffSeesOwnClinicOnly(t *testing.T) {
	actor := runScoped(t, auth.RoleStaff, &mockResolver{})

	assert.False(t, actor.IsAdmin())
	require.Len(t, actor.VisibleClinics, 1)
	assert.Equal(t, actor.ClinicID, actor.VisibleClinics[0])
	assert.Nil(t, actor.PractitionerID)
}

func TestPractitionerLinkResolved(t *testing.T) {
	practitionerID := uuid.New()
	actor := runScoped(t, auth.RolePractitioner, &mockResolver{practitionerID: &practitionerID})

	require.NotNil(t, actor.PractitionerID)
	assert.Equal(t, practitionerID, *actor.PractitionerID)
}
