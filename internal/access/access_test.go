package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoleAuthorizer(t *testing.T) {
	a := DefaultAuthorizer()
	admin := &Principal{ID: "a1", Role: RoleAdmin}
	staff := &Principal{ID: "s1", Role: RoleStaff}

	require.ErrorIs(t, a.Require(nil, ReviewSubmissions), ErrUnauthorized)
	require.ErrorIs(t, a.Require(&Principal{}, ReviewSubmissions), ErrUnauthorized)
	require.NoError(t, a.Require(admin, ReviewSubmissions))
	require.ErrorIs(t, a.Require(staff, ReviewSubmissions), ErrForbidden)
	require.NoError(t, a.Require(staff, CompleteOwnWork))
}

func TestParseRole(t *testing.T) {
	require.Equal(t, RoleAdmin, ParseRole("admin"))
	require.Equal(t, RoleStaff, ParseRole("staff"))
	require.Equal(t, RoleStaff, ParseRole("superuser"))
}

func TestPrincipalContext(t *testing.T) {
	require.Nil(t, FromContext(context.Background()))
	p := &Principal{ID: "u1", Role: RoleStaff}
	ctx := WithPrincipal(context.Background(), p)
	require.Same(t, p, FromContext(ctx))
}
