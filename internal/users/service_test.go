package users

import (
	"context"
	"testing"
	"time"

	"github.com/staffhub/portal/internal/access"
	"github.com/staffhub/portal/internal/models"
	"github.com/staffhub/portal/internal/store"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	lastUpsert *models.User
	upsertErr  error
}

func (f *fakeRepo) UpsertBySub(ctx context.Context, u *models.User) (*models.User, error) {
	f.lastUpsert = u
	// simulate repository behavior: ensure timestamps are set
	now := time.Now().UTC()
	if f.lastUpsert.CreatedAt.IsZero() {
		f.lastUpsert.CreatedAt = now
	}
	f.lastUpsert.UpdatedAt = now
	ret := *f.lastUpsert
	ret.ID = "abcd1234"
	ret.IsActive = true
	return &ret, f.upsertErr
}

func (f *fakeRepo) GetBySub(ctx context.Context, sub string) (*models.User, error) { return nil, nil }
func (f *fakeRepo) GetByID(ctx context.Context, id string) (*models.User, error)   { return nil, nil }
func (f *fakeRepo) ListActive(ctx context.Context, role string) ([]*models.User, error) {
	return nil, nil
}
func (f *fakeRepo) SetActive(ctx context.Context, id string, active bool) error { return nil }

func TestUpsertFromClaims(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()
	claims := map[string]interface{}{
		"sub":        "sub-123",
		"email":      "x@example.com",
		"name":       "X User",
		"department": "engineering",
	}

	u, err := svc.UpsertFromClaims(ctx, claims)
	require.NoError(t, err)
	require.NotNil(t, u)
	require.Equal(t, "sub-123", u.Sub)
	require.Equal(t, "x@example.com", u.Email)
	require.Equal(t, "X User", u.Name)
	require.Equal(t, "staff", u.Role)
	require.Equal(t, "engineering", u.Department)
	require.NotEmpty(t, u.ID)

	u2, err := svc.UpsertFromClaims(ctx, map[string]interface{}{"email": "y@e.com"})
	require.NoError(t, err)
	require.Nil(t, u2)
}

func TestRoleFromClaims(t *testing.T) {
	require.Equal(t, access.RoleAdmin, RoleFromClaims(map[string]interface{}{"role": "admin"}))
	require.Equal(t, access.RoleAdmin, RoleFromClaims(map[string]interface{}{
		"realm_access": map[string]interface{}{"roles": []interface{}{"offline_access", "admin"}},
	}))
	require.Equal(t, access.RoleStaff, RoleFromClaims(map[string]interface{}{}))
}

func TestPrincipal_FromServiceToken(t *testing.T) {
	svc := NewService(&fakeRepo{})
	p, err := svc.Principal(context.Background(), map[string]interface{}{"uid": "u-9", "role": "admin", "name": "Ada"})
	require.NoError(t, err)
	require.Equal(t, &access.Principal{ID: "u-9", Role: access.RoleAdmin, Name: "Ada"}, p)
}

func TestStoreRepository_UpsertKeepsRoleAndLists(t *testing.T) {
	gw := store.NewMemoryStore()
	require.NoError(t, gw.EnsureUnique(context.Background(), Table, "sub"))
	svc := NewService(NewStoreUserRepository(gw))
	ctx := context.Background()

	admin, err := svc.UpsertFromClaims(ctx, map[string]interface{}{"sub": "a", "name": "Admin", "role": "admin"})
	require.NoError(t, err)
	require.True(t, admin.IsActive)

	// a later login without the role claim must not demote the user
	again, err := svc.UpsertFromClaims(ctx, map[string]interface{}{"sub": "a", "name": "Admin Renamed"})
	require.NoError(t, err)
	require.Equal(t, admin.ID, again.ID)
	require.Equal(t, "admin", again.Role)
	require.Equal(t, "Admin Renamed", again.Name)

	staff, err := svc.UpsertFromClaims(ctx, map[string]interface{}{"sub": "s", "name": "Sam"})
	require.NoError(t, err)
	_, err = svc.UpsertFromClaims(ctx, map[string]interface{}{"sub": "t", "name": "Tia"})
	require.NoError(t, err)

	admins, err := svc.ActiveAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)

	require.NoError(t, svc.Deactivate(ctx, staff.ID))
	list, err := svc.ActiveStaff(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Tia", list[0].Name)

	p, err := svc.Principal(ctx, map[string]interface{}{"sub": "s"})
	require.NoError(t, err)
	require.Nil(t, p, "deactivated users have no principal")
}
