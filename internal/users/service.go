package users

import (
	"context"

	"github.com/staffhub/portal/internal/access"
	"github.com/staffhub/portal/internal/models"
)

// Service encapsulates user-related business logic
type Service struct {
	repo UserRepository
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r}
}

// UpsertFromClaims creates or updates a user using OIDC claims map
func (s *Service) UpsertFromClaims(ctx context.Context, claims map[string]interface{}) (*models.User, error) {
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	department, _ := claims["department"].(string)
	if sub == "" {
		return nil, nil
	}
	u := &models.User{
		Sub:        sub,
		Email:      email,
		Name:       name,
		Role:       string(RoleFromClaims(claims)),
		Department: department,
	}
	return s.repo.UpsertBySub(ctx, u)
}

// RoleFromClaims reads a "role" claim, falling back to Keycloak realm roles.
func RoleFromClaims(claims map[string]interface{}) access.Role {
	if r, ok := claims["role"].(string); ok && r != "" {
		return access.ParseRole(r)
	}
	if ra, ok := claims["realm_access"].(map[string]interface{}); ok {
		if roles, ok := ra["roles"].([]interface{}); ok {
			for _, r := range roles {
				if s, _ := r.(string); access.ParseRole(s) == access.RoleAdmin {
					return access.RoleAdmin
				}
			}
		}
	}
	return access.RoleStaff
}

// Principal resolves verified token claims into the calling principal.
// Tokens issued by this service carry "uid" and "role" and skip the lookup;
// identity-provider tokens are upserted first. Deactivated users resolve to nil.
func (s *Service) Principal(ctx context.Context, claims map[string]interface{}) (*access.Principal, error) {
	if uid, ok := claims["uid"].(string); ok && uid != "" {
		role, _ := claims["role"].(string)
		name, _ := claims["name"].(string)
		return &access.Principal{ID: uid, Role: access.ParseRole(role), Name: name}, nil
	}
	u, err := s.UpsertFromClaims(ctx, claims)
	if err != nil || u == nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, nil
	}
	return &access.Principal{ID: u.ID, Role: access.ParseRole(u.Role), Name: u.DisplayName()}, nil
}

func (s *Service) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	return s.repo.GetBySub(ctx, sub)
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

// ActiveAdmins lists every active admin.
func (s *Service) ActiveAdmins(ctx context.Context) ([]*models.User, error) {
	return s.repo.ListActive(ctx, string(access.RoleAdmin))
}

// ActiveStaff lists every active non-admin user.
func (s *Service) ActiveStaff(ctx context.Context) ([]*models.User, error) {
	return s.repo.ListActive(ctx, string(access.RoleStaff))
}

func (s *Service) Deactivate(ctx context.Context, id string) error {
	return s.repo.SetActive(ctx, id, false)
}
