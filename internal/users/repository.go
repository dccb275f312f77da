package users

import (
	"context"
	"errors"
	"time"

	"github.com/staffhub/portal/internal/models"
	"github.com/staffhub/portal/internal/store"
)

const Table = "users"

// UserRepository defines persistence operations for users
type UserRepository interface {
	UpsertBySub(ctx context.Context, u *models.User) (*models.User, error)
	GetBySub(ctx context.Context, sub string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	ListActive(ctx context.Context, role string) ([]*models.User, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// StoreUserRepository implements UserRepository on the record gateway
type StoreUserRepository struct {
	gw store.Gateway
}

func NewStoreUserRepository(gw store.Gateway) *StoreUserRepository {
	return &StoreUserRepository{gw: gw}
}

// EnsureIndexes makes the identity-provider subject unique.
func (r *StoreUserRepository) EnsureIndexes(ctx context.Context) error {
	return r.gw.EnsureUnique(ctx, Table, "sub")
}

// UpsertBySub refreshes profile fields from the identity provider. Role,
// department and active flag are only set when the user is first seen.
func (r *StoreUserRepository) UpsertBySub(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now().UTC()
	set := store.Record{
		"email":     u.Email,
		"name":      u.Name,
		"updatedAt": now,
	}
	onInsert := store.Record{
		"role":      u.Role,
		"isActive":  true,
		"createdAt": now,
	}
	if u.Department != "" {
		onInsert["department"] = u.Department
	}
	rec, err := r.gw.Upsert(ctx, Table, store.Eq("sub", u.Sub), store.All(), set, onInsert)
	if err != nil {
		return nil, err
	}
	var out models.User
	if err := store.Decode(rec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *StoreUserRepository) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	return r.one(ctx, store.Eq("sub", sub))
}

func (r *StoreUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.one(ctx, store.ByID(id))
}

func (r *StoreUserRepository) one(ctx context.Context, f store.Filter) (*models.User, error) {
	rec, err := r.gw.FindOne(ctx, Table, f)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var u models.User
	if err := store.Decode(rec, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListActive returns active users with the given role; an empty role lists everyone active.
func (r *StoreUserRepository) ListActive(ctx context.Context, role string) ([]*models.User, error) {
	f := store.Eq("isActive", true).OrderBy("name", false)
	if role != "" {
		f = f.Eq("role", role)
	}
	recs, err := r.gw.Find(ctx, Table, f)
	if err != nil {
		return nil, err
	}
	return store.DecodeAll[models.User](recs)
}

func (r *StoreUserRepository) SetActive(ctx context.Context, id string, active bool) error {
	n, err := r.gw.Update(ctx, Table, store.ByID(id), store.Record{"isActive": active, "updatedAt": time.Now().UTC()})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
