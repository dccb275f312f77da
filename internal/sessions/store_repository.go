package sessions

import (
	"context"
	"errors"

	"github.com/staffhub/portal/internal/store"
)

const Table = "sessions"

// Repository provides session persistence operations
type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByRefresh(ctx context.Context, refresh string) (*Session, error)
	DeleteByRefresh(ctx context.Context, refresh string) error
	// DeleteByUser removes every session of userID and reports how many.
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

// StoreRepository keeps sessions in the record gateway (MongoDB in production).
type StoreRepository struct {
	gw store.Gateway
}

func NewStoreRepository(gw store.Gateway) *StoreRepository {
	return &StoreRepository{gw: gw}
}

// EnsureIndexes makes refresh tokens unique.
func (r *StoreRepository) EnsureIndexes(ctx context.Context) error {
	return r.gw.EnsureUnique(ctx, Table, "refreshToken")
}

func (r *StoreRepository) Create(ctx context.Context, s *Session) error {
	rec, err := store.Encode(s)
	if err != nil {
		return err
	}
	_, err = r.gw.Insert(ctx, Table, rec)
	return err
}

func (r *StoreRepository) GetByRefresh(ctx context.Context, refresh string) (*Session, error) {
	rec, err := r.gw.FindOne(ctx, Table, store.Eq("refreshToken", refresh))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var s Session
	if err := store.Decode(rec, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StoreRepository) DeleteByRefresh(ctx context.Context, refresh string) error {
	_, err := r.gw.Delete(ctx, Table, store.Eq("refreshToken", refresh))
	return err
}

func (r *StoreRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	return r.gw.Delete(ctx, Table, store.Eq("userId", userID))
}
