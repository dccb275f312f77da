package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Service wraps repository operations with business logic
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(r Repository) *Service { return &Service{repo: r, now: time.Now} }

// CreateSession stores a new refresh session for userID and returns the refresh token
func (s *Service) CreateSession(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	now := s.now().UTC()
	sess := &Session{
		RefreshToken: hex.EncodeToString(b),
		UserID:       userID,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", err
	}
	return sess.RefreshToken, nil
}

// ValidateRefresh returns the session if refresh token is valid and not expired
func (s *Service) ValidateRefresh(ctx context.Context, refresh string) (*Session, error) {
	if refresh == "" {
		return nil, nil
	}
	sess, err := s.repo.GetByRefresh(ctx, refresh)
	if err != nil || sess == nil {
		return nil, err
	}
	if sess.Expired(s.now().UTC()) {
		_ = s.repo.DeleteByRefresh(ctx, refresh)
		return nil, nil
	}
	return sess, nil
}

func (s *Service) DeleteRefresh(ctx context.Context, refresh string) error {
	return s.repo.DeleteByRefresh(ctx, refresh)
}

// RevokeUser ends every refresh session of userID.
func (s *Service) RevokeUser(ctx context.Context, userID string) (int64, error) {
	return s.repo.DeleteByUser(ctx, userID)
}
