package app

import (
	"context"

	"github.com/staffhub/portal/internal/models"
	"github.com/staffhub/portal/internal/sessions"
	"github.com/staffhub/portal/internal/users"
	"github.com/staffhub/portal/pkg/logger"
)

// Accounts is user administration that also ends a deactivated user's
// refresh sessions, so they cannot mint new access tokens.
type Accounts struct {
	users    *users.Service
	sessions *sessions.Service
}

func (a *Accounts) ActiveStaff(ctx context.Context) ([]*models.User, error) {
	return a.users.ActiveStaff(ctx)
}

func (a *Accounts) Deactivate(ctx context.Context, id string) error {
	if err := a.users.Deactivate(ctx, id); err != nil {
		return err
	}
	n, err := a.sessions.RevokeUser(ctx, id)
	if err != nil {
		logger.Warnf("user %s deactivated but sessions not revoked: %v", id, err)
		return nil
	}
	logger.Infof("user %s deactivated, %d sessions revoked", id, n)
	return nil
}
