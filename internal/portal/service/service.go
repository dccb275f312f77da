// Package service implements the onboarding, HR acknowledgment and training
// workflows on top of the storage gateway.
package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/staffhub/portal/internal/access"
	"github.com/staffhub/portal/internal/audit"
	"github.com/staffhub/portal/internal/models"
	"github.com/staffhub/portal/internal/notify"
	"github.com/staffhub/portal/internal/portal"
	"github.com/staffhub/portal/internal/portal/repository"
	"github.com/staffhub/portal/internal/revalidate"
	"github.com/staffhub/portal/internal/store"
	"github.com/staffhub/portal/pkg/logger"
	"github.com/staffhub/portal/pkg/metrics"
)

// Directory resolves users for notifications and display names.
type Directory interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	ActiveAdmins(ctx context.Context) ([]*models.User, error)
	ActiveStaff(ctx context.Context) ([]*models.User, error)
}

// Deps are the collaborators of a Service. Store and Users are required.
type Deps struct {
	Store      store.Gateway
	Users      Directory
	Notifier   notify.Sink
	Audit      audit.Recorder
	AuditLog   audit.Reader
	Revalidate revalidate.Hook
	Authz      access.Authorizer
	Debounce   Debouncer
	Clock      func() time.Time

	VideoGatePercent  float64
	NotifyConcurrency int
}

type Service struct {
	repo       *repository.Repository
	users      Directory
	notifier   notify.Sink
	audit      audit.Recorder
	auditLog   audit.Reader
	revalidate revalidate.Hook
	authz      access.Authorizer
	debounce   Debouncer
	clock      func() time.Time
	gate       float64
	fanout     int
}

func New(d Deps) *Service {
	s := &Service{
		repo:       repository.New(d.Store),
		users:      d.Users,
		notifier:   d.Notifier,
		audit:      d.Audit,
		auditLog:   d.AuditLog,
		revalidate: d.Revalidate,
		authz:      d.Authz,
		debounce:   d.Debounce,
		clock:      d.Clock,
		gate:       d.VideoGatePercent,
		fanout:     d.NotifyConcurrency,
	}
	if s.notifier == nil {
		s.notifier = notify.NewOutbox(d.Store)
	}
	if s.audit == nil {
		s.audit = audit.NewStoreRecorder(d.Store)
	}
	if s.auditLog == nil {
		s.auditLog = audit.NewStoreRecorder(d.Store)
	}
	if s.revalidate == nil {
		s.revalidate = revalidate.Noop{}
	}
	if s.authz == nil {
		s.authz = access.DefaultAuthorizer()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.debounce == nil {
		s.debounce = NewMemoryDebouncer(5*time.Second, s.clock)
	}
	if s.gate <= 0 {
		s.gate = 90
	}
	if s.fanout <= 0 {
		s.fanout = 8
	}
	return s
}

// EnsureIndexes creates the unique keys the workflows depend on.
func (s *Service) EnsureIndexes(ctx context.Context) error {
	return s.repo.EnsureIndexes(ctx)
}

func (s *Service) now() time.Time { return s.clock().UTC() }

// require checks a capability and converts access errors into portal kinds.
func (s *Service) require(p *access.Principal, c access.Capability) error {
	switch err := s.authz.Require(p, c); {
	case err == nil:
		return nil
	case errors.Is(err, access.ErrUnauthorized):
		return portal.Errorf(portal.KindUnauthorized, "you must be signed in")
	case errors.Is(err, access.ErrForbidden):
		return portal.Errorf(portal.KindForbidden, "you do not have permission to do that")
	default:
		return err
	}
}

func (s *Service) transitioned(workflow, status string) {
	metrics.Transitions.WithLabelValues(workflow, status).Inc()
}

func (s *Service) refused(workflow string, err error) error {
	metrics.TransitionsRefused.WithLabelValues(workflow, string(portal.KindOf(err))).Inc()
	return err
}

func (s *Service) notifyUser(ctx context.Context, n notify.Notification) {
	if err := s.notifier.Notify(ctx, n); err != nil {
		metrics.SideEffectFailures.WithLabelValues("notification").Inc()
		logger.With("userId", n.UserID, "title", n.Title, "error", err).Warn("notification failed")
	}
}

// notifyEach sends build(u) to every recipient with bounded concurrency.
// Failures are logged per recipient and never abort the others.
func (s *Service) notifyEach(ctx context.Context, recipients []*models.User, build func(u *models.User) notify.Notification) {
	var g errgroup.Group
	g.SetLimit(s.fanout)
	for _, u := range recipients {
		u := u
		g.Go(func() error {
			s.notifyUser(ctx, build(u))
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) notifyAdmins(ctx context.Context, build func(admin *models.User) notify.Notification) {
	admins, err := s.users.ActiveAdmins(ctx)
	if err != nil {
		metrics.SideEffectFailures.WithLabelValues("notification").Inc()
		logger.Warnf("could not list admins for notification: %v", err)
		return
	}
	s.notifyEach(ctx, admins, build)
}

func (s *Service) record(ctx context.Context, e audit.Entry) {
	if err := s.audit.Record(ctx, e); err != nil {
		metrics.SideEffectFailures.WithLabelValues("audit").Inc()
		logger.With("action", e.Action, "subjectId", e.SubjectID, "error", err).Warn("audit entry not recorded")
	}
}

func (s *Service) invalidate(ctx context.Context, paths ...string) {
	if err := s.revalidate.Invalidate(ctx, paths...); err != nil {
		metrics.SideEffectFailures.WithLabelValues("revalidation").Inc()
		logger.With("paths", paths, "error", err).Warn("revalidation failed")
	}
}

// displayName resolves a user's name for messages; lookup failures fall back
// to a generic label.
func (s *Service) displayName(ctx context.Context, userID string) string {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		logger.Debugf("user lookup for %s failed: %v", userID, err)
		return (*models.User)(nil).DisplayName()
	}
	return u.DisplayName()
}
