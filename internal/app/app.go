// Package app wires configuration into the backing stores and services shared
// by the HTTP server and portalctl.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/staffhub/portal/internal/audit"
	"github.com/staffhub/portal/internal/config"
	"github.com/staffhub/portal/internal/database"
	"github.com/staffhub/portal/internal/notify"
	"github.com/staffhub/portal/internal/portal/service"
	"github.com/staffhub/portal/internal/revalidate"
	"github.com/staffhub/portal/internal/sessions"
	"github.com/staffhub/portal/internal/storage"
	"github.com/staffhub/portal/internal/store"
	"github.com/staffhub/portal/internal/users"
	"github.com/staffhub/portal/pkg/logger"
)

const mongoAttempts = 5

// Stores holds the live backends. Redis and Mongo are nil when not configured
// or unreachable; Gateway then falls back to an in-process store.
type Stores struct {
	Redis   *redis.Client
	Mongo   *mongo.Client
	Gateway store.Gateway
}

// Connect opens Redis and MongoDB. An unreachable Redis is logged and skipped;
// an unreachable MongoDB is an error because records would silently vanish.
func Connect(ctx context.Context, cfg *config.Config) (*Stores, error) {
	s := &Stores{}
	if cfg.Redis.Host != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", cfg.Redis.Addr(), err)
			_ = client.Close()
		} else {
			logger.Infof("connected to Redis at %s", cfg.Redis.Addr())
			s.Redis = client
		}
	}

	if cfg.MongoDB.URI == "" {
		logger.Warn("MONGODB_URI not set; using in-memory store (data is lost on restart)")
		s.Gateway = store.NewMemoryStore()
		return s, nil
	}
	client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, mongoAttempts)
	if err != nil {
		s.Close(ctx)
		return nil, err
	}
	s.Mongo = client
	s.Gateway = store.NewMongoStore(client.Database(cfg.MongoDB.Database))
	return s, nil
}

// Ping checks each connected backend; a nil error means healthy.
func (s *Stores) Ping(ctx context.Context) map[string]error {
	out := map[string]error{}
	if s.Redis != nil {
		out["redis"] = s.Redis.Ping(ctx).Err()
	}
	if s.Mongo != nil {
		out["mongodb"] = s.Mongo.Ping(ctx, nil)
	}
	return out
}

func (s *Stores) Close(ctx context.Context) {
	if s.Mongo != nil {
		_ = s.Mongo.Disconnect(ctx)
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
}

// Services are the domain services built on the stores.
type Services struct {
	Users    *users.Service
	Sessions *sessions.Service
	Accounts *Accounts
	Outbox   *notify.Outbox
	Portal   *service.Service

	userRepo    *users.StoreUserRepository
	sessionRepo *sessions.StoreRepository
}

// Build assembles the services. Redis, when available, backs refresh
// sessions, video-progress debouncing and view revalidation.
func Build(cfg *config.Config, s *Stores) *Services {
	out := &Services{
		Outbox:   notify.NewOutbox(s.Gateway),
		userRepo: users.NewStoreUserRepository(s.Gateway),
	}
	out.Users = users.NewService(out.userRepo)

	var (
		debounce service.Debouncer
		hook     revalidate.Hook = revalidate.Noop{}
	)
	if s.Redis != nil {
		out.Sessions = sessions.NewService(sessions.NewRedisRepository(s.Redis, "session:"))
		debounce = service.NewRedisDebouncer(s.Redis, cfg.Portal.VideoDebounce)
		hook = revalidate.NewRedisHook(s.Redis, cfg.Portal.RevalidateChannel)
	} else {
		out.sessionRepo = sessions.NewStoreRepository(s.Gateway)
		out.Sessions = sessions.NewService(out.sessionRepo)
		debounce = service.NewMemoryDebouncer(cfg.Portal.VideoDebounce, time.Now)
	}

	out.Accounts = &Accounts{users: out.Users, sessions: out.Sessions}

	trail := audit.NewStoreRecorder(s.Gateway)
	out.Portal = service.New(service.Deps{
		Store:             s.Gateway,
		Users:             out.Users,
		Notifier:          out.Outbox,
		Audit:             trail,
		AuditLog:          trail,
		Revalidate:        hook,
		Debounce:          debounce,
		VideoGatePercent:  cfg.Portal.VideoGatePercent,
		NotifyConcurrency: cfg.Portal.NotifyConcurrency,
	})
	return out
}

// EnsureIndexes creates every unique index the services rely on.
func (sv *Services) EnsureIndexes(ctx context.Context) error {
	errs := []error{sv.userRepo.EnsureIndexes(ctx), sv.Portal.EnsureIndexes(ctx)}
	if sv.sessionRepo != nil {
		errs = append(errs, sv.sessionRepo.EnsureIndexes(ctx))
	}
	return errors.Join(errs...)
}

// Files returns MinIO storage when an endpoint is configured and an
// in-process store serving URLs under baseURL otherwise.
func Files(ctx context.Context, cfg config.MinIOConfig, baseURL string) (storage.FileStore, error) {
	if cfg.Endpoint == "" {
		logger.Warn("MINIO_ENDPOINT not set; uploads are kept in memory")
		return storage.NewMemoryStorage(baseURL), nil
	}
	return storage.NewMinIOStorage(ctx, cfg)
}
