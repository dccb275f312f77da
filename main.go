package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/staffhub/portal/handlers"
	"github.com/staffhub/portal/internal/app"
	"github.com/staffhub/portal/internal/config"
	"github.com/staffhub/portal/internal/oidc"
	"github.com/staffhub/portal/internal/portal/handler"
	"github.com/staffhub/portal/internal/sessions"
	"github.com/staffhub/portal/internal/tokens"
	"github.com/staffhub/portal/pkg/logger"
	"github.com/staffhub/portal/pkg/metrics"
	"github.com/staffhub/portal/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Configure(cfg.Server.Environment)
	logger.Infof("config loaded: keycloak=%v mongo=%v redis=%v minio=%v", cfg.Keycloak.URL != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.MinIO.Endpoint != "")
	if cfg.JWT.Secret == "" {
		logger.Fatalf("JWT_SECRET must be set")
	}
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := app.Connect(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to connect backing stores: %v", err)
	}
	defer stores.Close(context.Background())

	svc := app.Build(cfg, stores)
	if err := svc.EnsureIndexes(ctx); err != nil {
		logger.Fatalf("failed to ensure indexes: %v", err)
	}

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	files, err := app.Files(ctx, cfg.MinIO, "http://"+addr+"/files")
	if err != nil {
		logger.Fatalf("failed to initialize file storage: %v", err)
	}

	identity, err := oidc.FromConfig(ctx, cfg.Keycloak)
	if err != nil {
		logger.Warnf("failed to initialize OIDC verifier: %v", err)
	}
	var exchanger handlers.Exchanger
	if cfg.Keycloak.URL != "" && cfg.Keycloak.ClientID != "" {
		exchanger = handlers.NewKeycloakExchanger(cfg.Keycloak)
	}
	blacklist := sessions.NewBlacklist(stores.Redis)
	if stores.Redis == nil {
		logger.Warn("Redis unavailable: logout cannot revoke access tokens before they expire")
	}

	r := gin.New()
	r.Use(cors(), gin.Logger(), gin.Recovery())

	var limit gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && stores.Redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			limit = middleware.RedisRateLimitMiddleware(stores.Redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win)
		} else {
			limit = middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := gin.H{"oidc": identity != nil || cfg.Keycloak.URL == ""}
		if identity == nil && cfg.Keycloak.URL != "" {
			ready = false
		}
		pctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		for name, err := range stores.Ping(pctx) {
			deps[name] = err == nil
			if err != nil {
				ready = false
			}
		}
		status, body := http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": time.Since(startTime).String()}
		if !ready {
			status, body["status"] = http.StatusServiceUnavailable, "not_ready"
		}
		c.JSON(status, body)
	})

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterSwagger(r)

	root := r.Group("/")
	if limit != nil {
		root.Use(limit)
	}
	handlers.NewAuthHandler(cfg.JWT, identity, exchanger, svc.Users, svc.Sessions, blacklist).Register(root)

	verifier := middleware.Chain(tokens.NewVerifier(cfg.JWT.Secret), identity)
	api := r.Group("/api", middleware.AuthMiddleware(verifier, blacklist), middleware.PrincipalMiddleware(svc.Users))
	if limit != nil {
		api.Use(limit)
	}
	handler.New(svc.Portal, svc.Accounts, svc.Outbox, files).Register(api)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting staffportal on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

// cors sets permissive headers and answers preflight requests.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		h.Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
