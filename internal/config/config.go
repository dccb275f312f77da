package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/staffhub/portal/pkg/logger"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Keycloak  KeycloakConfig
	JWT       JWTConfig
	MinIO     MinIOConfig
	RateLimit RateLimitConfig
	Portal    PortalConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

type KeycloakConfig struct {
	URL          string
	Realm        string
	ClientID     string
	ClientSecret string
	// AllowInsecure accepts unsigned tokens; integration tests only.
	AllowInsecure bool
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type MinIOConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	UseSSL     bool
	Bucket     string
	PresignTTL time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

// PortalConfig tunes the submission workflows.
type PortalConfig struct {
	// VideoDebounce bounds how often video progress is persisted per user and module.
	VideoDebounce time.Duration
	// VideoGatePercent is the watched percentage required to complete a module with a video.
	VideoGatePercent float64
	// RevalidateChannel is the Redis channel stale view paths are published on.
	RevalidateChannel string
	// NotifyConcurrency bounds parallel notification writes during fan-out.
	NotifyConcurrency int
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5001")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("MONGODB_DATABASE", "staffportal")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_ACCESS_TOKEN_TTL", 15)
	viper.SetDefault("JWT_REFRESH_TOKEN_TTL", 10080)
	viper.SetDefault("MINIO_BUCKET", "staffportal")
	viper.SetDefault("MINIO_PRESIGN_TTL", 15)
	viper.SetDefault("RATE_LIMIT_ENABLED", false)
	viper.SetDefault("RATE_LIMIT_USE_REDIS", false)
	viper.SetDefault("RATE_LIMIT_RPS", 10.0)
	viper.SetDefault("RATE_LIMIT_BURST", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	viper.SetDefault("PORTAL_VIDEO_DEBOUNCE_SECONDS", 5)
	viper.SetDefault("PORTAL_VIDEO_GATE_PERCENT", 90.0)
	viper.SetDefault("PORTAL_REVALIDATE_CHANNEL", "portal:revalidate")
	viper.SetDefault("PORTAL_NOTIFY_CONCURRENCY", 8)

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Keycloak: KeycloakConfig{
			URL:           viper.GetString("KEYCLOAK_URL"),
			Realm:         viper.GetString("KEYCLOAK_REALM"),
			ClientID:      viper.GetString("KEYCLOAK_CLIENT_ID"),
			ClientSecret:  viper.GetString("KEYCLOAK_CLIENT_SECRET"),
			AllowInsecure: viper.GetBool("ALLOW_INSECURE_TOKEN"),
		},
		JWT: JWTConfig{
			Secret:          viper.GetString("JWT_SECRET"),
			AccessTokenTTL:  time.Duration(viper.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
			RefreshTokenTTL: time.Duration(viper.GetInt("JWT_REFRESH_TOKEN_TTL")) * time.Minute,
		},
		MinIO: MinIOConfig{
			Endpoint:   viper.GetString("MINIO_ENDPOINT"),
			AccessKey:  viper.GetString("MINIO_ACCESS_KEY"),
			SecretKey:  viper.GetString("MINIO_SECRET_KEY"),
			UseSSL:     viper.GetBool("MINIO_USE_SSL"),
			Bucket:     viper.GetString("MINIO_BUCKET"),
			PresignTTL: time.Duration(viper.GetInt("MINIO_PRESIGN_TTL")) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Portal: PortalConfig{
			VideoDebounce:     time.Duration(viper.GetInt("PORTAL_VIDEO_DEBOUNCE_SECONDS")) * time.Second,
			VideoGatePercent:  viper.GetFloat64("PORTAL_VIDEO_GATE_PERCENT"),
			RevalidateChannel: viper.GetString("PORTAL_REVALIDATE_CHANNEL"),
			NotifyConcurrency: viper.GetInt("PORTAL_NOTIFY_CONCURRENCY"),
		},
	}

	// Basic validation
	if cfg.JWT.Secret == "" {
		logger.Warn("JWT_SECRET is not set; set a secure value in production")
	}
	if cfg.MongoDB.URI == "" {
		logger.Warn("MONGODB_URI is not set; records are kept in memory only")
	}

	return cfg, nil
}
