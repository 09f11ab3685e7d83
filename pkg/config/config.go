package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "ANALYTICS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv              = "ANALYTICS_APP_ENV"
	EnvPort                = "ANALYTICS_APP_PORT"
	EnvRedisURL            = "ANALYTICS_REDIS_URL"
	EnvJWTSecret           = "ANALYTICS_JWT_SECRET"
	EnvJWTIssuer           = "ANALYTICS_JWT_ISSUER"
	EnvStorefrontBaseURL   = "ANALYTICS_STOREFRONT_BASE_URL"
	EnvStorefrontToken     = "ANALYTICS_STOREFRONT_API_TOKEN"
	EnvStorefrontPageLimit = "ANALYTICS_STOREFRONT_PAGE_LIMIT"
	EnvForecastPeriods     = "ANALYTICS_FORECAST_PERIODS"
	EnvPollerInterval      = "ANALYTICS_POLLER_INTERVAL"
)

type Config struct {
	App        AppConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Storefront StorefrontConfig
	Analytics  AnalyticsConfig
	Poller     PollerConfig
	RateLimit  RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Storefront.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ANALYTICS_APP_ENV" required:"true"`
	Port         string `envconfig:"ANALYTICS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ANALYTICS_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"ANALYTICS_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"ANALYTICS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type RedisConfig struct {
	URL          string        `envconfig:"ANALYTICS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ANALYTICS_REDIS_ADDR"`
	Password     string        `envconfig:"ANALYTICS_REDIS_PASSWORD"`
	DB           int           `envconfig:"ANALYTICS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ANALYTICS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ANALYTICS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ANALYTICS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ANALYTICS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ANALYTICS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ANALYTICS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ANALYTICS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ANALYTICS_JWT_EXPIRATION_MINUTES" default:"60"`
	AdminRole         string `envconfig:"ANALYTICS_JWT_ADMIN_ROLE" default:"admin"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"ANALYTICS_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// StorefrontConfig points at the upstream store REST API, e.g. http://host/api.
type StorefrontConfig struct {
	BaseURL   string        `envconfig:"ANALYTICS_STOREFRONT_BASE_URL" required:"true"`
	APIToken  string        `envconfig:"ANALYTICS_STOREFRONT_API_TOKEN"`
	Timeout   time.Duration `envconfig:"ANALYTICS_STOREFRONT_TIMEOUT" default:"30s"`
	PageLimit int           `envconfig:"ANALYTICS_STOREFRONT_PAGE_LIMIT" default:"1000"`
}

func (s StorefrontConfig) validate() error {
	u, err := url.Parse(s.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute url, got %q", EnvStorefrontBaseURL, s.BaseURL)
	}
	if s.PageLimit <= 0 {
		return fmt.Errorf("%s must be positive", EnvStorefrontPageLimit)
	}
	return nil
}

type AnalyticsConfig struct {
	ForecastPeriods int           `envconfig:"ANALYTICS_FORECAST_PERIODS" default:"3"`
	ProductCacheTTL time.Duration `envconfig:"ANALYTICS_PRODUCT_CACHE_TTL" default:"5m"`
	// DefaultRange is applied when a dashboard request names no range.
	DefaultRange string `envconfig:"ANALYTICS_DEFAULT_RANGE" default:"weekly"`
}

type PollerConfig struct {
	Interval    time.Duration `envconfig:"ANALYTICS_POLLER_INTERVAL" default:"30s"`
	SnapshotTTL time.Duration `envconfig:"ANALYTICS_POLLER_SNAPSHOT_TTL" default:"5m"`
}

type RateLimitConfig struct {
	ExportWindow time.Duration `envconfig:"ANALYTICS_RATE_LIMIT_EXPORT_WINDOW" default:"1m"`
	ExportLimit  int           `envconfig:"ANALYTICS_RATE_LIMIT_EXPORT_LIMIT" default:"10"`
}
