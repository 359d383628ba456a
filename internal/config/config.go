package config

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`
	Env  string `envconfig:"ENV" default:"development"`

	// Upstream services
	Backend BackendConfig

	// JWT configuration
	JWT JWTConfig

	// Credential cookie configuration
	Cookie CookieConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	RedisURL string `envconfig:"REDIS_URL" required:"true"`

	// CORS configuration
	CORS CORSConfig

	// Rate limiting configuration
	RateLimit RateLimitConfig
}

// BackendConfig locates the platform API and the rendering origin
type BackendConfig struct {
	APIBaseURL string        `envconfig:"API_BASE_URL" default:"http://localhost:5000/api/v1"`
	AppOrigin  string        `envconfig:"APP_ORIGIN" default:"http://localhost:3000"`
	Timeout    time.Duration `envconfig:"API_TIMEOUT" default:"10s"`
}

// JWTConfig holds the access token verification secret
type JWTConfig struct {
	AccessSecret string `envconfig:"ACCESS_TOKEN_SECRET" required:"true"`
}

// CookieConfig holds credential cookie attributes
type CookieConfig struct {
	Secure   bool   `envconfig:"COOKIE_SECURE" default:"true"`
	SameSite string `envconfig:"COOKIE_SAME_SITE" default:"none"`
	Domain   string `envconfig:"COOKIE_DOMAIN" default:""`
}

// ParsedSameSite maps the configured SameSite name to its http constant
func (c CookieConfig) ParsedSameSite() http.SameSite {
	switch strings.ToLower(c.SameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteNoneMode
	}
}

// DatabaseConfig holds PostgreSQL configuration for the audit trail
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" required:"true"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	Name     string `envconfig:"DB_NAME" required:"true"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"require"`
}

// ConnectionString returns the PostgreSQL connection string
func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// URL returns the postgres:// connection URL used by the migrator
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// RateLimitConfig holds login rate limiting configuration
type RateLimitConfig struct {
	Window          time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"10m"`
	MaxAttempts     int           `envconfig:"RATE_LIMIT_MAX_ATTEMPTS" default:"5"`
	LockoutDuration time.Duration `envconfig:"RATE_LIMIT_LOCKOUT_DURATION" default:"15m"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return &cfg, nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
