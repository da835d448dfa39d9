// Package config provides centralized configuration management for the service.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"

	"github.com/JonMunkholm/bomquote/internal/bom"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Catalog  CatalogConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Matching MatchingConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// CatalogConfig selects where the product catalog is read from. Exactly one
// of DATABASE_URL or CATALOG_FILE must be set.
type CatalogConfig struct {
	// File is a YAML or JSON product list used instead of the database
	File string `env:"CATALOG_FILE"`

	// Table is the PostgreSQL table or view holding catalog products
	Table string `env:"CATALOG_TABLE" default:"catalog_products"`

	// OrderColumn orders catalog rows; its order is the final match tiebreak
	OrderColumn string `env:"CATALOG_ORDER_COLUMN" default:"id"`

	// RefreshInterval is how long a loaded catalog snapshot is reused (default: 5m)
	RefreshInterval time.Duration `env:"CATALOG_REFRESH_INTERVAL" default:"5m"`

	// LoadTimeout bounds a single catalog load (default: 10s)
	LoadTimeout time.Duration `env:"CATALOG_LOAD_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// UploadConfig holds BOM upload and session settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 10MiB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent is the maximum number of uploads processed at once (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for an upload slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// SessionTTL is how long an upload session lives after its last use (default: 2h)
	SessionTTL time.Duration `env:"UPLOAD_SESSION_TTL" default:"2h"`

	// CleanupInterval is how often expired sessions are removed (default: 5m)
	CleanupInterval time.Duration `env:"UPLOAD_CLEANUP_INTERVAL" default:"5m"`

	// MaxSessions caps the number of live sessions (default: 1000)
	MaxSessions int `env:"UPLOAD_MAX_SESSIONS" default:"1000"`
}

// MatchingConfig holds the matcher's tunable policy and vocabulary.
type MatchingConfig struct {
	DimensionWeight float64 `env:"MATCH_DIMENSION_WEIGHT" default:"0.5"`
	GradeWeight     float64 `env:"MATCH_GRADE_WEIGHT" default:"0.3"`
	CoverageWeight  float64 `env:"MATCH_COVERAGE_WEIGHT" default:"0.2"`

	// NoEvidenceScore is the dimension score when nothing could be compared
	NoEvidenceScore float64 `env:"MATCH_NO_EVIDENCE_SCORE" default:"0.3"`

	HighThreshold   float64 `env:"MATCH_HIGH_THRESHOLD" default:"0.85"`
	MediumThreshold float64 `env:"MATCH_MEDIUM_THRESHOLD" default:"0.6"`
	LowThreshold    float64 `env:"MATCH_LOW_THRESHOLD" default:"0.35"`

	// VocabularyFile extends the built-in family, grade and unit tables
	VocabularyFile string `env:"MATCH_VOCABULARY_FILE"`

	// SuggestionLimit is the default number of manual-mapping suggestions (default: 5)
	SuggestionLimit int `env:"MATCH_SUGGESTION_LIMIT" default:"5"`
}

// Policy converts the settings into a matcher policy. Dimension bands are
// not configurable.
func (m MatchingConfig) Policy() bom.Policy {
	p := bom.DefaultPolicy()
	p.DimensionWeight = m.DimensionWeight
	p.GradeWeight = m.GradeWeight
	p.CoverageWeight = m.CoverageWeight
	p.NoEvidenceScore = m.NoEvidenceScore
	p.HighThreshold = m.HighThreshold
	p.MediumThreshold = m.MediumThreshold
	p.LowThreshold = m.LowThreshold
	return p
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for the upload endpoint (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey enables X-API-Key checks on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" default:"true"`
	Path    string `env:"METRICS_PATH" default:"/metrics"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// UsesDatabase reports whether the catalog is read from PostgreSQL.
func (c *Config) UsesDatabase() bool {
	return c.Catalog.File == "" && c.Database.URL != ""
}
