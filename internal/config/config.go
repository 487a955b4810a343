// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported JWT signing algorithms.
const (
	AlgHS256 = "HS256"
	AlgRS256 = "RS256"
	AlgES256 = "ES256"
)

// Log formats accepted by LOG_FORMAT.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// HTTPAddr is the address of the JSON/HTTP auth endpoints; empty disables them.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// MetricsAddr serves /metrics and /healthz/*; empty disables it.
	MetricsAddr string `mapstructure:"METRICS_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL selects the Redis refresh-token store when set (e.g. redis://localhost:6379/0).
	RedisURL string `mapstructure:"REDIS_URL"`

	// JWTAlgorithm is HS256, RS256 or ES256.
	JWTAlgorithm string `mapstructure:"JWT_ALGORITHM"`
	// JWTSecret is the HMAC secret for HS256; at least 32 bytes.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "ztcp-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "ztcp-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "7d").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`

	// LockoutThreshold is the number of consecutive failed logins that blocks a principal.
	LockoutThreshold int `mapstructure:"LOCKOUT_THRESHOLD"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// OTLPEndpoint enables OpenTelemetry export when set (host:port or URL).
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext OTLP connection.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses; empty disables the event producer.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AuthEventsTopic is the Kafka topic for auth security events.
	AuthEventsTopic string `mapstructure:"AUTH_EVENTS_KAFKA_TOPIC"`

	// JanitorInterval is how often the worker purges expired refresh tokens (e.g. "10m").
	JanitorInterval string `mapstructure:"JANITOR_INTERVAL"`
	// CORSAllowedOrigins is a comma-separated origin allowlist for the HTTP endpoints.
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
// Signing material is checked separately by ValidateAuth so tools that never issue tokens can load config.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("HTTP_ADDR", ":8081")
	v.SetDefault("METRICS_ADDR", ":9100")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("JWT_ALGORITHM", AlgHS256)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "ztcp-auth")
	v.SetDefault("JWT_AUDIENCE", "ztcp-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "7d")
	v.SetDefault("LOCKOUT_THRESHOLD", 5)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", LogFormatJSON)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUTH_EVENTS_KAFKA_TOPIC", "ztcp-auth-events")
	v.SetDefault("JANITOR_INTERVAL", "10m")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}

	cfg.JWTAlgorithm = strings.ToUpper(strings.TrimSpace(cfg.JWTAlgorithm))
	switch cfg.JWTAlgorithm {
	case AlgHS256, AlgRS256, AlgES256:
	default:
		return nil, fmt.Errorf("config: JWT_ALGORITHM %q is not one of HS256, RS256, ES256", cfg.JWTAlgorithm)
	}

	if _, err := positiveDuration("JWT_ACCESS_TTL", cfg.JWTAccessTTL); err != nil {
		return nil, err
	}
	if _, err := positiveDuration("JWT_REFRESH_TTL", cfg.JWTRefreshTTL); err != nil {
		return nil, err
	}
	if _, err := positiveDuration("JANITOR_INTERVAL", cfg.JanitorInterval); err != nil {
		return nil, err
	}

	if cfg.LockoutThreshold < 1 {
		return nil, errors.New("config: LOCKOUT_THRESHOLD must be at least 1")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if cfg.LogFormat != LogFormatJSON && cfg.LogFormat != LogFormatConsole {
		return nil, fmt.Errorf("config: LOG_FORMAT %q must be json or console", cfg.LogFormat)
	}

	if cfg.IsProduction() && strings.TrimSpace(cfg.CORSAllowedOrigins) == "*" {
		return nil, errors.New("config: CORS_ALLOWED_ORIGINS must not be * when APP_ENV=production")
	}

	return &cfg, nil
}

// ValidateAuth checks that the signing material for JWTAlgorithm is present.
func (c *Config) ValidateAuth() error {
	switch c.JWTAlgorithm {
	case AlgHS256:
		if len(c.JWTSecret) < 32 {
			return errors.New("config: JWT_SECRET must be at least 32 bytes for HS256")
		}
	case AlgRS256, AlgES256:
		if c.JWTPrivateKey == "" || c.JWTPublicKey == "" {
			return fmt.Errorf("config: JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set for %s", c.JWTAlgorithm)
		}
	default:
		return fmt.Errorf("config: JWT_ALGORITHM %q is not supported", c.JWTAlgorithm)
	}
	return nil
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}

// AccessTTL parses JWTAccessTTL. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return durationOr(c.JWTAccessTTL, 15*time.Minute)
}

// RefreshTTL parses JWTRefreshTTL. Returns 7 days if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return durationOr(c.JWTRefreshTTL, 7*24*time.Hour)
}

// JanitorEvery parses JanitorInterval. Returns 10m if unset or invalid.
func (c *Config) JanitorEvery() time.Duration {
	return durationOr(c.JanitorInterval, 10*time.Minute)
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list disables the auth event producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.KafkaBrokers)
}

// CORSOrigins returns the allowed origins for the HTTP transport.
func (c *Config) CORSOrigins() []string {
	if c == nil {
		return nil
	}
	return splitList(c.CORSAllowedOrigins)
}

// ParseDuration parses a Go duration ("15m", "168h") or a whole number of days ("7d").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func positiveDuration(key, s string) (time.Duration, error) {
	d, err := ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be positive", key)
	}
	return d, nil
}

func durationOr(s string, fallback time.Duration) time.Duration {
	d, err := ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
