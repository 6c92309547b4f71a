package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AuditBackendFile     = "file"
	AuditBackendPostgres = "postgres"
)

type Config struct {
	Database      DatabaseConfig
	Server        ServerConfig
	Auth          AuthConfig
	Security      SecurityConfig
	Audit         AuditConfig
	Notify        NotifyConfig
	Observability ObservabilityConfig
	Admin         AdminConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	AutoMigrate       bool
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

type AuthConfig struct {
	JWTSecret             string
	AccessTokenExpiry     time.Duration
	BcryptCost            int
	RequireMixedCase      bool
	PasswordSymbols       string
	TimingDelayBaseMs     int
	TimingDelayRandomMs   int
	AuthEndpointRateLimit int
}

// SecurityConfig holds the thresholds used by the security monitor and the
// access guard.
type SecurityConfig struct {
	FailureThreshold int
	FailureWindow    time.Duration
	RateThreshold    int
	RateWindow       time.Duration
	MaxBodyBytes     int64
	SweepInterval    time.Duration
}

type AuditConfig struct {
	Backend string
	LogPath string
}

// NotifyConfig controls e-mail delivery of security alerts. Delivery is
// disabled when To is empty.
type NotifyConfig struct {
	To          string
	From        string
	AWSRegion   string
	MinSeverity string
	PerMinute   int
}

type ObservabilityConfig struct {
	SentryDSN      string
	MetricsEnabled bool
}

type AdminConfig struct {
	Email    string
	Password string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "fintrack"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES", nil),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:             jwtSecret,
			AccessTokenExpiry:     getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 30*time.Minute),
			BcryptCost:            getEnvAsInt("BCRYPT_COST", 12),
			RequireMixedCase:      getEnvAsBool("PASSWORD_REQUIRE_MIXED_CASE", true),
			PasswordSymbols:       getEnv("PASSWORD_SYMBOLS", `!@#$%^&*(),.?":{}|<>`),
			TimingDelayBaseMs:     getEnvAsInt("TIMING_DELAY_BASE_MS", 100),
			TimingDelayRandomMs:   getEnvAsInt("TIMING_DELAY_RANDOM_MS", 50),
			AuthEndpointRateLimit: getEnvAsInt("AUTH_ENDPOINT_RATE_LIMIT", 20),
		},
		Security: SecurityConfig{
			FailureThreshold: getEnvAsInt("FAILURE_THRESHOLD", 5),
			FailureWindow:    getEnvAsDuration("FAILURE_WINDOW", 5*time.Minute),
			RateThreshold:    getEnvAsInt("RATE_THRESHOLD", 100),
			RateWindow:       getEnvAsDuration("RATE_WINDOW", 1*time.Minute),
			MaxBodyBytes:     int64(getEnvAsInt("MAX_BODY_BYTES", 5*1024*1024)),
			SweepInterval:    getEnvAsDuration("MONITOR_SWEEP_INTERVAL", 1*time.Minute),
		},
		Audit: AuditConfig{
			Backend: strings.ToLower(getEnv("AUDIT_BACKEND", AuditBackendFile)),
			LogPath: getEnv("AUDIT_LOG_PATH", "audit.log"),
		},
		Notify: NotifyConfig{
			To:          getEnv("ALERT_EMAIL_TO", ""),
			From:        getEnv("ALERT_EMAIL_FROM", "security@fintrack.local"),
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			MinSeverity: getEnv("ALERT_EMAIL_MIN_SEVERITY", "high"),
			PerMinute:   getEnvAsInt("ALERT_EMAIL_PER_MINUTE", 6),
		},
		Observability: ObservabilityConfig{
			SentryDSN:      getEnv("SENTRY_DSN", ""),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	// Validate JWT secret strength
	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Security.FailureThreshold < 1 {
		return fmt.Errorf("FAILURE_THRESHOLD must be at least 1")
	}
	if c.Security.RateThreshold < 1 {
		return fmt.Errorf("RATE_THRESHOLD must be at least 1")
	}
	if c.Security.FailureWindow <= 0 || c.Security.RateWindow <= 0 {
		return fmt.Errorf("FAILURE_WINDOW and RATE_WINDOW must be positive")
	}
	if c.Security.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive")
	}
	switch c.Audit.Backend {
	case AuditBackendFile, AuditBackendPostgres:
	default:
		return fmt.Errorf("AUDIT_BACKEND must be %q or %q (got %q)", AuditBackendFile, AuditBackendPostgres, c.Audit.Backend)
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	return nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32 // 256 bits
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string, defaultVal []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if origins := getEnvAsList("ALLOWED_ORIGINS", nil); origins != nil {
		return origins
	}
	if env == "production" {
		return []string{} // no origins unless configured
	}

	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
