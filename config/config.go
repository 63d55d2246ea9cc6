package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// devJWTSecret is only accepted outside production
const devJWTSecret = "dev-only-insecure-secret-change-me-please"

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Watsonx       WatsonxConfig
	Redis         RedisConfig
	CORS          CORSConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	RunMigrations    bool
}

// AuthConfig holds session token and password hashing settings
type AuthConfig struct {
	JWTSecret    string
	JWTAlgorithm string
	TokenTTL     time.Duration
	BcryptCost   int
}

// WatsonxConfig holds settings for the remote text-generation service
type WatsonxConfig struct {
	APIKey          string
	ProjectID       string
	URL             string
	IAMURL          string
	ModelID         string
	FallbackModels  []string
	IAMTimeout      time.Duration
	CatalogTimeout  time.Duration
	GenerateTimeout time.Duration
	RefreshSchedule string // cron spec with seconds; empty disables periodic refresh
}

// RedisConfig holds the optional rate limiting store
type RedisConfig struct {
	URL               string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Enabled reports whether a Redis URL was configured
func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

// CORSConfig holds allowed browser origins
type CORSConfig struct {
	AllowedOrigins []string
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
}

// DefaultFallbackModels is the ranked list of Granite models tried when the
// configured model is not offered by the provider.
var DefaultFallbackModels = []string{
	"ibm/granite-3-8b-instruct",
	"ibm/granite-3-3-8b-instruct",
	"ibm/granite-3-2-8b-instruct",
	"ibm/granite-3-2b-instruct",
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 75*time.Second),
		},
		Database: loadDatabaseConfig(),
		Auth: AuthConfig{
			JWTSecret:    getEnv("JWT_SECRET", ""),
			JWTAlgorithm: strings.ToUpper(getEnv("JWT_ALGORITHM", "HS256")),
			TokenTTL:     time.Duration(getEnvAsInt("JWT_EXPIRE_MINUTES", 60)) * time.Minute,
			BcryptCost:   getEnvAsInt("BCRYPT_COST", 10),
		},
		Watsonx: WatsonxConfig{
			APIKey:          getEnv("WATSONX_API_KEY", ""),
			ProjectID:       getEnv("WATSONX_PROJECT_ID", ""),
			URL:             strings.TrimRight(getEnv("WATSONX_URL", "https://us-south.ml.cloud.ibm.com"), "/"),
			IAMURL:          getEnv("WATSONX_IAM_URL", "https://iam.cloud.ibm.com/identity/token"),
			ModelID:         getEnv("WATSONX_MODEL_ID", "ibm/granite-3-8b-instruct"),
			FallbackModels:  getEnvAsSlice("WATSONX_FALLBACK_MODELS", DefaultFallbackModels),
			IAMTimeout:      getEnvAsDuration("WATSONX_IAM_TIMEOUT", 15*time.Second),
			CatalogTimeout:  getEnvAsDuration("WATSONX_CATALOG_TIMEOUT", 20*time.Second),
			GenerateTimeout: getEnvAsDuration("WATSONX_GENERATE_TIMEOUT", 30*time.Second),
			RefreshSchedule: getEnv("WATSONX_REFRESH_SCHEDULE", "0 */45 * * * *"),
		},
		Redis: RedisConfig{
			URL:               getEnv("REDIS_URL", ""),
			RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 60),
			RateLimitWindow:   getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:8501"}),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	if cfg.Auth.JWTSecret == "" && !cfg.IsProduction() {
		cfg.Auth.JWTSecret = devJWTSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.IsProduction() {
		if c.Auth.JWTSecret == devJWTSecret {
			return fmt.Errorf("the development JWT secret cannot be used in production")
		}
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 bytes in production")
		}
	}
	switch c.Auth.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported JWT algorithm %q", c.Auth.JWTAlgorithm)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_EXPIRE_MINUTES must be positive")
	}

	if len(c.Watsonx.FallbackModels) == 0 {
		return fmt.Errorf("at least one fallback model is required")
	}
	if c.Watsonx.ModelID == "" {
		return fmt.Errorf("WATSONX_MODEL_ID cannot be empty")
	}

	// zero disables rate limiting
	if c.Redis.RateLimitRequests < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS cannot be negative")
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// UsesDevSecret reports whether tokens are signed with the built-in development secret
func (c *Config) UsesDevSecret() bool {
	return c.Auth.JWTSecret == devJWTSecret
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password)
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			return fmt.Sprintf("host=%s port=%s database=%s", u.Hostname(), port, strings.TrimPrefix(u.Path, "/"))
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

func loadDatabaseConfig() DatabaseConfig {
	cfg := DatabaseConfig{
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		RunMigrations:   getEnvAsBool("DB_RUN_MIGRATIONS", true),
	}
	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		cfg.ConnectionString = dbURL
		return cfg
	}
	cfg.Host = getEnv("DB_HOST", "localhost")
	cfg.Port = getEnvAsInt("DB_PORT", 5432)
	cfg.User = getEnv("DB_USER", "smartcity")
	cfg.Password = getEnv("DB_PASSWORD", "")
	cfg.Database = getEnv("DB_NAME", "smartcity")
	cfg.SSLMode = getEnv("DB_SSLMODE", "disable")
	return cfg
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8000)
func getPort() int {
	for _, key := range []string{"PORT", "SERVER_PORT"} {
		if value := os.Getenv(key); value != "" {
			if p, err := strconv.Atoi(value); err == nil {
				return p
			}
		}
	}
	return 8000
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice splits a comma separated variable, dropping blanks
func getEnvAsSlice(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
