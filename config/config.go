package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port            string
	ShutdownTimeout time.Duration

	Database DatabaseConfig
	Auth     AuthConfig
	Upload   UploadConfig
	Seed     SeedConfig

	AllowedOrigins []string
	LogLevel       string
	LogFormat      string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
}

type AuthConfig struct {
	SecretKey []byte
	TokenTTL  time.Duration
	Issuer    string
}

type UploadConfig struct {
	Dir      string
	MaxBytes int64
}

// SeedConfig describes the data inserted at startup. An empty admin username skips admin seeding.
type SeedConfig struct {
	AdminUsername string
	AdminPassword string
	SampleData    bool
}

var defaultOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Info("no .env file found, reading environment variables")
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second),
			ConnectTimeout:  getEnvAsDuration("DB_CONNECT_TIMEOUT", 2*time.Second),
		},
		Auth: AuthConfig{
			SecretKey: []byte(os.Getenv("JWT_SECRET_KEY")),
			TokenTTL:  getEnvAsDuration("JWT_TTL", 24*time.Hour),
			Issuer:    getEnv("JWT_ISSUER", "menu-api"),
		},
		Upload: UploadConfig{
			Dir:      getEnv("UPLOAD_DIR", "uploads"),
			MaxBytes: int64(getEnvAsInt("UPLOAD_MAX_BYTES", 5<<20)),
		},
		Seed: SeedConfig{
			AdminUsername: os.Getenv("ADMIN_USERNAME"),
			AdminPassword: os.Getenv("ADMIN_PASSWORD"),
			SampleData:    getEnvAsBool("SEED_SAMPLE_DATA", false),
		},
		AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", defaultOrigins),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate reports every invalid setting, not only the first one.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Port == "" {
		result = multierror.Append(result, fmt.Errorf("PORT is required"))
	}
	if c.Database.URL == "" {
		result = multierror.Append(result, fmt.Errorf("DATABASE_URL is required"))
	}
	if len(c.Auth.SecretKey) == 0 {
		result = multierror.Append(result, fmt.Errorf("JWT_SECRET_KEY is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		result = multierror.Append(result, fmt.Errorf("JWT_TTL must be positive"))
	}
	if c.Upload.MaxBytes <= 0 {
		result = multierror.Append(result, fmt.Errorf("UPLOAD_MAX_BYTES must be positive"))
	}
	if c.Seed.AdminUsername != "" && len(c.Seed.AdminPassword) < 6 {
		result = multierror.Append(result, fmt.Errorf("ADMIN_PASSWORD must be at least 6 characters"))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		result = multierror.Append(result, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}

	return result.ErrorOrNil()
}

// ConfigureLogger applies level and formatter to the standard logrus logger.
func (c *Config) ConfigureLogger() {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if c.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
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

func getEnvAsSlice(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	var values []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
