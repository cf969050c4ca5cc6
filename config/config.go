package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Deployment environments understood by APP_ENV.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
	EnvTesting     = "testing"
	EnvDebug       = "debug"
)

// defaultSessionSecret is only acceptable outside production.
const defaultSessionSecret = "secret"

type Config struct {
	Env      string
	Server   ServerConfig
	Database DatabaseConfig
	Session  SessionConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	// URI is empty when the testing environment runs on the memory store.
	URI         string
	Name        string
	Timeout     time.Duration
	MaxPoolSize int
}

type SessionConfig struct {
	Secret     string
	Backend    string // "memory" or "redis"
	RedisAddr  string
	CookieName string
	TTL        time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// LoadEnv loads environment variables from a .env file
func LoadEnv() {
	if err := godotenv.Load(".env"); err != nil {
		log.Debug("No .env file loaded")
	}
}

// Load builds the configuration from the process environment.
func Load() (*Config, error) {
	LoadEnv()

	cfg := &Config{
		Env: GetEnv("APP_ENV", EnvDevelopment),
		Server: ServerConfig{
			Port:         GetEnv("PORT", "3000"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Timeout:     getEnvDuration("DB_TIMEOUT", 10*time.Second),
			MaxPoolSize: getEnvInt("DB_MAX_POOL_SIZE", 100),
		},
		Session: SessionConfig{
			Secret:     GetEnv("SESSION_SECRET", defaultSessionSecret),
			Backend:    GetEnv("SESSION_BACKEND", "memory"),
			RedisAddr:  GetEnv("REDIS_ADDR", "localhost:6379"),
			CookieName: GetEnv("SESSION_COOKIE", "db44_session"),
			TTL:        getEnvDuration("SESSION_TTL", 6*time.Hour),
		},
		Log: LogConfig{
			Level:  GetEnv("LOG_LEVEL", "info"),
			Format: GetEnv("LOG_FORMAT", "text"),
		},
	}

	if err := cfg.resolveDatabase(); err != nil {
		return nil, err
	}
	if cfg.Env == EnvProduction && (cfg.Session.Secret == "" || cfg.Session.Secret == defaultSessionSecret) {
		return nil, fmt.Errorf("SESSION_SECRET must be set to a non-default value in production")
	}
	if cfg.Session.Backend != "memory" && cfg.Session.Backend != "redis" {
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
	return cfg, nil
}

func (c *Config) resolveDatabase() error {
	switch c.Env {
	case EnvProduction:
		c.Database.URI = fmt.Sprintf("mongodb+srv://%s:%s@%s",
			os.Getenv("DB_USERNAME"), os.Getenv("DB_PASSWORD"), os.Getenv("DB_URL"))
		c.Database.Name = "db44"
	case EnvDevelopment:
		c.Database.URI = "mongodb://mongo:27017/db44_dev"
		c.Database.Name = "db44_dev"
	case EnvDebug:
		c.Database.URI = "mongodb://localhost:27017/db44_dev"
		c.Database.Name = "db44_dev"
	case EnvTesting:
		c.Database.Name = "db44_test"
	default:
		return fmt.Errorf("no environment specified, set APP_ENV to one of production, development, testing, debug (got %q)", c.Env)
	}

	if uri, ok := os.LookupEnv("MONGODB_URI"); ok && uri != "" && c.Env != EnvTesting {
		c.Database.URI = uri
	}
	return nil
}

// ShouldReset reports whether the database is dropped and reseeded on boot.
func (c *Config) ShouldReset() bool {
	return c.Env == EnvDevelopment || c.Env == EnvDebug
}

// UsesMemoryStore reports whether the environment runs without a Mongo server.
func (c *Config) UsesMemoryStore() bool {
	return c.Env == EnvTesting
}

// GetEnv retrieves environment variables with a fallback
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
		log.WithField("key", key).Warn("Invalid integer, using default")
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.WithField("key", key).Warn("Invalid duration, using default")
	}
	return fallback
}
