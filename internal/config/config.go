// Package config loads the marketplace service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/tair/farm-marketplace/internal/listing/manager"
	"github.com/tair/farm-marketplace/pkg/database"
	"github.com/tair/farm-marketplace/pkg/tracing"
)

// Store backends
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config is the full service configuration
type Config struct {
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"farm-marketplace"`
	Version     string `env:"SERVICE_VERSION" envDefault:"dev"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	InstanceID  string `env:"INSTANCE_ID"`

	HTTPPort       string        `env:"HTTP_PORT" envDefault:"8080"`
	GRPCPort       string        `env:"GRPC_PORT" envDefault:"9090"`
	RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`

	StoreBackend       string        `env:"STORE_BACKEND" envDefault:"memory"`
	StoreTimeout       time.Duration `env:"STORE_TIMEOUT" envDefault:"15s"`
	MaxConflictRetries int           `env:"MAX_CONFLICT_RETRIES" envDefault:"3"`
	ResubscribeDelay   time.Duration `env:"RESUBSCRIBE_DELAY" envDefault:"1s"`
	PollInterval       time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`

	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Database DatabaseConfig `envPrefix:"DB_"`
	Kafka    KafkaConfig    `envPrefix:"KAFKA_"`

	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"0"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	JWTSecret string `env:"JWT_SECRET"`
	JWTIssuer string `env:"JWT_ISSUER"`

	JaegerEndpoint   string  `env:"JAEGER_ENDPOINT"`
	TraceSampleRatio float64 `env:"TRACE_SAMPLE_RATIO" envDefault:"1"`
}

// RedisConfig configures the Redis listing store
type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
	Prefix   string `env:"PREFIX" envDefault:"marketplace"`
}

// DatabaseConfig configures the Postgres listing store
type DatabaseConfig struct {
	Host            string        `env:"HOST" envDefault:"localhost"`
	Port            string        `env:"PORT" envDefault:"5432"`
	User            string        `env:"USER" envDefault:"postgres"`
	Password        string        `env:"PASSWORD" envDefault:"postgres"`
	Name            string        `env:"NAME" envDefault:"marketplacedb"`
	SSLMode         string        `env:"SSLMODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
}

// KafkaConfig configures listing event fan-out. No brokers disables Kafka.
type KafkaConfig struct {
	Brokers []string `env:"BROKERS" envSeparator:","`
	Topic   string   `env:"TOPIC" envDefault:"listing-events"`
	GroupID string   `env:"GROUP_ID" envDefault:"farm-marketplace"`
}

// Load reads the given .env files (default ".env") when present and parses the environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	return Parse(env.Options{})
}

// Parse builds a Config from the process environment or opts.Environment
func Parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.New().String()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values env tags cannot express
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q: want memory, redis or postgres", c.StoreBackend)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive, got %s", c.StoreTimeout)
	}
	if c.MaxConflictRetries < 0 {
		return fmt.Errorf("MAX_CONFLICT_RETRIES must not be negative, got %d", c.MaxConflictRetries)
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return fmt.Errorf("TRACE_SAMPLE_RATIO must be within [0, 1], got %v", c.TraceSampleRatio)
	}
	if c.RateLimitRequests > 0 && c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.RateLimitWindow)
	}
	if !c.IsDevelopment() && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required outside development")
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// KafkaEnabled reports whether listing events are published
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

// RateLimitEnabled reports whether listing mutations are rate limited through Redis
func (c *Config) RateLimitEnabled() bool {
	return c.RateLimitRequests > 0
}

// RedisConfig returns the connection settings for pkg/database
func (c *Config) RedisConfig() database.RedisConfig {
	return database.RedisConfig{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}
}

// Manager returns the listing manager tuning
func (c *Config) Manager() manager.Config {
	return manager.Config{
		StoreTimeout:       c.StoreTimeout,
		MaxConflictRetries: c.MaxConflictRetries,
		ResubscribeDelay:   c.ResubscribeDelay,
	}
}

// DatabaseConfig returns the connection settings for pkg/database
func (c *Config) DatabaseConfig() database.Config {
	return database.Config{
		Host:            c.Database.Host,
		Port:            c.Database.Port,
		User:            c.Database.User,
		Password:        c.Database.Password,
		DBName:          c.Database.Name,
		SSLMode:         c.Database.SSLMode,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
	}
}

// Tracing returns the tracer settings
func (c *Config) Tracing() tracing.Config {
	return tracing.Config{
		ServiceName:    c.ServiceName,
		ServiceVersion: c.Version,
		Endpoint:       c.JaegerEndpoint,
		SampleRatio:    c.TraceSampleRatio,
	}
}
