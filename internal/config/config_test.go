package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(env.Options{Environment: map[string]string{}})
	require.NoError(t, err)

	assert.Equal(t, "farm-marketplace", cfg.ServiceName)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 15*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 3, cfg.MaxConflictRetries)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "listing-events", cfg.Kafka.Topic)
	assert.False(t, cfg.KafkaEnabled())
	assert.False(t, cfg.RateLimitEnabled())
	assert.Equal(t, "localhost:6379", cfg.RedisConfig().Addr)
	assert.True(t, cfg.IsDevelopment())
	assert.NotEmpty(t, cfg.InstanceID)

	m := cfg.Manager()
	assert.Equal(t, cfg.StoreTimeout, m.StoreTimeout)
	assert.Equal(t, "marketplacedb", cfg.DatabaseConfig().DBName)
	assert.Equal(t, "farm-marketplace", cfg.Tracing().ServiceName)
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse(env.Options{Environment: map[string]string{
		"ENVIRONMENT":          "production",
		"JWT_SECRET":           "s3cret",
		"STORE_BACKEND":        "postgres",
		"STORE_TIMEOUT":        "5s",
		"MAX_CONFLICT_RETRIES": "0",
		"DB_HOST":              "db",
		"DB_MAX_OPEN_CONNS":    "10",
		"KAFKA_BROKERS":        "k1:9092,k2:9092",
		"INSTANCE_ID":          "node-a",
	}})
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 0, cfg.MaxConflictRetries)
	assert.Equal(t, "db", cfg.DatabaseConfig().Host)
	assert.Equal(t, 10, cfg.DatabaseConfig().MaxOpenConns)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, "node-a", cfg.InstanceID)
	assert.False(t, cfg.IsDevelopment())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"STORE_BACKEND": "mongo"}},
		{"zero timeout", map[string]string{"STORE_TIMEOUT": "0s"}},
		{"negative retries", map[string]string{"MAX_CONFLICT_RETRIES": "-1"}},
		{"sample ratio", map[string]string{"TRACE_SAMPLE_RATIO": "1.5"}},
		{"rate limit window", map[string]string{"RATE_LIMIT_REQUESTS": "5", "RATE_LIMIT_WINDOW": "0s"}},
		{"production without secret", map[string]string{"ENVIRONMENT": "production"}},
		{"malformed duration", map[string]string{"POLL_INTERVAL": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(env.Options{Environment: tt.env})
			assert.Error(t, err)
		})
	}
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("MARKETPLACE_TEST_BACKEND=redis\n"), 0o600))
	t.Setenv("MARKETPLACE_TEST_BACKEND", "")
	os.Unsetenv("MARKETPLACE_TEST_BACKEND")

	_, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis", os.Getenv("MARKETPLACE_TEST_BACKEND"))
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}
