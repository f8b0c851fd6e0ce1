package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jecoplus/lending/internal/infrastructure/config"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("LENDING_CONFIG", "")
		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, 9087, cfg.GRPCPort)
		assert.Equal(t, 8087, cfg.HTTPPort)
		assert.Equal(t, config.DataSourceMock, cfg.DataSource)
		assert.True(t, cfg.MockSeed)
		assert.False(t, cfg.GRPCReflection)
		assert.False(t, cfg.GRPCTLS.Enabled())
		assert.False(t, cfg.Tracing.Enabled)
		assert.Equal(t, "localhost:4317", cfg.Tracing.Endpoint)
		assert.True(t, cfg.Kafka.Enabled)
		assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, 15*time.Minute, cfg.OCR.ScanTTL)
		assert.Equal(t, ":9087", cfg.GRPCAddr())
		assert.Equal(t, ":8087", cfg.HTTPAddr())
		assert.NoError(t, cfg.Validate())
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("LENDING_CONFIG", "")
		t.Setenv("GRPC_PORT", "9999")
		t.Setenv("DATA_SOURCE", "POSTGRES")
		t.Setenv("DB_PASSWORD", "secret")
		t.Setenv("DB_HOST", "db.internal")
		t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
		t.Setenv("REDIS_ADDR", "redis:6379")
		t.Setenv("SWEEP_INTERVAL", "15m")
		t.Setenv("KAFKA_ENABLED", "false")
		t.Setenv("MOCK_SEED", "false")
		t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317")

		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, 9999, cfg.GRPCPort)
		assert.Equal(t, config.DataSourcePostgres, cfg.DataSource)
		assert.Equal(t, "db.internal", cfg.DB.Host)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, "redis:6379", cfg.Redis.Addr)
		assert.Equal(t, 15*time.Minute, cfg.SweepInterval)
		assert.False(t, cfg.Kafka.Enabled)
		assert.False(t, cfg.MockSeed)
		assert.Equal(t, "otel-collector:4317", cfg.Tracing.Endpoint)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lending.yaml")
		yaml := "http:\n  port: 8181\nlog:\n  level: debug\nkafka:\n  brokers:\n    - a:9092\n    - b:9092\n"
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
		t.Setenv("LENDING_CONFIG", path)

		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, 8181, cfg.HTTPPort)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("LENDING_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
		_, err := config.Load()
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		t.Setenv("LENDING_CONFIG", "")
		cfg, err := config.Load()
		require.NoError(t, err)
		return cfg
	}

	t.Run("postgres requires a password", func(t *testing.T) {
		cfg := valid()
		cfg.DataSource = config.DataSourcePostgres
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DB_PASSWORD")
	})

	t.Run("unknown data source", func(t *testing.T) {
		cfg := valid()
		cfg.DataSource = "sqlite"
		assert.ErrorContains(t, cfg.Validate(), "DATA_SOURCE")
	})

	t.Run("reports every problem", func(t *testing.T) {
		cfg := valid()
		cfg.GRPCPort = 0
		cfg.HTTPPort = -1
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GRPC_PORT")
		assert.Contains(t, err.Error(), "HTTP_PORT")
	})

	t.Run("auth needs key material", func(t *testing.T) {
		cfg := valid()
		cfg.Auth.Enabled = true
		assert.ErrorContains(t, cfg.Validate(), "AUTH_JWT_SECRET")

		cfg.Auth.JWTSecret = "s3cret"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("tls files come in pairs", func(t *testing.T) {
		cfg := valid()
		cfg.GRPCTLS.CertFile = "/etc/lending/tls.crt"
		assert.ErrorContains(t, cfg.Validate(), "GRPC_TLS_KEY_FILE")

		cfg.GRPCTLS.KeyFile = "/etc/lending/tls.key"
		assert.NoError(t, cfg.Validate())
		assert.True(t, cfg.GRPCTLS.Enabled())
	})
}
