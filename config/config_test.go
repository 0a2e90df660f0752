package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "paycore", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "3306", cfg.Database.Port)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 10, cfg.Database.MaxIdleConns)
	assert.Equal(t, 10*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.False(t, cfg.Database.PoolingDisabled)

	assert.True(t, cfg.Database.TxRetry.Enabled)
	assert.Equal(t, 3, cfg.Database.TxRetry.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Database.TxRetry.InitialDelay)
	assert.Equal(t, 2*time.Second, cfg.Database.TxRetry.MaxDelay)
	assert.Equal(t, 2.0, cfg.Database.TxRetry.BackoffFactor)

	assert.Equal(t, "log", cfg.Events.Sink)
	assert.Equal(t, "paycore.events", cfg.Events.TopicPrefix)
	assert.Equal(t, time.Second, cfg.Events.PollInterval)
	assert.Equal(t, 100, cfg.Events.BatchSize)
	assert.Equal(t, 5, cfg.Events.MaxRetries)

	assert.Equal(t, 3, cfg.RetryPolicy.MaxRetries)
	assert.Equal(t, 30*time.Minute, cfg.RetryPolicy.RetryAfter)
	assert.ElementsMatch(t,
		[]string{"fraud_detected", "sanctioned_entity", "invalid_account"},
		cfg.RetryPolicy.DenyFailureCodes)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "stdout", cfg.Log.Output)
	assert.Equal(t, 10, cfg.Log.MaxSizeMB)
	assert.Equal(t, 5, cfg.Log.MaxBackups)
	assert.Equal(t, 7, cfg.Log.MaxAgeDays)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
app:
  name: paycore-test
  env: production
database:
  host: db.internal
  pooling_disabled: true
events:
  sink: outbox
  topic_prefix: test.events
  batch_size: 25
retry_policy:
  max_retries: 5
  retry_after: 1h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "paycore-test", cfg.App.Name)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.True(t, cfg.Database.PoolingDisabled)
	assert.Equal(t, "outbox", cfg.Events.Sink)
	assert.Equal(t, "test.events", cfg.Events.TopicPrefix)
	assert.Equal(t, 25, cfg.Events.BatchSize)
	assert.Equal(t, 5, cfg.RetryPolicy.MaxRetries)
	assert.Equal(t, time.Hour, cfg.RetryPolicy.RetryAfter)

	// Untouched keys keep their defaults.
	assert.Equal(t, "3306", cfg.Database.Port)
	assert.Equal(t, time.Second, cfg.Events.PollInterval)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PAYCORE_DATABASE_HOST", "env.internal")
	t.Setenv("PAYCORE_EVENTS_SINK", "memory")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "env.internal", cfg.Database.Host)
	assert.Equal(t, "memory", cfg.Events.Sink)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
