package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "textindex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, PolicyClear, cfg.Indexer.BatchFailurePolicy)
	assert.Equal(t, 4, cfg.Indexer.ReadWorkers)
	assert.False(t, cfg.ChangeFeed.Enabled)
	assert.Equal(t, 200*time.Millisecond, cfg.Watch.Debounce)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: json
indexer:
  batchFailurePolicy: rollback
  readWorkers: 2
source:
  exclude: ["**/*.log"]
watch:
  enabled: true
  debounce: 50ms
changeFeed:
  enabled: true
  redis:
    enabled: true
    channel: custom
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, PolicyRollback, cfg.Indexer.BatchFailurePolicy)
	assert.Equal(t, 2, cfg.Indexer.ReadWorkers)
	assert.Equal(t, []string{"**/*.log"}, cfg.Source.Exclude)
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, 50*time.Millisecond, cfg.Watch.Debounce)
	assert.True(t, cfg.ChangeFeed.Redis.Enabled)
	assert.Equal(t, "custom", cfg.ChangeFeed.Redis.Channel)
	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.ChangeFeed.Redis.Addr)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TI_INDEXER_BATCH_FAILURE_POLICY", "rollback")
	t.Setenv("TI_INDEXER_READ_WORKERS", "8")
	t.Setenv("TI_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("TI_METRICS_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, PolicyRollback, cfg.Indexer.BatchFailurePolicy)
	assert.Equal(t, 8, cfg.Indexer.ReadWorkers)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.ChangeFeed.Kafka.Brokers)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadRejectsUnknownPolicy(t *testing.T) {
	path := writeConfig(t, "indexer:\n  batchFailurePolicy: best-effort\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batchFailurePolicy")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	dsn := Default().ChangeFeed.Postgres.DSN()
	assert.Equal(t, "host=localhost port=5432 user=textindex password=localdev dbname=textindex sslmode=disable", dsn)
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "textindex.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, PolicyClear, cfg.Indexer.BatchFailurePolicy)
	assert.Equal(t, 200*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, []string{".git", "**/node_modules"}, cfg.Source.Exclude)
	assert.Equal(t, "index_events", cfg.ChangeFeed.Postgres.Table)
}
