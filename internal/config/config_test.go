package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "map.osm", cfg.OSMFile)
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, SinkCSV, cfg.Sink)
	assert.Equal(t, "osm.db", cfg.SQLitePath)
	assert.Empty(t, cfg.PostgresDSN)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "osm-records", cfg.KafkaTopic)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.False(t, cfg.Validate)
	assert.Empty(t, cfg.MappingsFile)
	assert.Equal(t, 4096, cfg.NormalizeCacheSize)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("OSM_FILE", "seattle.osm")
	t.Setenv("OUTPUT_DIR", "/tmp/out")
	t.Setenv("SINK", "kafka")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-records")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("VALIDATE", "true")
	t.Setenv("MAPPINGS_FILE", "mappings.yaml")
	t.Setenv("NORMALIZE_CACHE_SIZE", "0")
	t.Setenv("METRICS_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "seattle.osm", cfg.OSMFile)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, SinkKafka, cfg.Sink)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-records", cfg.KafkaTopic)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.True(t, cfg.Validate)
	assert.Equal(t, "mappings.yaml", cfg.MappingsFile)
	assert.Zero(t, cfg.NormalizeCacheSize)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_BatchSizeTooLarge(t *testing.T) {
	t.Setenv("BATCH_SIZE", "9999")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_InvalidValidate(t *testing.T) {
	t.Setenv("VALIDATE", "sometimes")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VALIDATE")
}

func TestLoad_InvalidCacheSize(t *testing.T) {
	t.Setenv("NORMALIZE_CACHE_SIZE", "-1")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NORMALIZE_CACHE_SIZE")
}

func TestLoad_UnknownSink(t *testing.T) {
	t.Setenv("SINK", "parquet")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SINK")
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	t.Setenv("SINK", "postgres")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_DSN")

	t.Setenv("POSTGRES_DSN", "postgres://localhost/osm")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, SinkPostgres, cfg.Sink)
}

func TestCheck_AfterFlagOverride(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Sink = SinkSQLite
	cfg.SQLitePath = ""
	require.Error(t, cfg.Check())
}
