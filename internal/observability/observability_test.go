package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Info("run complete", "nodes", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run complete", entry["msg"])
	assert.InDelta(t, 3, entry["nodes"], 0)
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", "text")

	logger.Debug("tag dropped", "key", "addr street")

	assert.Contains(t, buf.String(), `msg="tag dropped"`)
	assert.Contains(t, buf.String(), `key="addr street"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.ElementsRead.WithLabelValues("node").Inc()

	assert.InDelta(t, 1, testutil.ToFloat64(a.ElementsRead.WithLabelValues("node")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.ElementsRead.WithLabelValues("node")), 0)
}
