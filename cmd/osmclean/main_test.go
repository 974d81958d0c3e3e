package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/osm-address-etl/internal/adapter/csvsink"
	"github.com/couchcryptid/osm-address-etl/internal/adapter/osmxml"
	"github.com/couchcryptid/osm-address-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/osm-address-etl/internal/config"
	"github.com/couchcryptid/osm-address-etl/internal/domain"
	"github.com/couchcryptid/osm-address-etl/internal/observability"
)

const fixturePath = "../../data/mock/seattle_sample.osm"

func useConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prevCfg, prevLogger, prevRunID := cfg, logger, runID
	cfg = c
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	runID = "test-run"
	t.Cleanup(func() { cfg, logger, runID = prevCfg, prevLogger, prevRunID })
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		OSMFile:            fixturePath,
		OutputDir:          t.TempDir(),
		Sink:               config.SinkCSV,
		SQLitePath:         filepath.Join(t.TempDir(), "osm.db"),
		BatchSize:          2,
		NormalizeCacheSize: 16,
		ShutdownTimeout:    time.Second,
	}
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"convert", "audit", "sample"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestCommandFlags(t *testing.T) {
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("file"))
	require.NotNil(t, convertCmd.Flags().Lookup("sink"))
	require.NotNil(t, convertCmd.Flags().Lookup("validate"))
	require.NotNil(t, auditCmd.Flags().Lookup("json"))

	every := sampleCmd.Flags().Lookup("every")
	require.NotNil(t, every)
	assert.Equal(t, "10", every.DefValue)
}

func TestRunConvert_CSV(t *testing.T) {
	c := testConfig(t)
	c.Validate = true
	useConfig(t, c)

	stats, err := runConvert(context.Background(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Nodes)
	assert.Equal(t, 2, stats.Ways)

	for _, table := range domain.Tables {
		_, err := os.Stat(csvsink.Path(c.OutputDir, table))
		assert.NoError(t, err, "table %s", table)
	}
	data, err := os.ReadFile(csvsink.Path(c.OutputDir, domain.TableWayTags))
	require.NoError(t, err)
	assert.Contains(t, string(data), "6,addr,Pike Place,street")
}

func TestRunConvert_SQLite(t *testing.T) {
	c := testConfig(t)
	c.Sink = config.SinkSQLite
	c.NormalizeCacheSize = 0
	useConfig(t, c)

	stats, err := runConvert(context.Background(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Records[domain.TableWayNodes])

	db, err := sqlite.Open(c.SQLitePath, 1)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.DB().QueryRow(`SELECT COUNT(*) FROM nodes_tags`).Scan(&n))
	assert.Equal(t, 6, n)
}

func TestRunConvert_WithStatusServer(t *testing.T) {
	c := testConfig(t)
	c.MetricsAddr = "127.0.0.1:0"
	useConfig(t, c)

	stats, err := runConvert(context.Background(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Nodes)
}

func TestRunConvert_MissingSource(t *testing.T) {
	c := testConfig(t)
	c.OSMFile = filepath.Join(t.TempDir(), "missing.osm")
	useConfig(t, c)

	_, err := runConvert(context.Background(), observability.NewMetricsForTesting())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open source document")
}

func testAuditor() *domain.Auditor {
	a := domain.NewAuditor(nil)
	for _, name := range []string{"Rainier Ave S", "15th Ave E", "Pike Pl", "Pike Street", "Pine Street Crest"} {
		a.AuditStreetName(name)
	}
	return a
}

func TestWriteAuditReport(t *testing.T) {
	var buf bytes.Buffer
	writeAuditReport(&buf, testAuditor())

	want := strings.Join([]string{
		"suffix  street names",
		"Ave     15th Ave E",
		"        Rainier Ave S",
		"Pl      Pike Pl",
		"",
		"directional  street names",
		"Crest        Pine Street Crest",
		"",
		"5 street names audited, 2 suffix tokens without a canonical form",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestWriteAuditJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeAuditJSON(&buf, testAuditor()))

	var got struct {
		Seen         int                 `json:"street_names"`
		Suffixes     map[string][]string `json:"suffixes"`
		Directionals map[string][]string `json:"directionals"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 5, got.Seen)
	assert.Equal(t, []string{"15th Ave E", "Rainier Ave S"}, got.Suffixes["Ave"])
	assert.Equal(t, []string{"Pine Street Crest"}, got.Directionals["Crest"])
}

func TestSampleCommand(t *testing.T) {
	t.Cleanup(func() { cfg, logger = nil, slog.Default() })

	out := filepath.Join(t.TempDir(), "sample.osm")
	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"sample", "--file", fixturePath, "--every", "2", "--out", out})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.Equal(t, "wrote 3 elements to "+out+"\n", stdout.String())

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	r, err := osmxml.NewReader(f)
	require.NoError(t, err)

	var ids []string
	for {
		el, err := r.Extract(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		ids = append(ids, string(el.Kind)+" "+el.ID())
	}
	assert.Equal(t, []string{"node 1", "node 3", "way 6"}, ids)
}
