package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/osm-address-etl/internal/config"
	"github.com/couchcryptid/osm-address-etl/internal/domain"
	"github.com/couchcryptid/osm-address-etl/internal/observability"
)

var (
	cfg    *config.Config
	logger = slog.Default()
	runID  string

	osmFile string
)

var rootCmd = &cobra.Command{
	Use:   "osmclean",
	Short: "Clean OpenStreetMap address data into relational tables",
	Long: "Streams an OpenStreetMap XML extract, normalises street names and postcodes, " +
		"and writes nodes, ways and their tags as five tables (CSV, SQLite, PostgreSQL or Kafka).",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cmd.Flags().Changed("file") {
			c.OSMFile = osmFile
		}
		cfg = c

		runID = uuid.NewString()
		logger = observability.NewLogger(cfg).With("run_id", runID)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&osmFile, "file", "f", "", "OSM XML document to read (overrides OSM_FILE)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("osmclean failed", "error", err)
		os.Exit(1)
	}
}

func loadMappings() (*domain.Mappings, error) {
	m, err := domain.LoadMappings(cfg.MappingsFile)
	if err != nil {
		return nil, err
	}
	if cfg.MappingsFile != "" {
		logger.Info("substitution tables loaded", "path", cfg.MappingsFile)
	}
	return m, nil
}

func openSource() (*os.File, error) {
	f, err := os.Open(cfg.OSMFile)
	if err != nil {
		return nil, fmt.Errorf("open source document: %w", err)
	}
	return f, nil
}
