package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/osm-address-etl/internal/adapter/csvsink"
	httpadapter "github.com/couchcryptid/osm-address-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/osm-address-etl/internal/adapter/kafka"
	"github.com/couchcryptid/osm-address-etl/internal/adapter/memo"
	"github.com/couchcryptid/osm-address-etl/internal/adapter/osmxml"
	"github.com/couchcryptid/osm-address-etl/internal/adapter/postgres"
	"github.com/couchcryptid/osm-address-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/osm-address-etl/internal/adapter/xsdschema"
	"github.com/couchcryptid/osm-address-etl/internal/config"
	"github.com/couchcryptid/osm-address-etl/internal/domain"
	"github.com/couchcryptid/osm-address-etl/internal/observability"
	"github.com/couchcryptid/osm-address-etl/internal/pipeline"
)

var (
	convertOutDir   string
	convertSink     string
	convertValidate bool
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Shape the source document into the five output tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("out") {
			cfg.OutputDir = convertOutDir
		}
		if cmd.Flags().Changed("sink") {
			cfg.Sink = convertSink
		}
		if cmd.Flags().Changed("validate") {
			cfg.Validate = convertValidate
		}
		if err := cfg.Check(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		stats, err := runConvert(ctx, observability.NewMetrics())
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), stats)
		return nil
	},
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutDir, "out", "o", "", "directory for the CSV tables (overrides OUTPUT_DIR)")
	convertCmd.Flags().StringVar(&convertSink, "sink", "", "csv, sqlite, postgres or kafka (overrides SINK)")
	convertCmd.Flags().BoolVar(&convertValidate, "validate", false, "validate every shaped element before writing it (overrides VALIDATE)")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(ctx context.Context, metrics *observability.Metrics) (pipeline.Stats, error) {
	mappings, err := loadMappings()
	if err != nil {
		return pipeline.Stats{}, err
	}
	normalizer, err := newNormalizer(mappings, metrics)
	if err != nil {
		return pipeline.Stats{}, err
	}

	var validator pipeline.Validator
	if cfg.Validate {
		v, err := xsdschema.NewValidator()
		if err != nil {
			return pipeline.Stats{}, err
		}
		validator = v
	}

	src, err := openSource()
	if err != nil {
		return pipeline.Stats{}, err
	}
	defer src.Close()

	reader, err := osmxml.NewReader(src)
	if err != nil {
		return pipeline.Stats{}, err
	}

	loader, closeLoader, err := openSink(ctx)
	if err != nil {
		return pipeline.Stats{}, err
	}
	defer func() {
		if err := closeLoader(); err != nil {
			logger.Error("close sink", "sink", cfg.Sink, "error", err)
		}
	}()

	logger.Info("converting", "source", cfg.OSMFile, "sink", cfg.Sink, "validate", cfg.Validate)
	p := pipeline.New(reader, pipeline.NewTransformer(normalizer), validator, loader, logger, metrics)

	if cfg.MetricsAddr == "" {
		return p.Run(ctx)
	}
	return runWithServer(ctx, p)
}

// runWithServer serves health, progress and metrics for as long as the
// pipeline runs.
func runWithServer(ctx context.Context, p *pipeline.Pipeline) (pipeline.Stats, error) {
	srv := httpadapter.NewServer(cfg.MetricsAddr, runID, p, logger)

	var stats pipeline.Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		stats, err = p.Run(gctx)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			logger.Error("http server shutdown error", "error", serr)
		}
		return err
	})
	err := g.Wait()
	return stats, err
}

func newNormalizer(m *domain.Mappings, metrics *observability.Metrics) (domain.ValueNormalizer, error) {
	base := domain.NewNormalizer(m)
	if cfg.NormalizeCacheSize == 0 {
		return base, nil
	}
	cached, err := memo.NewCachedNormalizer(base, cfg.NormalizeCacheSize, metrics)
	if err != nil {
		return nil, err
	}
	return cached, nil
}

// openSink opens the configured loader and returns the function releasing it.
func openSink(ctx context.Context) (pipeline.Loader, func() error, error) {
	switch cfg.Sink {
	case config.SinkCSV:
		s, err := csvsink.New(cfg.OutputDir)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case config.SinkSQLite:
		s, err := sqlite.Open(cfg.SQLitePath, cfg.BatchSize)
		if err != nil {
			return nil, nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, s.Close, nil

	case config.SinkPostgres:
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		s := postgres.New(pool, cfg.BatchSize)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return s, func() error { pool.Close(); return nil }, nil

	case config.SinkKafka:
		w := kafkaadapter.NewWriter(cfg, runID, logger)
		return w, w.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported sink %q", cfg.Sink)
	}
}

func printSummary(w io.Writer, stats pipeline.Stats) {
	fmt.Fprintf(w, "run %s: %d nodes, %d ways in %s\n", runID, stats.Nodes, stats.Ways, stats.Duration().Round(time.Millisecond))
	for _, t := range domain.Tables {
		fmt.Fprintf(w, "  %-10s %d\n", t, stats.Records[t])
	}
	fmt.Fprintf(w, "  %d tags dropped, %d street names and %d postcodes normalised\n",
		stats.Dropped, stats.Normalized[domain.KeyStreet], stats.Normalized[domain.KeyPostcode])
}
