package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Sink kinds accepted by SINK.
const (
	SinkCSV      = "csv"
	SinkSQLite   = "sqlite"
	SinkPostgres = "postgres"
	SinkKafka    = "kafka"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	OSMFile      string
	OutputDir    string
	Sink         string
	SQLitePath   string
	PostgresDSN  string
	KafkaBrokers []string
	KafkaTopic   string

	BatchSize int
	Validate  bool

	MappingsFile       string
	NormalizeCacheSize int

	MetricsAddr     string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	validate, err := parseBool("VALIDATE", false)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseCacheSize()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		OSMFile:      sharedcfg.EnvOrDefault("OSM_FILE", "map.osm"),
		OutputDir:    sharedcfg.EnvOrDefault("OUTPUT_DIR", "."),
		Sink:         sharedcfg.EnvOrDefault("SINK", SinkCSV),
		SQLitePath:   sharedcfg.EnvOrDefault("SQLITE_PATH", "osm.db"),
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "osm-records"),

		BatchSize: batchSize,
		Validate:  validate,

		MappingsFile:       os.Getenv("MAPPINGS_FILE"),
		NormalizeCacheSize: cacheSize,

		MetricsAddr:     os.Getenv("METRICS_ADDR"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Check validates cross-field requirements. It is called by Load and again
// after command-line flags have been applied.
func (c *Config) Check() error {
	switch c.Sink {
	case SinkCSV:
		if c.OutputDir == "" {
			return errors.New("OUTPUT_DIR is required")
		}
	case SinkSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required")
		}
	case SinkPostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required when SINK is postgres")
		}
	case SinkKafka:
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required")
		}
		if c.KafkaTopic == "" {
			return errors.New("KAFKA_TOPIC is required")
		}
	default:
		return fmt.Errorf("invalid SINK %q: must be one of csv, sqlite, postgres, kafka", c.Sink)
	}
	return nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}

func parseCacheSize() (int, error) {
	s := os.Getenv("NORMALIZE_CACHE_SIZE")
	if s == "" {
		return 4096, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid NORMALIZE_CACHE_SIZE %q: must be a non-negative integer", s)
	}
	return n, nil
}
