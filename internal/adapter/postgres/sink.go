// Package postgres bulk-loads the five output tables into PostgreSQL with COPY.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/couchcryptid/osm-address-etl/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the subset of *pgxpool.Pool the sink needs.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Sink buffers rows per table and copies them in batches. It implements pipeline.Loader.
type Sink struct {
	pool      Pool
	batchSize int
	pending   map[domain.Table][][]any
}

// Connect opens a connection pool for dsn.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

// New creates a Sink writing through pool.
func New(pool Pool, batchSize int) *Sink {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Sink{pool: pool, batchSize: batchSize, pending: make(map[domain.Table][][]any)}
}

// Migrate creates the output tables if they do not exist.
func (s *Sink) Migrate(ctx context.Context) error {
	for _, t := range domain.Tables {
		if _, err := s.pool.Exec(ctx, createTable(t)); err != nil {
			return fmt.Errorf("postgres: migrate %s: %w", t, err)
		}
	}
	return nil
}

// Load queues the rows of b, copying any table whose queue reached the batch size.
func (s *Sink) Load(ctx context.Context, b domain.Bundle) error {
	for _, t := range b.Rows() {
		s.pending[t.Table] = append(s.pending[t.Table], t.Rows...)
		if len(s.pending[t.Table]) >= s.batchSize {
			if err := s.flushTable(ctx, t.Table); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush copies every queued row.
func (s *Sink) Flush(ctx context.Context) error {
	var errs []error
	for _, t := range domain.Tables {
		if err := s.flushTable(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Sink) flushTable(ctx context.Context, t domain.Table) error {
	rows := s.pending[t]
	if len(rows) == 0 {
		return nil
	}
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{string(t)}, t.Columns(), pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("postgres: COPY INTO %s: %w", t, err)
	}
	if n != int64(len(rows)) {
		return fmt.Errorf("postgres: COPY INTO %s: wrote %d of %d rows", t, n, len(rows))
	}
	s.pending[t] = nil
	return nil
}

func createTable(t domain.Table) string {
	cols := make([]string, 0, len(t.Columns()))
	for _, c := range t.Columns() {
		typ := "TEXT"
		if c == "position" {
			typ = "INTEGER"
		}
		cols = append(cols, pgx.Identifier{c}.Sanitize()+" "+typ+" NOT NULL")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", pgx.Identifier{string(t)}.Sanitize(), strings.Join(cols, ", "))
}
