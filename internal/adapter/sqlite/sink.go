// Package sqlite loads the five output tables into a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/couchcryptid/osm-address-etl/internal/domain"
	_ "modernc.org/sqlite"
)

// Sink buffers rows per table and inserts them in one transaction per batch.
// It implements pipeline.Loader.
type Sink struct {
	db        *sql.DB
	batchSize int
	pending   map[domain.Table][][]any
}

// Open opens the database at dsn and configures WAL mode.
func Open(dsn string, batchSize int) (*Sink, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One writer; also keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: exec %s: %w", pragma, err)
		}
	}
	if batchSize < 1 {
		batchSize = 1
	}
	return &Sink{db: db, batchSize: batchSize, pending: make(map[domain.Table][][]any)}, nil
}

// Migrate creates the output tables if they do not exist.
func (s *Sink) Migrate(ctx context.Context) error {
	for _, t := range domain.Tables {
		if _, err := s.db.ExecContext(ctx, createTable(t)); err != nil {
			return fmt.Errorf("sqlite: migrate %s: %w", t, err)
		}
	}
	return nil
}

// Load queues the rows of b, writing any table whose queue reached the batch size.
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

// Flush writes every queued row.
func (s *Sink) Flush(ctx context.Context) error {
	for _, t := range domain.Tables {
		if err := s.flushTable(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes queued rows and closes the database.
func (s *Sink) Close() error {
	return errors.Join(s.Flush(context.Background()), s.db.Close())
}

// DB exposes the underlying handle for inspection.
func (s *Sink) DB() *sql.DB {
	return s.db
}

func (s *Sink) flushTable(ctx context.Context, t domain.Table) error {
	rows := s.pending[t]
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin %s batch: %w", t, err)
	}
	stmt, err := tx.PrepareContext(ctx, insertRow(t))
	if err != nil {
		tx.Rollback() //nolint:errcheck // prepare error takes precedence
		return fmt.Errorf("sqlite: prepare %s insert: %w", t, err)
	}
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			stmt.Close()
			tx.Rollback() //nolint:errcheck // insert error takes precedence
			return fmt.Errorf("sqlite: insert into %s: %w", t, err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit %s batch: %w", t, err)
	}
	s.pending[t] = rows[:0]
	return nil
}

func createTable(t domain.Table) string {
	cols := make([]string, 0, len(t.Columns()))
	for _, c := range t.Columns() {
		typ := "TEXT"
		if c == "position" {
			typ = "INTEGER"
		}
		cols = append(cols, fmt.Sprintf("%q %s NOT NULL", c, typ))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (%s)", string(t), strings.Join(cols, ", "))
}

func insertRow(t domain.Table) string {
	cols := t.Columns()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)", string(t), strings.Join(quoted, ", "), placeholders)
}
