// Package csvsink writes the five output tables as CSV files with a header row.
package csvsink

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/osm-address-etl/internal/domain"
)

// Sink appends bundle rows to <dir>/<table>.csv. It implements pipeline.Loader.
type Sink struct {
	files   map[domain.Table]*os.File
	writers map[domain.Table]*csv.Writer
}

// Path returns the file a table is written to.
func Path(dir string, t domain.Table) string {
	return filepath.Join(dir, string(t)+".csv")
}

// New creates (or truncates) the five table files in dir and writes their headers.
func New(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	s := &Sink{
		files:   make(map[domain.Table]*os.File, len(domain.Tables)),
		writers: make(map[domain.Table]*csv.Writer, len(domain.Tables)),
	}
	for _, t := range domain.Tables {
		f, err := os.Create(Path(dir, t))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("create %s table: %w", t, err)
		}
		w := csv.NewWriter(f)
		s.files[t] = f
		s.writers[t] = w
		if err := w.Write(t.Columns()); err != nil {
			s.Close()
			return nil, fmt.Errorf("write %s header: %w", t, err)
		}
	}
	return s, nil
}

// Load appends every row of b to its table.
func (s *Sink) Load(_ context.Context, b domain.Bundle) error {
	for _, t := range b.Rows() {
		w := s.writers[t.Table]
		for _, row := range t.Rows {
			if err := w.Write(formatRow(row)); err != nil {
				return fmt.Errorf("write %s row for %s: %w", t.Table, b.ID(), err)
			}
		}
	}
	return nil
}

// Flush pushes buffered rows to the files.
func (s *Sink) Flush(_ context.Context) error {
	var errs []error
	for _, t := range domain.Tables {
		w, ok := s.writers[t]
		if !ok {
			continue
		}
		w.Flush()
		if err := w.Error(); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", t, err))
		}
	}
	return errors.Join(errs...)
}

// Close flushes and closes every table file.
func (s *Sink) Close() error {
	errs := []error{s.Flush(context.Background())}
	for _, t := range domain.Tables {
		if f, ok := s.files[t]; ok {
			if err := f.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", t, err))
			}
		}
	}
	return errors.Join(errs...)
}

func formatRow(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		switch v := v.(type) {
		case string:
			out[i] = v
		case int:
			out[i] = strconv.Itoa(v)
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}
