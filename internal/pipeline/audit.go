package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/couchcryptid/osm-address-etl/internal/domain"
)

// RunAudit feeds every element of e to a. Nothing is shaped or written; the
// findings are read from a afterwards.
func RunAudit(ctx context.Context, e Extractor, a *domain.Auditor) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		el, err := e.Extract(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("extract: %w", err)
		}
		a.Observe(el)
	}
}
