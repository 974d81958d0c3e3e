package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/osm-address-etl/internal/domain"
	"github.com/couchcryptid/osm-address-etl/internal/observability"
)

// ErrInvalidBundle marks a shaped bundle rejected in validation mode.
var ErrInvalidBundle = errors.New("shaped element failed validation")

// Extractor yields top-level elements in document order and io.EOF once the
// source is exhausted.
type Extractor interface {
	Extract(ctx context.Context) (domain.Element, error)
}

// Transformer shapes one element into its table records.
type Transformer interface {
	Transform(ctx context.Context, el domain.Element) (domain.ShapeResult, error)
}

// Validator checks a shaped bundle before it is written.
type Validator interface {
	Validate(ctx context.Context, b domain.Bundle) error
}

// Loader writes bundles to the output tables. Flush forces out anything the
// loader buffered.
type Loader interface {
	Load(ctx context.Context, b domain.Bundle) error
	Flush(ctx context.Context) error
}

// Stats summarises one conversion run.
type Stats struct {
	Nodes      int
	Ways       int
	Records    map[domain.Table]int
	Dropped    int
	Normalized map[string]int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is the wall time of the run.
func (s Stats) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

func (s Stats) clone() Stats {
	s.Records = maps.Clone(s.Records)
	s.Normalized = maps.Clone(s.Normalized)
	return s
}

// Pipeline drives a single forward pass: extract, shape, optionally validate,
// then load, one element at a time.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	validator   Validator
	loader      Loader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool

	mu    sync.Mutex
	stats Stats
}

// New creates a Pipeline. A nil validator disables validation mode.
func New(e Extractor, t Transformer, v Validator, l Loader, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		validator:   v,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
	}
}

// CheckReadiness returns nil once the pipeline has started consuming the source.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not read any elements yet")
	}
	return nil
}

// Progress reports the running counts: elements read by kind, rows by table
// and dropped tags.
func (p *Pipeline) Progress() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := map[string]int{
		string(domain.KindNode): p.stats.Nodes,
		string(domain.KindWay):  p.stats.Ways,
		"tags_dropped":          p.stats.Dropped,
	}
	for _, t := range domain.Tables {
		out[string(t)] = p.stats.Records[t]
	}
	return out
}

// Run processes the source until it is exhausted. The first failing element
// aborts the run; rows loaded before it stay written. The loader is flushed on
// every exit path.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	p.mu.Lock()
	p.stats = Stats{
		Records:    make(map[domain.Table]int),
		Normalized: make(map[string]int),
		StartedAt:  clock.Now(),
	}
	p.mu.Unlock()

	p.logger.Info("pipeline started", "validate", p.validator != nil)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	runErr := p.consume(ctx)

	flushCtx := ctx
	if runErr != nil {
		// Flush what was already loaded even if ctx was the reason for stopping.
		flushCtx = context.WithoutCancel(ctx)
	}
	if err := p.loader.Flush(flushCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("flush output: %w", err))
	}

	p.mu.Lock()
	p.stats.FinishedAt = clock.Now()
	stats := p.stats.clone()
	p.mu.Unlock()

	if runErr != nil {
		p.logger.Error("pipeline aborted", "error", runErr, "nodes", stats.Nodes, "ways", stats.Ways)
		return stats, runErr
	}
	p.logger.Info("pipeline finished",
		"nodes", stats.Nodes,
		"ways", stats.Ways,
		"tags_dropped", stats.Dropped,
		"duration", stats.Duration(),
	)
	return stats, nil
}

func (p *Pipeline) consume(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			p.logger.Info("pipeline stopping", "reason", err)
			return err
		}

		el, err := p.extractor.Extract(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("extract: %w", err)
		}
		p.ready.Store(true)

		if err := p.process(ctx, el); err != nil {
			return err
		}
	}
}

// process shapes, validates and loads one element. The element is not retained
// afterwards, so memory stays bounded by the largest single element.
func (p *Pipeline) process(ctx context.Context, el domain.Element) error {
	start := clock.Now()
	p.metrics.ElementsRead.WithLabelValues(string(el.Kind)).Inc()

	res, err := p.transformer.Transform(ctx, el)
	if err != nil {
		return err
	}

	for _, key := range res.Dropped {
		p.logger.Debug("tag dropped", "kind", el.Kind, "element_id", el.ID(), "key", key)
	}

	if p.validator != nil {
		if err := p.validator.Validate(ctx, res.Bundle); err != nil {
			p.metrics.ValidationFailures.Inc()
			return fmt.Errorf("%w: %s %s: %w", ErrInvalidBundle, el.Kind, el.ID(), err)
		}
	}

	if err := p.loader.Load(ctx, res.Bundle); err != nil {
		return fmt.Errorf("load %s %s: %w", el.Kind, el.ID(), err)
	}

	p.record(res)
	p.metrics.ElementProcessingDuration.Observe(clock.Since(start).Seconds())
	return nil
}

func (p *Pipeline) record(res domain.ShapeResult) {
	b := res.Bundle

	p.mu.Lock()
	defer p.mu.Unlock()

	switch b.Kind {
	case domain.KindNode:
		p.stats.Nodes++
	case domain.KindWay:
		p.stats.Ways++
	}
	for _, t := range b.Rows() {
		p.stats.Records[t.Table] += len(t.Rows)
		p.metrics.RecordsWritten.WithLabelValues(string(t.Table)).Add(float64(len(t.Rows)))
	}
	if n := len(res.Dropped); n > 0 {
		p.stats.Dropped += n
		p.metrics.TagsDropped.WithLabelValues(string(b.Kind)).Add(float64(n))
	}
	for field, n := range res.Normalized {
		p.stats.Normalized[field] += n
		p.metrics.ValuesNormalized.WithLabelValues(field).Add(float64(n))
	}
}
