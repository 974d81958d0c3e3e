package pipeline

import (
	"context"

	"github.com/couchcryptid/osm-address-etl/internal/domain"
)

// ShapeTransformer implements Transformer with a domain.Shaper.
type ShapeTransformer struct {
	shaper *domain.Shaper
}

// NewTransformer creates a ShapeTransformer that normalises address values with n.
func NewTransformer(n domain.ValueNormalizer) *ShapeTransformer {
	return &ShapeTransformer{shaper: domain.NewShaper(n)}
}

func (t *ShapeTransformer) Transform(_ context.Context, el domain.Element) (domain.ShapeResult, error) {
	return t.shaper.Shape(el)
}
