// Package memo memoises address normalisation. OSM extracts repeat the same
// handful of street names across thousands of elements.
package memo

import (
	"fmt"

	"github.com/couchcryptid/osm-address-etl/internal/domain"
	"github.com/couchcryptid/osm-address-etl/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedNormalizer wraps a ValueNormalizer with an in-memory LRU cache.
type CachedNormalizer struct {
	inner   domain.ValueNormalizer
	cache   *lru.Cache[string, string]
	metrics *observability.Metrics
}

// NewCachedNormalizer creates a cache decorator around a normalizer. metrics may be nil.
func NewCachedNormalizer(inner domain.ValueNormalizer, maxEntries int, metrics *observability.Metrics) (*CachedNormalizer, error) {
	cache, err := lru.New[string, string](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create normalize cache: %w", err)
	}
	return &CachedNormalizer{inner: inner, cache: cache, metrics: metrics}, nil
}

func (c *CachedNormalizer) StreetName(name string) (string, error) {
	key := "street:" + name
	if out, ok := c.get(key); ok {
		return out, nil
	}
	out, err := c.inner.StreetName(name)
	if err != nil {
		// Lookup failures end the run; nothing to reuse.
		return out, err
	}
	c.cache.Add(key, out)
	return out, nil
}

func (c *CachedNormalizer) Postcode(code string) string {
	key := "postcode:" + code
	if out, ok := c.get(key); ok {
		return out
	}
	out := c.inner.Postcode(code)
	c.cache.Add(key, out)
	return out
}

// Len returns the number of cached values.
func (c *CachedNormalizer) Len() int {
	return c.cache.Len()
}

func (c *CachedNormalizer) get(key string) (string, bool) {
	out, ok := c.cache.Get(key)
	if c.metrics != nil {
		result := "miss"
		if ok {
			result = "hit"
		}
		c.metrics.NormalizeCache.WithLabelValues(result).Inc()
	}
	return out, ok
}
