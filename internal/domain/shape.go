package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnsupportedKind is returned when an element is neither a node nor a way.
var ErrUnsupportedKind = errors.New("unsupported element kind")

// problemCharsRe matches tag keys that cannot be split into key/type columns.
var problemCharsRe = regexp.MustCompile(`[=\+/&<>;'"\?%#$@\,\. \t\r\n]`)

// HasProblemChars reports whether a tag key contains punctuation or whitespace.
func HasProblemChars(key string) bool {
	return problemCharsRe.MatchString(key)
}

// Shaper converts elements into bundles, normalizing address values on the way.
type Shaper struct {
	normalizer ValueNormalizer
}

// NewShaper creates a Shaper. A nil normalizer uses the built-in tables.
func NewShaper(n ValueNormalizer) *Shaper {
	if n == nil {
		n = NewNormalizer(nil)
	}
	return &Shaper{normalizer: n}
}

// ShapeResult is a bundle plus bookkeeping about how it was produced.
type ShapeResult struct {
	Bundle Bundle

	// Dropped holds the raw keys of tags skipped for problem characters.
	Dropped []string

	// Normalized counts address values rewritten to a different string, by tag key.
	Normalized map[string]int
}

// Shape flattens el. Tags with problematic keys are skipped one at a time for
// both nodes and ways; the remaining tags are still shaped. A street name with
// an unmapped suffix aborts shaping with a [LookupError].
func (s *Shaper) Shape(el Element) (ShapeResult, error) {
	res := ShapeResult{Bundle: Bundle{Kind: el.Kind}}
	id := el.ID()

	switch el.Kind {
	case KindNode:
		res.Bundle.Node = NodeRecord{
			ID:        attrOrMissing(el, "id"),
			Lat:       attrOrMissing(el, "lat"),
			Lon:       attrOrMissing(el, "lon"),
			User:      attrOrMissing(el, "user"),
			UID:       attrOrMissing(el, "uid"),
			Version:   attrOrMissing(el, "version"),
			Changeset: attrOrMissing(el, "changeset"),
			Timestamp: attrOrMissing(el, "timestamp"),
		}
	case KindWay:
		res.Bundle.Way = WayRecord{
			ID:        attrOrMissing(el, "id"),
			User:      attrOrMissing(el, "user"),
			UID:       attrOrMissing(el, "uid"),
			Version:   attrOrMissing(el, "version"),
			Changeset: attrOrMissing(el, "changeset"),
			Timestamp: attrOrMissing(el, "timestamp"),
		}
	default:
		return res, fmt.Errorf("shape element %s: %w: %q", id, ErrUnsupportedKind, el.Kind)
	}

	for i, c := range el.Children {
		switch c.Name {
		case ChildTag:
			tag, ok, err := s.shapeTag(id, c, &res)
			if err != nil {
				return res, fmt.Errorf("shape %s %s: %w", el.Kind, id, err)
			}
			if ok {
				res.Bundle.Tags = append(res.Bundle.Tags, tag)
			}
		case ChildNd:
			if el.Kind != KindWay {
				continue
			}
			ref, ok := c.Attr("ref")
			if !ok {
				ref = MissingValue
			}
			res.Bundle.WayNodes = append(res.Bundle.WayNodes, WayNodeRecord{ID: id, NodeID: ref, Position: i})
		}
	}
	return res, nil
}

func (s *Shaper) shapeTag(id string, c Child, res *ShapeResult) (TagRecord, bool, error) {
	k, ok := c.Attr("k")
	if !ok || HasProblemChars(k) {
		res.Dropped = append(res.Dropped, k)
		return TagRecord{}, false, nil
	}
	v, ok := c.Attr("v")
	if !ok {
		v = MissingValue
	}

	tag := TagRecord{ID: id, Key: k, Type: DefaultTagType, Value: v}
	if before, after, found := strings.Cut(k, ":"); found {
		tag.Key = before
		tag.Type = after
	}

	switch k {
	case KeyStreet:
		name, err := s.normalizer.StreetName(v)
		if err != nil {
			return TagRecord{}, false, err
		}
		tag.Value = name
	case KeyPostcode:
		tag.Value = s.normalizer.Postcode(v)
	}
	if tag.Value != v {
		if res.Normalized == nil {
			res.Normalized = make(map[string]int)
		}
		res.Normalized[k]++
	}
	return tag, true, nil
}

func attrOrMissing(el Element, name string) string {
	if v, ok := el.Attr(name); ok {
		return v
	}
	return MissingValue
}
