// Package osmxml streams top-level elements out of an OpenStreetMap XML
// document and writes reduced sample documents.
package osmxml

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/couchcryptid/osm-address-etl/internal/domain"
	"github.com/jacoelho/xsd/pkg/xmlstream"
)

// Reader yields node and way elements in document order. Only one element is
// held in memory at a time; the subtree of anything else is skipped unread.
// It implements pipeline.Extractor.
type Reader struct {
	dec   *xmlstream.StringReader
	kinds map[domain.Kind]struct{}
	depth int
}

// NewReader creates a Reader over r. With no kinds given, nodes and ways are returned.
func NewReader(r io.Reader, kinds ...domain.Kind) (*Reader, error) {
	dec, err := xmlstream.NewStringReader(r)
	if err != nil {
		return nil, fmt.Errorf("open osm document: %w", err)
	}
	if len(kinds) == 0 {
		kinds = []domain.Kind{domain.KindNode, domain.KindWay}
	}
	want := make(map[domain.Kind]struct{}, len(kinds))
	for _, k := range kinds {
		want[k] = struct{}{}
	}
	return &Reader{dec: dec, kinds: want}, nil
}

// Extract returns the next wanted element, or io.EOF once the document is exhausted.
func (r *Reader) Extract(ctx context.Context) (domain.Element, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.Element{}, err
		}

		ev, err := r.dec.Next()
		if errors.Is(err, io.EOF) {
			return domain.Element{}, io.EOF
		}
		if err != nil {
			return domain.Element{}, fmt.Errorf("read osm document: %w", err)
		}

		switch ev.Kind {
		case xmlstream.EventStartElement:
			r.depth++
			// depth 1 is the <osm> root; its direct children are the elements.
			if r.depth != 2 {
				continue
			}
			kind := domain.Kind(ev.Name.Local)
			if _, ok := r.kinds[kind]; !ok {
				if err := r.skip(); err != nil {
					return domain.Element{}, err
				}
				continue
			}
			el := domain.Element{Kind: kind, Attrs: copyAttrs(ev.Attrs)}
			if err := r.readChildren(&el); err != nil {
				return domain.Element{}, fmt.Errorf("read %s %s: %w", kind, el.ID(), err)
			}
			return el, nil
		case xmlstream.EventEndElement:
			r.depth--
		}
	}
}

// readChildren collects the direct children of the element just started and
// consumes its end tag. Grandchildren are skipped.
func (r *Reader) readChildren(el *domain.Element) error {
	for {
		ev, err := r.dec.Next()
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		if err != nil {
			return err
		}

		switch ev.Kind {
		case xmlstream.EventStartElement:
			el.Children = append(el.Children, domain.Child{Name: ev.Name.Local, Attrs: copyAttrs(ev.Attrs)})
			if err := r.dec.SkipSubtree(); err != nil {
				return err
			}
		case xmlstream.EventEndElement:
			r.depth--
			return nil
		}
	}
}

func (r *Reader) skip() error {
	if err := r.dec.SkipSubtree(); err != nil {
		return fmt.Errorf("skip element: %w", err)
	}
	r.depth--
	return nil
}

// copyAttrs detaches attributes from the decoder's reusable buffer.
func copyAttrs(attrs []xmlstream.StringAttr) []domain.Attr {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]domain.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = domain.Attr{Name: a.LocalName(), Value: a.Value()}
	}
	return out
}
