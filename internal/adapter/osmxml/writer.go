package osmxml

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/couchcryptid/osm-address-etl/internal/domain"
)

const rootElement = "osm"

// Writer emits elements as a well-formed OSM document.
type Writer struct {
	enc     *xml.Encoder
	written int
}

// NewWriter writes the XML declaration and opens the <osm> root.
func NewWriter(w io.Writer) (*Writer, error) {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return nil, fmt.Errorf("write osm header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: rootElement}}); err != nil {
		return nil, fmt.Errorf("open osm root: %w", err)
	}
	return &Writer{enc: enc}, nil
}

// Write appends el and its direct children.
func (w *Writer) Write(el domain.Element) error {
	start := xml.StartElement{Name: xml.Name{Local: string(el.Kind)}, Attr: xmlAttrs(el.Attrs)}
	if err := w.enc.EncodeToken(start); err != nil {
		return fmt.Errorf("write %s %s: %w", el.Kind, el.ID(), err)
	}
	for _, c := range el.Children {
		child := xml.StartElement{Name: xml.Name{Local: c.Name}, Attr: xmlAttrs(c.Attrs)}
		if err := w.enc.EncodeToken(child); err != nil {
			return fmt.Errorf("write %s %s: %w", el.Kind, el.ID(), err)
		}
		if err := w.enc.EncodeToken(child.End()); err != nil {
			return fmt.Errorf("write %s %s: %w", el.Kind, el.ID(), err)
		}
	}
	if err := w.enc.EncodeToken(start.End()); err != nil {
		return fmt.Errorf("write %s %s: %w", el.Kind, el.ID(), err)
	}
	w.written++
	return nil
}

// Written returns the number of elements written so far.
func (w *Writer) Written() int {
	return w.written
}

// Close closes the <osm> root and flushes buffered output. It does not close
// the underlying writer.
func (w *Writer) Close() error {
	if err := w.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: rootElement}}); err != nil {
		return fmt.Errorf("close osm root: %w", err)
	}
	if err := w.enc.Flush(); err != nil {
		return fmt.Errorf("flush osm document: %w", err)
	}
	return nil
}

// Sample copies every k-th element read from r to w, starting with the first.
// It returns the number of elements written.
func Sample(ctx context.Context, r *Reader, w *Writer, k int) (int, error) {
	if k < 1 {
		return 0, fmt.Errorf("sample every %d: step must be at least 1", k)
	}
	for i := 0; ; i++ {
		el, err := r.Extract(ctx)
		if errors.Is(err, io.EOF) {
			return w.Written(), nil
		}
		if err != nil {
			return w.Written(), err
		}
		if i%k != 0 {
			continue
		}
		if err := w.Write(el); err != nil {
			return w.Written(), err
		}
	}
}

func xmlAttrs(attrs []domain.Attr) []xml.Attr {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]xml.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value}
	}
	return out
}
