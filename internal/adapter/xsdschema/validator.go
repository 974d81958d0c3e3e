// Package xsdschema checks shaped bundles against the declared field types of
// the output tables before they are written.
package xsdschema

import (
	"bytes"
	"context"
	"embed"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/couchcryptid/osm-address-etl/internal/domain"
	"github.com/jacoelho/xsd"
	xsderrors "github.com/jacoelho/xsd/errors"
)

const schemaFile = "bundle.xsd"

//go:embed bundle.xsd
var schemaFS embed.FS

// rowElement is the XML element each table's rows are rendered as.
var rowElement = map[domain.Table]string{
	domain.TableNodes:    string(domain.KindNode),
	domain.TableWays:     string(domain.KindWay),
	domain.TableNodeTags: domain.ChildTag,
	domain.TableWayTags:  domain.ChildTag,
	domain.TableWayNodes: domain.ChildNd,
}

// ValidationError reports every schema violation found in one bundle.
type ValidationError struct {
	ElementType domain.Kind
	ID          string
	Errors      []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s does not match the table schema:", e.ElementType, e.ID)
	for _, msg := range e.Errors {
		b.WriteString("\n  ")
		b.WriteString(msg)
	}
	return b.String()
}

// Validator validates bundles with the embedded schema. It is safe for
// concurrent use. It implements pipeline.Validator.
type Validator struct {
	schema *xsd.Schema
}

// NewValidator compiles the embedded schema.
func NewValidator() (*Validator, error) {
	schema, err := xsd.Load(schemaFS, schemaFile)
	if err != nil {
		return nil, fmt.Errorf("compile bundle schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate renders b as XML and checks it. Schema violations are returned as
// a *ValidationError.
func (v *Validator) Validate(_ context.Context, b domain.Bundle) error {
	doc, err := Render(b)
	if err != nil {
		return err
	}

	err = v.schema.Validate(bytes.NewReader(doc))
	if err == nil {
		return nil
	}
	violations, ok := xsderrors.AsValidations(err)
	if !ok {
		return fmt.Errorf("validate %s %s: %w", b.Kind, b.ID(), err)
	}
	verr := &ValidationError{ElementType: b.Kind, ID: b.ID(), Errors: make([]string, 0, len(violations))}
	for i := range violations {
		verr.Errors = append(verr.Errors, violations[i].Error())
	}
	return verr
}

// Render writes the bundle as a single XML element: the attribute record
// becomes the root's attributes and every other row a child element.
func Render(b domain.Bundle) ([]byte, error) {
	tables := b.Rows()
	if len(tables) == 0 {
		return nil, fmt.Errorf("render %s: %w", b.Kind, domain.ErrUnsupportedKind)
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)

	head := tables[0]
	root := rowStart(head.Table, head.Rows[0])
	if err := enc.EncodeToken(root); err != nil {
		return nil, fmt.Errorf("render %s %s: %w", b.Kind, b.ID(), err)
	}
	for _, t := range tables[1:] {
		for _, row := range t.Rows {
			child := rowStart(t.Table, row)
			if err := enc.EncodeToken(child); err != nil {
				return nil, fmt.Errorf("render %s %s: %w", b.Kind, b.ID(), err)
			}
			if err := enc.EncodeToken(child.End()); err != nil {
				return nil, fmt.Errorf("render %s %s: %w", b.Kind, b.ID(), err)
			}
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, fmt.Errorf("render %s %s: %w", b.Kind, b.ID(), err)
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("render %s %s: %w", b.Kind, b.ID(), err)
	}
	return buf.Bytes(), nil
}

func rowStart(t domain.Table, row []any) xml.StartElement {
	cols := t.Columns()
	attrs := make([]xml.Attr, len(cols))
	for i, col := range cols {
		attrs[i] = xml.Attr{Name: xml.Name{Local: col}, Value: fmt.Sprint(row[i])}
	}
	return xml.StartElement{Name: xml.Name{Local: rowElement[t]}, Attr: attrs}
}
