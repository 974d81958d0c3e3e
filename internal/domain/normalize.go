package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLookup is wrapped by every [LookupError].
var ErrLookup = errors.New("substitution table lookup failed")

// Substitution table names reported by [LookupError].
const (
	TableStreetTypes  = "street_types"
	TableDirectionals = "directionals"
)

// LookupError reports a suffix or directional token that is neither canonical
// nor present in its substitution table. The run cannot continue safely: the
// table needs the new variant added (see the audit command).
type LookupError struct {
	Table string // TableStreetTypes or TableDirectionals
	Token string
	Value string // full street name the token was found in
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("no %s mapping for %q in street name %q", e.Table, e.Token, e.Value)
}

func (e *LookupError) Unwrap() error { return ErrLookup }

// ValueNormalizer rewrites address values into canonical form.
type ValueNormalizer interface {
	StreetName(name string) (string, error)
	Postcode(code string) string
}

// Normalizer implements ValueNormalizer with a set of substitution tables.
type Normalizer struct {
	mappings *Mappings
}

// NewNormalizer creates a Normalizer. A nil mappings uses the built-in tables.
func NewNormalizer(m *Mappings) *Normalizer {
	if m == nil {
		m = DefaultMappings()
	}
	return &Normalizer{mappings: m}
}

// StreetName replaces the suffix token, and the trailing directional token if
// any, with their canonical forms: "Rainier Ave South" -> "Rainier Avenue S".
// Tokens are replaced in place; the rest of the name is untouched. Names with
// no detectable suffix are returned unchanged.
func (n *Normalizer) StreetName(name string) (string, error) {
	match := MatchStreetName(name)

	var suffix, directional string
	if tok, ok := match.Suffix(); ok {
		canon, found := n.mappings.canonicalStreetType(tok)
		if !found {
			return name, &LookupError{Table: TableStreetTypes, Token: tok, Value: name}
		}
		suffix = canon
	}
	if tok, ok := match.Directional(); ok {
		canon, found := n.mappings.canonicalDirectional(tok)
		if !found {
			return name, &LookupError{Table: TableDirectionals, Token: tok, Value: name}
		}
		directional = canon
	}

	// The directional is always right of the suffix, so splice it first to
	// keep the suffix offsets valid.
	out := name
	if match.directional.ok() {
		out = out[:match.directional.start] + directional + out[match.directional.end:]
	}
	if match.suffix.ok() {
		out = out[:match.suffix.start] + suffix + out[match.suffix.end:]
	}
	return out, nil
}

// Postcode extracts a recognised postcode from code, strips its spaces and
// upper-cases it. Unrecognised input is returned unchanged.
func (n *Normalizer) Postcode(code string) string {
	m, ok := MatchPostcode(code)
	if !ok {
		return code
	}
	return strings.ToUpper(strings.ReplaceAll(m, " ", ""))
}
