package domain

import (
	"encoding/json"
	"sort"
)

// Address tag keys subject to normalization.
const (
	KeyStreet   = "addr:street"
	KeyPostcode = "addr:postcode"
)

// AnomalyInventory groups street names by the non-canonical token found in them.
type AnomalyInventory map[string]map[string]struct{}

// Add records name under token.
func (inv AnomalyInventory) Add(token, name string) {
	names, ok := inv[token]
	if !ok {
		names = make(map[string]struct{})
		inv[token] = names
	}
	names[name] = struct{}{}
}

// Tokens returns the recorded tokens in sorted order.
func (inv AnomalyInventory) Tokens() []string {
	tokens := make([]string, 0, len(inv))
	for t := range inv {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens
}

// Names returns the street names recorded under token in sorted order.
func (inv AnomalyInventory) Names(token string) []string {
	names := make([]string, 0, len(inv[token]))
	for n := range inv[token] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON encodes the inventory as an object of sorted name arrays.
func (inv AnomalyInventory) MarshalJSON() ([]byte, error) {
	out := make(map[string][]string, len(inv))
	for t := range inv {
		out[t] = inv.Names(t)
	}
	return json.Marshal(out)
}

// Auditor scans street names and collects the ones whose suffix is not
// canonical. It never rewrites anything.
type Auditor struct {
	mappings     *Mappings
	suffixes     AnomalyInventory
	directionals AnomalyInventory
	seen         int
}

// NewAuditor creates an Auditor. A nil mappings uses the built-in tables.
func NewAuditor(m *Mappings) *Auditor {
	if m == nil {
		m = DefaultMappings()
	}
	return &Auditor{
		mappings:     m,
		suffixes:     make(AnomalyInventory),
		directionals: make(AnomalyInventory),
	}
}

// Observe audits every addr:street tag of el.
func (a *Auditor) Observe(el Element) {
	for _, c := range el.Children {
		if c.Name != ChildTag {
			continue
		}
		if k, _ := c.Attr("k"); k != KeyStreet {
			continue
		}
		v, _ := c.Attr("v")
		a.AuditStreetName(v)
	}
}

// AuditStreetName records name if its suffix candidate is not canonical.
// Trailing directionals that the normalizer could not rewrite are recorded
// separately, see [Auditor.Directionals].
func (a *Auditor) AuditStreetName(name string) {
	a.seen++
	match := MatchStreetName(name)
	if tok, ok := match.Suffix(); ok && !a.mappings.IsExpected(tok) && !a.mappings.IsAccepted(tok) {
		a.suffixes.Add(tok, name)
	}
	if tok, ok := match.Directional(); ok {
		if _, found := a.mappings.canonicalDirectional(tok); !found {
			a.directionals.Add(tok, name)
		}
	}
}

// Inventory returns the suffix anomalies found so far.
func (a *Auditor) Inventory() AnomalyInventory {
	return a.suffixes
}

// Directionals returns the directional tokens that have no substitution.
func (a *Auditor) Directionals() AnomalyInventory {
	return a.directionals
}

// Seen returns the number of street names audited.
func (a *Auditor) Seen() int {
	return a.seen
}
