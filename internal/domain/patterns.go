package domain

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// streetTypeRe matches the last whitespace-delimited token, e.g. "Ave." in "Main Ave.".
	streetTypeRe = regexp.MustCompile(`\b\S+\.?$`)

	// secondToLastRe captures the token before the last one, e.g. "Ave" in "Rainier Ave S".
	secondToLastRe = regexp.MustCompile(`(\b\S+\.?) \S+$`)

	// directionalRe detects a trailing directional qualifier: a compass
	// abbreviation (" S", " NE"), or a word ending in "th"/"st" such as "North"
	// or "Southwest". "4th" is not directional because of the leading digit.
	directionalRe = regexp.MustCompile(`(?i)(\s[NESW][EW]?|\Dth|\Sst)$`)

	// postcodeRe matches a Pacific Northwest ZIP (9xxxx) or a Canadian A1A 1A1 code.
	postcodeRe = regexp.MustCompile(`(9\d\d\d\d|\w\d\w ?\d\w\d)`)
)

//go:embed mappings.yaml
var defaultMappingsYAML []byte

var defaultMappings = mustParseMappings(defaultMappingsYAML)

// Mappings holds the canonical suffix vocabulary and the two substitution
// tables. A Mappings value is read-only once parsed.
type Mappings struct {
	Expected     []string          `yaml:"expected"`
	Accepted     []string          `yaml:"accepted"`
	StreetTypes  map[string]string `yaml:"street_types"`
	Directionals map[string]string `yaml:"directionals"`

	expected map[string]struct{}
	accepted map[string]struct{}
	abbrevs  map[string]struct{}
}

// DefaultMappings returns the built-in tables.
func DefaultMappings() *Mappings {
	return defaultMappings
}

// ExpectedStreetTypes returns the canonical suffix vocabulary of the built-in tables.
func ExpectedStreetTypes() []string {
	return append([]string(nil), defaultMappings.Expected...)
}

// LoadMappings reads substitution tables from a YAML file. An empty path
// returns the built-in tables.
func LoadMappings(path string) (*Mappings, error) {
	if path == "" {
		return DefaultMappings(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mappings: %w", err)
	}
	return ParseMappings(data)
}

// ParseMappings decodes and checks YAML substitution tables. Every street-type
// substitution must target a word in the expected vocabulary.
func ParseMappings(data []byte) (*Mappings, error) {
	var m Mappings
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse mappings: %w", err)
	}
	if len(m.Expected) == 0 {
		return nil, errors.New("parse mappings: expected vocabulary is empty")
	}

	m.expected = make(map[string]struct{}, len(m.Expected))
	for _, s := range m.Expected {
		m.expected[s] = struct{}{}
	}
	m.accepted = make(map[string]struct{}, len(m.Accepted))
	for _, s := range m.Accepted {
		m.accepted[s] = struct{}{}
	}
	for from, to := range m.StreetTypes {
		if _, ok := m.expected[to]; !ok {
			return nil, fmt.Errorf("parse mappings: street type %q maps to %q which is not an expected suffix", from, to)
		}
	}
	m.abbrevs = make(map[string]struct{}, len(m.Directionals))
	for _, abbr := range m.Directionals {
		m.abbrevs[abbr] = struct{}{}
	}
	return &m, nil
}

func mustParseMappings(data []byte) *Mappings {
	m, err := ParseMappings(data)
	if err != nil {
		panic(err)
	}
	return m
}

// IsExpected reports whether suffix is part of the canonical vocabulary.
func (m *Mappings) IsExpected(suffix string) bool {
	_, ok := m.expected[suffix]
	return ok
}

// IsAccepted reports whether token is a known-good non-suffix ending.
func (m *Mappings) IsAccepted(token string) bool {
	_, ok := m.accepted[token]
	return ok
}

// canonicalStreetType returns the canonical form of a suffix token.
func (m *Mappings) canonicalStreetType(token string) (string, bool) {
	if m.IsExpected(token) || m.IsAccepted(token) {
		return token, true
	}
	canon, ok := m.StreetTypes[token]
	return canon, ok
}

// canonicalDirectional returns the abbreviation for a directional token.
// Tokens that already are an abbreviation are upper cased.
func (m *Mappings) canonicalDirectional(token string) (string, bool) {
	if abbr, ok := m.Directionals[token]; ok {
		return abbr, true
	}
	upper := strings.ToUpper(token)
	if _, ok := m.abbrevs[upper]; ok {
		return upper, true
	}
	return "", false
}

type span struct {
	start, end int
}

var noSpan = span{start: -1, end: -1}

func (s span) ok() bool { return s.start >= 0 }

// StreetMatch locates the suffix and directional tokens of a street name.
type StreetMatch struct {
	name        string
	suffix      span
	directional span
}

// MatchStreetName finds the suffix candidate of name. When the name ends in a
// directional qualifier the suffix is the second-to-last token and the last
// token is reported as the directional: "4th Ave NE" -> suffix "Ave",
// directional "NE".
func MatchStreetName(name string) StreetMatch {
	m := StreetMatch{name: name, suffix: noSpan, directional: noSpan}
	last := streetTypeRe.FindStringIndex(name)

	if directionalRe.MatchString(name) {
		if loc := secondToLastRe.FindStringSubmatchIndex(name); loc != nil {
			m.suffix = span{start: loc[2], end: loc[3]}
		}
		if last != nil {
			m.directional = span{start: last[0], end: last[1]}
		}
		return m
	}

	if last != nil {
		m.suffix = span{start: last[0], end: last[1]}
	}
	return m
}

// Suffix returns the suffix candidate token.
func (m StreetMatch) Suffix() (string, bool) {
	if !m.suffix.ok() {
		return "", false
	}
	return m.name[m.suffix.start:m.suffix.end], true
}

// Directional returns the trailing directional token.
func (m StreetMatch) Directional() (string, bool) {
	if !m.directional.ok() {
		return "", false
	}
	return m.name[m.directional.start:m.directional.end], true
}

// MatchPostcode returns the postcode embedded in s, as written.
func MatchPostcode(s string) (string, bool) {
	m := postcodeRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}
