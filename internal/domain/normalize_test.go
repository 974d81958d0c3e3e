package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchStreetName(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		suffix      string
		directional string
	}{
		{"plain suffix", "Rainier Ave", "Ave", ""},
		{"suffix with period", "Main St.", "St.", ""},
		{"compass abbreviation", "Rainier Ave S", "Ave", "S"},
		{"two letter compass", "4th Ave NE", "Ave", "NE"},
		{"spelled out direction", "Pike Place West", "Place", "West"},
		{"north", "Aurora Avenue North", "Avenue", "North"},
		{"ordinal is not directional", "Avenue 4th", "4th", ""},
		{"single token", "Broadway", "Broadway", ""},
		{"lower case compass", "Rainier Ave s", "Ave", "s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MatchStreetName(tt.input)

			suffix, ok := m.Suffix()
			assert.True(t, ok)
			assert.Equal(t, tt.suffix, suffix)

			dir, ok := m.Directional()
			assert.Equal(t, tt.directional != "", ok)
			assert.Equal(t, tt.directional, dir)
		})
	}
}

func TestMatchStreetName_Degenerate(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		m := MatchStreetName("")
		_, ok := m.Suffix()
		assert.False(t, ok)
		_, ok = m.Directional()
		assert.False(t, ok)
	})

	t.Run("lone directional has no suffix", func(t *testing.T) {
		m := MatchStreetName("West")
		_, ok := m.Suffix()
		assert.False(t, ok)
		dir, ok := m.Directional()
		assert.True(t, ok)
		assert.Equal(t, "West", dir)
	})
}

func TestNormalizer_StreetName(t *testing.T) {
	n := NewNormalizer(nil)

	tests := []struct {
		input string
		want  string
	}{
		{"Rainier Ave", "Rainier Avenue"},
		{"Rainier Ave S", "Rainier Avenue S"},
		{"4th Ave NE", "4th Avenue NE"},
		{"Main St.", "Main Street"},
		{"Queen Anne AVE N", "Queen Anne Avenue N"},
		{"Aurora Ave North", "Aurora Avenue N"},
		{"Pike Place Southwest", "Pike Place SW"},
		{"Eastlake Av. E", "Eastlake Avenue E"},
		{"Lake City Wy NE", "Lake City Way NE"},
		{"Rainier Ave s", "Rainier Avenue S"},
		{"St Helens St", "St Helens Street"},
		{"West", "W"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := n.StreetName(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizer_StreetName_CanonicalIsIdentity(t *testing.T) {
	n := NewNormalizer(nil)

	for _, suffix := range ExpectedStreetTypes() {
		for _, name := range []string{"Rainier " + suffix, "4th " + suffix + " NE", "Lake " + suffix + " S"} {
			got, err := n.StreetName(name)
			require.NoError(t, err, name)
			assert.Equal(t, name, got)
		}
	}
}

func TestNormalizer_StreetName_EveryMappedSuffix(t *testing.T) {
	m := DefaultMappings()
	n := NewNormalizer(m)

	for from, to := range m.StreetTypes {
		got, err := n.StreetName("Rainier " + from)
		require.NoError(t, err, from)
		assert.Equal(t, "Rainier "+to, got)
	}
}

func TestNormalizer_StreetName_LookupError(t *testing.T) {
	n := NewNormalizer(nil)

	t.Run("unknown suffix", func(t *testing.T) {
		got, err := n.StreetName("Broadway E")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrLookup))

		var lookupErr *LookupError
		require.ErrorAs(t, err, &lookupErr)
		assert.Equal(t, TableStreetTypes, lookupErr.Table)
		assert.Equal(t, "Broadway", lookupErr.Token)
		assert.Equal(t, "Broadway E", lookupErr.Value)
		assert.Equal(t, "Broadway E", got)
	})

	t.Run("unknown directional", func(t *testing.T) {
		_, err := n.StreetName("Pine Street Crest")
		var lookupErr *LookupError
		require.ErrorAs(t, err, &lookupErr)
		assert.Equal(t, TableDirectionals, lookupErr.Table)
		assert.Equal(t, "Crest", lookupErr.Token)
	})

	t.Run("accepted token passes", func(t *testing.T) {
		m, err := ParseMappings([]byte("expected: [Street]\naccepted: [Broadway]\n"))
		require.NoError(t, err)

		got, err := NewNormalizer(m).StreetName("Broadway")
		require.NoError(t, err)
		assert.Equal(t, "Broadway", got)
	})
}

func TestNormalizer_Postcode(t *testing.T) {
	n := NewNormalizer(nil)

	tests := []struct {
		input string
		want  string
	}{
		{"98101", "98101"},
		{"98101-1234", "98101"},
		{"WA 98144", "98144"},
		{"V6B 2W9", "V6B2W9"},
		{"v6b 2w9", "V6B2W9"},
		{"V6B2W9", "V6B2W9"},
		{"Seattle", "Seattle"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := n.Postcode(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, n.Postcode(got), "normalization should be idempotent")
		})
	}
}

func TestParseMappings(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		m := DefaultMappings()
		assert.Len(t, m.Expected, 19)
		assert.Equal(t, "Avenue", m.StreetTypes["Ave"])
		assert.Equal(t, "NE", m.Directionals["Northeast"])
		assert.True(t, m.IsExpected("Street"))
		assert.False(t, m.IsExpected("St"))
	})

	t.Run("target outside vocabulary", func(t *testing.T) {
		_, err := ParseMappings([]byte("expected: [Street]\nstreet_types:\n  Ave: Avenue\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Avenue")
	})

	t.Run("empty vocabulary", func(t *testing.T) {
		_, err := ParseMappings([]byte("street_types: {}\n"))
		require.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := ParseMappings([]byte("expected: [Street"))
		require.Error(t, err)
	})
}

func TestLoadMappings_EmptyPathUsesDefaults(t *testing.T) {
	m, err := LoadMappings("")
	require.NoError(t, err)
	assert.Same(t, DefaultMappings(), m)
}
