package geocoding_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpricemap/openpricemap/backend/internal/adapters/geocoding"
	"github.com/openpricemap/openpricemap/backend/internal/domain/entities"
	"github.com/openpricemap/openpricemap/backend/internal/domain/providers"
)

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "SW1A1AA", geocoding.NormalizeKey("SW1A 1AA"))
	assert.Equal(t, "SW1A1AA", geocoding.NormalizeKey("sw1a1aa"))
	assert.Equal(t, "SW1A1AA", geocoding.NormalizeKey("  sw1a   1aa  "))
	assert.Equal(t, "", geocoding.NormalizeKey("   "))
}

func TestResolve_ToleratesFormattingVariance(t *testing.T) {
	resolver := geocoding.NewPostcodeResolver(map[string]providers.ResolvedLocation{
		"SW1A 1AA": {
			Location: entities.Location{Latitude: 51.501, Longitude: -0.1416},
			Country:  "GB",
		},
	})

	for _, key := range []string{"SW1A 1AA", "sw1a 1aa", "SW1A1AA", " sw1a  1aa "} {
		resolved, ok := resolver.Resolve(key)
		require.True(t, ok, "key %q", key)
		assert.Equal(t, 51.501, resolved.Location.Latitude)
		assert.Equal(t, -0.1416, resolved.Location.Longitude)
		assert.Equal(t, "GB", resolved.Country)
	}
}

func TestResolve_Miss(t *testing.T) {
	resolver := geocoding.NewPostcodeResolver(nil)

	_, ok := resolver.Resolve("ZZ9 9ZZ")
	assert.False(t, ok)
}

func TestLoadPostcodeIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postcodes.csv")
	contents := "postcode,latitude,longitude,country\n" +
		"SW1A 1AA,51.501,-0.1416,GB\n" +
		"M1 1AE,53.4774,-2.2364,GB\n" +
		"BROKEN,not-a-lat,-2.0,GB\n" +
		"EH1 1YZ,55.9502,-3.1882\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	resolver, err := geocoding.LoadPostcodeIndex(path)
	require.NoError(t, err)

	// Header and malformed rows are skipped
	assert.Equal(t, 3, resolver.Len())

	resolved, ok := resolver.Resolve("sw1a 1aa")
	require.True(t, ok)
	assert.Equal(t, 51.501, resolved.Location.Latitude)
	assert.Equal(t, "GB", resolved.Country)

	// Country column is optional
	resolved, ok = resolver.Resolve("EH1 1YZ")
	require.True(t, ok)
	assert.Equal(t, "", resolved.Country)

	_, ok = resolver.Resolve("BROKEN")
	assert.False(t, ok)
}

func TestLoadPostcodeIndex_MissingFile(t *testing.T) {
	_, err := geocoding.LoadPostcodeIndex(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
