package spatial_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpricemap/openpricemap/backend/internal/spatial"
)

func TestTileBBox_LondonTile(t *testing.T) {
	// zoom 10, tile (512, 341) covers central London
	box := spatial.TileBBox(10, 512, 341)

	assert.InDelta(t, 0.0, box.West, 1e-9)
	assert.InDelta(t, 0.3515625, box.East, 1e-9)
	assert.InDelta(t, 51.508742458803326, box.North, 1e-9)
	assert.InDelta(t, 51.289405897947894, box.South, 1e-9)
}

func TestTileBBox_Deterministic(t *testing.T) {
	first := spatial.TileBBox(10, 512, 341)
	second := spatial.TileBBox(10, 512, 341)
	assert.Equal(t, first, second)
}

func TestTileBBox_WorldTile(t *testing.T) {
	box := spatial.TileBBox(0, 0, 0)

	assert.InDelta(t, -180.0, box.West, 1e-9)
	assert.InDelta(t, 180.0, box.East, 1e-9)
	assert.Greater(t, box.North, 85.0)
	assert.Less(t, box.South, -85.0)
}

func TestValidTile(t *testing.T) {
	assert.True(t, spatial.ValidTile(0, 0, 0))
	assert.True(t, spatial.ValidTile(10, 512, 341))
	assert.True(t, spatial.ValidTile(20, (1<<20)-1, 0))

	assert.False(t, spatial.ValidTile(-1, 0, 0))
	assert.False(t, spatial.ValidTile(21, 0, 0))
	assert.False(t, spatial.ValidTile(10, -1, 0))
	assert.False(t, spatial.ValidTile(10, 0, 1024))
	assert.False(t, spatial.ValidTile(2, 4, 0))
}

func TestResolutionForZoom_TotalAndMonotonic(t *testing.T) {
	previous := spatial.ResolutionForZoom(0)
	for zoom := 0; zoom <= spatial.MaxZoom; zoom++ {
		resolution := spatial.ResolutionForZoom(zoom)
		require.GreaterOrEqual(t, resolution, 2, "zoom %d", zoom)
		require.LessOrEqual(t, resolution, 11, "zoom %d", zoom)
		require.GreaterOrEqual(t, resolution, previous, "resolution must not get coarser as zoom grows")
		previous = resolution
	}
}

func TestResolutionForZoom_Brackets(t *testing.T) {
	assert.Equal(t, 2, spatial.ResolutionForZoom(0))
	assert.Equal(t, 6, spatial.ResolutionForZoom(10))
	assert.Equal(t, 7, spatial.ResolutionForZoom(12))
	assert.Equal(t, 11, spatial.ResolutionForZoom(20))
}
