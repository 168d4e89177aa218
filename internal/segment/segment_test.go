package segment

import (
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-feature-detect/internal/grid"
)

func buildGrid(t *testing.T, nLat, nLon int, regional bool) *grid.Grid {
	t.Helper()
	lat := make([]float64, nLat)
	for j := range lat {
		lat[j] = (-60 + 120*float64(j)/float64(nLat-1)) * math.Pi / 180
	}
	lon := make([]float64, nLon)
	for i := range lon {
		lon[i] = 2 * math.Pi * float64(i) / float64(nLon)
	}
	g, err := grid.BuildLatLon(lat, lon, regional)
	require.NoError(t, err)
	return g
}

func maskOf(g *grid.Grid, nodes ...int) []bool {
	m := make([]bool, g.Len())
	for _, n := range nodes {
		m[n] = true
	}
	return m
}

func TestClean_RemovesSmallComponents(t *testing.T) {
	g := buildGrid(t, 6, 10, false)
	blob := []int{g.Index(2, 4), g.Index(2, 5), g.Index(3, 6)}
	single1, single2 := g.Index(0, 0), g.Index(5, 7)
	mask := maskOf(g, append([]int{single1, single2}, blob...)...)

	kept, removed, err := Clean(g, mask, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, removed)
	require.Len(t, kept, 1)
	assert.Equal(t, Component(blob), kept[0])
	assert.False(t, mask[single1])
	assert.False(t, mask[single2])
	for _, n := range blob {
		assert.True(t, mask[n])
	}
}

func TestClean_Idempotent(t *testing.T) {
	g := buildGrid(t, 12, 24, false)
	r := rand.New(rand.NewPCG(3, 5))
	mask := make([]bool, g.Len())
	for i := range mask {
		mask[i] = r.Float64() < 0.3
	}

	_, _, err := Clean(g, mask, 4)
	require.NoError(t, err)
	once := slices.Clone(mask)

	_, removed, err := Clean(g, mask, 4)
	require.NoError(t, err)
	assert.Zero(t, removed)
	if diff := cmp.Diff(once, mask); diff != "" {
		t.Errorf("second pass changed the mask (-first +second):\n%s", diff)
	}
}

func TestComponents_WrapAndClamp(t *testing.T) {
	g := buildGrid(t, 5, 8, false)
	// Diagonal across the wrap edge in the first row.
	mask := maskOf(g, g.Index(0, 7), g.Index(1, 0))

	comps, err := Components(g, mask)
	require.NoError(t, err)
	require.Len(t, comps, 1)
	assert.Equal(t, Component{g.Index(0, 7), g.Index(1, 0)}, comps[0])

	// The first and last rows are not adjacent.
	mask = maskOf(g, g.Index(0, 3), g.Index(4, 3))
	comps, err = Components(g, mask)
	require.NoError(t, err)
	assert.Len(t, comps, 2)
}

func TestComponents_RegionalDoesNotWrap(t *testing.T) {
	g := buildGrid(t, 5, 8, true)
	mask := maskOf(g, g.Index(2, 7), g.Index(2, 0))

	comps, err := Components(g, mask)
	require.NoError(t, err)
	assert.Len(t, comps, 2)
}

func TestComponents_Partition(t *testing.T) {
	g := buildGrid(t, 15, 30, false)
	r := rand.New(rand.NewPCG(11, 13))
	mask := make([]bool, g.Len())
	for i := range mask {
		mask[i] = r.Float64() < 0.35
	}

	comps, err := Components(g, mask)
	require.NoError(t, err)

	owner := make(map[int]int)
	for ci, c := range comps {
		for _, n := range c {
			_, dup := owner[n]
			require.False(t, dup, "node %d in two components", n)
			owner[n] = ci
		}
	}
	for k, on := range mask {
		_, owned := owner[k]
		assert.Equal(t, on, owned, "node %d", k)
		if !on {
			continue
		}
		// No masked raster neighbor may belong to a different component.
		for _, n := range g.RasterNeighbors(k, nil) {
			if mask[n] {
				assert.Equal(t, owner[k], owner[n])
			}
		}
	}
}

func TestComponents_MaskLength(t *testing.T) {
	g := buildGrid(t, 3, 4, false)
	_, err := Components(g, make([]bool, 5))
	assert.Error(t, err)
}

func TestClean_ZeroThresholdKeepsAll(t *testing.T) {
	g := buildGrid(t, 3, 4, false)
	mask := maskOf(g, 0, 10)

	kept, removed, err := Clean(g, mask, 0)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Len(t, kept, 2)
}
