package grid

import (
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/couchcryptid/storm-feature-detect/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deg(v ...float64) []float64 {
	out := make([]float64, len(v))
	for i, d := range v {
		out[i] = d * math.Pi / 180
	}
	return out
}

func sorted(v []int) []int {
	out := slices.Clone(v)
	slices.Sort(out)
	return out
}

func fourByFour(t *testing.T, regional bool) *Grid {
	t.Helper()
	g, err := BuildLatLon(deg(-60, -20, 20, 60), deg(0, 90, 180, 270), regional)
	require.NoError(t, err)
	return g
}

func TestBuildLatLon_Indexing(t *testing.T) {
	g := fourByFour(t, false)

	assert.Equal(t, 16, g.Len())
	assert.Equal(t, LayoutLatLon, g.Layout())
	assert.Equal(t, 9, g.Index(2, 1))
	j, i := g.RowCol(9)
	assert.Equal(t, 2, j)
	assert.Equal(t, 1, i)
	assert.InDelta(t, 20, g.LatDeg(9), 1e-12)
	assert.InDelta(t, 90, g.LonDeg(9), 1e-12)
}

func TestBuildLatLon_GraphAdjacency(t *testing.T) {
	g := fourByFour(t, false)

	// Interior node: exactly four neighbors.
	assert.Equal(t, sorted([]int{5, 13, 10, 8}), sorted(g.Neighbors(g.Index(2, 1))))
	// First row drops south.
	assert.Equal(t, sorted([]int{4, 1, 3}), sorted(g.Neighbors(g.Index(0, 0))))
	// Longitude wraps from column 3 to column 0.
	assert.Contains(t, g.Neighbors(g.Index(1, 3)), g.Index(1, 0))
}

func TestBuildLatLon_RegionalDropsWrap(t *testing.T) {
	g := fourByFour(t, true)

	assert.True(t, g.Regional())
	assert.NotContains(t, g.Neighbors(g.Index(1, 3)), g.Index(1, 0))
	assert.NotContains(t, g.Neighbors(g.Index(1, 0)), g.Index(1, 3))
	assert.Len(t, g.Neighbors(g.Index(1, 0)), 3)
}

func TestBuildLatLon_RangeError(t *testing.T) {
	_, err := BuildLatLon([]float64{0, 2}, []float64{0}, false)
	require.ErrorIs(t, err, domain.ErrRange)

	// Degrees passed by mistake.
	_, err = BuildLatLon([]float64{-90, 90}, []float64{0}, false)
	require.ErrorIs(t, err, domain.ErrRange)

	_, err = BuildLatLon([]float64{math.Pi / 2, -math.Pi / 2}, []float64{0}, false)
	require.NoError(t, err, "exact poles are valid")

	_, err = BuildLatLon(nil, []float64{0}, false)
	require.ErrorIs(t, err, domain.ErrDataAccess)
}

func TestBuildLatLon_NarrowGridNoSelfLoops(t *testing.T) {
	g, err := BuildLatLon(deg(-10, 0, 10), deg(0, 180), false)
	require.NoError(t, err)

	for k := range g.Len() {
		assert.NotContains(t, g.Neighbors(k), k)
	}
	// East and west coincide on a two-column grid.
	assert.Equal(t, sorted([]int{0, 4, 3}), sorted(g.Neighbors(2)))
}

func TestStencil(t *testing.T) {
	g := fourByFour(t, false)
	var buf []int

	nbrs, ok := g.Stencil(g.Index(2, 1), buf)
	require.True(t, ok)
	assert.Equal(t, sorted([]int{4, 5, 6, 8, 10, 12, 13, 14}), sorted(nbrs))

	// Wrap column: node (1,0) sees column 3.
	nbrs, ok = g.Stencil(g.Index(1, 0), buf)
	require.True(t, ok)
	assert.Contains(t, nbrs, g.Index(0, 3))
	assert.Contains(t, nbrs, g.Index(2, 3))

	_, ok = g.Stencil(g.Index(0, 2), buf)
	assert.False(t, ok, "pole rows are not scanned")
	_, ok = g.Stencil(g.Index(3, 2), buf)
	assert.False(t, ok)

	rg := fourByFour(t, true)
	_, ok = rg.Stencil(rg.Index(1, 0), buf)
	assert.False(t, ok, "regional edge column has no complete ring")
	_, ok = rg.Stencil(rg.Index(1, 1), buf)
	assert.True(t, ok)
}

func TestRasterNeighbors(t *testing.T) {
	g := fourByFour(t, false)

	// First row clamps latitude but still wraps longitude.
	nbrs := g.RasterNeighbors(g.Index(0, 0), nil)
	assert.Equal(t, sorted([]int{1, 3, 4, 5, 7}), sorted(nbrs))

	rg := fourByFour(t, true)
	nbrs = rg.RasterNeighbors(rg.Index(0, 0), nil)
	assert.Equal(t, sorted([]int{1, 4, 5}), sorted(nbrs))
}

func TestReadConnectivity(t *testing.T) {
	input := `3
0.0, 10.0, 2, 2, 3
90.0, 10.0, 2, 1, 3
45.0, -30.0, 2, 1, 2
`
	g, err := ReadConnectivity(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, LayoutUnstructured, g.Layout())
	assert.Equal(t, 3, g.Len())
	assert.Equal(t, []int{1, 2}, g.Neighbors(0))
	assert.Equal(t, []int{0, 1}, g.Neighbors(2))
	assert.InDelta(t, math.Pi/2, g.Lon(1), 1e-12)
	assert.InDelta(t, -30*math.Pi/180, g.Lat(2), 1e-12)

	nbrs, ok := g.Stencil(0, nil)
	assert.True(t, ok)
	assert.Equal(t, []int{1, 2}, nbrs)
	assert.Equal(t, []int{1, 2}, g.RasterNeighbors(0, nil))
}

func TestReadConnectivity_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "", domain.ErrDataAccess},
		{"premature end", "2\n0, 0, 1, 2\n", domain.ErrDataAccess},
		{"neighbor out of range", "1\n0, 0, 1, 2\n", domain.ErrDataAccess},
		{"zero-based neighbor", "1\n0, 0, 1, 0\n", domain.ErrDataAccess},
		{"bad number", "1\n0, north, 0\n", domain.ErrDataAccess},
		{"latitude out of range", "1\n0, 95, 0\n", domain.ErrRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadConnectivity(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGreatCircleDeg(t *testing.T) {
	assert.InDelta(t, 0, GreatCircleDeg(0.3, 1.2, 0.3, 1.2), 1e-9)
	assert.InDelta(t, 90, GreatCircleDeg(0, 0, math.Pi/2, 0), 1e-9)
	assert.InDelta(t, 180, GreatCircleDeg(0, 0, 0, math.Pi), 1e-9)
	assert.InDelta(t, 10, GreatCircleDeg(0, 0, 0, 10*math.Pi/180), 1e-9)
}

func TestChordToDeg_MatchesGreatCircle(t *testing.T) {
	a := UnitVector(0.4, -1.1)
	b := UnitVector(-0.2, 0.7)

	want := GreatCircleDeg(0.4, -1.1, -0.2, 0.7)
	assert.InDelta(t, want, ChordToDeg(a.Sub(b).Norm()), 1e-9)
	assert.InDelta(t, 1, a.Norm(), 1e-12)
	assert.InDelta(t, 0, ChordToDeg(0), 1e-12)
	assert.InDelta(t, 180, ChordToDeg(2.0000001), 1e-9)
}
