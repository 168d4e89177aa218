package spatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-feature-detect/internal/domain"
	"github.com/couchcryptid/storm-feature-detect/internal/grid"
)

func testGrid(t *testing.T) *grid.Grid {
	t.Helper()
	lat := make([]float64, 19)
	for j := range lat {
		lat[j] = float64(j*10-90) * math.Pi / 180
	}
	lon := make([]float64, 36)
	for i := range lon {
		lon[i] = float64(i*10) * math.Pi / 180
	}
	g, err := grid.BuildLatLon(lat, lon, false)
	require.NoError(t, err)
	return g
}

func TestQuery_PointInIndexIsZero(t *testing.T) {
	g := testGrid(t)
	pts := domain.NewCandidateSet(g.Index(9, 0), g.Index(12, 20), g.Index(3, 35))
	idx := Build(pts, g)
	defer idx.Release()

	require.Equal(t, 3, idx.Len())
	for node := range pts {
		d, ok := idx.QueryNode(g, node)
		require.True(t, ok)
		assert.InDelta(t, 0, d, 1e-6)
	}
}

func TestQuery_NearestAngularDistance(t *testing.T) {
	g := testGrid(t)
	idx := Build(domain.NewCandidateSet(g.Index(9, 0), g.Index(9, 18)), g)
	defer idx.Release()

	// Equator, 30°E: nearest is 0°E at 30°.
	d, ok := idx.QueryNode(g, g.Index(9, 3))
	require.True(t, ok)
	assert.InDelta(t, 30, d, 1e-9)

	// Across the dateline, 350°E is 10° from 0°E.
	d, ok = idx.QueryNode(g, g.Index(9, 35))
	require.True(t, ok)
	assert.InDelta(t, 10, d, 1e-9)

	// Matches the great-circle formula off the equator.
	want := grid.Distance(g, g.Index(14, 2), g.Index(9, 0))
	d, ok = idx.QueryNode(g, g.Index(14, 2))
	require.True(t, ok)
	assert.InDelta(t, want, d, 1e-9)
}

func TestQuery_EmptyIndex(t *testing.T) {
	g := testGrid(t)
	idx := Build(domain.NewCandidateSet(), g)

	_, ok := idx.Query(0, 0)
	assert.False(t, ok)
	assert.Zero(t, idx.Len())
}

func TestRelease(t *testing.T) {
	g := testGrid(t)
	idx := Build(domain.NewCandidateSet(g.Index(9, 0)), g)
	idx.Release()

	_, ok := idx.Query(0, 0)
	assert.False(t, ok)
}
