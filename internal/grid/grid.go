// Package grid builds node coordinates and adjacency for the fields a
// detection pass operates on.
//
// A [Grid] exposes three neighborhoods over the same nodes, each behind its
// own capability interface:
//
//	GraphAdjacency   N/S/E/W graph edges (or the supplied connectivity), walked
//	                 by the bounded geodesic search
//	RasterAdjacency  3×3 raster 8-connectivity with longitude wraparound and
//	                 clamped latitude, used by the component segmenter
//	StencilProvider  the full comparison stencil for extremum scanning; pole
//	                 rows have none
//
// Unstructured grids answer all three with the stored connectivity.
package grid

import (
	"fmt"
	"math"

	"github.com/couchcryptid/storm-feature-detect/internal/domain"
)

// latTolerance absorbs rounding when degrees are converted to radians.
const latTolerance = 1e-12

// Layout identifies how node indices map onto coordinates.
type Layout int

const (
	// LayoutLatLon is a row-major regular latitude-longitude grid.
	LayoutLatLon Layout = iota
	// LayoutUnstructured is an explicit per-node connectivity list.
	LayoutUnstructured
)

func (l Layout) String() string {
	if l == LayoutUnstructured {
		return "unstructured"
	}
	return "latlon"
}

// Grid is a fixed set of nodes with coordinates in radians and graph
// adjacency. It is immutable after construction and safe for concurrent reads.
type Grid struct {
	lat []float64
	lon []float64
	adj [][]int

	layout   Layout
	nLat     int
	nLon     int
	regional bool

	// Axis coordinates of a lat-lon layout, radians.
	latAxis []float64
	lonAxis []float64
}

// Geometry gives node count and coordinates.
type Geometry interface {
	Len() int
	Lat(i int) float64
	Lon(i int) float64
}

// GraphAdjacency is the reachability adjacency used by bounded search.
type GraphAdjacency interface {
	Geometry
	Neighbors(i int) []int
}

// RasterAdjacency is the 8-connected raster neighborhood used by the segmenter.
// The result is appended to buf[:0].
type RasterAdjacency interface {
	Len() int
	RasterNeighbors(i int, buf []int) []int
}

// StencilProvider supplies the neighborhood an extremum test compares against.
// ok is false when the node has no complete stencil and can never qualify.
type StencilProvider interface {
	Len() int
	Stencil(i int, buf []int) (nbrs []int, ok bool)
}

var (
	_ GraphAdjacency  = (*Grid)(nil)
	_ RasterAdjacency = (*Grid)(nil)
	_ StencilProvider = (*Grid)(nil)
)

// BuildLatLon builds a row-major grid from latitude and longitude axes in
// radians: index = row*len(lon) + col. Interior nodes get S, N, E, W graph
// neighbors; the first and last rows drop their missing compass edge, and a
// regional grid drops the longitude-wrap edge.
func BuildLatLon(lat, lon []float64, regional bool) (*Grid, error) {
	if len(lat) == 0 || len(lon) == 0 {
		return nil, fmt.Errorf("%w: empty coordinate axis (lat=%d, lon=%d)", domain.ErrDataAccess, len(lat), len(lon))
	}
	for j, v := range lat {
		if err := checkLatitude(v); err != nil {
			return nil, fmt.Errorf("latitude row %d: %w", j, err)
		}
	}

	nLat, nLon := len(lat), len(lon)
	n := nLat * nLon
	g := &Grid{
		lat:      make([]float64, n),
		lon:      make([]float64, n),
		adj:      make([][]int, n),
		layout:   LayoutLatLon,
		nLat:     nLat,
		nLon:     nLon,
		regional: regional,
		latAxis:  append([]float64(nil), lat...),
		lonAxis:  append([]float64(nil), lon...),
	}

	for j := range nLat {
		for i := range nLon {
			k := j*nLon + i
			g.lat[k] = lat[j]
			g.lon[k] = lon[i]

			nbrs := make([]int, 0, 4)
			if j > 0 {
				nbrs = appendUnique(nbrs, k, g.Index(j-1, i))
			}
			if j < nLat-1 {
				nbrs = appendUnique(nbrs, k, g.Index(j+1, i))
			}
			if !regional || i < nLon-1 {
				nbrs = appendUnique(nbrs, k, g.Index(j, (i+1)%nLon))
			}
			if !regional || i > 0 {
				nbrs = appendUnique(nbrs, k, g.Index(j, (i-1+nLon)%nLon))
			}
			g.adj[k] = nbrs
		}
	}
	return g, nil
}

// newUnstructured assembles a grid from per-node coordinates and adjacency.
func newUnstructured(lat, lon []float64, adj [][]int) *Grid {
	return &Grid{lat: lat, lon: lon, adj: adj, layout: LayoutUnstructured}
}

func checkLatitude(v float64) error {
	if math.IsNaN(v) || math.Abs(v) > math.Pi/2+latTolerance {
		return fmt.Errorf("%w: latitude %g outside [-π/2, π/2]; coordinates must be radians", domain.ErrRange, v)
	}
	return nil
}

// appendUnique adds nbr unless it is the node itself or already present.
func appendUnique(nbrs []int, self, nbr int) []int {
	if nbr == self {
		return nbrs
	}
	for _, v := range nbrs {
		if v == nbr {
			return nbrs
		}
	}
	return append(nbrs, nbr)
}

// Len returns the node count.
func (g *Grid) Len() int { return len(g.lat) }

// Lat returns the latitude of node i in radians.
func (g *Grid) Lat(i int) float64 { return g.lat[i] }

// Lon returns the longitude of node i in radians.
func (g *Grid) Lon(i int) float64 { return g.lon[i] }

// LatDeg returns the latitude of node i in degrees.
func (g *Grid) LatDeg(i int) float64 { return g.lat[i] * 180 / math.Pi }

// LonDeg returns the longitude of node i in degrees.
func (g *Grid) LonDeg(i int) float64 { return g.lon[i] * 180 / math.Pi }

// Layout reports how the grid was built.
func (g *Grid) Layout() Layout { return g.layout }

// NLat is the row count of a lat-lon grid; zero for unstructured grids.
func (g *Grid) NLat() int { return g.nLat }

// NLon is the column count of a lat-lon grid; zero for unstructured grids.
func (g *Grid) NLon() int { return g.nLon }

// Regional reports whether longitude does not wrap.
func (g *Grid) Regional() bool { return g.regional }

// LatAxis returns the row latitudes (radians) of a lat-lon grid.
func (g *Grid) LatAxis() []float64 { return g.latAxis }

// LonAxis returns the column longitudes (radians) of a lat-lon grid.
func (g *Grid) LonAxis() []float64 { return g.lonAxis }

// Index maps a (row, col) pair of a lat-lon grid to a node index.
func (g *Grid) Index(j, i int) int { return j*g.nLon + i }

// RowCol maps a node index of a lat-lon grid back to (row, col).
func (g *Grid) RowCol(k int) (j, i int) { return k / g.nLon, k % g.nLon }

// Neighbors returns the graph adjacency of node i. The slice must not be modified.
func (g *Grid) Neighbors(i int) []int { return g.adj[i] }

// RasterNeighbors returns the 3×3 raster neighborhood of node k. Longitude
// wraps unless the grid is regional, in which case it is clamped like
// latitude. Unstructured grids return their graph adjacency.
func (g *Grid) RasterNeighbors(k int, buf []int) []int {
	buf = buf[:0]
	if g.layout == LayoutUnstructured {
		return append(buf, g.adj[k]...)
	}
	j, i := g.RowCol(k)
	for dj := -1; dj <= 1; dj++ {
		jj := j + dj
		if jj < 0 || jj >= g.nLat {
			continue
		}
		for di := -1; di <= 1; di++ {
			ii := i + di
			if g.regional {
				if ii < 0 || ii >= g.nLon {
					continue
				}
			} else {
				ii = (ii + g.nLon) % g.nLon
			}
			buf = appendUnique(buf, k, g.Index(jj, ii))
		}
	}
	return buf
}

// Stencil returns the comparison neighborhood of node k for extremum
// scanning: the full 8-neighbor ring with longitude wraparound. The first and
// last rows have no complete ring and report ok=false, as do the edge
// columns of a regional grid.
func (g *Grid) Stencil(k int, buf []int) ([]int, bool) {
	buf = buf[:0]
	if g.layout == LayoutUnstructured {
		return append(buf, g.adj[k]...), true
	}
	j, i := g.RowCol(k)
	if j == 0 || j == g.nLat-1 {
		return buf, false
	}
	if g.regional && (i == 0 || i == g.nLon-1) {
		return buf, false
	}
	for dj := -1; dj <= 1; dj++ {
		for di := -1; di <= 1; di++ {
			ii := (i + di + g.nLon) % g.nLon
			buf = appendUnique(buf, k, g.Index(j+dj, ii))
		}
	}
	return buf, true
}
