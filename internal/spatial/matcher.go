// Package spatial answers nearest-neighbor angular distance queries against a
// set of grid nodes embedded on the unit sphere.
package spatial

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/couchcryptid/storm-feature-detect/internal/domain"
	"github.com/couchcryptid/storm-feature-detect/internal/grid"
)

// Index is a k-d tree over the unit-sphere embedding of a node subset. It is
// built for one matching pass and released at the end of it.
type Index struct {
	tree *kdtree.Tree
	size int
}

// Build embeds each node of points and indexes the result. An empty set
// yields an index whose queries report no match.
func Build(points domain.CandidateSet, g grid.Geometry) *Index {
	if len(points) == 0 {
		return &Index{}
	}
	pts := make(kdtree.Points, 0, len(points))
	for _, node := range points.Sorted() {
		v := grid.UnitVector(g.Lat(node), g.Lon(node))
		pts = append(pts, kdtree.Point{v.X, v.Y, v.Z})
	}
	return &Index{tree: kdtree.New(pts, false), size: len(pts)}
}

// Len returns the number of indexed points.
func (x *Index) Len() int { return x.size }

// Query returns the angular distance in degrees from (lat, lon), radians, to
// the nearest indexed point. ok is false when the index is empty or released.
func (x *Index) Query(lat, lon float64) (deg float64, ok bool) {
	if x.tree == nil || x.size == 0 {
		return 0, false
	}
	v := grid.UnitVector(lat, lon)
	got, _ := x.tree.Nearest(kdtree.Point{v.X, v.Y, v.Z})
	if got == nil {
		return 0, false
	}
	p := got.(kdtree.Point)
	chord := v.Distance(r3.Vector{X: p[0], Y: p[1], Z: p[2]})
	return grid.ChordToDeg(chord), true
}

// QueryNode is Query for a node of g.
func (x *Index) QueryNode(g grid.Geometry, node int) (float64, bool) {
	return x.Query(g.Lat(node), g.Lon(node))
}

// Release drops the tree so nothing outlives the matching pass.
func (x *Index) Release() {
	x.tree = nil
	x.size = 0
}
