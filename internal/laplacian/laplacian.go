// Package laplacian evaluates a 9-point finite-difference Laplacian on a
// regular latitude-longitude grid.
//
// With Δx = k·Δlon and Δy = k·Δlat (radians) the stencil weights are
//
//	corner  A = (1/Δx² + 1/Δy²) / 12
//	east/west  B = 5/(6Δx²) − 1/(6Δy²)
//	north/south  C = −1/(6Δx²) + 5/(6Δy²)
//	center  D = −5/3 · (1/Δx² + 1/Δy²)
//
// Results are reported per degree².
package laplacian

import (
	"fmt"
	"math"

	"github.com/couchcryptid/storm-feature-detect/internal/domain"
	"github.com/couchcryptid/storm-feature-detect/internal/grid"
)

// perRad2ToPerDeg2 converts value/radian² to value/degree².
const perRad2ToPerDeg2 = (math.Pi / 180) * (math.Pi / 180)

// Operator is a Laplacian stencil bound to one grid and half-width.
type Operator struct {
	g          *grid.Grid
	k          int
	a, b, c, d float64
}

// New builds the stencil for g with half-width k grid cells. The grid must be
// a lat-lon layout with nonzero spacing on both axes.
func New(g *grid.Grid, k int) (*Operator, error) {
	if g.Layout() != grid.LayoutLatLon {
		return nil, fmt.Errorf("%w: laplacian requires a lat-lon grid, got %s", domain.ErrConfiguration, g.Layout())
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: laplacian half-width %d must be at least 1", domain.ErrConfiguration, k)
	}
	if g.NLat() < 2 || g.NLon() < 2 {
		return nil, fmt.Errorf("%w: grid %dx%d has no spacing", domain.ErrNumericalDegeneracy, g.NLat(), g.NLon())
	}

	lat, lon := g.LatAxis(), g.LonAxis()
	dX := (lon[1] - lon[0]) * float64(k)
	dY := (lat[1] - lat[0]) * float64(k)
	if dX == 0 || dY == 0 || math.IsNaN(dX) || math.IsNaN(dY) {
		return nil, fmt.Errorf("%w: zero grid spacing (Δlon=%g, Δlat=%g rad)", domain.ErrNumericalDegeneracy, lon[1]-lon[0], lat[1]-lat[0])
	}

	x2, y2 := 1/(dX*dX), 1/(dY*dY)
	return &Operator{
		g: g,
		k: k,
		a: (x2 + y2) / 12,
		b: 5*x2/6 - y2/6,
		c: -x2/6 + 5*y2/6,
		d: -5.0 / 3.0 * (x2 + y2),
	}, nil
}

// HalfWidth returns k.
func (op *Operator) HalfWidth() int { return op.k }

// Computable reports whether node has a full stencil: rows within k of a
// latitude boundary never do, nor do columns within k of a regional edge.
func (op *Operator) Computable(node int) bool {
	j, i := op.g.RowCol(node)
	if j < op.k || j >= op.g.NLat()-op.k {
		return false
	}
	if op.g.Regional() && (i < op.k || i >= op.g.NLon()-op.k) {
		return false
	}
	return true
}

// At evaluates the Laplacian of f at node in value/degree². ok is false when
// the node is not computable.
func (op *Operator) At(f domain.Field, node int) (float64, bool) {
	if !op.Computable(node) {
		return 0, false
	}
	n := op.g.NLon()
	j, i := op.g.RowCol(node)
	i0 := (i + n - op.k%n) % n
	i2 := (i + op.k) % n
	j0, j2 := j-op.k, j+op.k
	at := func(jj, ii int) float64 { return f[op.g.Index(jj, ii)] }

	v := op.a*at(j0, i0) + op.b*at(j, i0) + op.a*at(j2, i0) +
		op.c*at(j0, i) + op.d*at(j, i) + op.c*at(j2, i) +
		op.a*at(j0, i2) + op.b*at(j, i2) + op.a*at(j2, i2)
	return v * perRad2ToPerDeg2, true
}

// Result holds a Laplacian per node; Valid marks computed entries.
type Result struct {
	Values []float64
	Valid  []bool
}

// Apply evaluates the Laplacian at every node of f.
func (op *Operator) Apply(f domain.Field) (Result, error) {
	if err := f.CheckLen(op.g.Len()); err != nil {
		return Result{}, err
	}
	res := Result{
		Values: make([]float64, len(f)),
		Valid:  make([]bool, len(f)),
	}
	for node := range f {
		res.Values[node], res.Valid[node] = op.At(f, node)
	}
	return res, nil
}
