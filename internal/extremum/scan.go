// Package extremum finds pointwise extrema of a field and searches geodesic
// disks around a seed node.
package extremum

import (
	"math"

	"github.com/couchcryptid/storm-feature-detect/internal/domain"
	"github.com/couchcryptid/storm-feature-detect/internal/grid"
)

// FindAllLocalMinima returns every node strictly less than all of its stencil
// neighbors. Any tie disqualifies the node.
func FindAllLocalMinima(g grid.StencilProvider, f domain.Field) (domain.CandidateSet, error) {
	return scan(g, f, func(v, nbr float64) bool { return nbr <= v })
}

// FindAllLocalMaxima returns every node strictly greater than all of its
// stencil neighbors. Any tie disqualifies the node.
func FindAllLocalMaxima(g grid.StencilProvider, f domain.Field) (domain.CandidateSet, error) {
	return scan(g, f, func(v, nbr float64) bool { return nbr >= v })
}

// scan flags nodes for which no neighbor satisfies beaten. Nodes without a
// complete stencil, isolated nodes and NaN values never qualify.
func scan(g grid.StencilProvider, f domain.Field, beaten func(v, nbr float64) bool) (domain.CandidateSet, error) {
	if err := f.CheckLen(g.Len()); err != nil {
		return nil, err
	}

	out := make(domain.CandidateSet)
	buf := make([]int, 0, 8)
	for k := range g.Len() {
		v := f[k]
		if math.IsNaN(v) {
			continue
		}
		nbrs, ok := g.Stencil(k, buf)
		buf = nbrs
		if !ok || len(nbrs) == 0 {
			continue
		}
		qualifies := true
		for _, n := range nbrs {
			if beaten(v, f[n]) {
				qualifies = false
				break
			}
		}
		if qualifies {
			out.Add(k)
		}
	}
	return out, nil
}
