// Package segment extracts connected components from a boolean node mask and
// removes those below a minimum node count.
package segment

import (
	"fmt"
	"slices"

	"github.com/couchcryptid/storm-feature-detect/internal/grid"
)

// Component is a maximal connected set of masked nodes, ascending by index.
type Component []int

// Components partitions the true nodes of mask into components under the raster
// adjacency. Seeds are taken lowest index first, so the output is ordered by
// each component's smallest node.
func Components(adj grid.RasterAdjacency, mask []bool) ([]Component, error) {
	if len(mask) != adj.Len() {
		return nil, fmt.Errorf("mask has %d entries, grid has %d nodes", len(mask), adj.Len())
	}

	// pending is the working seed set: masked nodes not yet assigned.
	pending := slices.Clone(mask)
	var (
		out      []Component
		frontier []int
		buf      []int
	)
	for seed, ok := range pending {
		if !ok {
			continue
		}
		pending[seed] = false
		comp := Component{seed}
		frontier = append(frontier[:0], seed)

		for len(frontier) > 0 {
			node := frontier[len(frontier)-1]
			frontier = frontier[:len(frontier)-1]

			buf = adj.RasterNeighbors(node, buf)
			for _, n := range buf {
				if !pending[n] {
					continue
				}
				pending[n] = false
				comp = append(comp, n)
				frontier = append(frontier, n)
			}
		}
		slices.Sort(comp)
		out = append(out, comp)
	}
	return out, nil
}

// Clean unmasks, in place, every component with fewer than minSize nodes and
// returns the survivors together with the number of nodes removed. minSize ≤ 1
// removes nothing. Cleaning an already cleaned mask changes nothing.
func Clean(adj grid.RasterAdjacency, mask []bool, minSize int) (kept []Component, removed int, err error) {
	comps, err := Components(adj, mask)
	if err != nil {
		return nil, 0, err
	}
	kept = comps[:0]
	for _, c := range comps {
		if len(c) >= minSize {
			kept = append(kept, c)
			continue
		}
		for _, n := range c {
			mask[n] = false
		}
		removed += len(c)
	}
	return kept, removed, nil
}
