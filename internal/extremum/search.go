package extremum

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/couchcryptid/storm-feature-detect/internal/domain"
	"github.com/couchcryptid/storm-feature-detect/internal/grid"
)

// Extremum is the best node found by a bounded search.
type Extremum struct {
	Index   int
	Value   float64
	DistDeg float64 // great-circle distance from the seed
}

// FindLocalExtremum walks the graph adjacency breadth-first from seed and
// returns the maximum (wantMax) or minimum of f within maxDistDeg. The search
// is a closed disk: nodes beyond the radius neither compete nor expand, so a
// node inside the disk reachable only through outside nodes is not seen.
// The seed starts as the running extremum and is replaced only on strict
// improvement, so maxDistDeg = 0 always returns the seed.
func FindLocalExtremum(g grid.GraphAdjacency, f domain.Field, seed int, maxDistDeg float64, wantMax bool) (Extremum, error) {
	s, err := newSearch(g, f, seed, maxDistDeg)
	if err != nil {
		return Extremum{}, err
	}

	best := Extremum{Index: seed, Value: f[seed]}
	s.run(func(node int, dist float64) {
		v := f[node]
		if (wantMax && v > best.Value) || (!wantMax && v < best.Value) {
			best = Extremum{Index: node, Value: v, DistDeg: dist}
		}
	})
	return best, nil
}

// FindLocalAverage returns the unweighted mean of f over the same closed disk
// FindLocalExtremum searches, seed included.
func FindLocalAverage(g grid.GraphAdjacency, f domain.Field, seed int, maxDistDeg float64) (float64, error) {
	s, err := newSearch(g, f, seed, maxDistDeg)
	if err != nil {
		return 0, err
	}

	var values []float64
	s.run(func(node int, _ float64) {
		values = append(values, f[node])
	})
	return floats.Sum(values) / float64(len(values)), nil
}

// search is the private state of one bounded breadth-first traversal. It is
// built at the start of a call and dropped at its end.
type search struct {
	g       grid.GraphAdjacency
	seed    int
	maxDist float64
	visited map[int]struct{}
	queue   []int
}

func newSearch(g grid.GraphAdjacency, f domain.Field, seed int, maxDistDeg float64) (*search, error) {
	if err := domain.CheckDistance(maxDistDeg); err != nil {
		return nil, err
	}
	if err := f.CheckLen(g.Len()); err != nil {
		return nil, err
	}
	if seed < 0 || seed >= g.Len() {
		return nil, fmt.Errorf("seed node %d outside grid of %d nodes", seed, g.Len())
	}
	return &search{
		g:       g,
		seed:    seed,
		maxDist: maxDistDeg,
		visited: map[int]struct{}{seed: {}},
		queue:   []int{seed},
	}, nil
}

// run calls visit for every node in the disk in breadth-first order,
// starting with the seed at distance 0.
func (s *search) run(visit func(node int, dist float64)) {
	for len(s.queue) > 0 {
		node := s.queue[0]
		s.queue = s.queue[1:]

		dist := 0.0
		if node != s.seed {
			dist = grid.Distance(s.g, s.seed, node)
			if dist > s.maxDist {
				continue
			}
		}
		visit(node, dist)

		for _, n := range s.g.Neighbors(node) {
			if _, seen := s.visited[n]; seen {
				continue
			}
			s.visited[n] = struct{}{}
			s.queue = append(s.queue, n)
		}
	}
}
