package domain

import (
	"fmt"
	"math"
	"slices"
)

// Field is a scalar value per grid node. Len must equal the grid's node count.
type Field []float64

// CheckLen returns an error if the field is not sized for n nodes.
func (f Field) CheckLen(n int) error {
	if len(f) != n {
		return fmt.Errorf("field has %d values, grid has %d nodes", len(f), n)
	}
	return nil
}

// Magnitude returns sqrt(u²+v²) per node. Both components must have equal length.
func Magnitude(u, v Field) (Field, error) {
	if len(u) != len(v) {
		return nil, fmt.Errorf("vector components differ in length: %d vs %d", len(u), len(v))
	}
	out := make(Field, len(u))
	for i := range u {
		out[i] = math.Hypot(u[i], v[i])
	}
	return out, nil
}

// CandidateSet is a set of unique node indices.
type CandidateSet map[int]struct{}

// NewCandidateSet returns a set holding the given nodes.
func NewCandidateSet(nodes ...int) CandidateSet {
	s := make(CandidateSet, len(nodes))
	for _, n := range nodes {
		s[n] = struct{}{}
	}
	return s
}

// Add inserts node into the set.
func (s CandidateSet) Add(node int) { s[node] = struct{}{} }

// Has reports whether node is in the set.
func (s CandidateSet) Has(node int) bool {
	_, ok := s[node]
	return ok
}

// Sorted returns the members in ascending node order.
func (s CandidateSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}
