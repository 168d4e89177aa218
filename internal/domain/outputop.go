package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// OutputOpKind is the statistic an OutputOp reports around a candidate.
type OutputOpKind string

const (
	OpMax     OutputOpKind = "max"
	OpMin     OutputOpKind = "min"
	OpAvg     OutputOpKind = "avg"
	OpMaxDist OutputOpKind = "maxdist" // distance to the maximum
	OpMinDist OutputOpKind = "mindist" // distance to the minimum
)

// OutputOp asks for one statistic of a field within a geodesic radius of each
// surviving candidate.
type OutputOp struct {
	Var     string
	Op      OutputOpKind
	DistDeg float64
}

// Key is the Diagnostics map key the result is stored under.
func (o OutputOp) Key() string { return o.Var + "_" + string(o.Op) }

// ParseOutputOps parses a semicolon-separated list of "<var>,<op>,<distance>".
// An empty string yields no operators.
func ParseOutputOps(s string) ([]OutputOp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var ops []OutputOp
	for item := range strings.SplitSeq(s, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		op, err := parseOutputOp(item)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func parseOutputOp(s string) (OutputOp, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return OutputOp{}, fmt.Errorf("%w: output op %q: required \"<name>,<operation>,<distance>\"", ErrConfiguration, s)
	}
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return OutputOp{}, fmt.Errorf("%w: output op %q: empty variable name", ErrConfiguration, s)
	}

	kind := OutputOpKind(strings.TrimSpace(parts[1]))
	switch kind {
	case OpMax, OpMin, OpAvg, OpMaxDist, OpMinDist:
	default:
		return OutputOp{}, fmt.Errorf("%w: output op %q: unknown operation %q", ErrConfiguration, s, kind)
	}

	dist, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return OutputOp{}, fmt.Errorf("%w: output op %q: invalid distance: %w", ErrConfiguration, s, err)
	}
	if err := CheckDistance(dist); err != nil {
		return OutputOp{}, fmt.Errorf("output op %q: %w", s, err)
	}
	return OutputOp{Var: name, Op: kind, DistDeg: dist}, nil
}
