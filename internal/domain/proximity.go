package domain

import "fmt"

// ProximityMode selects how pressure minima relate to upper-level temperature maxima.
type ProximityMode int

const (
	// ProximityNone disables the warm-core test.
	ProximityNone ProximityMode = iota
	// ProximityRequire keeps a minimum only when both temperature maxima lie within the distance.
	ProximityRequire
	// ProximitySeparate keeps a minimum when either temperature maximum lies at or beyond the distance.
	ProximitySeparate
)

func (m ProximityMode) String() string {
	switch m {
	case ProximityRequire:
		return "require_proximity"
	case ProximitySeparate:
		return "require_separation"
	default:
		return "none"
	}
}

// ProximityRule is the warm-core filter setting. The zero value is ProximityNone.
// A rule holds at most one distance, so "both distances set" cannot be expressed.
type ProximityRule struct {
	mode    ProximityMode
	distDeg float64
}

// NoProximity returns the disabled rule.
func NoProximity() ProximityRule { return ProximityRule{} }

// RequireProximity keeps minima with a warm core within distDeg.
func RequireProximity(distDeg float64) ProximityRule {
	return ProximityRule{mode: ProximityRequire, distDeg: distDeg}
}

// RequireSeparation keeps minima without a warm core within distDeg.
func RequireSeparation(distDeg float64) ProximityRule {
	return ProximityRule{mode: ProximitySeparate, distDeg: distDeg}
}

// ProximityFromDistances maps the two legacy option values onto a rule.
// Zero means unset; setting both is a configuration error.
func ProximityFromDistances(warmCoreDeg, noWarmCoreDeg float64) (ProximityRule, error) {
	switch {
	case warmCoreDeg != 0 && noWarmCoreDeg != 0:
		return ProximityRule{}, fmt.Errorf("%w: only one of warm-core and no-warm-core distance may be set", ErrConfiguration)
	case warmCoreDeg != 0:
		return validDistance(RequireProximity(warmCoreDeg))
	case noWarmCoreDeg != 0:
		return validDistance(RequireSeparation(noWarmCoreDeg))
	default:
		return NoProximity(), nil
	}
}

func validDistance(r ProximityRule) (ProximityRule, error) {
	if err := CheckDistance(r.distDeg); err != nil {
		return ProximityRule{}, err
	}
	return r, nil
}

// Mode returns the rule's mode.
func (r ProximityRule) Mode() ProximityMode { return r.mode }

// Distance returns the rule's distance in degrees; zero for ProximityNone.
func (r ProximityRule) Distance() float64 { return r.distDeg }

// Keep applies the rule to the nearest distances (degrees) from a minimum to the
// T200 and T500 maxima. A false ok means the corresponding index was empty.
func (r ProximityRule) Keep(d200 float64, ok200 bool, d500 float64, ok500 bool) bool {
	switch r.mode {
	case ProximityRequire:
		return ok200 && ok500 && d200 <= r.distDeg && d500 <= r.distDeg
	case ProximitySeparate:
		return !ok200 || !ok500 || d200 >= r.distDeg || d500 >= r.distDeg
	default:
		return true
	}
}

// CheckDistance validates a geodesic radius in degrees.
func CheckDistance(deg float64) error {
	if deg < 0 || deg > 180 {
		return fmt.Errorf("%w: distance %g must be within [0, 180] degrees", ErrConfiguration, deg)
	}
	return nil
}
