package grid

import (
	"math"

	"github.com/golang/geo/r3"
)

// GreatCircleDeg returns the great-circle angle in degrees between two points
// given in radians. The cosine is clamped so coincident points give exactly 0.
func GreatCircleDeg(lat0, lon0, lat1, lon1 float64) float64 {
	c := math.Sin(lat0)*math.Sin(lat1) + math.Cos(lat0)*math.Cos(lat1)*math.Cos(lon1-lon0)
	c = math.Max(-1, math.Min(1, c))
	return math.Acos(c) * 180 / math.Pi
}

// Distance returns the great-circle angle in degrees between nodes a and b.
func Distance(g Geometry, a, b int) float64 {
	return GreatCircleDeg(g.Lat(a), g.Lon(a), g.Lat(b), g.Lon(b))
}

// UnitVector embeds a point (radians) on the unit sphere as
// (sin(lon)cos(lat), cos(lon)cos(lat), sin(lat)).
func UnitVector(lat, lon float64) r3.Vector {
	return r3.Vector{
		X: math.Sin(lon) * math.Cos(lat),
		Y: math.Cos(lon) * math.Cos(lat),
		Z: math.Sin(lat),
	}
}

// ChordToDeg converts a straight-line distance between two unit-sphere points
// to the angle they subtend, in degrees.
func ChordToDeg(chord float64) float64 {
	half := math.Min(1, chord/2)
	return 2 * math.Asin(half) * 180 / math.Pi
}
