package main

import (
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/storm-feature-detect/internal/adapter/netcdf"
	"github.com/couchcryptid/storm-feature-detect/internal/grid"
)

// scene describes an idealized global archive: one drifting tropical cyclone
// with a warm core, and optionally a moisture filament.
type scene struct {
	Res      float64 // grid spacing, degrees
	Steps    int
	Start    time.Time
	Interval time.Duration

	CenterLat, CenterLon float64 // initial storm center, degrees
	DriftLat, DriftLon   float64 // degrees per timestep
	Depth                float64 // central pressure deficit, Pa
	Radius               float64 // radius of maximum wind, degrees
	MaxWind              float64 // m/s
	WarmCore             float64 // upper-level temperature anomaly, K

	River bool
}

const (
	ambientPSL = 101325.0
	riverAmp   = 35.0 // kg/m²
	riverWidth = 4.0  // degrees
)

func defaultScene() scene {
	return scene{
		Res:       1,
		Steps:     4,
		Start:     time.Date(2005, 8, 28, 0, 0, 0, 0, time.UTC),
		Interval:  6 * time.Hour,
		CenterLat: 25,
		CenterLon: 272,
		DriftLat:  1,
		DriftLon:  -0.5,
		Depth:     6000,
		Radius:    2,
		MaxWind:   45,
		WarmCore:  8,
		River:     true,
	}
}

func (s scene) validate() error {
	switch {
	case s.Res <= 0 || s.Res > 30:
		return fmt.Errorf("resolution %g must be in (0, 30]", s.Res)
	case s.Steps < 1:
		return fmt.Errorf("steps must be at least 1")
	case s.Radius <= 0:
		return fmt.Errorf("radius must be positive")
	case math.Abs(s.CenterLat) >= 90:
		return fmt.Errorf("center latitude %g out of range", s.CenterLat)
	}
	return nil
}

// axes returns latitudes from -90 to 90 inclusive and longitudes from 0 up to
// but excluding 360, both in degrees.
func (s scene) axes() (lat, lon []float64) {
	nLat := int(math.Round(180/s.Res)) + 1
	nLon := int(math.Round(360 / s.Res))
	lat = make([]float64, nLat)
	for j := range lat {
		lat[j] = -90 + float64(j)*180/float64(nLat-1)
	}
	lon = make([]float64, nLon)
	for i := range lon {
		lon[i] = float64(i) * 360 / float64(nLon)
	}
	return lat, lon
}

// center returns the storm center at timestep t.
func (s scene) center(t int) (lat, lon float64) {
	lat = s.CenterLat + float64(t)*s.DriftLat
	lon = math.Mod(s.CenterLon+float64(t)*s.DriftLon+360, 360)
	return lat, lon
}

func (s scene) build() (netcdf.Dataset, error) {
	if err := s.validate(); err != nil {
		return netcdf.Dataset{}, err
	}
	lat, lon := s.axes()
	n := len(lat) * len(lon)

	names := []string{"PSL", "U850", "V850", "T200", "T500", "IWV"}
	fields := make(map[string][][]float64, len(names))
	for _, name := range names {
		fields[name] = make([][]float64, s.Steps)
	}
	times := make([]time.Time, s.Steps)

	for t := range s.Steps {
		times[t] = s.Start.Add(time.Duration(t) * s.Interval)
		step := make(map[string][]float64, len(names))
		for _, name := range names {
			step[name] = make([]float64, n)
		}
		cLat, cLon := s.center(t)
		hemi := 1.0
		if cLat < 0 {
			hemi = -1
		}

		for j, la := range lat {
			for i, lo := range lon {
				k := j*len(lon) + i
				d := grid.GreatCircleDeg(radians(la), radians(lo), radians(cLat), radians(cLon))
				r := d / s.Radius
				core := math.Exp(-r * r)

				step["PSL"][k] = ambientPSL - s.Depth*core
				step["T200"][k] = 218 + s.WarmCore*core
				step["T500"][k] = 255 - 25*sq(math.Sin(radians(la))) + 0.6*s.WarmCore*core

				dx := wrap180(lo-cLon) * math.Cos(radians(cLat))
				dy := la - cLat
				if dist := math.Hypot(dx, dy); dist > 0 {
					v := s.MaxWind * r * math.Exp(0.5*(1-r*r))
					step["U850"][k] = -hemi * v * dy / dist
					step["V850"][k] = hemi * v * dx / dist
				}

				iwv := 5 + 35*sq(math.Cos(radians(la)))
				if s.River {
					iwv += filament(la, lo)
				}
				step["IWV"][k] = iwv
			}
		}
		for _, name := range names {
			fields[name][t] = step[name]
		}
	}

	return netcdf.Dataset{
		Lat:    lat,
		Lon:    lon,
		Times:  times,
		Fields: fields,
		Attrs: map[string]string{
			"title":  "synthetic storm scene",
			"source": "synthfield",
		},
	}, nil
}

// filament is a moisture band running from (20N, 150E) to (45N, 230E).
func filament(lat, lon float64) float64 {
	if lon < 150 || lon > 230 {
		return 0
	}
	axis := 20 + (lon-150)*25/80
	return riverAmp * math.Exp(-sq((lat-axis)/riverWidth))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func sq(x float64) float64 { return x * x }

func wrap180(d float64) float64 {
	d = math.Mod(d+180, 360)
	if d < 0 {
		d += 360
	}
	return d - 180
}
