package pipeline_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-feature-detect/internal/config"
	"github.com/couchcryptid/storm-feature-detect/internal/domain"
	"github.com/couchcryptid/storm-feature-detect/internal/grid"
)

// Synthetic 2.5° global archive: a deep warm-core low, a shallow cold low, a
// moisture filament and an isolated moisture spike.
const (
	step = 2.5
	nLat = 73
	nLon = 144
)

type point struct{ lat, lon float64 }

var (
	deepLow    = point{20, 140}
	shallowLow = point{-30, 250}
	spike      = point{-40, 300}
)

func rowOf(lat float64) int { return int(math.Round((lat + 90) / step)) }
func colOf(lon float64) int { return int(math.Round(lon / step)) }

func globalGrid(t *testing.T) *grid.Grid {
	t.Helper()
	lat := make([]float64, nLat)
	for j := range lat {
		lat[j] = (-90 + step*float64(j)) * math.Pi / 180
	}
	lon := make([]float64, nLon)
	for i := range lon {
		lon[i] = step * float64(i) * math.Pi / 180
	}
	g, err := grid.BuildLatLon(lat, lon, false)
	require.NoError(t, err)
	return g
}

func nodeAt(g *grid.Grid, p point) int { return g.Index(rowOf(p.lat), colOf(p.lon)) }

// distFrom returns the great-circle distance in degrees from p to node k.
func distFrom(g *grid.Grid, p point, k int) float64 {
	return grid.GreatCircleDeg(p.lat*math.Pi/180, p.lon*math.Pi/180, g.Lat(k), g.Lon(k))
}

func gaussian(d, width float64) float64 { return math.Exp(-(d / width) * (d / width)) }

func fieldFrom(g *grid.Grid, fn func(k int) float64) domain.Field {
	f := make(domain.Field, g.Len())
	for k := range f {
		f[k] = fn(k)
	}
	return f
}

func syntheticTimestep(g *grid.Grid, index int) domain.Timestep {
	psl := fieldFrom(g, func(k int) float64 {
		return 101000 -
			3000*gaussian(distFrom(g, deepLow, k), 5) -
			800*gaussian(distFrom(g, shallowLow, k), 5)
	})
	u := fieldFrom(g, func(k int) float64 {
		return 40*gaussian(distFrom(g, deepLow, k)-3, 2) + 15*gaussian(distFrom(g, shallowLow, k)-3, 2)
	})
	v := fieldFrom(g, func(int) float64 { return 0 })
	t200 := fieldFrom(g, func(k int) float64 { return 220 + 5*gaussian(distFrom(g, deepLow, k), 4) })
	t500 := fieldFrom(g, func(k int) float64 { return 255 + 3*gaussian(distFrom(g, deepLow, k), 4) })

	iwv := fieldFrom(g, func(int) float64 { return 10 })
	for _, j := range []int{rowOf(35), rowOf(37.5)} {
		for i := colOf(100); i <= colOf(200); i++ {
			iwv[g.Index(j, i)] = 50
		}
	}
	iwv[nodeAt(g, spike)] = 50

	return domain.Timestep{
		Index: index,
		Time:  time.Date(2005, 8, 28, 6, 0, 0, 0, time.UTC),
		Fields: map[string]domain.Field{
			"PSL":  psl,
			"U850": u,
			"V850": v,
			"T200": t200,
			"T500": t500,
			"IWV":  iwv,
		},
	}
}

func defaultFields() config.FieldNames {
	return config.FieldNames{PSL: "PSL", U: "U850", V: "V850", T200: "T200", T500: "T500"}
}

func riverConfig(enabled bool) config.RiverConfig {
	return config.RiverConfig{
		Enabled:       enabled,
		Var:           "IWV",
		LaplacianSize: 5,
		MinLaplacian:  0.3,
		MinAbsLat:     15,
		MinValue:      20,
		ZonalMeanWt:   0.7,
		ZonalMaxWt:    0.3,
		MeridMeanWt:   0.9,
		MeridMaxWt:    0.1,
		MinArea:       10,
	}
}

func cycloneWithWarmCore() config.CycloneConfig {
	return config.CycloneConfig{
		Proximity:      domain.RequireProximity(2),
		LaplacianSize:  1,
		WindSearchDist: 6,
	}
}
