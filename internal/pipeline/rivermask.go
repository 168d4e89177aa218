package pipeline

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/couchcryptid/storm-feature-detect/internal/config"
	"github.com/couchcryptid/storm-feature-detect/internal/domain"
	"github.com/couchcryptid/storm-feature-detect/internal/grid"
	"github.com/couchcryptid/storm-feature-detect/internal/laplacian"
)

// riverMask tags moisture-ridge nodes of a lat-lon field. A node is tagged
// when it lies poleward of MinAbsLat, meets the pointwise floor, reaches both
// its row (zonal) and column (meridional) thresholds, and sits on a ridge
// sharp enough that its Laplacian is at most -MinLaplacian. Thresholds are
// wMean·mean + wMax·max along the row or column.
func riverMask(g *grid.Grid, f domain.Field, lap *laplacian.Operator, rc config.RiverConfig) (mask []bool, tagged int, err error) {
	if err := f.CheckLen(g.Len()); err != nil {
		return nil, 0, err
	}
	nLat, nLon := g.NLat(), g.NLon()

	zonal := make([]float64, nLat)
	for j := range nLat {
		row := f[j*nLon : (j+1)*nLon]
		zonal[j] = rc.ZonalMeanWt*floats.Sum(row)/float64(nLon) + rc.ZonalMaxWt*floats.Max(row)
	}

	merid := make([]float64, nLon)
	col := make([]float64, nLat)
	for i := range nLon {
		for j := range nLat {
			col[j] = f[g.Index(j, i)]
		}
		merid[i] = rc.MeridMeanWt*floats.Sum(col)/float64(nLat) + rc.MeridMaxWt*floats.Max(col)
	}

	mask = make([]bool, g.Len())
	for k, v := range f {
		j, i := g.RowCol(k)
		switch {
		case math.Abs(g.LatDeg(k)) < rc.MinAbsLat,
			v < rc.MinValue,
			v < zonal[j],
			v < merid[i]:
			continue
		}
		l, ok := lap.At(f, k)
		if !ok || l > -rc.MinLaplacian {
			continue
		}
		mask[k] = true
		tagged++
	}
	return mask, tagged, nil
}
