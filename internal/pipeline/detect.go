package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/couchcryptid/storm-feature-detect/internal/config"
	"github.com/couchcryptid/storm-feature-detect/internal/domain"
	"github.com/couchcryptid/storm-feature-detect/internal/extremum"
	"github.com/couchcryptid/storm-feature-detect/internal/grid"
	"github.com/couchcryptid/storm-feature-detect/internal/laplacian"
	"github.com/couchcryptid/storm-feature-detect/internal/segment"
	"github.com/couchcryptid/storm-feature-detect/internal/spatial"
)

// FeatureDetector implements Detector: the cyclone candidate pass followed by
// the optional river segmentation pass, with optional geocoding enrichment.
type FeatureDetector struct {
	grid     *grid.Grid
	fields   config.FieldNames
	cyclone  config.CycloneConfig
	river    config.RiverConfig
	geocoder domain.Geocoder
	logger   *slog.Logger

	cycloneLap *laplacian.Operator // nil when the sharpness filter is off
	riverLap   *laplacian.Operator // nil when the river pass is off
}

// NewDetector validates the passes against the grid and prepares their
// stencils. Every error it returns is fatal for the run. Pass a nil geocoder
// to disable enrichment.
func NewDetector(g *grid.Grid, fields config.FieldNames, cyclone config.CycloneConfig, river config.RiverConfig, geocoder domain.Geocoder, logger *slog.Logger) (*FeatureDetector, error) {
	if err := domain.CheckDistance(cyclone.WindSearchDist); err != nil {
		return nil, fmt.Errorf("wind search: %w", err)
	}
	for _, op := range cyclone.OutputOps {
		if err := domain.CheckDistance(op.DistDeg); err != nil {
			return nil, fmt.Errorf("output op %s: %w", op.Key(), err)
		}
	}

	d := &FeatureDetector{
		grid:     g,
		fields:   fields,
		cyclone:  cyclone,
		river:    river,
		geocoder: geocoder,
		logger:   logger,
	}

	var err error
	if cyclone.MinLaplacian != 0 {
		if d.cycloneLap, err = laplacian.New(g, cyclone.LaplacianSize); err != nil {
			return nil, fmt.Errorf("cyclone laplacian filter: %w", err)
		}
	}
	if river.Enabled {
		if g.Layout() != grid.LayoutLatLon {
			return nil, fmt.Errorf("%w: river detection requires a lat-lon grid", domain.ErrConfiguration)
		}
		if d.riverLap, err = laplacian.New(g, river.LaplacianSize); err != nil {
			return nil, fmt.Errorf("river laplacian: %w", err)
		}
	}
	return d, nil
}

// Detect runs every enabled pass over one timestep. Working sets are
// allocated here and dropped on return.
func (d *FeatureDetector) Detect(ctx context.Context, ts domain.Timestep) (domain.DetectionResult, error) {
	res := domain.DetectionResult{Timestep: ts.Index, Time: ts.Time}

	candidates, rejections, err := d.detectCyclones(ctx, ts)
	if err != nil {
		return domain.DetectionResult{}, err
	}
	res.Candidates = candidates
	res.Rejections = rejections

	if d.river.Enabled {
		rivers, tagged, removed, err := d.detectRivers(ts)
		if err != nil {
			return domain.DetectionResult{}, err
		}
		res.Rivers = rivers
		res.RiverNodesTagged = tagged
		res.RiverNodesRemoved = removed
	}
	return res, nil
}

func (d *FeatureDetector) field(ts domain.Timestep, name string) (domain.Field, error) {
	f, err := ts.Field(name)
	if err != nil {
		return nil, err
	}
	if err := f.CheckLen(d.grid.Len()); err != nil {
		return nil, fmt.Errorf("timestep %d field %s: %w", ts.Index, name, err)
	}
	return f, nil
}

func (d *FeatureDetector) detectCyclones(ctx context.Context, ts domain.Timestep) ([]domain.Candidate, domain.RejectionCounts, error) {
	var counts domain.RejectionCounts

	psl, err := d.field(ts, d.fields.PSL)
	if err != nil {
		return nil, counts, err
	}
	u, err := d.field(ts, d.fields.U)
	if err != nil {
		return nil, counts, err
	}
	v, err := d.field(ts, d.fields.V)
	if err != nil {
		return nil, counts, err
	}
	wind, err := domain.Magnitude(u, v)
	if err != nil {
		return nil, counts, err
	}

	minima, err := extremum.FindAllLocalMinima(d.grid, psl)
	if err != nil {
		return nil, counts, err
	}
	counts.Total = len(minima)

	if d.cyclone.Proximity.Mode() != domain.ProximityNone {
		if minima, err = d.filterWarmCore(ts, minima, &counts); err != nil {
			return nil, counts, err
		}
	}

	if d.cycloneLap != nil {
		kept := make(domain.CandidateSet, len(minima))
		for node := range minima {
			lap, ok := d.cycloneLap.At(psl, node)
			if ok && lap >= d.cyclone.MinLaplacian {
				kept.Add(node)
			} else {
				counts.Laplacian++
			}
		}
		minima = kept
	}

	detectedAt := domain.Now()
	out := make([]domain.Candidate, 0, len(minima))
	for _, node := range minima.Sorted() {
		peak, err := extremum.FindLocalExtremum(d.grid, wind, node, d.cyclone.WindSearchDist, true)
		if err != nil {
			return nil, counts, fmt.Errorf("peak wind at node %d: %w", node, err)
		}
		c := domain.Candidate{
			ID:          domain.CandidateID(ts.Index, node),
			Timestep:    ts.Index,
			Time:        ts.Time,
			Node:        node,
			Lon:         d.grid.LonDeg(node),
			Lat:         d.grid.LatDeg(node),
			Value:       psl[node],
			MaxWind:     peak.Value,
			MaxWindDist: peak.DistDeg,
			DetectedAt:  detectedAt,
		}
		if len(d.cyclone.OutputOps) > 0 {
			c.Diagnostics = make(map[string]float64, len(d.cyclone.OutputOps))
			for _, op := range d.cyclone.OutputOps {
				val, err := d.applyOutputOp(ts, op, node)
				if err != nil {
					return nil, counts, err
				}
				c.Diagnostics[op.Key()] = val
			}
		}
		c = domain.EnrichWithGeocoding(ctx, c, d.geocoder, d.logger)
		out = append(out, c)
	}
	return out, counts, nil
}

// filterWarmCore applies the proximity rule against upper-level temperature
// maxima. Both indexes live only for this call.
func (d *FeatureDetector) filterWarmCore(ts domain.Timestep, minima domain.CandidateSet, counts *domain.RejectionCounts) (domain.CandidateSet, error) {
	t200, err := d.field(ts, d.fields.T200)
	if err != nil {
		return nil, err
	}
	t500, err := d.field(ts, d.fields.T500)
	if err != nil {
		return nil, err
	}
	max200, err := extremum.FindAllLocalMaxima(d.grid, t200)
	if err != nil {
		return nil, err
	}
	max500, err := extremum.FindAllLocalMaxima(d.grid, t500)
	if err != nil {
		return nil, err
	}

	idx200 := spatial.Build(max200, d.grid)
	defer idx200.Release()
	idx500 := spatial.Build(max500, d.grid)
	defer idx500.Release()

	rule := d.cyclone.Proximity
	kept := make(domain.CandidateSet, len(minima))
	for node := range minima {
		d200, ok200 := idx200.QueryNode(d.grid, node)
		d500, ok500 := idx500.QueryNode(d.grid, node)
		if rule.Keep(d200, ok200, d500, ok500) {
			kept.Add(node)
			continue
		}
		// Counted by what the candidate lacked or had: a missing warm core
		// under Require, a present one under Separation.
		if rule.Mode() == domain.ProximityRequire {
			counts.NoWarmCore++
		} else {
			counts.WarmCore++
		}
	}
	return kept, nil
}

// applyOutputOp evaluates one diagnostic around a candidate node.
func (d *FeatureDetector) applyOutputOp(ts domain.Timestep, op domain.OutputOp, node int) (float64, error) {
	f, err := d.field(ts, op.Var)
	if err != nil {
		return 0, err
	}
	switch op.Op {
	case domain.OpAvg:
		return extremum.FindLocalAverage(d.grid, f, node, op.DistDeg)
	case domain.OpMax, domain.OpMaxDist, domain.OpMin, domain.OpMinDist:
		wantMax := op.Op == domain.OpMax || op.Op == domain.OpMaxDist
		ext, err := extremum.FindLocalExtremum(d.grid, f, node, op.DistDeg, wantMax)
		if err != nil {
			return 0, err
		}
		if op.Op == domain.OpMaxDist || op.Op == domain.OpMinDist {
			return ext.DistDeg, nil
		}
		return ext.Value, nil
	default:
		return 0, fmt.Errorf("%w: unknown output op %q", domain.ErrConfiguration, op.Op)
	}
}

func (d *FeatureDetector) detectRivers(ts domain.Timestep) (rivers []domain.RiverComponent, tagged, removed int, err error) {
	f, err := d.field(ts, d.river.Var)
	if err != nil {
		return nil, 0, 0, err
	}
	mask, tagged, err := riverMask(d.grid, f, d.riverLap, d.river)
	if err != nil {
		return nil, 0, 0, err
	}
	kept, removed, err := segment.Clean(d.grid, mask, d.river.MinArea)
	if err != nil {
		return nil, 0, 0, err
	}

	detectedAt := domain.Now()
	rivers = make([]domain.RiverComponent, 0, len(kept))
	for _, comp := range kept {
		lat, lon := d.centroid(comp)
		rivers = append(rivers, domain.RiverComponent{
			ID:          domain.RiverID(ts.Index, comp[0]),
			Timestep:    ts.Index,
			Time:        ts.Time,
			Size:        len(comp),
			Nodes:       comp,
			CentroidLat: lat,
			CentroidLon: lon,
			DetectedAt:  detectedAt,
		})
	}
	return rivers, tagged, removed, nil
}

// centroid is the mean latitude and circular mean longitude of the nodes, so
// components spanning the longitude seam land between their ends. Degrees out.
func (d *FeatureDetector) centroid(nodes []int) (lat, lon float64) {
	var sumLat, sumSin, sumCos float64
	for _, n := range nodes {
		sumLat += d.grid.Lat(n)
		sumSin += math.Sin(d.grid.Lon(n))
		sumCos += math.Cos(d.grid.Lon(n))
	}
	lat = sumLat / float64(len(nodes)) * 180 / math.Pi
	if math.Hypot(sumSin, sumCos) < 1e-12 {
		return lat, d.grid.LonDeg(nodes[0])
	}
	lon = math.Atan2(sumSin, sumCos) * 180 / math.Pi
	if lon < 0 {
		lon += 360
	}
	return lat, lon
}
