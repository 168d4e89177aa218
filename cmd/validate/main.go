// Command validate performs integrity checks on a detection input archive and
// an optional connectivity file before a long run is started. It verifies the
// archive structure, coordinate axes, field shapes and values on every
// timestep, connectivity symmetry, and finally dry-runs the extremum scanner
// on the first timestep.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -input data/synthetic.nc \
//	  -fields PSL,U850,V850,T200,T500 \
//	  -connectivity data/ne30_connectivity.txt
package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/couchcryptid/storm-feature-detect/internal/adapter/netcdf"
	"github.com/couchcryptid/storm-feature-detect/internal/domain"
	"github.com/couchcryptid/storm-feature-detect/internal/extremum"
	"github.com/couchcryptid/storm-feature-detect/internal/grid"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type options struct {
	input        string
	connectivity string
	fields       []string
	pslVar       string
	regional     bool
}

func main() {
	input := flag.String("input", "", "path to the NetCDF input archive")
	connectivity := flag.String("connectivity", "", "optional unstructured connectivity file")
	fields := flag.String("fields", "PSL,U850,V850", "comma-separated field variables to check")
	psl := flag.String("psl", "PSL", "pressure variable used for the scanner dry run")
	regional := flag.Bool("regional", false, "treat the lat-lon grid as regional (no longitude wrap)")
	flag.Parse()

	if *input == "" {
		flag.Usage()
		os.Exit(1)
	}

	opts := options{
		input:        *input,
		connectivity: *connectivity,
		fields:       splitList(*fields),
		pslVar:       *psl,
		regional:     *regional,
	}
	os.Exit(run(os.Stdout, opts))
}

func run(w io.Writer, opts options) int {
	fmt.Fprintln(w, "=== Storm Feature Input Validation ===")
	fmt.Fprintln(w)

	a, err := netcdf.OpenFile(opts.input)
	if err != nil {
		fmt.Fprintf(w, "FATAL: open archive: %v\n", err)
		return 1
	}
	defer a.Close()

	structure, g := validateStructure(a, opts)
	phases := []*phase{structure}
	if g != nil {
		phases = append(phases,
			validateCoordinates(g),
			validateFields(a, g, opts.fields),
		)
		if g.Layout() == grid.LayoutUnstructured {
			phases = append(phases, validateConnectivity(g))
		}
		phases = append(phases, dryRunScanner(a, g, opts.pslVar))
	}

	allPassed := report(w, phases)
	fmt.Fprintf(w, "\nArchive: %s (%d timesteps, dated=%t)\n", opts.input, a.NumTimesteps(), a.Dated())
	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

func report(w io.Writer, phases []*phase) bool {
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if len(p.notes) > 0 {
			fmt.Fprintf(w, "\n--- %s ---\n", p.name)
			for _, n := range p.notes {
				fmt.Fprintf(w, "  %s\n", n)
			}
		}
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s errors ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}
	return allPassed
}

// ── Phase 1: structure ──

func validateStructure(a *netcdf.Archive, opts options) (*phase, *grid.Grid) {
	p := &phase{name: "Phase 1: Archive structure"}

	if a.NumTimesteps() == 0 {
		p.notef("time is the record dimension; timestep count is found by reading")
	}
	if !a.Dated() {
		p.notef("no %s/%s variables; timesteps carry only their index", netcdf.VarDate, netcdf.VarDateSec)
	}

	var (
		g   *grid.Grid
		err error
	)
	if opts.connectivity != "" {
		g, err = grid.ReadConnectivityFile(opts.connectivity)
	} else {
		g, err = a.LatLonGrid(opts.regional)
	}
	if err != nil {
		p.errorf("build grid: %v", err)
		return p, nil
	}
	p.notef("grid layout %s with %d nodes", g.Layout(), g.Len())

	for _, name := range opts.fields {
		if err := a.CheckField(name, g.Len()); err != nil {
			p.errorf("%v", err)
		}
	}
	return p, g
}

// ── Phase 2: coordinates ──

func validateCoordinates(g *grid.Grid) *phase {
	p := &phase{name: "Phase 2: Coordinates"}

	for k := range g.Len() {
		lat, lon := g.LatDeg(k), g.LonDeg(k)
		if math.IsNaN(lat) || math.IsNaN(lon) {
			p.errorf("node %d: NaN coordinate", k)
		}
	}
	if g.Layout() != grid.LayoutLatLon {
		return p
	}

	lat := g.LatAxis()
	if len(lat) < 3 {
		p.errorf("only %d latitude rows; the scanner needs at least 3", len(lat))
	}
	ascending := slices.IsSorted(lat)
	descending := slices.IsSortedFunc(lat, func(x, y float64) int { return cmp.Compare(y, x) })
	if !ascending && !descending {
		p.errorf("latitude axis is not monotonic")
	}
	if err := checkUniform("latitude", lat); err != nil {
		p.notef("%v; the Laplacian filter assumes uniform spacing", err)
	}
	if err := checkUniform("longitude", g.LonAxis()); err != nil {
		p.notef("%v; the Laplacian filter assumes uniform spacing", err)
	}
	return p
}

func checkUniform(name string, axis []float64) error {
	if len(axis) < 3 {
		return nil
	}
	d0 := axis[1] - axis[0]
	for i := 2; i < len(axis); i++ {
		if d := axis[i] - axis[i-1]; math.Abs(d-d0) > 1e-6*math.Abs(d0) {
			return fmt.Errorf("%s spacing varies (%.6g vs %.6g rad at index %d)", name, d, d0, i)
		}
	}
	return nil
}

// ── Phase 3: field values ──

func validateFields(a *netcdf.Archive, g *grid.Grid, fields []string) *phase {
	p := &phase{name: "Phase 3: Field values"}
	src, err := a.Source(g, fields, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		p.errorf("%v", err)
		return p
	}

	type stats struct {
		lo, hi    float64
		nonFinite int
	}
	all := make(map[string]*stats, len(fields))
	for _, name := range fields {
		all[name] = &stats{lo: math.Inf(1), hi: math.Inf(-1)}
	}

	ctx := context.Background()
	steps := 0
	for {
		ts, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			p.errorf("%v", err)
			if domain.IsFatal(err) {
				return p
			}
			continue
		}
		steps++
		for _, name := range fields {
			s := all[name]
			for _, v := range ts.Fields[name] {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					s.nonFinite++
					continue
				}
				s.lo, s.hi = math.Min(s.lo, v), math.Max(s.hi, v)
			}
		}
	}

	if steps == 0 {
		p.errorf("no readable timesteps")
	}
	for _, name := range fields {
		s := all[name]
		p.notef("%-8s range [%.6g, %.6g] over %d timesteps", name, s.lo, s.hi, steps)
		if s.nonFinite > 0 {
			p.errorf("%s: %d non-finite values", name, s.nonFinite)
		}
		if steps > 0 && s.lo == s.hi {
			p.errorf("%s: constant field (%g); no extremum can be detected", name, s.lo)
		}
	}
	return p
}

// ── Phase 4: connectivity ──

func validateConnectivity(g *grid.Grid) *phase {
	p := &phase{name: "Phase 4: Connectivity"}
	isolated := 0
	for k := range g.Len() {
		nbrs := g.Neighbors(k)
		if len(nbrs) == 0 {
			isolated++
		}
		for _, n := range nbrs {
			if n == k {
				p.errorf("node %d lists itself as a neighbor", k+1)
			}
			if !slices.Contains(g.Neighbors(n), k) {
				p.errorf("node %d -> %d has no reverse edge", k+1, n+1)
			}
		}
		if len(p.errors) > 20 {
			p.errorf("stopping after 20 errors")
			break
		}
	}
	if isolated > 0 {
		p.notef("%d nodes have no neighbors and can never be extrema", isolated)
	}
	return p
}

// ── Phase 5: scanner dry run ──

func dryRunScanner(a *netcdf.Archive, g *grid.Grid, psl string) *phase {
	p := &phase{name: "Phase 5: Scanner dry run (timestep 0)"}
	f, err := a.ReadField(psl, 0)
	if err != nil {
		p.errorf("read %s: %v", psl, err)
		return p
	}
	if err := f.CheckLen(g.Len()); err != nil {
		p.errorf("%s: %v", psl, err)
		return p
	}
	minima, err := extremum.FindAllLocalMinima(g, f)
	if err != nil {
		p.errorf("scan %s: %v", psl, err)
		return p
	}
	p.notef("%d strict local minima of %s", len(minima), psl)
	for i, k := range minima.Sorted() {
		if i == 5 {
			p.notef("...")
			break
		}
		p.notef("  node %d at (%.2f, %.2f) value %.6g", k, g.LatDeg(k), g.LonDeg(k), f[k])
	}
	return p
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
