package netcdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"time"

	"github.com/ctessum/cdf"

	"github.com/couchcryptid/storm-feature-detect/internal/domain"
	"github.com/couchcryptid/storm-feature-detect/internal/grid"
)

// Names of the coordinate dimensions and variables an archive must carry.
const (
	DimTime = "time"
	DimLat  = "lat"
	DimLon  = "lon"
	DimNCol = "ncol"

	VarDate    = "date"
	VarDateSec = "datesec"
)

// Archive is an opened NetCDF file holding time-indexed scalar fields.
type Archive struct {
	f      *cdf.File
	closer io.Closer
	dims   map[string]int
	vars   []string
	nTime  int // 0 for a record (unlimited) time dimension
	dated  bool
}

// OpenFile opens the archive at path. The caller closes it.
func OpenFile(path string) (*Archive, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open archive: %w", domain.ErrDataAccess, err)
	}
	a, err := Open(fh)
	if err != nil {
		fh.Close()
		return nil, err
	}
	a.closer = fh
	return a, nil
}

// Open parses the archive header from rw and checks that a time dimension
// and variable exist.
func Open(rw cdf.ReaderWriterAt) (*Archive, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("%w: read archive header: %w", domain.ErrDataAccess, err)
	}
	a := &Archive{
		f:    f,
		dims: make(map[string]int),
		vars: f.Header.Variables(),
	}
	names, lens := f.Header.Dimensions(""), f.Header.Lengths("")
	for i, n := range names {
		a.dims[n] = lens[i]
	}

	nt, ok := a.dims[DimTime]
	if !ok {
		return nil, fmt.Errorf("%w: archive has no %q dimension", domain.ErrDataAccess, DimTime)
	}
	if !a.HasVariable(DimTime) {
		return nil, fmt.Errorf("%w: archive has no %q variable", domain.ErrDataAccess, DimTime)
	}
	a.nTime = nt
	a.dated = a.HasVariable(VarDate) && a.HasVariable(VarDateSec)
	return a, nil
}

// Close releases the underlying file when the archive was opened by path.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// HasVariable reports whether the archive defines variable name.
func (a *Archive) HasVariable(name string) bool {
	return slices.Contains(a.vars, name)
}

// Variables returns every variable name in header order.
func (a *Archive) Variables() []string { return slices.Clone(a.vars) }

// NumTimesteps returns the length of the time dimension, or 0 when time is
// the record dimension and the count is only known by reading to the end.
func (a *Archive) NumTimesteps() int { return a.nTime }

// Dated reports whether date and datesec variables define timestep times.
func (a *Archive) Dated() bool { return a.dated }

// LatLonGrid builds a lat-lon grid from the lat and lon coordinate variables.
// Coordinates are stored in degrees.
func (a *Archive) LatLonGrid(regional bool) (*grid.Grid, error) {
	for _, name := range []string{DimLat, DimLon} {
		if _, ok := a.dims[name]; !ok {
			return nil, fmt.Errorf("%w: archive has no %q dimension", domain.ErrDataAccess, name)
		}
		if !a.HasVariable(name) {
			return nil, fmt.Errorf("%w: archive has no %q variable", domain.ErrDataAccess, name)
		}
	}
	lat, err := a.readAll(DimLat)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDataAccess, err)
	}
	lon, err := a.readAll(DimLon)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDataAccess, err)
	}
	toRadians(lat)
	toRadians(lon)
	return grid.BuildLatLon(lat, lon, regional)
}

// CheckField verifies that variable name exists, is indexed by time first and
// has one value per grid node in its remaining dimensions.
func (a *Archive) CheckField(name string, nodes int) error {
	if !a.HasVariable(name) {
		return fmt.Errorf("%w: archive has no field variable %q", domain.ErrDataAccess, name)
	}
	dims := a.f.Header.Dimensions(name)
	if len(dims) < 2 || dims[0] != DimTime {
		return fmt.Errorf("%w: field %q has dimensions %v, want (time, ...)", domain.ErrDataAccess, name, dims)
	}
	n := 1
	for _, d := range dims[1:] {
		n *= a.dims[d]
	}
	if n != nodes {
		return fmt.Errorf("%w: field %q has %d values per timestep, grid has %d nodes",
			domain.ErrDataAccess, name, n, nodes)
	}
	return nil
}

// Source returns a TimestepSource yielding fields for the given grid. Every
// field is checked up front.
func (a *Archive) Source(g *grid.Grid, fields []string, logger *slog.Logger) (*Source, error) {
	for _, name := range fields {
		if err := a.CheckField(name, g.Len()); err != nil {
			return nil, err
		}
	}
	return &Source{
		archive: a,
		fields:  slices.Clone(fields),
		nodes:   g.Len(),
		logger:  logger,
	}, nil
}

// ReadField reads one timestep of variable name as float64 values.
func (a *Archive) ReadField(name string, t int) (domain.Field, error) {
	lens := a.f.Header.Lengths(name)
	if len(lens) == 0 {
		return nil, fmt.Errorf("variable %q not in archive", name)
	}
	start := make([]int, len(lens))
	end := slices.Clone(lens)
	start[0], end[0] = t, t+1
	n := 1
	for _, l := range lens[1:] {
		n *= l
	}

	r := a.f.Reader(name, start, end)
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("read %q at timestep %d: %w", name, t, err)
	}
	return toFloat64(name, buf)
}

// TimeAt decodes the UTC time of timestep t from the date (YYYYMMDD) and
// datesec variables.
func (a *Archive) TimeAt(t int) (time.Time, error) {
	if !a.dated {
		return time.Time{}, nil
	}
	date, err := a.ReadField(VarDate, t)
	if err != nil {
		return time.Time{}, err
	}
	sec, err := a.ReadField(VarDateSec, t)
	if err != nil {
		return time.Time{}, err
	}
	if len(date) != 1 || len(sec) != 1 {
		return time.Time{}, fmt.Errorf("date variables must be scalar per timestep")
	}
	return decodeDate(int(date[0]), int(sec[0])), nil
}

func (a *Archive) readAll(name string) ([]float64, error) {
	r := a.f.Reader(name, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("read %q: %w", name, err)
	}
	return toFloat64(name, buf)
}

func decodeDate(yyyymmdd, sec int) time.Time {
	y, m, d := yyyymmdd/10000, (yyyymmdd/100)%100, yyyymmdd%100
	return time.Date(y, time.Month(m), d, 0, 0, sec, 0, time.UTC)
}

func encodeDate(t time.Time) (int32, int32) {
	t = t.UTC()
	date := t.Year()*10000 + int(t.Month())*100 + t.Day()
	sec := t.Hour()*3600 + t.Minute()*60 + t.Second()
	return int32(date), int32(sec)
}

func toFloat64(name string, buf any) ([]float64, error) {
	switch v := buf.(type) {
	case []float64:
		return v, nil
	case []float32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []int32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []int16:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("variable %q has unsupported type %T", name, buf)
	}
}

func toRadians(v []float64) {
	for i := range v {
		v[i] *= math.Pi / 180
	}
}

// Source reads timesteps sequentially from an Archive.
// It implements pipeline.TimestepSource.
type Source struct {
	archive *Archive
	fields  []string
	nodes   int
	next    int
	logger  *slog.Logger
}

// Next materializes the next timestep. It returns io.EOF once the archive is
// exhausted. A read failure skips only the current timestep; the returned
// Timestep then carries just its Index.
func (s *Source) Next(ctx context.Context) (domain.Timestep, error) {
	if err := ctx.Err(); err != nil {
		return domain.Timestep{}, err
	}
	a := s.archive
	if a.nTime > 0 && s.next >= a.nTime {
		return domain.Timestep{}, io.EOF
	}
	t := s.next
	s.next++

	ts := domain.Timestep{Index: t, Fields: make(map[string]domain.Field, len(s.fields))}
	for _, name := range s.fields {
		f, err := a.ReadField(name, t)
		if err != nil {
			if a.nTime == 0 && isEOF(err) {
				return domain.Timestep{}, io.EOF
			}
			return domain.Timestep{Index: t}, err
		}
		if err := f.CheckLen(s.nodes); err != nil {
			return domain.Timestep{Index: t}, fmt.Errorf("timestep %d field %q: %w", t, name, err)
		}
		ts.Fields[name] = f
	}

	when, err := a.TimeAt(t)
	if err != nil {
		s.logger.Warn("timestep date unreadable", "timestep", t, "error", err)
	}
	ts.Time = when
	s.logger.Debug("timestep read", "timestep", t, "fields", len(ts.Fields))
	return ts, nil
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
