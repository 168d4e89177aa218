package netcdf

import (
	"fmt"
	"slices"
	"time"

	"github.com/ctessum/cdf"
)

// Dataset is an in-memory lat-lon archive. Lat and Lon are in degrees; each
// field holds one row-major (lat, lon) slice per timestep.
type Dataset struct {
	Lat    []float64
	Lon    []float64
	Times  []time.Time
	Fields map[string][][]float64
	Attrs  map[string]string // global attributes
}

// Write encodes ds as a classic NetCDF file with a fixed-length time
// dimension, float32 fields and int32 date/datesec variables.
func Write(rw cdf.ReaderWriterAt, ds Dataset) error {
	nt, nLat, nLon := len(ds.Times), len(ds.Lat), len(ds.Lon)
	if nt == 0 || nLat == 0 || nLon == 0 {
		return fmt.Errorf("dataset needs at least one timestep, latitude and longitude")
	}
	names := make([]string, 0, len(ds.Fields))
	for name, steps := range ds.Fields {
		if len(steps) != nt {
			return fmt.Errorf("field %q has %d timesteps, want %d", name, len(steps), nt)
		}
		for t, s := range steps {
			if len(s) != nLat*nLon {
				return fmt.Errorf("field %q timestep %d has %d values, want %d", name, t, len(s), nLat*nLon)
			}
		}
		names = append(names, name)
	}
	slices.Sort(names)

	h := cdf.NewHeader([]string{DimTime, DimLat, DimLon}, []int{nt, nLat, nLon})
	for _, k := range sortedKeys(ds.Attrs) {
		h.AddAttribute("", k, ds.Attrs[k])
	}
	h.AddVariable(DimTime, []string{DimTime}, []float64{0})
	h.AddAttribute(DimTime, "units", "days since 1970-01-01 00:00:00")
	h.AddVariable(VarDate, []string{DimTime}, []int32{0})
	h.AddAttribute(VarDate, "long_name", "current date (YYYYMMDD)")
	h.AddVariable(VarDateSec, []string{DimTime}, []int32{0})
	h.AddAttribute(VarDateSec, "long_name", "current seconds of current date")
	h.AddVariable(DimLat, []string{DimLat}, []float64{0})
	h.AddAttribute(DimLat, "units", "degrees_north")
	h.AddVariable(DimLon, []string{DimLon}, []float64{0})
	h.AddAttribute(DimLon, "units", "degrees_east")
	for _, name := range names {
		h.AddVariable(name, []string{DimTime, DimLat, DimLon}, []float32{0})
	}
	h.Define()

	f, err := cdf.Create(rw, h)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	days := make([]float64, nt)
	dates := make([]int32, nt)
	secs := make([]int32, nt)
	for i, t := range ds.Times {
		days[i] = float64(t.Unix()) / 86400
		dates[i], secs[i] = encodeDate(t)
	}
	if err := writeVar(f, DimTime, days); err != nil {
		return err
	}
	if err := writeVar(f, VarDate, dates); err != nil {
		return err
	}
	if err := writeVar(f, VarDateSec, secs); err != nil {
		return err
	}
	if err := writeVar(f, DimLat, ds.Lat); err != nil {
		return err
	}
	if err := writeVar(f, DimLon, ds.Lon); err != nil {
		return err
	}

	for _, name := range names {
		data := make([]float32, 0, nt*nLat*nLon)
		for _, s := range ds.Fields[name] {
			for _, v := range s {
				data = append(data, float32(v))
			}
		}
		if err := writeVar(f, name, data); err != nil {
			return err
		}
	}
	return nil
}

func writeVar(f *cdf.File, name string, data any) error {
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	if _, err := f.Writer(name, start, end).Write(data); err != nil {
		return fmt.Errorf("write variable %q: %w", name, err)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
