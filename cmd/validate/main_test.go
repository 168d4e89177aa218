package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-feature-detect/internal/adapter/netcdf"
	"github.com/couchcryptid/storm-feature-detect/internal/grid"
)

// writeArchive writes a 2.5° global archive with a single PSL low and the
// given wind field value everywhere.
func writeArchive(t *testing.T, wind float64) string {
	t.Helper()
	var lat, lon []float64
	for v := -90.0; v <= 90; v += 2.5 {
		lat = append(lat, v)
	}
	for v := 0.0; v < 360; v += 2.5 {
		lon = append(lon, v)
	}
	n := len(lat) * len(lon)
	psl := make([]float64, n)
	u := make([]float64, n)
	for j, la := range lat {
		for i, lo := range lon {
			k := j*len(lon) + i
			d := grid.GreatCircleDeg(la*math.Pi/180, lo*math.Pi/180, 20*math.Pi/180, 140*math.Pi/180)
			psl[k] = 101000 - 3000*math.Exp(-d*d/16)
			u[k] = wind
		}
	}

	path := filepath.Join(t.TempDir(), "in.nc")
	fh, err := os.Create(path)
	require.NoError(t, err)
	defer fh.Close()
	require.NoError(t, netcdf.Write(fh, netcdf.Dataset{
		Lat:    lat,
		Lon:    lon,
		Times:  []time.Time{time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC)},
		Fields: map[string][][]float64{"PSL": {psl}, "U850": {u}},
	}))
	return path
}

func TestRun_Passes(t *testing.T) {
	var out bytes.Buffer
	code := run(&out, options{
		input:  writeArchive(t, 0),
		fields: []string{"PSL"},
		pslVar: "PSL",
	})

	assert.Equal(t, 0, code, out.String())
	assert.Contains(t, out.String(), "All validations passed.")
	assert.Contains(t, out.String(), "1 strict local minima of PSL")
	assert.Contains(t, out.String(), "(20.00, 140.00)")
}

func TestRun_ConstantFieldFails(t *testing.T) {
	var out bytes.Buffer
	code := run(&out, options{
		input:  writeArchive(t, 7),
		fields: []string{"PSL", "U850"},
		pslVar: "PSL",
	})

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "U850: constant field")
}

func TestRun_MissingFieldFails(t *testing.T) {
	var out bytes.Buffer
	code := run(&out, options{
		input:  writeArchive(t, 1),
		fields: []string{"PSL", "T200"},
		pslVar: "PSL",
	})

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), `"T200"`)
}

func TestRun_MissingArchive(t *testing.T) {
	var out bytes.Buffer
	code := run(&out, options{input: filepath.Join(t.TempDir(), "absent.nc")})
	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "FATAL")
}

func TestValidateConnectivity(t *testing.T) {
	symmetric := "3\n0,0,2,2,3\n90,0,2,1,3\n180,0,2,1,2\n"
	g, err := grid.ReadConnectivity(strings.NewReader(symmetric))
	require.NoError(t, err)
	assert.True(t, validateConnectivity(g).passed())

	oneWay := "3\n0,0,1,2\n90,0,0\n180,0,1,3\n"
	g, err = grid.ReadConnectivity(strings.NewReader(oneWay))
	require.NoError(t, err)
	p := validateConnectivity(g)
	assert.False(t, p.passed())
	assert.Contains(t, p.errors[0], "node 1 -> 2 has no reverse edge")
	assert.Contains(t, p.errors, "node 3 lists itself as a neighbor")
	assert.NotEmpty(t, p.notes, "node 2 is isolated")
}

func TestCheckUniform(t *testing.T) {
	assert.NoError(t, checkUniform("lat", []float64{0, 1, 2, 3}))
	assert.Error(t, checkUniform("lat", []float64{0, 1, 2.5, 3}))
	assert.NoError(t, checkUniform("lat", []float64{0, 1}))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"PSL", "U850"}, splitList(" PSL, ,U850 "))
	assert.Nil(t, splitList(""))
}
