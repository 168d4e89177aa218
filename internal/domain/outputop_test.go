package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutputOps(t *testing.T) {
	ops, err := ParseOutputOps(" PSL,min,2 ; T200,maxdist,6.5;U850,avg,0 ")
	require.NoError(t, err)

	want := []OutputOp{
		{Var: "PSL", Op: OpMin, DistDeg: 2},
		{Var: "T200", Op: OpMaxDist, DistDeg: 6.5},
		{Var: "U850", Op: OpAvg, DistDeg: 0},
	}
	if diff := cmp.Diff(want, ops); diff != "" {
		t.Errorf("ops mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "T200_maxdist", ops[1].Key())
}

func TestParseOutputOps_Empty(t *testing.T) {
	ops, err := ParseOutputOps("")
	require.NoError(t, err)
	assert.Nil(t, ops)
}

func TestParseOutputOps_Errors(t *testing.T) {
	for _, in := range []string{
		"PSL,min",
		"PSL,median,2",
		",max,2",
		"PSL,max,far",
		"PSL,max,-1",
		"PSL,max,190",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseOutputOps(in)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}
