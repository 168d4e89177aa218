package domain

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordID_Deterministic(t *testing.T) {
	a := CandidateID(3, 120)
	b := CandidateID(3, 120)
	assert.Equal(t, a, b)

	_, err := uuid.Parse(a)
	require.NoError(t, err)

	assert.NotEqual(t, a, CandidateID(4, 120))
	assert.NotEqual(t, a, CandidateID(3, 121))
	assert.NotEqual(t, a, RiverID(3, 120), "feature is part of the key")
}

func TestSerializeCandidate(t *testing.T) {
	detected := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := Candidate{
		ID:          CandidateID(2, 17),
		Timestep:    2,
		Node:        17,
		Lon:         145,
		Lat:         -20,
		Value:       99100,
		MaxWind:     31.5,
		Diagnostics: map[string]float64{"T200_max": 221.4},
		DetectedAt:  detected,
	}

	ev, err := SerializeCandidate(c)
	require.NoError(t, err)

	assert.Equal(t, []byte(c.ID), ev.Key)
	assert.Equal(t, FeatureCyclone, ev.Headers["feature"])
	assert.Equal(t, "2", ev.Headers["timestep"])
	assert.Equal(t, "2026-03-01T12:00:00Z", ev.Headers["processed_at"])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(ev.Value, &decoded))
	assert.Equal(t, 17.0, decoded["node"])
	assert.Equal(t, 31.5, decoded["max_wind"])
	assert.NotContains(t, decoded, "time", "zero archive time is omitted")
	assert.NotContains(t, decoded, "place_name")
}

func TestSerializeCandidate_DropsNonFiniteDiagnostics(t *testing.T) {
	diag := map[string]float64{
		"IWV_avg":  math.NaN(),
		"U850_max": math.Inf(1),
		"PSL_min":  99100,
	}
	c := Candidate{ID: CandidateID(0, 5), Node: 5, Diagnostics: diag}

	ev, err := SerializeCandidate(c)
	require.NoError(t, err, "a NaN diagnostic must not drop the record")

	var decoded struct {
		Diagnostics map[string]float64 `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal(ev.Value, &decoded))
	assert.Equal(t, map[string]float64{"PSL_min": 99100}, decoded.Diagnostics)
	assert.Len(t, diag, 3, "the candidate's own map is left intact")
}

func TestSerializeResult_Order(t *testing.T) {
	res := DetectionResult{
		Timestep:   1,
		Candidates: []Candidate{{ID: "c1"}, {ID: "c2"}},
		Rivers:     []RiverComponent{{ID: "r1", Size: 3, Nodes: []int{4, 5, 6}}},
	}

	events, err := SerializeResult(res)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "c1", string(events[0].Key))
	assert.Equal(t, "c2", string(events[1].Key))
	assert.Equal(t, "r1", string(events[2].Key))
	assert.Equal(t, FeatureRiver, events[2].Headers["feature"])
}
