package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// recordNamespace scopes record IDs to this service.
var recordNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:storm-feature-detect:records"))

// recordID produces a deterministic ID from the feature, timestep and node.
// Replaying an archive yields identical IDs, so downstream upserts stay idempotent.
func recordID(feature string, timestep, node int) string {
	return uuid.NewSHA1(recordNamespace, fmt.Appendf(nil, "%s|%d|%d", feature, timestep, node)).String()
}

// CandidateID returns the record ID for a cyclone centered on node.
func CandidateID(timestep, node int) string { return recordID(FeatureCyclone, timestep, node) }

// RiverID returns the record ID for a river component anchored at its lowest node.
func RiverID(timestep, anchor int) string { return recordID(FeatureRiver, timestep, anchor) }

// SerializeCandidate converts a candidate into an OutputEvent for the sink topic.
// Non-finite diagnostics have no JSON form and are left out of the record.
func SerializeCandidate(c Candidate) (OutputEvent, error) {
	c.Diagnostics = finiteDiagnostics(c.Diagnostics)
	data, err := json.Marshal(c)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize candidate %s: %w", c.ID, err)
	}
	return OutputEvent{
		Key:   []byte(c.ID),
		Value: data,
		Headers: map[string]string{
			"feature":      FeatureCyclone,
			"timestep":     strconv.Itoa(c.Timestep),
			"processed_at": c.DetectedAt.Format(time.RFC3339),
		},
	}, nil
}

// SerializeRiver converts a river component into an OutputEvent for the sink topic.
func SerializeRiver(r RiverComponent) (OutputEvent, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize river %s: %w", r.ID, err)
	}
	return OutputEvent{
		Key:   []byte(r.ID),
		Value: data,
		Headers: map[string]string{
			"feature":      FeatureRiver,
			"timestep":     strconv.Itoa(r.Timestep),
			"processed_at": r.DetectedAt.Format(time.RFC3339),
		},
	}, nil
}

// SerializeResult flattens a timestep's records into sink events, candidates first.
func SerializeResult(res DetectionResult) ([]OutputEvent, error) {
	out := make([]OutputEvent, 0, len(res.Candidates)+len(res.Rivers))
	for _, c := range res.Candidates {
		ev, err := SerializeCandidate(c)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	for _, r := range res.Rivers {
		ev, err := SerializeRiver(r)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func finiteDiagnostics(d map[string]float64) map[string]float64 {
	if len(d) == 0 {
		return d
	}
	out := maps.Clone(d)
	maps.DeleteFunc(out, func(_ string, v float64) bool {
		return math.IsNaN(v) || math.IsInf(v, 0)
	})
	return out
}
