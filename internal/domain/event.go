package domain

import (
	"fmt"
	"time"
)

// Feature names used in record IDs and message headers.
const (
	FeatureCyclone = "cyclone"
	FeatureRiver   = "atmospheric_river"
)

// Timestep is one materialized snapshot of every field a detection pass needs.
type Timestep struct {
	Index  int
	Time   time.Time // zero when the archive carries no date variables
	Fields map[string]Field
}

// Field returns the named field or an error naming the missing variable.
func (t Timestep) Field(name string) (Field, error) {
	f, ok := t.Fields[name]
	if !ok {
		return nil, &MissingFieldError{Name: name, Timestep: t.Index}
	}
	return f, nil
}

// MissingFieldError reports a field absent from a timestep.
type MissingFieldError struct {
	Name     string
	Timestep int
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("timestep %d: field %s not loaded", e.Timestep, e.Name)
}

// Candidate is one cyclone center that survived every filter stage.
type Candidate struct {
	ID          string             `json:"id"`
	Timestep    int                `json:"timestep"`
	Time        time.Time          `json:"time,omitzero"`
	Node        int                `json:"node"`
	Lon         float64            `json:"lon"`
	Lat         float64            `json:"lat"`
	Value       float64            `json:"value"`
	MaxWind     float64            `json:"max_wind"`
	MaxWindDist float64            `json:"max_wind_dist"`
	Diagnostics map[string]float64 `json:"diagnostics,omitempty"`

	// Geocoding enrichment fields.
	FormattedAddress string  `json:"formatted_address,omitempty"`
	PlaceName        string  `json:"place_name,omitempty"`
	GeoConfidence    float64 `json:"geo_confidence,omitempty"`
	GeoSource        string  `json:"geo_source,omitempty"` // "reverse", "original", "failed"

	DetectedAt time.Time `json:"detected_at"`
}

// RejectionCounts tallies candidates removed by each filter stage.
type RejectionCounts struct {
	Total      int `json:"total"`
	WarmCore   int `json:"warm_core"`
	NoWarmCore int `json:"no_warm_core"`
	Laplacian  int `json:"laplacian"`
}

// RiverComponent is a connected moisture filament that met the area threshold.
type RiverComponent struct {
	ID          string    `json:"id"`
	Timestep    int       `json:"timestep"`
	Time        time.Time `json:"time,omitzero"`
	Size        int       `json:"size"`
	Nodes       []int     `json:"nodes"`
	CentroidLat float64   `json:"centroid_lat"`
	CentroidLon float64   `json:"centroid_lon"`
	DetectedAt  time.Time `json:"detected_at"`
}

// DetectionResult is everything produced for one timestep.
type DetectionResult struct {
	Timestep          int
	Time              time.Time
	Candidates        []Candidate
	Rejections        RejectionCounts
	Rivers            []RiverComponent
	RiverNodesTagged  int
	RiverNodesRemoved int
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// RunStatus summarizes pipeline progress. LastTimestep is -1 before the first
// timestep is published.
type RunStatus struct {
	Running            bool      `json:"running"`
	TimestepsProcessed int       `json:"timesteps_processed"`
	TimestepsSkipped   int       `json:"timesteps_skipped"`
	LastTimestep       int       `json:"last_timestep"`
	LastTime           time.Time `json:"last_time,omitzero"`
	Candidates         int       `json:"candidates"`
	Rivers             int       `json:"rivers"`
}
