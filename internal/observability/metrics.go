package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storm_detect"

// Metrics holds the Prometheus counters, histograms, and gauges for the detection pipeline.
type Metrics struct {
	TimestepsProcessed prometheus.Counter
	TimestepErrors     prometheus.Counter
	CandidatesDetected prometheus.Counter
	CandidateRejected  *prometheus.CounterVec // labels: stage={warm_core,no_warm_core,laplacian}
	MessagesProduced   prometheus.Counter
	PipelineRunning    prometheus.Gauge

	// River segmentation metrics.
	RiverComponents   prometheus.Counter
	RiverNodesRemoved prometheus.Counter

	// Per-timestep processing metrics.
	TimestepDuration prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		TimestepsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timesteps_processed_total",
			Help:      "Total timesteps run through detection.",
		}),
		TimestepErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timestep_errors_total",
			Help:      "Total timesteps skipped because reading or detection failed.",
		}),
		CandidatesDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_detected_total",
			Help:      "Total cyclone candidates surviving every filter stage.",
		}),
		CandidateRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidate_rejections_total",
			Help:      "Pressure minima removed by each filter stage.",
		}, []string{"stage"}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Total messages written to the sink topic.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		RiverComponents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "river_components_total",
			Help:      "Total river components meeting the area threshold.",
		}),
		RiverNodesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "river_nodes_removed_total",
			Help:      "Tagged river nodes unmasked because their component was too small.",
		}),
		TimestepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "timestep_duration_seconds",
			Help:      "Duration of detection and load for one timestep.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when geocoding enrichment is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.TimestepsProcessed,
		m.TimestepErrors,
		m.CandidatesDetected,
		m.CandidateRejected,
		m.MessagesProduced,
		m.PipelineRunning,
		m.RiverComponents,
		m.RiverNodesRemoved,
		m.TimestepDuration,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		TimestepsProcessed: prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "timesteps_processed_total"}),
		TimestepErrors:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "timestep_errors_total"}),
		CandidatesDetected: prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "candidates_detected_total"}),
		CandidateRejected:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "candidate_rejections_total"}, []string{"stage"}),
		MessagesProduced:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "messages_produced_total"}),
		PipelineRunning:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "pipeline_running"}),
		RiverComponents:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "river_components_total"}),
		RiverNodesRemoved:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "river_nodes_removed_total"}),
		TimestepDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "timestep_duration_seconds"}),
		GeocodeRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "geocode_requests_total"}, []string{"outcome"}),
		GeocodeCache:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "geocode_cache_total"}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "geocode_api_duration_seconds"}),
		GeocodeEnabled:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "geocode_enabled"}),
	}
}
