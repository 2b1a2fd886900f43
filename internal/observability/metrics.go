package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the map service and the
// dataset builder.
type Metrics struct {
	MapLoads        *prometheus.CounterVec // labels: outcome={bound,failed}
	Interactions    *prometheus.CounterVec // labels: event={click,mouseenter,mouseleave}
	DatasetFeatures prometheus.Gauge

	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,empty,error}
	GeocodeCache    *prometheus.CounterVec // labels: result={hit,miss}
}

func newMetrics() *Metrics {
	return &Metrics{
		MapLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parkmap",
			Name:      "map_loads_total",
			Help:      "Map session loads by outcome.",
		}, []string{"outcome"}),
		Interactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parkmap",
			Name:      "interactions_total",
			Help:      "Layer interactions dispatched by event.",
		}, []string{"event"}),
		DatasetFeatures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "parkmap",
			Name:      "dataset_features",
			Help:      "Segments in the currently bound dataset.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parkmap",
			Name:      "geocode_requests_total",
			Help:      "Geocoding requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parkmap",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
	}
}

// NewMetrics creates the collectors and registers them with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.MapLoads,
		m.Interactions,
		m.DatasetFeatures,
		m.GeocodeRequests,
		m.GeocodeCache,
	)
	return m
}

// NewMetricsForTesting creates unregistered collectors so tests can build
// as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
