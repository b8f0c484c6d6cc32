package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing, so components can take it as an optional dependency.
type Metrics struct {
	registry *prometheus.Registry

	Detections      *prometheus.CounterVec
	LLMFailures     *prometheus.CounterVec
	IngestChunks    *prometheus.CounterVec
	RetrievalTier   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Detections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "greencheck_detections_total",
			Help: "Verifications performed, by analysis method and risk label.",
		}, []string{"method", "label"}),
		LLMFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "greencheck_llm_failures_total",
			Help: "Remote model failures that triggered a local fallback, by stage.",
		}, []string{"stage"}),
		IngestChunks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "greencheck_ingest_chunks_total",
			Help: "Chunk inserts during ingestion, by result.",
		}, []string{"result"}),
		RetrievalTier: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "greencheck_retrieval_tier_total",
			Help: "Retrievals answered by each tier (full_text, keyword, sample, empty).",
		}, []string{"tier"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "greencheck_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"route", "method", "status"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveDetection(method, label string) {
	if m == nil {
		return
	}
	m.Detections.WithLabelValues(method, label).Inc()
}

func (m *Metrics) ObserveLLMFailure(stage string) {
	if m == nil {
		return
	}
	m.LLMFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveIngest(inserted, failed int) {
	if m == nil {
		return
	}
	m.IngestChunks.WithLabelValues("inserted").Add(float64(inserted))
	m.IngestChunks.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) ObserveTier(tier string) {
	if m == nil {
		return
	}
	m.RetrievalTier.WithLabelValues(tier).Inc()
}

func (m *Metrics) ObserveRequest(route, method, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, method, status).Observe(elapsed.Seconds())
}
