// Package metrics exposes Prometheus collectors for BOM uploads, matching
// outcomes, row transitions and catalog loads.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/bomquote/internal/bom"
)

const namespace = "bomquote"

// Upload outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeBusy     = "busy"
	OutcomeError    = "error"
)

// Metrics groups the service collectors. All collectors are registered on
// the registry passed to New.
type Metrics struct {
	gatherer prometheus.Gatherer

	UploadsTotal     *prometheus.CounterVec
	UploadDuration   prometheus.Histogram
	RowsTotal        *prometheus.CounterVec
	ParseErrorsTotal prometheus.Counter
	TransitionsTotal *prometheus.CounterVec
	SessionsActive   prometheus.Gauge
	CatalogLoads     *prometheus.CounterVec
	CatalogProducts  prometheus.Gauge
}

// New registers the collectors on reg. The process and Go runtime
// collectors are added as well.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		gatherer: reg,

		UploadsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploads_total",
				Help:      "Total number of BOM uploads by outcome",
			},
			[]string{"outcome"},
		),
		UploadDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upload_duration_seconds",
				Help:      "Time taken to parse, normalize and match an upload",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		RowsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_total",
				Help:      "Total number of matched rows by confidence tier",
			},
			[]string{"tier"},
		),
		ParseErrorsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "row_errors_total",
				Help:      "Total number of rows dropped by the parser or normalizer",
			},
		),
		TransitionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "row_transitions_total",
				Help:      "Total number of user row transitions by action",
			},
			[]string{"action"},
		),
		SessionsActive: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_active",
				Help:      "Number of live upload sessions",
			},
		),
		CatalogLoads: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_loads_total",
				Help:      "Total number of catalog loads by status",
			},
			[]string{"status"},
		),
		CatalogProducts: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "catalog_products",
				Help:      "Number of products in the current catalog snapshot",
			},
		),
	}
}

// NewNop returns metrics bound to a private registry, for tests and tools
// that do not expose an endpoint.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// RecordUpload records one upload attempt. stats is ignored unless the
// outcome is OutcomeOK.
func (m *Metrics) RecordUpload(outcome string, duration time.Duration, stats bom.Stats) {
	m.UploadsTotal.WithLabelValues(outcome).Inc()
	if outcome != OutcomeOK {
		return
	}
	m.UploadDuration.Observe(duration.Seconds())
	m.RowsTotal.WithLabelValues(bom.ConfidenceHigh.String()).Add(float64(stats.Tiers.High))
	m.RowsTotal.WithLabelValues(bom.ConfidenceMedium.String()).Add(float64(stats.Tiers.Medium))
	m.RowsTotal.WithLabelValues(bom.ConfidenceLow.String()).Add(float64(stats.Tiers.Low))
	m.RowsTotal.WithLabelValues(bom.ConfidenceNone.String()).Add(float64(stats.Tiers.None))
	m.ParseErrorsTotal.Add(float64(stats.ParseErrors))
}

// RecordTransition counts a successful row transition.
func (m *Metrics) RecordTransition(action string) {
	m.TransitionsTotal.WithLabelValues(action).Inc()
}

// RecordCatalogLoad records a catalog refresh. products is only used when
// err is nil.
func (m *Metrics) RecordCatalogLoad(products int, err error) {
	if err != nil {
		m.CatalogLoads.WithLabelValues("error").Inc()
		return
	}
	m.CatalogLoads.WithLabelValues("ok").Inc()
	m.CatalogProducts.Set(float64(products))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
