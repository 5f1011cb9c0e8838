// Package metrics defines the Prometheus collectors for query serving and
// exposes an HTTP handler for scraping.
package metrics

import (
	"errors"
	"net/http"

	"github.com/bastiangx/typeahead/pkg/suggest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one process.
type Metrics struct {
	QueryStage     *prometheus.HistogramVec
	QueriesTotal   *prometheus.CounterVec
	ResultsCount   *prometheus.HistogramVec
	RequestsTotal  *prometheus.CounterVec
	RateLimited    prometheus.Counter
	IndexSizeBytes *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		QueryStage: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "typeahead_query_stage_seconds",
				Help:    "Time spent per query stage (parse, dictionary, search, reporting).",
				Buckets: []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"stage", "mode"},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "typeahead_queries_total",
				Help: "Total queries by mode and outcome (ok, empty, invalid, error).",
			},
			[]string{"mode", "outcome"},
		),
		ResultsCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "typeahead_results_count",
				Help:    "Number of completions returned per query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
			[]string{"mode"},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "typeahead_requests_total",
				Help: "Total IPC requests by kind and status.",
			},
			[]string{"kind", "status"},
		),
		RateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "typeahead_rate_limited_total",
				Help: "Requests rejected by the rate limiter.",
			},
		),
		IndexSizeBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "typeahead_index_size_bytes",
				Help: "Size of each index component in bytes.",
			},
			[]string{"component"},
		),
		gatherer: reg,
	}
	reg.MustRegister(
		m.QueryStage,
		m.QueriesTotal,
		m.ResultsCount,
		m.RequestsTotal,
		m.RateLimited,
		m.IndexSizeBytes,
	)
	return m
}

// Outcome classifies a finished query.
func Outcome(results int, err error) string {
	switch {
	case err == nil && results == 0:
		return "empty"
	case err == nil:
		return "ok"
	case errors.Is(err, suggest.ErrEmptyQuery), errors.Is(err, suggest.ErrTooManyTerms):
		return "invalid"
	default:
		return "error"
	}
}

// Observe records one query. Its signature matches suggest.Observer.
func (m *Metrics) Observe(mode suggest.Mode, t suggest.Timings, results int, err error) {
	label := mode.String()
	m.QueriesTotal.WithLabelValues(label, Outcome(results, err)).Inc()
	if err != nil {
		return
	}
	m.QueryStage.WithLabelValues("parse", label).Observe(t.Parse.Seconds())
	m.QueryStage.WithLabelValues("dictionary", label).Observe(t.Dictionary.Seconds())
	m.QueryStage.WithLabelValues("search", label).Observe(t.Search.Seconds())
	m.QueryStage.WithLabelValues("reporting", label).Observe(t.Reporting.Seconds())
	m.ResultsCount.WithLabelValues(label).Observe(float64(results))
}

// SetIndexSize publishes component sizes.
func (m *Metrics) SetIndexSize(sizes map[string]int) {
	for component, n := range sizes {
		m.IndexSizeBytes.WithLabelValues(component).Set(float64(n))
	}
}

// Handler returns the scrape handler for the registry passed to New.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
