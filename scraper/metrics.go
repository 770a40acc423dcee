package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for a run.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	TierOutcomes    *prometheus.CounterVec
	ItemsTotal      *prometheus.CounterVec
	RecordsTotal    *prometheus.CounterVec
	EnrichTotal     *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	PagesTotal      *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_requests_total",
			Help: "HTTP requests issued, by kind (api, listing, detail).",
		},
		[]string{"kind"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_request_duration_seconds",
			Help:    "HTTP request latency by kind.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	tierOutcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_tier_outcomes_total",
			Help: "Extraction tier attempts by tier and outcome.",
		},
		[]string{"tier", "outcome"},
	)
	items := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_items_total",
			Help: "Raw items acquired, by tier.",
		},
		[]string{"tier"},
	)
	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_records_total",
			Help: "Canonical records produced, by status.",
		},
		[]string{"status"},
	)
	enrich := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_enrichment_total",
			Help: "Rating enrichment attempts by result.",
		},
		[]string{"result"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Errors by kind and type.",
		},
		[]string{"kind", "error_type"},
	)
	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_pages_total",
			Help: "Pages processed by outcome (persisted, empty).",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(requests, requestDuration, tierOutcomes, items, records, enrich, errorsTotal, pages)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		TierOutcomes:    tierOutcomes,
		ItemsTotal:      items,
		RecordsTotal:    records,
		EnrichTotal:     enrich,
		ErrorsTotal:     errorsTotal,
		PagesTotal:      pages,
	}
}

// ObserveRequest counts a request and records its duration.
func (m *Metrics) ObserveRequest(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(kind).Inc()
	m.RequestDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// IncTier records the outcome (ok, empty, failed) of a tier attempt.
func (m *Metrics) IncTier(tier, outcome string) {
	if m == nil {
		return
	}
	m.TierOutcomes.WithLabelValues(tier, outcome).Inc()
}

// AddItems adds n raw items acquired by tier.
func (m *Metrics) AddItems(tier string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ItemsTotal.WithLabelValues(tier).Add(float64(n))
}

// IncRecord counts a canonical record by status.
func (m *Metrics) IncRecord(status string) {
	if m == nil {
		return
	}
	m.RecordsTotal.WithLabelValues(status).Inc()
}

// IncEnrich counts an enrichment result (hit, miss, cached, failed).
func (m *Metrics) IncEnrich(result string) {
	if m == nil {
		return
	}
	m.EnrichTotal.WithLabelValues(result).Inc()
}

// IncError increments the errors counter for a request kind and type label.
func (m *Metrics) IncError(kind, errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(kind, errorType).Inc()
}

// IncPage counts a page outcome.
func (m *Metrics) IncPage(outcome string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(outcome).Inc()
}
