package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects Prometheus metrics for the refresh pipeline.
type Metrics struct {
	registry *prometheus.Registry

	RefreshesTotal  *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	StaleDropped    prometheus.Counter
	CacheLookups    *prometheus.CounterVec
	RowsDisplayed   *prometheus.GaugeVec
	RateRemaining   prometheus.Gauge
}

// NewMetrics creates a metrics collector with its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		RefreshesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wppmon_refreshes_total",
				Help: "Total number of refresh cycles by outcome",
			},
			[]string{"status"},
		),
		RefreshDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wppmon_refresh_duration_seconds",
				Help:    "Refresh cycle duration (both endpoints joined)",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
		),
		StaleDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wppmon_stale_results_dropped_total",
				Help: "Completed fetches discarded because newer parameters superseded them",
			},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wppmon_backend_cache_total",
				Help: "Backend cache status per refresh",
			},
			[]string{"status"},
		),
		RowsDisplayed: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wppmon_rows_displayed",
				Help: "Rows in the current result per tier",
			},
			[]string{"tier"},
		),
		RateRemaining: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wppmon_ratelimit_remaining",
				Help: "Backend rate-limit quota remaining after the last refresh",
			},
		),
	}

	registry.MustRegister(
		m.RefreshesTotal,
		m.RefreshDuration,
		m.StaleDropped,
		m.CacheLookups,
		m.RowsDisplayed,
		m.RateRemaining,
	)

	return m
}

// Registry returns the prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRefresh records one completed refresh cycle.
func (m *Metrics) RecordRefresh(status string, durationSec float64) {
	m.RefreshesTotal.WithLabelValues(status).Inc()
	if durationSec > 0 {
		m.RefreshDuration.Observe(durationSec)
	}
}

// RecordStaleDrop records a discarded stale completion.
func (m *Metrics) RecordStaleDrop() {
	m.StaleDropped.Inc()
}

// RecordResult updates gauges from a committed result.
func (m *Metrics) RecordResult(res *Result) {
	m.RowsDisplayed.WithLabelValues("fire").Set(float64(len(res.Fire)))
	m.RowsDisplayed.WithLabelValues("watch").Set(float64(len(res.Watch)))
	m.RowsDisplayed.WithLabelValues("garbage").Set(float64(len(res.Garbage)))
	m.RateRemaining.Set(float64(res.Rate.Remaining))
	if res.Cache.Status != "" {
		m.CacheLookups.WithLabelValues(res.Cache.Status).Inc()
	}
}
