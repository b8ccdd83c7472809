// Package metrics exposes Prometheus metrics for the session store and
// serves them over a standalone HTTP endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector wraps a private Prometheus registry with registration
// helpers.
type Collector struct {
	registry *prometheus.Registry
}

// NewCollector creates a collector with a fresh registry.
func NewCollector() *Collector {
	return &Collector{registry: prometheus.NewRegistry()}
}

// RegisterCounter registers a counter vector.
func (c *Collector) RegisterCounter(name, help string, labels []string) *prometheus.CounterVec {
	return promauto.With(c.registry).NewCounterVec(
		prometheus.CounterOpts{Name: name, Help: help},
		labels,
	)
}

// RegisterGauge registers a gauge vector.
func (c *Collector) RegisterGauge(name, help string, labels []string) *prometheus.GaugeVec {
	return promauto.With(c.registry).NewGaugeVec(
		prometheus.GaugeOpts{Name: name, Help: help},
		labels,
	)
}

// RegisterHistogram registers a histogram vector. A nil bucket slice
// selects the default duration buckets.
func (c *Collector) RegisterHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	return promauto.With(c.registry).NewHistogramVec(
		prometheus.HistogramOpts{Name: name, Help: help, Buckets: buckets},
		labels,
	)
}

// Registry returns the underlying registry for the HTTP handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
