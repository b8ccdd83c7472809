package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sessionhive/engine/internal/session"
)

// StoreMetrics tracks session store activity.
type StoreMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	records           *prometheus.GaugeVec
	liveRecords       *prometheus.GaugeVec
	reclaimedTotal    *prometheus.CounterVec
	rebuildRuns       *prometheus.CounterVec
}

// NewStoreMetrics registers store metrics with the collector.
func NewStoreMetrics(collector *Collector) *StoreMetrics {
	return &StoreMetrics{
		operationsTotal: collector.RegisterCounter(
			MetricStoreOperationsTotal,
			"Store operations by backend, operation, and status",
			[]string{LabelBackend, LabelOperation, LabelStatus},
		),
		operationDuration: collector.RegisterHistogram(
			MetricStoreOperationSecs,
			"Store operation latency in seconds",
			[]string{LabelBackend, LabelOperation},
			nil,
		),
		records: collector.RegisterGauge(
			MetricStoreRecords,
			"Raw stored record count, expired-but-unreclaimed included",
			[]string{LabelBackend},
		),
		liveRecords: collector.RegisterGauge(
			MetricStoreLiveRecords,
			"Live (unexpired) record count",
			[]string{LabelBackend},
		),
		reclaimedTotal: collector.RegisterCounter(
			MetricStoreReclaimedTotal,
			"Expired records reclaimed, by maintenance loop",
			[]string{LabelBackend, LabelLoop},
		),
		rebuildRuns: collector.RegisterCounter(
			MetricStoreRebuildRuns,
			"Index rebuild passes completed, reclaiming or not",
			[]string{LabelBackend},
		),
	}
}

// RecordOperation records one store operation outcome.
func (m *StoreMetrics) RecordOperation(backend, operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(backend, operation, status).Inc()
	m.operationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// SetRecordCounts updates the size gauges.
func (m *StoreMetrics) SetRecordCounts(backend string, raw, live int) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(backend).Set(float64(raw))
	m.liveRecords.WithLabelValues(backend).Set(float64(live))
}

// RecordReclaimed counts records reclaimed by a maintenance loop.
func (m *StoreMetrics) RecordReclaimed(backend, loop string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.reclaimedTotal.WithLabelValues(backend, loop).Add(float64(n))
}

// RecordRebuildRun counts one completed index rebuild pass, whether or
// not it reclaimed anything.
func (m *StoreMetrics) RecordRebuildRun(backend string) {
	if m == nil {
		return
	}
	m.rebuildRuns.WithLabelValues(backend).Inc()
}

// InstrumentedStore decorates a session.Store with operation metrics.
type InstrumentedStore struct {
	inner   session.Store
	backend string
	metrics *StoreMetrics
}

var _ session.Store = (*InstrumentedStore)(nil)

// Instrument wraps a store so every operation is recorded under the
// given backend label.
func Instrument(inner session.Store, backend string, m *StoreMetrics) *InstrumentedStore {
	return &InstrumentedStore{inner: inner, backend: backend, metrics: m}
}

// Unwrap returns the decorated store, so maintenance control can reach
// the backend.
func (s *InstrumentedStore) Unwrap() session.Store {
	return s.inner
}

func (s *InstrumentedStore) observe(op string, start time.Time, status string) {
	s.metrics.RecordOperation(s.backend, op, status, time.Since(start))
}

func statusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

func (s *InstrumentedStore) Get(ctx context.Context, sid string) (map[string]any, error) {
	start := time.Now()
	data, err := s.inner.Get(ctx, sid)
	status := statusOf(err)
	if err == nil && data == nil {
		status = StatusMiss
	}
	s.observe("get", start, status)
	return data, err
}

func (s *InstrumentedStore) Set(ctx context.Context, sid string, data map[string]any) error {
	start := time.Now()
	err := s.inner.Set(ctx, sid, data)
	s.observe("set", start, statusOf(err))
	return err
}

func (s *InstrumentedStore) Destroy(ctx context.Context, sid string) error {
	start := time.Now()
	err := s.inner.Destroy(ctx, sid)
	s.observe("destroy", start, statusOf(err))
	return err
}

func (s *InstrumentedStore) Touch(ctx context.Context, sid string, data map[string]any) error {
	start := time.Now()
	err := s.inner.Touch(ctx, sid, data)
	s.observe("touch", start, statusOf(err))
	return err
}

func (s *InstrumentedStore) All(ctx context.Context) ([]session.Record, error) {
	start := time.Now()
	records, err := s.inner.All(ctx)
	s.observe("all", start, statusOf(err))
	return records, err
}

func (s *InstrumentedStore) Len(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := s.inner.Len(ctx)
	s.observe("len", start, statusOf(err))
	return n, err
}

func (s *InstrumentedStore) Clear(ctx context.Context) error {
	start := time.Now()
	err := s.inner.Clear(ctx)
	s.observe("clear", start, statusOf(err))
	return err
}
