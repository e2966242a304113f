package blobstore

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the collectors an Instrumented store reports to.
type Metrics struct {
	Ops      *prometheus.CounterVec
	Bytes    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics registers the blob store collectors on reg. A nil reg
// creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Ops: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bvctree",
			Subsystem: "blobstore",
			Name:      "operations_total",
			Help:      "Blob store operations by type and outcome.",
		}, []string{"op", "result"}),
		Bytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bvctree",
			Subsystem: "blobstore",
			Name:      "bytes_total",
			Help:      "Value bytes read and written.",
		}, []string{"op"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bvctree",
			Subsystem: "blobstore",
			Name:      "operation_duration_seconds",
			Help:      "Blob store operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"op"}),
	}
}

// Instrumented records every call on next into Metrics.
type Instrumented struct {
	next    Blobstore
	metrics *Metrics
}

func NewInstrumented(next Blobstore, m *Metrics) *Instrumented {
	return &Instrumented{next: next, metrics: m}
}

func (s *Instrumented) observe(op string, start time.Time, err error) {
	s.metrics.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	result := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	s.metrics.Ops.WithLabelValues(op, result).Inc()
}

func (s *Instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	v, err := s.next.Get(ctx, key)
	s.observe("get", start, err)
	if err == nil {
		s.metrics.Bytes.WithLabelValues("get").Add(float64(len(v)))
	}
	return v, err
}

func (s *Instrumented) Put(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := s.next.Put(ctx, key, value)
	s.observe("put", start, err)
	if err == nil {
		s.metrics.Bytes.WithLabelValues("put").Add(float64(len(value)))
	}
	return err
}

func (s *Instrumented) Has(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	ok, err := s.next.Has(ctx, key)
	s.observe("has", start, err)
	return ok, err
}

func (s *Instrumented) Close() error { return Close(s.next) }
