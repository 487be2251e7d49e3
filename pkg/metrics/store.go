package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics covers the durable store and its write serializer.
type StoreMetrics struct {
	writes        *prometheus.CounterVec
	writeDuration prometheus.Histogram
	queueDepth    prometheus.Gauge
	repairs       *prometheus.CounterVec
}

// NewStoreMetrics registers store metrics on reg. A nil registerer yields a no-op collector.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	if reg == nil {
		return &StoreMetrics{}
	}
	writes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_writes_total",
		Help:      "Whole-document writes by result.",
	}, []string{"result"})
	writeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "store_write_duration_seconds",
		Help:      "Time spent persisting one document snapshot.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "store_queue_depth",
		Help:      "Writes admitted to the serializer and not yet committed.",
	})
	repairs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_repairs_total",
		Help:      "Corruption recoveries on load by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(writes, writeDuration, queueDepth, repairs)
	return &StoreMetrics{
		writes:        writes,
		writeDuration: writeDuration,
		queueDepth:    queueDepth,
		repairs:       repairs,
	}
}

// ObserveWrite records one committed or failed write.
func (s *StoreMetrics) ObserveWrite(duration time.Duration, err error) {
	if s == nil || s.writes == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.writes.WithLabelValues(result).Inc()
	s.writeDuration.Observe(duration.Seconds())
}

// QueueDepthDelta adjusts the pending write gauge.
func (s *StoreMetrics) QueueDepthDelta(delta float64) {
	if s == nil || s.queueDepth == nil {
		return
	}
	s.queueDepth.Add(delta)
}

// IncRepair counts one recovery; outcome is "repaired", "reinitialized" or "normalized".
func (s *StoreMetrics) IncRepair(outcome string) {
	if s == nil || s.repairs == nil {
		return
	}
	s.repairs.WithLabelValues(normalizeLabel(outcome)).Inc()
}
