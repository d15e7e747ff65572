package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels
const (
	OutcomeOK       = "ok"
	OutcomeCaller   = "caller_fault"
	OutcomeDispatch = "dispatch_failure"
	OutcomeDecode   = "truncated_result"
)

// Metrics are the prometheus collectors a Dispatcher reports into.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	calls           *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	allocatedBytes  prometheus.Counter
	liveAllocations prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "calls_total",
			Help:      "Native export calls by export and outcome.",
		}, []string{"export", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "call_duration_seconds",
			Help:      "Wall time of native export calls, including marshalling.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}, []string{"export"}),
		allocatedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "allocated_bytes_total",
			Help:      "Bytes allocated inside the module for call arguments and outputs.",
		}),
		liveAllocations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "live_allocations",
			Help:      "Host-owned module allocations not yet released.",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.calls, m.duration, m.allocatedBytes, m.liveAllocations} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observe(export, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(export, outcome).Inc()
	m.duration.WithLabelValues(export).Observe(elapsed.Seconds())
}

func (m *Metrics) allocated(size uint32) {
	if m == nil {
		return
	}
	m.allocatedBytes.Add(float64(size))
	m.liveAllocations.Inc()
}

func (m *Metrics) released(n int) {
	if m == nil || n == 0 {
		return
	}
	m.liveAllocations.Sub(float64(n))
}
