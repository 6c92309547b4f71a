package monitor

import (
	"github.com/BradenHooton/fintrack/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	AlertsTotal           *prometheus.CounterVec
	FailuresRecordedTotal prometheus.Counter
	RequestsRecordedTotal prometheus.Counter
	TrackedKeys           prometheus.Gauge
	SweepEvictedKeysTotal prometheus.Counter
}

// NewMetrics registers the monitor collectors with reg. A nil registry falls
// back to the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		AlertsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fintrack_monitor_alerts_total",
			Help: "Total number of security alerts raised, by type",
		}, []string{"type"}),
		FailuresRecordedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fintrack_monitor_failures_recorded_total",
			Help: "Total number of authentication failures recorded",
		}),
		RequestsRecordedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fintrack_monitor_requests_recorded_total",
			Help: "Total number of requests recorded on the volume track",
		}),
		TrackedKeys: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fintrack_monitor_tracked_keys",
			Help: "Number of source keys holding live window state after the last sweep",
		}),
		SweepEvictedKeysTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fintrack_monitor_sweep_evicted_keys_total",
			Help: "Total number of idle source keys dropped by the sweeper",
		}),
	}
}

func (m *Metrics) incAlert(t models.EventType) {
	if m != nil {
		m.AlertsTotal.WithLabelValues(string(t)).Inc()
	}
}

func (m *Metrics) incFailures() {
	if m != nil {
		m.FailuresRecordedTotal.Inc()
	}
}

func (m *Metrics) incRequests() {
	if m != nil {
		m.RequestsRecordedTotal.Inc()
	}
}

func (m *Metrics) setTracked(n int) {
	if m != nil {
		m.TrackedKeys.Set(float64(n))
	}
}

func (m *Metrics) addEvicted(n int) {
	if m != nil {
		m.SweepEvictedKeysTotal.Add(float64(n))
	}
}
