// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	ConnectedParticipants prometheus.Gauge
	ActiveSessions        prometheus.Gauge
	MessagesReceived      prometheus.Counter
	OperatorsApplied      prometheus.Counter
	ApplyLatency          prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		ConnectedParticipants: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_participants",
			Help:      "Number of connected participants",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live game sessions",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received",
		}),
		OperatorsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operators_applied_total",
			Help:      "Total number of accepted operator applications",
		}),
		ApplyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "apply_latency_seconds",
			Help:      "Operator application latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}

	prometheus.MustRegister(
		m.ConnectedParticipants,
		m.ActiveSessions,
		m.MessagesReceived,
		m.OperatorsApplied,
		m.ApplyLatency,
	)

	return m
}

type Monitor struct {
	metrics      *Metrics
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
}

func NewMonitor(namespace string) *Monitor {
	return &Monitor{
		metrics:   NewMetrics(namespace),
		startTime: time.Now(),
	}
}

func (m *Monitor) StartServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())

	expvar.Publish("uptime", expvar.Func(func() interface{} {
		return time.Since(m.startTime).Seconds()
	}))

	expvar.Publish("requests", expvar.Func(func() interface{} {
		m.mutex.Lock()
		defer m.mutex.Unlock()
		return m.requestCount
	}))

	go http.ListenAndServe(addr, nil)
}

func (m *Monitor) IncConnectedParticipants() {
	m.metrics.ConnectedParticipants.Inc()
}

func (m *Monitor) DecConnectedParticipants() {
	m.metrics.ConnectedParticipants.Dec()
}

func (m *Monitor) SetActiveSessions(count int) {
	m.metrics.ActiveSessions.Set(float64(count))
}

func (m *Monitor) IncMessagesReceived() {
	m.metrics.MessagesReceived.Inc()
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

func (m *Monitor) IncOperatorsApplied() {
	m.metrics.OperatorsApplied.Inc()
}

func (m *Monitor) ObserveApplyLatency(duration time.Duration) {
	m.metrics.ApplyLatency.Observe(duration.Seconds())
}
