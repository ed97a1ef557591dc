package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the Prometheus instruments exposed by the capture
// pipeline. None of this exists in the teacher (it has no metrics surface
// at all); wired here per SPEC_FULL.md's domain-stack expansion, grounded
// on the pack's broad prometheus/client_golang usage (Altacee-dockation,
// ClusterCockpit-cc-backend).
type Metrics struct {
	RingBufferDropsTotal   *prometheus.CounterVec
	PublisherQueueDepth    prometheus.Gauge
	PublisherDroppedTotal  prometheus.Counter
	LogBatchSize           prometheus.Histogram
	HTTPRequestsTotal      prometheus.Counter
	WebSocketMessagesTotal *prometheus.CounterVec
}

// NewMetrics registers and returns a fresh Metrics bundle against reg. Pass
// prometheus.NewRegistry() in production and a scratch registry in tests so
// repeated test runs don't collide on global registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RingBufferDropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snapo",
			Name:      "ring_buffer_drops_total",
			Help:      "Entries evicted from a ring buffer before being read.",
		}, []string{"buffer"}),
		PublisherQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "snapo",
			Name:      "publisher_queue_depth",
			Help:      "Current number of records waiting to be published.",
		}),
		PublisherDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snapo",
			Name:      "publisher_dropped_total",
			Help:      "Records dropped because the publisher queue was full.",
		}),
		LogBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "snapo",
			Name:      "log_tab_batch_size",
			Help:      "Number of log entries processed per coalesced flush.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		HTTPRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snapo",
			Name:      "http_requests_observed_total",
			Help:      "HTTP exchanges observed by the capture interceptor.",
		}),
		WebSocketMessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snapo",
			Name:      "websocket_messages_total",
			Help:      "WebSocket messages observed by direction.",
		}, []string{"direction"}),
	}

	reg.MustRegister(
		m.RingBufferDropsTotal,
		m.PublisherQueueDepth,
		m.PublisherDroppedTotal,
		m.LogBatchSize,
		m.HTTPRequestsTotal,
		m.WebSocketMessagesTotal,
	)
	return m
}
