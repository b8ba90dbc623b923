package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the gateway's operational counters on the standard
// prometheus registry, scraped through the REST /metrics endpoint.
type Metrics struct {
	ActiveSessions prometheus.Gauge
	InboundEvents  *prometheus.CounterVec
	HandlerErrors  *prometheus.CounterVec
	DroppedEvents  prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dchat_gateway_active_sessions",
			Help: "Number of live websocket sessions.",
		}),
		InboundEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dchat_gateway_inbound_events_total",
			Help: "Inbound frames by event name.",
		}, []string{"event"}),
		HandlerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dchat_gateway_handler_errors_total",
			Help: "Handler failures by error category.",
		}, []string{"category"}),
		DroppedEvents: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dchat_gateway_dropped_events_total",
			Help: "Outbound events dropped on slow sessions.",
		}),
	}
}
