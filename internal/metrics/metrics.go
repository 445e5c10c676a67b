package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Events           *prometheus.CounterVec
	ListingsCreated  prometheus.Counter
	ListingsDeleted  prometheus.Counter
	Searches         *prometheus.CounterVec
	DeliveryFailures prometheus.Counter
	Throttled        prometheus.Counter
	HandlerPanics    prometheus.Counter
	ActiveSessions   prometheus.Gauge
	SessionsExpired  prometheus.Counter
}

// New builds the bot metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "detaltap_events_total",
			Help: "Inbound user events by kind",
		}, []string{"kind"}),
		ListingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detaltap_listings_created_total",
			Help: "Listings committed from confirmed uploads",
		}),
		ListingsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detaltap_listings_deleted_total",
			Help: "Listings removed by admins",
		}),
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "detaltap_searches_total",
			Help: "Searches run by mode",
		}, []string{"mode"}),
		DeliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detaltap_delivery_failures_total",
			Help: "Messages that could not reach their recipient",
		}),
		Throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detaltap_events_throttled_total",
			Help: "Events dropped by the per-user rate limit",
		}),
		HandlerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detaltap_handler_panics_total",
			Help: "Recovered panics while handling an event",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "detaltap_active_sessions",
			Help: "Live conversation sessions after the last sweep",
		}),
		SessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "detaltap_sessions_expired_total",
			Help: "Idle sessions evicted by the janitor",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.Events, m.ListingsCreated, m.ListingsDeleted, m.Searches,
			m.DeliveryFailures, m.Throttled, m.HandlerPanics, m.ActiveSessions, m.SessionsExpired,
		)
	}
	return m
}
