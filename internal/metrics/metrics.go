// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// RequestsTotal counts authenticated API requests by route and status.
	RequestsTotal *prometheus.CounterVec

	// AuthDenials counts rejected requests by reason
	// (no_key, invalid_key, invalid_signature, rate_limited).
	AuthDenials *prometheus.CounterVec

	// WebhookDeliveries counts outbound deliveries by outcome
	// (delivered, rejected, failed, no_webhook).
	WebhookDeliveries *prometheus.CounterVec

	// InboundEvents counts received webhook events by type.
	InboundEvents *prometheus.CounterVec
}

// New registers the collectors on reg. Passing nil binds them to a private
// registry, which keeps callers nil-free in tests.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "site_connect_requests_total",
			Help: "Total number of API requests.",
		}, []string{"route", "status"}),

		AuthDenials: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "site_connect_auth_denials_total",
			Help: "Total number of denied requests by reason.",
		}, []string{"reason"}),

		WebhookDeliveries: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "site_connect_webhook_deliveries_total",
			Help: "Total number of outbound webhook deliveries by outcome.",
		}, []string{"outcome"}),

		InboundEvents: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "site_connect_inbound_events_total",
			Help: "Total number of inbound webhook events by type.",
		}, []string{"event"}),
	}
}
