// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PurchasesStarted counts purchase attempts by result: created,
	// invalid, not_found, gateway_error, error.
	PurchasesStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_purchases_total",
			Help: "Purchase initiations by result",
		},
		[]string{"result"},
	)

	// PaymentNotifications counts webhook deliveries by mapped outcome and
	// by what the confirmation did with them.
	PaymentNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_payment_notifications_total",
			Help: "Payment notifications by outcome and result",
		},
		[]string{"outcome", "result"},
	)

	TicketsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketing_tickets_issued_total",
			Help: "Tickets issued on payment confirmation",
		},
	)

	TicketValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_ticket_validations_total",
			Help: "Ticket scans by validation status",
		},
		[]string{"status"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_event_cache_requests_total",
			Help: "Event cache lookups by result",
		},
		[]string{"result"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticketing_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
