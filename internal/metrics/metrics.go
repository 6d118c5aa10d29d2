package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// Deposits observed on the change feed or via backfill
	DepositsSeen = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deposits_seen_total",
			Help: "Pending deposits picked up for notification",
		},
	)

	// Operator decisions
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decisions_total",
			Help: "Operator decisions applied",
		},
		[]string{"outcome"}, // approved|rejected
	)

	// Notification pipeline
	NotifyQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notify_queue_depth",
			Help: "Current notification queue depth",
		},
	)
	NotifyRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_retries_total",
			Help: "Notification dispatches requeued after failure",
		},
	)
	NotifyDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_dropped_total",
			Help: "Notification tasks dropped after exhausting retries",
		},
	)

	RelayErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_errors_total",
			Help: "Errors encountered by the relay",
		},
	)
)

// /metrics endpoint handler
var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(DepositsSeen)
	prometheus.MustRegister(DecisionsTotal)
	prometheus.MustRegister(NotifyQueueDepth)
	prometheus.MustRegister(NotifyRetries)
	prometheus.MustRegister(NotifyDropped)
	prometheus.MustRegister(RelayErrors)
}
