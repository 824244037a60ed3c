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

	// Sync pipeline
	TransactionsSynced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_transactions_total",
			Help: "Raw records processed by sync, by outcome",
		},
		[]string{"outcome"}, // added|duplicate|dropped
	)
	SyncFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_failures_total",
			Help: "Sync calls aborted, by stage",
		},
		[]string{"stage"}, // fetch|store|budget
	)
	SyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of sync calls",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Budget alerts
	NotificationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "budget_notifications_total",
			Help: "Budget-exceeded notifications created",
		},
	)
	DeliveryFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_delivery_failures_total",
			Help: "Failed outbound notification deliveries",
		},
		[]string{"channel"},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
)

// Handler serves /metrics.
var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(TransactionsSynced)
	prometheus.MustRegister(SyncFailures)
	prometheus.MustRegister(SyncDuration)
	prometheus.MustRegister(NotificationsCreated)
	prometheus.MustRegister(DeliveryFailures)
	prometheus.MustRegister(WorkerQueueDepth)
}
