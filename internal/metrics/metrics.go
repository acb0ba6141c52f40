package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Запросы к платформе: endpoint - имя операции, status - HTTP-код или "transport"
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopsync_api_requests_total",
		Help: "Requests sent to the commerce platform API",
	}, []string{"endpoint", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shopsync_api_request_duration_seconds",
		Help:    "Commerce platform API request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	// Повторы: reason - rate_limited, server_error, transport_error
	APIRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopsync_api_retries_total",
		Help: "Backoff waits before a repeated API request",
	}, []string{"reason"})

	DiscountsRevertedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopsync_discounts_reverted_total",
		Help: "Expired discounts reverted on the platform",
	})

	// kind - product, order, image, collect, discount; result - created, updated, failed...
	SyncItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopsync_sync_items_total",
		Help: "Items processed by sync operations",
	}, []string{"kind", "result"})

	AuditDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopsync_audit_dropped_total",
		Help: "Action log entries dropped because the queue was full",
	})
)
