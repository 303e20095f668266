package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Total number of rejected order requests",
	}, []string{"reason"})

	OrderStockConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_stock_conflicts_total",
		Help: "Orders that passed validation but lost the stock to a concurrent commit",
	})

	OrderProcessingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_processing_latency_seconds",
		Help:    "Latency of order processing including validation",
		Buckets: prometheus.DefBuckets,
	})

	ProductStock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "product_stock",
		Help: "Remaining stock per product",
	}, []string{"product_id"})

	UsersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "users_created_total",
		Help: "Total number of users created",
	})

	EventsPublishFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_publish_failed_total",
		Help: "Total number of domain events that failed to publish",
	}, []string{"event_type"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPPanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "http_panics_recovered_total",
		Help: "Total number of handler panics recovered",
	})
)
