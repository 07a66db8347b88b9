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

	OrdersClosedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_closed_total",
		Help: "Total number of orders closed by settlement",
	})

	OrdersRefundedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_refunded_total",
		Help: "Total number of orders moved to REFUNDED",
	})

	OrderItemsChangedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_items_changed_total",
		Help: "Total number of order item mutations",
	}, []string{"action"})

	InventoryReserveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inventory_reserve_latency_seconds",
		Help:    "Latency of inventory reservation operations",
		Buckets: prometheus.DefBuckets,
	})

	InventoryReservationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_reservations_failed_total",
		Help: "Total number of failed inventory reservations",
	}, []string{"reason"})

	PaymentsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_created_total",
		Help: "Total number of payments recorded",
	}, []string{"status"})

	PaymentsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_completed_total",
		Help: "Total number of payments that reached COMPLETED",
	})

	PaymentsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_rejected_total",
		Help: "Total number of payment requests rejected by settlement rules",
	}, []string{"reason"})

	PaymentsDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_deleted_total",
		Help: "Total number of deleted payments; deletes never compensate gift cards or order status",
	}, []string{"status"})

	IdempotentReplaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_idempotent_replays_total",
		Help: "Total number of payment requests answered from an idempotency key",
	})

	GiftCardRedemptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gift_card_redemptions_total",
		Help: "Total number of gift card debits",
	}, []string{"outcome"})

	RefundsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refunds_created_total",
		Help: "Total number of refunds recorded",
	}, []string{"status"})

	RefundsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refunds_rejected_total",
		Help: "Total number of refunds rejected for exceeding the refundable amount",
	})

	SettlementLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "settlement_latency_seconds",
		Help:    "Latency of payment settlement transactions",
		Buckets: prometheus.DefBuckets,
	})

	EventsPublishFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_publish_failed_total",
		Help: "Total number of domain events that could not be published",
	}, []string{"event_type"})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"circuit"})

	CircuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circuit_breaker_failures_total",
		Help: "Total number of calls that failed through a circuit breaker",
	}, []string{"circuit"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
