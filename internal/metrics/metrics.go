package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officexpress_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "officexpress_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RefundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officexpress_refunds_total",
			Help: "Refund candidates handled by batches, by outcome",
		},
		[]string{"category", "outcome"},
	)

	RefundedAmountTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officexpress_refunded_amount_total",
			Help: "Sum of refunds credited to wallets",
		},
		[]string{"category"},
	)

	RefundBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officexpress_refund_batches_total",
			Help: "Refund batch runs, by result",
		},
		[]string{"result"},
	)

	RefundBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "officexpress_refund_batch_duration_seconds",
			Help:    "Wall time of a refund batch",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	AdminAdjustmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officexpress_admin_adjustments_total",
			Help: "Manual wallet adjustments, by type",
		},
		[]string{"type"},
	)

	SubscriptionCancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "officexpress_subscription_cancellations_total",
			Help: "Subscriptions moved to pending_cancellation",
		},
	)

	TripClosuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officexpress_trip_closures_total",
			Help: "Trips cancelled or marked missed",
		},
		[]string{"status"},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officexpress_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "officexpress_email_queue_length",
			Help: "Current length of email queue",
		},
	)

	EmailQueueErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "officexpress_email_queue_errors_total",
			Help: "Total number of failed email queue reads",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordRefund counts one candidate. amount is only added for credited
// refunds; it is a float here because Prometheus samples are.
func RecordRefund(category, outcome string, amount float64) {
	RefundsTotal.WithLabelValues(category, outcome).Inc()
	if outcome == "processed" && amount > 0 {
		RefundedAmountTotal.WithLabelValues(category).Add(amount)
	}
}

func RecordRefundBatch(result string, seconds float64) {
	RefundBatchesTotal.WithLabelValues(result).Inc()
	if result == "completed" {
		RefundBatchDuration.Observe(seconds)
	}
}

func RecordAdjustment(kind string) {
	AdminAdjustmentsTotal.WithLabelValues(kind).Inc()
}

func RecordSubscriptionCancellation() {
	SubscriptionCancellationsTotal.Inc()
}

func RecordTripClosure(status string) {
	TripClosuresTotal.WithLabelValues(status).Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}

func RecordEmailQueueError() {
	EmailQueueErrorsTotal.Inc()
}
