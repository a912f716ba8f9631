package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts requests by route template and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)

	// CSRFTokensIssued counts tokens handed out by GET /csrf-token.
	CSRFTokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_csrf_tokens_issued_total",
			Help: "Total number of CSRF tokens issued",
		},
	)

	// CSRFValidations counts validation outcomes: valid, invalid or error.
	CSRFValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_csrf_validations_total",
			Help: "CSRF token validations by result",
		},
		[]string{"result"},
	)

	CSRFTokensSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_csrf_tokens_swept_total",
			Help: "Total number of expired CSRF tokens removed by the sweeper",
		},
	)

	// CheckoutSessions counts session-creation attempts by result.
	CheckoutSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_checkout_sessions_total",
			Help: "Checkout session creation attempts by result",
		},
		[]string{"result"},
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_provider_request_duration_seconds",
			Help:    "Duration of payment provider API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// ProviderCircuitState is 0 closed, 1 half-open, 2 open.
	ProviderCircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storefront_provider_circuit_state",
			Help: "Payment provider circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// WebhookEvents counts verified webhook events by type, plus
	// signature failures under type "invalid_signature".
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_webhook_events_total",
			Help: "Webhook events received by type",
		},
		[]string{"type"},
	)

	// EmailsSent counts outbound emails by template and result.
	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_emails_sent_total",
			Help: "Outbound emails by kind and result",
		},
		[]string{"kind", "result"},
	)

	BackgroundTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_background_tasks_total",
			Help: "Background tasks by name and result (ok, failed, dropped)",
		},
		[]string{"task", "result"},
	)

	BackgroundQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_background_queue_depth",
			Help: "Number of background tasks waiting for a worker",
		},
	)

	DuplicateOrders = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_duplicate_orders_total",
			Help: "Completed-checkout events skipped because the order was already handled",
		},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_rate_limited_total",
			Help: "Requests rejected by a rate limiter",
		},
		[]string{"limiter"},
	)
)
