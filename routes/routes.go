package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cameronkey/petproduct-sp-ecom/controllers"
	"github.com/cameronkey/petproduct-sp-ecom/middleware"
	awspkg "github.com/cameronkey/petproduct-sp-ecom/pkg/aws"
)

const (
	maxJSONBodyBytes = 10 << 20

	csrfLimitMessage   = "Too many CSRF token requests from this IP. Please wait before requesting another token."
	globalLimitMessage = "Too many requests from this IP, please try again later."
)

// Handlers groups the controllers mounted by the router.
type Handlers struct {
	Checkout *controllers.CheckoutController
	Webhook  *controllers.WebhookController
	Admin    *controllers.AdminController
	System   *controllers.SystemController
	Test     *controllers.TestController
}

type Options struct {
	Production     bool
	TestEndpoints  bool
	AllowedOrigins []string
	AdminJWTSecret string
	FrontendDir    string

	CSRFLimiter       *middleware.RateLimiter
	CSRFLimitWindow   time.Duration
	GlobalLimiter     *middleware.RateLimiter // nil disables the global limit
	GlobalLimitWindow time.Duration

	CloudWatch *awspkg.MetricsClient
	OnPanic    func(error)
	Logger     *zap.Logger
}

// NewRouter builds the gin engine with the full middleware chain.
func NewRouter(h Handlers, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.Recovery(logger, opts.OnPanic))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics())
	r.Use(middleware.MetricsMiddleware(opts.CloudWatch, "storefront"))
	r.Use(middleware.CORS(opts.AllowedOrigins))
	r.Use(middleware.SecurityHeaders(opts.Production))
	if opts.GlobalLimiter != nil {
		r.Use(middleware.RateLimitMiddleware(opts.GlobalLimiter, "global", globalLimitMessage, opts.GlobalLimitWindow))
	}

	RegisterRoutes(r, h, opts)
	RegisterPages(r, opts.FrontendDir, logger)
	return r
}

// RegisterRoutes mounts the API endpoints.
func RegisterRoutes(r *gin.Engine, h Handlers, opts Options) {
	r.GET("/health", h.System.Health)
	r.GET("/api/status", h.System.Status)
	r.GET("/api/config", middleware.NoStore(), h.System.PublicConfig)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	csrfChain := []gin.HandlerFunc{middleware.NoStore()}
	if opts.CSRFLimiter != nil {
		csrfChain = append(csrfChain,
			middleware.RateLimitMiddleware(opts.CSRFLimiter, "csrf", csrfLimitMessage, opts.CSRFLimitWindow))
	}
	r.GET("/csrf-token", append(csrfChain, h.Checkout.GetCSRFToken)...)
	r.POST("/create-checkout-session",
		middleware.NoStore(),
		middleware.BodyLimit(maxJSONBodyBytes),
		h.Checkout.CreateCheckoutSession,
	)

	// The webhook handler applies its own, smaller body cap.
	r.POST("/webhook/stripe", h.Webhook.HandleStripe)
	r.POST("/webhook/provider", h.Webhook.HandleStripe)

	admin := r.Group("/admin", middleware.AdminAuth(opts.AdminJWTSecret), middleware.NoStore())
	{
		admin.POST("/send-tracking-email", middleware.BodyLimit(maxJSONBodyBytes), h.Admin.SendTrackingEmail)
	}

	diag := r.Group("/", middleware.TestEndpointsOnly(opts.TestEndpoints))
	{
		diag.GET("/test-email", h.Test.SendTestEmail)
		diag.GET("/test-webhook", h.Test.SimulateWebhook)
		diag.GET("/preview-email", h.Test.PreviewOrderEmail)
		diag.GET("/preview-tracking-email", h.Test.PreviewTrackingEmail)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
}
