package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cameronkey/petproduct-sp-ecom/config"
)

const (
	devStripePlaceholder  = "pk_test_placeholder_for_development"
	devEmailJSPlaceholder = "placeholder_for_development"
)

// SystemController serves health, status and public client configuration.
type SystemController struct {
	cfg     *config.Config
	started time.Time
	now     func() time.Time
	logger  *zap.Logger
}

func NewSystemController(cfg *config.Config, logger *zap.Logger) *SystemController {
	return &SystemController{cfg: cfg, started: time.Now(), now: time.Now, logger: logger}
}

func setOrMissing(v string) string {
	if v == "" {
		return "Missing"
	}
	return "Set"
}

// Health handles GET /health. Only presence of credentials is reported.
func (sc *SystemController) Health(c *gin.Context) {
	now := sc.now()
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   now.UTC().Format(time.RFC3339Nano),
		"service":     sc.cfg.StoreName + " Product Delivery",
		"environment": sc.cfg.Environment,
		"port":        sc.cfg.Port,
		"uptime":      now.Sub(sc.started).Seconds(),
		"email": gin.H{
			"configured": sc.cfg.EmailConfigured(),
			"user":       setOrMissing(sc.cfg.EmailUser),
			"pass":       setOrMissing(sc.cfg.EmailPass),
		},
	})
}

// Status handles GET /api/status
func (sc *SystemController) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   sc.cfg.StoreName + " API is running",
		"status":    "operational",
		"timestamp": sc.now().UTC().Format(time.RFC3339Nano),
		"endpoints": gin.H{
			"health":   "/health",
			"checkout": "/create-checkout-session",
			"success":  "/success",
			"cancel":   "/cancel",
			"webhook":  "/webhook/stripe",
		},
	})
}

// PublicConfig handles GET /api/config. It serves publishable keys only.
func (sc *SystemController) PublicConfig(c *gin.Context) {
	stripeKey := sc.cfg.StripePublishableKey
	emailJSKey := sc.cfg.EmailJSPublicKey

	if sc.cfg.IsProduction() {
		switch {
		case stripeKey == "":
			sc.logger.Error("STRIPE_PUBLISHABLE_KEY not configured")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Configuration incomplete",
				"message": "Stripe publishable key not configured",
			})
			return
		case emailJSKey == "":
			sc.logger.Error("EMAILJS_PUBLIC_KEY not configured")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Configuration incomplete",
				"message": "EmailJS public key not configured",
			})
			return
		}
	} else {
		if stripeKey == "" {
			sc.logger.Warn("STRIPE_PUBLISHABLE_KEY not configured, serving placeholder")
			stripeKey = devStripePlaceholder
		}
		if emailJSKey == "" {
			sc.logger.Warn("EMAILJS_PUBLIC_KEY not configured, serving placeholder")
			emailJSKey = devEmailJSPlaceholder
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"stripe":      gin.H{"publishableKey": stripeKey},
		"emailjs":     gin.H{"publicKey": emailJSKey},
		"environment": sc.cfg.Environment,
		"timestamp":   sc.now().UTC().Format(time.RFC3339Nano),
	})
}
