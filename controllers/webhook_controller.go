package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"

	apperrors "github.com/cameronkey/petproduct-sp-ecom/errors"
	"github.com/cameronkey/petproduct-sp-ecom/metrics"
	"github.com/cameronkey/petproduct-sp-ecom/models"
	"github.com/cameronkey/petproduct-sp-ecom/services"
)

const (
	// Stripe events are far smaller than this.
	maxWebhookBodyBytes = 1 << 20

	stripeSignatureHeader = "Stripe-Signature"
	taskOrderConfirmation = "order_confirmation"
)

type EventVerifier interface {
	ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

type OrderCompleter interface {
	CompleteOrder(ctx context.Context, order models.OrderCompletion) error
}

type TaskSubmitter interface {
	Submit(t services.Task) error
}

// WebhookController receives provider callbacks. Fulfilment runs on the
// background dispatcher so the provider gets its acknowledgement promptly.
type WebhookController struct {
	verifier EventVerifier
	orders   OrderCompleter
	tasks    TaskSubmitter
	logger   *zap.Logger
}

func NewWebhookController(verifier EventVerifier, orders OrderCompleter, tasks TaskSubmitter, logger *zap.Logger) *WebhookController {
	return &WebhookController{verifier: verifier, orders: orders, tasks: tasks, logger: logger}
}

// HandleStripe handles POST /webhook/stripe
func (wc *WebhookController) HandleStripe(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apperrors.Respond(c, wc.logger, apperrors.New(http.StatusRequestEntityTooLarge, "Webhook payload too large", err))
			return
		}
		apperrors.Respond(c, wc.logger, apperrors.New(http.StatusBadRequest, "Invalid webhook payload", err))
		return
	}

	event, err := wc.verifier.ConstructEvent(payload, c.GetHeader(stripeSignatureHeader))
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("invalid_signature").Inc()
		if errors.Is(err, services.ErrWebhookNotConfigured) {
			wc.logger.Error("webhook received but no signing secret is configured")
		}
		apperrors.Respond(c, wc.logger, apperrors.New(http.StatusBadRequest, "Invalid webhook signature", err))
		return
	}

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		metrics.WebhookEvents.WithLabelValues("ignored").Inc()
		wc.logger.Debug("webhook event ignored", zap.String("event_id", event.ID), zap.String("type", string(event.Type)))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	metrics.WebhookEvents.WithLabelValues(string(event.Type)).Inc()

	order, err := services.OrderCompletionFromEvent(event)
	if err != nil {
		// The event is authentic; a retry would carry the same body.
		wc.logger.Error("undecodable checkout session event", zap.String("event_id", event.ID), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	wc.logger.Info("checkout completed",
		zap.String("event_id", event.ID),
		zap.String("order_id", order.OrderID),
	)
	err = wc.tasks.Submit(services.Task{
		Name: taskOrderConfirmation,
		Run: func(ctx context.Context) error {
			return wc.orders.CompleteOrder(ctx, order)
		},
	})
	if err != nil {
		wc.logger.Error("order confirmation not scheduled", zap.String("order_id", order.OrderID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
