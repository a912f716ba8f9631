package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/cameronkey/petproduct-sp-ecom/errors"
	"github.com/cameronkey/petproduct-sp-ecom/models"
	"github.com/cameronkey/petproduct-sp-ecom/sender"
)

// EmailDiagnostics is the notifier surface the diagnostic endpoints use.
type EmailDiagnostics interface {
	SendTestEmail(ctx context.Context, to string) (sender.SendResult, error)
	SendOrderConfirmation(ctx context.Context, email, name, orderID string) error
	RenderOrderConfirmation(name, orderID string) (string, error)
	RenderTrackingUpdate(u models.TrackingUpdate) (string, error)
}

// TestController serves the diagnostic endpoints. Routes gate it with
// middleware.TestEndpointsOnly.
type TestController struct {
	mailbox string
	emails  EmailDiagnostics
	now     func() time.Time
	logger  *zap.Logger
}

// NewTestController sends diagnostics to mailbox, normally the sending
// account itself.
func NewTestController(mailbox string, emails EmailDiagnostics, logger *zap.Logger) *TestController {
	return &TestController{mailbox: mailbox, emails: emails, now: time.Now, logger: logger}
}

// SendTestEmail handles GET /test-email
func (tc *TestController) SendTestEmail(c *gin.Context) {
	if tc.mailbox == "" {
		apperrors.Respond(c, tc.logger, apperrors.BadRequest("Email not configured"))
		return
	}
	res, err := tc.emails.SendTestEmail(c.Request.Context(), tc.mailbox)
	if err != nil {
		apperrors.Respond(c, tc.logger, apperrors.Internal("Test email failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Test email sent successfully",
		"to":        tc.mailbox,
		"messageId": res.MessageID,
	})
}

// SimulateWebhook handles GET /test-webhook by sending a confirmation for a
// made-up order straight to the mailbox. It bypasses signature checks and
// the order ledger.
func (tc *TestController) SimulateWebhook(c *gin.Context) {
	if tc.mailbox == "" {
		apperrors.Respond(c, tc.logger, apperrors.BadRequest("Email not configured"))
		return
	}
	orderID := fmt.Sprintf("cs_test_%d", tc.now().UnixMilli())
	if err := tc.emails.SendOrderConfirmation(c.Request.Context(), tc.mailbox, "Test User", orderID); err != nil {
		tc.logger.Error("simulated webhook email failed", zap.String("order_id", orderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to send confirmation email",
			"orderId": orderID,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Test webhook processed successfully",
		"orderId":   orderID,
		"emailSent": true,
	})
}

// PreviewOrderEmail handles GET /preview-email
func (tc *TestController) PreviewOrderEmail(c *gin.Context) {
	body, err := tc.emails.RenderOrderConfirmation("John Doe", "cs_test_abc123456789")
	tc.html(c, body, err)
}

// PreviewTrackingEmail handles GET /preview-tracking-email
func (tc *TestController) PreviewTrackingEmail(c *gin.Context) {
	body, err := tc.emails.RenderTrackingUpdate(models.TrackingUpdate{
		CustomerName:      "John Doe",
		OrderID:           "cs_test_abc123456789",
		TrackingNumber:    "RM123456789GB",
		Carrier:           "Royal Mail",
		EstimatedDelivery: tc.now().Add(defaultDeliveryWindow).Format("02/01/2006"),
	})
	tc.html(c, body, err)
}

func (tc *TestController) html(c *gin.Context, body string, err error) {
	if err != nil {
		apperrors.Respond(c, tc.logger, apperrors.Internal("Failed to render email preview", err))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(body))
}
