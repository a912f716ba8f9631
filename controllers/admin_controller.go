package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apperrors "github.com/cameronkey/petproduct-sp-ecom/errors"
	"github.com/cameronkey/petproduct-sp-ecom/middleware"
	"github.com/cameronkey/petproduct-sp-ecom/models"
	"github.com/cameronkey/petproduct-sp-ecom/services"
)

const defaultDeliveryWindow = 5 * 24 * time.Hour

type SessionLookup interface {
	GetCheckoutSession(ctx context.Context, id string) (*services.Session, error)
}

type TrackingNotifier interface {
	SendTrackingUpdate(ctx context.Context, u models.TrackingUpdate) error
}

type AdminController struct {
	sessions SessionLookup
	notifier TrackingNotifier
	now      func() time.Time
	logger   *zap.Logger
}

func NewAdminController(sessions SessionLookup, notifier TrackingNotifier, logger *zap.Logger) *AdminController {
	return &AdminController{sessions: sessions, notifier: notifier, now: time.Now, logger: logger}
}

// SendTrackingEmail handles POST /admin/send-tracking-email
func (ac *AdminController) SendTrackingEmail(c *gin.Context) {
	var req models.TrackingEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		msg := models.MsgInvalidRequestBody
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msg = models.MsgInvalidCustomer
		}
		apperrors.Respond(c, ac.logger, apperrors.New(http.StatusBadRequest, msg, err))
		return
	}
	if missing := req.MissingFields(); len(missing) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Missing required fields",
			"required": []string{"orderId", "trackingNumber", "carrier"},
			"missing":  missing,
		})
		return
	}

	if req.CustomerEmail == "" || req.CustomerName == "" {
		sess, err := ac.sessions.GetCheckoutSession(c.Request.Context(), req.OrderID)
		if err != nil {
			ac.logger.Warn("checkout session lookup failed", zap.String("order_id", req.OrderID), zap.Error(err))
		} else {
			if req.CustomerEmail == "" {
				req.CustomerEmail = sess.CustomerEmail
			}
			if req.CustomerName == "" {
				req.CustomerName = sess.CustomerName
			}
		}
	}
	if req.CustomerEmail == "" || req.CustomerName == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Customer details required when Stripe lookup fails",
			"required": []string{"customerEmail", "customerName"},
		})
		return
	}

	if req.EstimatedDelivery == "" {
		req.EstimatedDelivery = ac.now().Add(defaultDeliveryWindow).Format("02/01/2006")
	}

	ac.logger.Info("sending tracking email",
		zap.String("order_id", req.OrderID),
		zap.String("carrier", req.Carrier),
		zap.String("admin", middleware.AdminSubject(c)),
	)
	err := ac.notifier.SendTrackingUpdate(c.Request.Context(), models.TrackingUpdate{
		CustomerEmail:     req.CustomerEmail,
		CustomerName:      req.CustomerName,
		OrderID:           req.OrderID,
		TrackingNumber:    req.TrackingNumber,
		Carrier:           req.Carrier,
		EstimatedDelivery: req.EstimatedDelivery,
	})
	if err != nil {
		ac.logger.Error("tracking email failed", zap.String("order_id", req.OrderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to send tracking email",
			"orderId": req.OrderID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        "Tracking email sent successfully",
		"orderId":        req.OrderID,
		"trackingNumber": req.TrackingNumber,
		"customerEmail":  req.CustomerEmail,
	})
}
