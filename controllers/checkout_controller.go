package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/cameronkey/petproduct-sp-ecom/errors"
	"github.com/cameronkey/petproduct-sp-ecom/models"
	"github.com/cameronkey/petproduct-sp-ecom/services"
)

// CSRFHeader carries the single-use token on state-changing requests.
const CSRFHeader = "X-CSRF-Token"

type TokenIssuer interface {
	Issue(ctx context.Context) (string, error)
	Validate(ctx context.Context, token string) bool
}

type SessionCreator interface {
	CreateSession(ctx context.Context, req *models.CheckoutRequest) (*services.Session, error)
}

// CheckoutController handles the CSRF token and checkout session endpoints.
type CheckoutController struct {
	tokens   TokenIssuer
	checkout SessionCreator
	logger   *zap.Logger
}

func NewCheckoutController(tokens TokenIssuer, checkout SessionCreator, logger *zap.Logger) *CheckoutController {
	return &CheckoutController{tokens: tokens, checkout: checkout, logger: logger}
}

// GetCSRFToken handles GET /csrf-token
func (cc *CheckoutController) GetCSRFToken(c *gin.Context) {
	token, err := cc.tokens.Issue(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, cc.logger, apperrors.Internal("Failed to generate CSRF token", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// CreateCheckoutSession handles POST /create-checkout-session. The token is
// consumed before the body is looked at, so a replayed request fails even
// when its payload is valid.
func (cc *CheckoutController) CreateCheckoutSession(c *gin.Context) {
	if !cc.tokens.Validate(c.Request.Context(), c.GetHeader(CSRFHeader)) {
		apperrors.Respond(c, cc.logger, apperrors.Forbidden("Invalid CSRF token"))
		return
	}

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, cc.logger, apperrors.New(http.StatusBadRequest, models.CheckoutValidationMessage(err), err))
		return
	}

	sess, err := cc.checkout.CreateSession(c.Request.Context(), &req)
	switch {
	case errors.Is(err, services.ErrProviderNotConfigured):
		apperrors.Respond(c, cc.logger, apperrors.Internal("Payment provider configuration error", err))
		return
	case err != nil:
		appErr := apperrors.Upstream("Failed to create checkout session", err).
			WithDetails(services.ProviderErrorSummary(err))
		apperrors.Respond(c, cc.logger, appErr)
		return
	}

	c.JSON(http.StatusOK, models.CheckoutResponse{URL: sess.URL, SessionID: sess.ID})
}
