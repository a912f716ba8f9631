package services

import (
	"context"
	"errors"
	"math"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/cameronkey/petproduct-sp-ecom/metrics"
	"github.com/cameronkey/petproduct-sp-ecom/models"
)

// SessionCreator is the part of the payment provider the checkout flow needs.
type SessionCreator interface {
	Configured() bool
	CreateCheckoutSession(ctx context.Context, p SessionParams) (*Session, error)
}

type CheckoutConfig struct {
	BaseURL            string
	Currency           string
	ProductDescription string
}

type CheckoutService struct {
	provider SessionCreator
	cfg      CheckoutConfig
	logger   *zap.Logger
}

func NewCheckoutService(provider SessionCreator, cfg CheckoutConfig, logger *zap.Logger) *CheckoutService {
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &CheckoutService{provider: provider, cfg: cfg, logger: logger}
}

// MinorUnits converts a major-unit price to minor units, rounding half away
// from zero.
func MinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}

// CreateSession prices req from its items alone and opens a hosted checkout
// session. req must already have passed binding validation.
func (s *CheckoutService) CreateSession(ctx context.Context, req *models.CheckoutRequest) (*Session, error) {
	if !s.provider.Configured() {
		metrics.CheckoutSessions.WithLabelValues("unconfigured").Inc()
		return nil, ErrProviderNotConfigured
	}

	params := s.BuildParams(req)

	var computed int64
	for _, li := range params.LineItems {
		computed += li.UnitAmount * li.Quantity
	}
	if req.Total != 0 && MinorUnits(req.Total) != computed {
		s.logger.Warn("client total disagrees with item prices",
			zap.Int64("client_total", MinorUnits(req.Total)),
			zap.Int64("computed_total", computed),
		)
	}

	sess, err := s.provider.CreateCheckoutSession(ctx, params)
	if err != nil {
		result := "failed"
		if errors.Is(err, ErrProviderNotConfigured) {
			result = "unconfigured"
		}
		metrics.CheckoutSessions.WithLabelValues(result).Inc()
		return nil, err
	}

	metrics.CheckoutSessions.WithLabelValues("created").Inc()
	s.logger.Info("checkout session created",
		zap.String("session_id", sess.ID),
		zap.Int("line_items", len(params.LineItems)),
		zap.Int64("amount", computed),
	)
	return sess, nil
}

// BuildParams maps a checkout request onto provider session parameters.
func (s *CheckoutService) BuildParams(req *models.CheckoutRequest) SessionParams {
	params := SessionParams{
		Currency:      s.cfg.Currency,
		SuccessURL:    s.cfg.BaseURL + "/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.cfg.BaseURL + "/cancel",
		CustomerEmail: req.CustomerEmail,
		Metadata: map[string]string{
			"customerName":  req.CustomerName,
			"customerEmail": req.CustomerEmail,
		},
	}
	for _, item := range req.Items {
		var price float64
		if item.Price != nil {
			price = *item.Price
		}
		params.LineItems = append(params.LineItems, LineItem{
			Name:        item.Name,
			Description: s.cfg.ProductDescription,
			ImageURL:    s.absoluteURL(item.Image),
			UnitAmount:  MinorUnits(price),
			Quantity:    item.Quantity,
		})
	}
	return params
}

// absoluteURL resolves site-relative image paths against the base URL; the
// provider only accepts absolute image URLs.
func (s *CheckoutService) absoluteURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		if u.Scheme != "http" && u.Scheme != "https" {
			return ""
		}
		return u.String()
	}
	base, err := url.Parse(s.cfg.BaseURL + "/")
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}
