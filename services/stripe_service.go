package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"
	"go.uber.org/zap"

	"github.com/cameronkey/petproduct-sp-ecom/metrics"
	"github.com/cameronkey/petproduct-sp-ecom/models"
)

// LineItem is one priced line of a checkout session, already in minor units.
type LineItem struct {
	Name        string
	Description string
	ImageURL    string
	UnitAmount  int64
	Quantity    int64
}

// SessionParams is a provider-neutral checkout session request.
type SessionParams struct {
	LineItems     []LineItem
	Currency      string
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	Metadata      map[string]string
}

// Session is the subset of a provider checkout session the store uses.
type Session struct {
	ID            string
	URL           string
	CustomerEmail string
	CustomerName  string
	AmountTotal   int64
	Currency      string
	Metadata      map[string]string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// APIBaseURL overrides https://api.stripe.com; used by tests.
	APIBaseURL string
	Timeout    time.Duration
	Breaker    BreakerConfig
}

// BreakerConfig controls when provider calls stop being attempted. Zero
// fields take the defaults below.
type BreakerConfig struct {
	// MinRequests is how many calls in one Interval are needed before
	// FailureRatio is evaluated.
	MinRequests  uint32
	FailureRatio float64
	Interval     time.Duration
	// OpenTimeout is how long the breaker stays open before a probe call.
	OpenTimeout time.Duration
}

func (b BreakerConfig) withDefaults() BreakerConfig {
	if b.MinRequests == 0 {
		b.MinRequests = 5
	}
	if b.FailureRatio <= 0 {
		b.FailureRatio = 0.5
	}
	if b.Interval <= 0 {
		b.Interval = time.Minute
	}
	if b.OpenTimeout <= 0 {
		b.OpenTimeout = 30 * time.Second
	}
	return b
}

// StripeService is the payment provider adapter. Each instance owns its own
// backend so nothing touches the package-level stripe.Key.
type StripeService struct {
	sessions      *session.Client
	breaker       *gobreaker.CircuitBreaker[*stripe.CheckoutSession]
	webhookSecret string
	logger        *zap.Logger
}

func NewStripeService(cfg StripeConfig, logger *zap.Logger) *StripeService {
	s := &StripeService{webhookSecret: cfg.WebhookSecret, logger: logger}
	if cfg.SecretKey == "" {
		return s
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     logger.Sugar(),
	}
	if cfg.APIBaseURL != "" {
		backendCfg.URL = stripe.String(cfg.APIBaseURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)
	s.sessions = &session.Client{B: backend, Key: cfg.SecretKey}
	s.breaker = newProviderBreaker("stripe", cfg.Breaker.withDefaults(), logger)
	return s
}

func newProviderBreaker(name string, cfg BreakerConfig, logger *zap.Logger) *gobreaker.CircuitBreaker[*stripe.CheckoutSession] {
	metrics.ProviderCircuitState.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker[*stripe.CheckoutSession](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: providerHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("payment provider circuit state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.ProviderCircuitState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})
}

// providerHealthy treats declined cards and bad requests as answers from a
// working provider. Only transport failures, 429 and 5xx count against it.
func providerHealthy(err error) bool {
	if err == nil {
		return true
	}
	var se *stripe.Error
	if errors.As(err, &se) {
		return se.HTTPStatusCode != 0 && se.HTTPStatusCode < 500 && se.HTTPStatusCode != http.StatusTooManyRequests
	}
	return false
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// call runs fn through the breaker and records its latency under op.
func (s *StripeService) call(op string, fn func() (*stripe.CheckoutSession, error)) (*stripe.CheckoutSession, error) {
	start := time.Now()
	cs, err := s.breaker.Execute(fn)
	metrics.ProviderRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	return cs, err
}

// Configured reports whether a secret key was supplied.
func (s *StripeService) Configured() bool {
	return s.sessions != nil
}

func (s *StripeService) CreateCheckoutSession(ctx context.Context, p SessionParams) (*Session, error) {
	if !s.Configured() {
		return nil, ErrProviderNotConfigured
	}

	params := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(p.SuccessURL),
		CancelURL:          stripe.String(p.CancelURL),
	}
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	for _, li := range p.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(li.Name),
		}
		if li.Description != "" {
			product.Description = stripe.String(li.Description)
		}
		if li.ImageURL != "" {
			product.Images = stripe.StringSlice([]string{li.ImageURL})
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(p.Currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(li.UnitAmount),
			},
			Quantity: stripe.Int64(li.Quantity),
		})
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	cs, err := s.call("checkout_session_create", func() (*stripe.CheckoutSession, error) {
		return s.sessions.New(params)
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return sessionFromStripe(cs), nil
}

func (s *StripeService) GetCheckoutSession(ctx context.Context, id string) (*Session, error) {
	if !s.Configured() {
		return nil, ErrProviderNotConfigured
	}
	params := &stripe.CheckoutSessionParams{Params: stripe.Params{Context: ctx}}

	cs, err := s.call("checkout_session_get", func() (*stripe.CheckoutSession, error) {
		return s.sessions.Get(id, params)
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve checkout session %s: %w", id, err)
	}
	return sessionFromStripe(cs), nil
}

// ConstructEvent verifies sigHeader against the exact payload bytes and only
// then decodes the event.
func (s *StripeService) ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	if s.webhookSecret == "" {
		return stripe.Event{}, ErrWebhookNotConfigured
	}
	return webhook.ConstructEventWithOptions(payload, sigHeader, s.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
}

// OrderCompletionFromEvent extracts the order from a verified
// checkout.session.completed event.
func OrderCompletionFromEvent(event stripe.Event) (models.OrderCompletion, error) {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return models.OrderCompletion{}, fmt.Errorf("event %s has no data", event.ID)
	}
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return models.OrderCompletion{}, fmt.Errorf("decode checkout session from event %s: %w", event.ID, err)
	}
	sess := sessionFromStripe(&cs)
	if sess.ID == "" {
		return models.OrderCompletion{}, fmt.Errorf("event %s: checkout session has no id", event.ID)
	}
	return models.OrderCompletion{
		OrderID:       sess.ID,
		CustomerEmail: sess.CustomerEmail,
		CustomerName:  sess.CustomerName,
		AmountTotal:   sess.AmountTotal,
		Currency:      sess.Currency,
	}, nil
}

// ProviderErrorSummary returns a message that is safe to show to a shopper.
// Stripe's own error messages are written for end users; anything else is
// replaced with a generic summary.
func ProviderErrorSummary(err error) string {
	var se *stripe.Error
	if errors.As(err, &se) && se.Msg != "" {
		return se.Msg
	}
	return "Payment provider request failed"
}

// sessionFromStripe prefers customer_details, which Stripe fills from the
// payment form, and falls back to what we sent at creation time.
func sessionFromStripe(cs *stripe.CheckoutSession) *Session {
	out := &Session{
		ID:          cs.ID,
		URL:         cs.URL,
		AmountTotal: cs.AmountTotal,
		Currency:    string(cs.Currency),
		Metadata:    cs.Metadata,
	}
	if cs.CustomerDetails != nil {
		out.CustomerEmail = cs.CustomerDetails.Email
		out.CustomerName = cs.CustomerDetails.Name
	}
	if out.CustomerEmail == "" {
		out.CustomerEmail = cs.CustomerEmail
	}
	if out.CustomerEmail == "" {
		out.CustomerEmail = cs.Metadata["customerEmail"]
	}
	if out.CustomerName == "" {
		out.CustomerName = cs.Metadata["customerName"]
	}
	return out
}
