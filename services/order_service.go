package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cameronkey/petproduct-sp-ecom/metrics"
	"github.com/cameronkey/petproduct-sp-ecom/models"
	awspkg "github.com/cameronkey/petproduct-sp-ecom/pkg/aws"
)

// OrderNotifier sends the customer-facing confirmation for a paid order.
type OrderNotifier interface {
	SendOrderConfirmation(ctx context.Context, email, name, orderID string) error
}

type OrderService struct {
	ledger    OrderLedger
	notifier  OrderNotifier
	publisher awspkg.SNSPublisher
	topicARN  string
	cw        *awspkg.MetricsClient
	now       func() time.Time
	logger    *zap.Logger
}

type OrderServiceOption func(*OrderService)

// WithOrderEvents publishes an order_completed event for every new order.
func WithOrderEvents(publisher awspkg.SNSPublisher, topicARN string) OrderServiceOption {
	return func(s *OrderService) {
		s.publisher = publisher
		s.topicARN = topicARN
	}
}

// WithCloudWatch records order and email counters in CloudWatch.
func WithCloudWatch(cw *awspkg.MetricsClient) OrderServiceOption {
	return func(s *OrderService) { s.cw = cw }
}

func NewOrderService(ledger OrderLedger, notifier OrderNotifier, logger *zap.Logger, opts ...OrderServiceOption) *OrderService {
	s := &OrderService{
		ledger:   ledger,
		notifier: notifier,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CompleteOrder fulfils a paid order at most once per ledger window: it
// sends the confirmation email and then publishes the order event. If the
// email fails the claim is released so a provider retry can deliver it, and
// nothing is published for that attempt.
func (s *OrderService) CompleteOrder(ctx context.Context, order models.OrderCompletion) error {
	if order.CustomerEmail == "" {
		return fmt.Errorf("order %s: %w", order.OrderID, ErrCustomerDetailsUnavailable)
	}

	claimed, err := s.ledger.Claim(ctx, order.OrderID)
	switch {
	case err != nil:
		// A second email beats no email; carry on without the ledger.
		s.logger.Warn("order ledger unavailable", zap.String("order_id", order.OrderID), zap.Error(err))
		claimed = true
	case !claimed:
		metrics.DuplicateOrders.Inc()
		return fmt.Errorf("order %s: %w", order.OrderID, ErrDuplicateOrder)
	}

	if err := s.notifier.SendOrderConfirmation(ctx, order.CustomerEmail, order.CustomerName, order.OrderID); err != nil {
		s.recordCount(ctx, awspkg.MetricEmailsFailed)
		if relErr := s.ledger.Release(ctx, order.OrderID); relErr != nil {
			s.logger.Warn("order ledger release failed", zap.String("order_id", order.OrderID), zap.Error(relErr))
		}
		return fmt.Errorf("order %s confirmation: %w", order.OrderID, err)
	}

	s.publishCompleted(ctx, order)
	s.recordCount(ctx, awspkg.MetricOrdersCompleted)
	s.logger.Info("order confirmed",
		zap.String("order_id", order.OrderID),
		zap.Int64("amount_total", order.AmountTotal),
		zap.String("currency", order.Currency),
	)
	return nil
}

func (s *OrderService) publishCompleted(ctx context.Context, order models.OrderCompletion) {
	if s.publisher == nil || s.topicARN == "" {
		return
	}
	evt := models.OrderCompletedEvent{
		EventType:     models.EventOrderCompleted,
		OrderID:       order.OrderID,
		CustomerEmail: order.CustomerEmail,
		CustomerName:  order.CustomerName,
		AmountTotal:   order.AmountTotal,
		Currency:      order.Currency,
		CompletedAt:   s.now().UTC(),
	}
	body, err := json.Marshal(evt)
	if err != nil {
		s.logger.Error("marshal order event", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, s.topicARN, models.EventOrderCompleted, body); err != nil {
		s.logger.Error("publish order event failed", zap.String("order_id", order.OrderID), zap.Error(err))
	}
}

func (s *OrderService) recordCount(ctx context.Context, name string) {
	if !s.cw.IsEnabled() {
		return
	}
	if err := s.cw.RecordCount(ctx, name, map[string]string{"Service": "storefront"}); err != nil {
		s.logger.Debug("cloudwatch metric failed", zap.String("metric", name), zap.Error(err))
	}
}
