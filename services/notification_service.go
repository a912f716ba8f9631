package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cameronkey/petproduct-sp-ecom/metrics"
	"github.com/cameronkey/petproduct-sp-ecom/models"
	"github.com/cameronkey/petproduct-sp-ecom/sender"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	kindOrderConfirmation = "order_confirmation"
	kindTrackingUpdate    = "tracking_update"
	kindTest              = "test"

	displayDateLayout = "02/01/2006"
)

type emailConfig struct {
	tmplFile string
	subject  string // fmt format, receives the store name
}

var emailConfigs = map[string]emailConfig{
	kindOrderConfirmation: {
		tmplFile: "templates/order_confirmation.html",
		subject:  "Your %s Order is Ready! 🐾",
	},
	kindTrackingUpdate: {
		tmplFile: "templates/tracking_update.html",
		subject:  "Your %s Order is On The Way! 🚚",
	},
	kindTest: {
		tmplFile: "templates/test_email.html",
		subject:  "🧪 %s Email Test",
	},
}

// Branding is the store identity rendered into every email.
type Branding struct {
	StoreName    string
	ProductName  string
	SupportEmail string
	BaseURL      string
	Features     []string
}

var defaultFeatures = []string{
	"High-quality dog toy",
	"Dishwasher safe design",
	"Non-toxic materials",
	"Freezer safe for extended play",
	"Durable construction",
}

type emailData struct {
	Branding
	CustomerName      string
	OrderID           string
	OrderDate         string
	TrackingNumber    string
	Carrier           string
	EstimatedDelivery string
	SentAt            string
}

type NotificationService struct {
	emailSender sender.EmailSender
	templates   map[string]*template.Template
	brand       Branding
	now         func() time.Time
	logger      *zap.Logger
}

// NewNotificationService parses the embedded templates. emailSender may be
// nil when no mail credentials are configured; every send then fails with
// ErrEmailNotConfigured while rendering still works.
func NewNotificationService(emailSender sender.EmailSender, brand Branding, logger *zap.Logger) (*NotificationService, error) {
	if len(brand.Features) == 0 {
		brand.Features = defaultFeatures
	}
	if brand.ProductName == "" {
		brand.ProductName = "The Pupsicle"
	}

	tmpls := make(map[string]*template.Template, len(emailConfigs))
	for kind, cfg := range emailConfigs {
		tmpl, err := template.ParseFS(templateFS, cfg.tmplFile)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template for %s: %w", kind, err)
		}
		tmpls[kind] = tmpl
	}
	return &NotificationService{
		emailSender: emailSender,
		templates:   tmpls,
		brand:       brand,
		now:         time.Now,
		logger:      logger,
	}, nil
}

// Configured reports whether a mail transport is available.
func (s *NotificationService) Configured() bool {
	return s.emailSender != nil
}

func (s *NotificationService) RenderOrderConfirmation(name, orderID string) (string, error) {
	return s.render(kindOrderConfirmation, emailData{
		Branding:     s.brand,
		CustomerName: name,
		OrderID:      orderID,
		OrderDate:    s.now().Format(displayDateLayout),
	})
}

func (s *NotificationService) RenderTrackingUpdate(u models.TrackingUpdate) (string, error) {
	return s.render(kindTrackingUpdate, emailData{
		Branding:          s.brand,
		CustomerName:      u.CustomerName,
		OrderID:           u.OrderID,
		OrderDate:         s.now().Format(displayDateLayout),
		TrackingNumber:    u.TrackingNumber,
		Carrier:           u.Carrier,
		EstimatedDelivery: u.EstimatedDelivery,
	})
}

// SendOrderConfirmation renders and sends the order confirmation email.
func (s *NotificationService) SendOrderConfirmation(ctx context.Context, email, name, orderID string) error {
	body, err := s.RenderOrderConfirmation(name, orderID)
	if err != nil {
		return err
	}
	_, err = s.send(ctx, kindOrderConfirmation, email, body, zap.String("order_id", orderID))
	return err
}

// SendTrackingUpdate renders and sends the shipping notification email.
func (s *NotificationService) SendTrackingUpdate(ctx context.Context, u models.TrackingUpdate) error {
	body, err := s.RenderTrackingUpdate(u)
	if err != nil {
		return err
	}
	_, err = s.send(ctx, kindTrackingUpdate, u.CustomerEmail, body,
		zap.String("order_id", u.OrderID),
		zap.String("tracking_number", u.TrackingNumber),
	)
	return err
}

// SendTestEmail sends a short diagnostic message to the given address.
func (s *NotificationService) SendTestEmail(ctx context.Context, to string) (sender.SendResult, error) {
	body, err := s.render(kindTest, emailData{
		Branding: s.brand,
		SentAt:   s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return sender.SendResult{}, err
	}
	return s.send(ctx, kindTest, to, body)
}

// VerifyTransport checks the mail credentials when the sender supports it.
func (s *NotificationService) VerifyTransport(ctx context.Context) error {
	if s.emailSender == nil {
		return ErrEmailNotConfigured
	}
	v, ok := s.emailSender.(sender.Verifier)
	if !ok {
		return nil
	}
	return v.Verify(ctx)
}

func (s *NotificationService) render(kind string, data emailData) (string, error) {
	var buf bytes.Buffer
	if err := s.templates[kind].Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template render failed: %w", err)
	}
	return buf.String(), nil
}

func (s *NotificationService) send(ctx context.Context, kind, to, body string, fields ...zap.Field) (sender.SendResult, error) {
	if s.emailSender == nil {
		metrics.EmailsSent.WithLabelValues(kind, "unconfigured").Inc()
		return sender.SendResult{}, ErrEmailNotConfigured
	}
	if strings.TrimSpace(to) == "" {
		metrics.EmailsSent.WithLabelValues(kind, "failed").Inc()
		return sender.SendResult{}, fmt.Errorf("send %s email: empty recipient", kind)
	}

	subject := fmt.Sprintf(emailConfigs[kind].subject, s.brand.StoreName)
	result, err := s.emailSender.SendEmail(ctx, to, subject, body)
	fields = append(fields, zap.String("kind", kind))
	if err != nil {
		metrics.EmailsSent.WithLabelValues(kind, "failed").Inc()
		s.logger.Warn("email send failed", append(fields, zap.Error(err))...)
		return sender.SendResult{}, fmt.Errorf("send %s email: %w", kind, err)
	}

	metrics.EmailsSent.WithLabelValues(kind, "sent").Inc()
	s.logger.Info("email sent", append(fields, zap.String("message_id", result.MessageID))...)
	return result, nil
}
