package csrf

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cameronkey/petproduct-sp-ecom/metrics"
)

const (
	DefaultTTL           = 15 * time.Minute
	DefaultSweepInterval = 5 * time.Minute

	tokenBytes = 32
)

// Manager issues and validates single-use CSRF tokens. It does not rate
// limit; that is left to the route in front of Issue.
type Manager struct {
	store  Store
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Manager)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func NewManager(store Store, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		store:  store,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue creates a token valid for the manager's TTL.
func (m *Manager) Issue(ctx context.Context) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	token := hex.EncodeToString(buf)

	now := m.now()
	rec := Record{IssuedAt: now, ExpiresAt: now.Add(m.ttl)}
	if err := m.store.Put(ctx, token, rec); err != nil {
		return "", fmt.Errorf("store csrf token: %w", err)
	}
	metrics.CSRFTokensIssued.Inc()
	return token, nil
}

// Validate consumes token. It returns true at most once per issued token and
// never for an expired, used or unknown one. Store failures count as invalid.
func (m *Manager) Validate(ctx context.Context, token string) bool {
	if token == "" {
		metrics.CSRFValidations.WithLabelValues("invalid").Inc()
		return false
	}

	rec, ok, err := m.store.Take(ctx, token)
	if err != nil {
		m.logger.Error("csrf store lookup failed", zap.Error(err))
		metrics.CSRFValidations.WithLabelValues("error").Inc()
		return false
	}
	if !ok || rec.Used || m.now().After(rec.ExpiresAt) {
		metrics.CSRFValidations.WithLabelValues("invalid").Inc()
		return false
	}

	metrics.CSRFValidations.WithLabelValues("valid").Inc()
	return true
}

// Sweep removes expired records and returns how many were dropped.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	n, err := m.store.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("sweep csrf tokens: %w", err)
	}
	if n > 0 {
		metrics.CSRFTokensSwept.Add(float64(n))
		m.logger.Debug("swept expired csrf tokens", zap.Int("count", n))
	}
	return n, nil
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil {
				m.logger.Warn("csrf sweep failed", zap.Error(err))
			}
		}
	}
}
