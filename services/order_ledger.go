package services

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultLedgerWindow bounds how long a completed order id is remembered.
// Stripe stops retrying a webhook well within this window.
const DefaultLedgerWindow = 24 * time.Hour

// OrderLedger records which orders have already been fulfilled so webhook
// retries do not send a second confirmation.
type OrderLedger interface {
	// Claim returns true if the caller is the first to claim orderID.
	Claim(ctx context.Context, orderID string) (bool, error)
	// Release forgets orderID so a later retry can try again.
	Release(ctx context.Context, orderID string) error
}

type MemoryOrderLedger struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	window time.Duration
	now    func() time.Time
}

func NewMemoryOrderLedger(window time.Duration) *MemoryOrderLedger {
	if window <= 0 {
		window = DefaultLedgerWindow
	}
	return &MemoryOrderLedger{
		seen:   make(map[string]time.Time),
		window: window,
		now:    time.Now,
	}
}

func (l *MemoryOrderLedger) Claim(_ context.Context, orderID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, at := range l.seen {
		if now.Sub(at) >= l.window {
			delete(l.seen, id)
		}
	}
	if _, ok := l.seen[orderID]; ok {
		return false, nil
	}
	l.seen[orderID] = now
	return true, nil
}

func (l *MemoryOrderLedger) Release(_ context.Context, orderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.seen, orderID)
	return nil
}

const defaultLedgerPrefix = "storefront:order:"

// RedisOrderLedger shares the ledger between replicas with SET NX.
type RedisOrderLedger struct {
	client *redis.Client
	prefix string
	window time.Duration
}

func NewRedisOrderLedger(client *redis.Client, prefix string, window time.Duration) *RedisOrderLedger {
	if prefix == "" {
		prefix = defaultLedgerPrefix
	}
	if window <= 0 {
		window = DefaultLedgerWindow
	}
	return &RedisOrderLedger{client: client, prefix: prefix, window: window}
}

func (l *RedisOrderLedger) Claim(ctx context.Context, orderID string) (bool, error) {
	return l.client.SetNX(ctx, l.prefix+orderID, time.Now().Unix(), l.window).Result()
}

func (l *RedisOrderLedger) Release(ctx context.Context, orderID string) error {
	return l.client.Del(ctx, l.prefix+orderID).Err()
}
