package csrf

import (
	"context"
	"time"
)

// Record is the server-side state of an issued token. IssuedAt and
// ExpiresAt come from the same clock, so stores that need a lifetime use
// their difference rather than the wall clock.
type Record struct {
	IssuedAt  time.Time
	ExpiresAt time.Time
	Used      bool
}

// TTL is the record's lifetime. Records built without IssuedAt fall back to
// the time left on the wall clock.
func (r Record) TTL() time.Duration {
	if r.IssuedAt.IsZero() {
		return time.Until(r.ExpiresAt)
	}
	return r.ExpiresAt.Sub(r.IssuedAt)
}

// Store holds token records. Take must remove and return a record in one
// atomic step so that two concurrent validations of the same token cannot
// both observe it.
type Store interface {
	Put(ctx context.Context, token string, rec Record) error
	Take(ctx context.Context, token string) (Record, bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
