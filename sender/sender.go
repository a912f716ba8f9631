package sender

import (
	"context"
	"time"
)

type SendResult struct {
	MessageID string
	SentAt    time.Time
}

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) (SendResult, error)
}

// Verifier checks that the mail transport accepts our credentials without
// sending anything.
type Verifier interface {
	Verify(ctx context.Context) error
}
