package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cameronkey/petproduct-sp-ecom/sender"
)

type sentEmail struct {
	To      string
	Subject string
	Body    string
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (f *fakeEmailSender) SendEmail(_ context.Context, to, subject, body string) (sender.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return sender.SendResult{}, f.err
	}
	f.sent = append(f.sent, sentEmail{To: to, Subject: subject, Body: body})
	return sender.SendResult{MessageID: "<msg-1@test>", SentAt: time.Now()}, nil
}

func (f *fakeEmailSender) Sent() []sentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentEmail(nil), f.sent...)
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
	errs  []error
}

func (f *fakeNotifier) SendOrderConfirmation(_ context.Context, email, _, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, orderID+"|"+email)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	return nil
}

func (f *fakeNotifier) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type published struct {
	TopicARN  string
	EventType string
	Message   []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, topicArn, eventType string, message []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{TopicARN: topicArn, EventType: eventType, Message: message})
	return nil
}

type failingLedger struct{}

func (failingLedger) Claim(context.Context, string) (bool, error) {
	return false, errors.New("ledger down")
}

func (failingLedger) Release(context.Context, string) error { return nil }

type fakeSessionCreator struct {
	configured bool
	calls      []SessionParams
	sess       *Session
	err        error
}

func (f *fakeSessionCreator) Configured() bool { return f.configured }

func (f *fakeSessionCreator) CreateCheckoutSession(_ context.Context, p SessionParams) (*Session, error) {
	f.calls = append(f.calls, p)
	if f.err != nil {
		return nil, f.err
	}
	return f.sess, nil
}
