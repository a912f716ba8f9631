package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/cameronkey/petproduct-sp-ecom/models"
	"github.com/cameronkey/petproduct-sp-ecom/sender"
	"github.com/cameronkey/petproduct-sp-ecom/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func doJSON(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

// ---- fakes ----

type fakeCheckout struct {
	calls []*models.CheckoutRequest
	sess  *services.Session
	err   error
}

func (f *fakeCheckout) CreateSession(_ context.Context, req *models.CheckoutRequest) (*services.Session, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.sess, nil
}

type fakeOrders struct {
	mu     sync.Mutex
	orders []models.OrderCompletion
}

func (f *fakeOrders) CompleteOrder(_ context.Context, o models.OrderCompletion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, o)
	return nil
}

type recordingSubmitter struct {
	tasks []services.Task
	err   error
}

func (r *recordingSubmitter) Submit(t services.Task) error {
	if r.err != nil {
		return r.err
	}
	r.tasks = append(r.tasks, t)
	return nil
}

type fakeConfirmations struct {
	mu    sync.Mutex
	count int
}

func (f *fakeConfirmations) SendOrderConfirmation(context.Context, string, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return nil
}

func (f *fakeConfirmations) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

type fakeSessions struct {
	sess *services.Session
	err  error
	ids  []string
}

func (f *fakeSessions) GetCheckoutSession(_ context.Context, id string) (*services.Session, error) {
	f.ids = append(f.ids, id)
	if f.err != nil {
		return nil, f.err
	}
	return f.sess, nil
}

type fakeTracking struct {
	updates []models.TrackingUpdate
	err     error
}

func (f *fakeTracking) SendTrackingUpdate(_ context.Context, u models.TrackingUpdate) error {
	f.updates = append(f.updates, u)
	return f.err
}

type fakeDiagnostics struct {
	testTo        []string
	confirmations []string
	err           error
}

func (f *fakeDiagnostics) SendTestEmail(_ context.Context, to string) (sender.SendResult, error) {
	f.testTo = append(f.testTo, to)
	if f.err != nil {
		return sender.SendResult{}, f.err
	}
	return sender.SendResult{MessageID: "<abc@test>"}, nil
}

func (f *fakeDiagnostics) SendOrderConfirmation(_ context.Context, email, _, orderID string) error {
	f.confirmations = append(f.confirmations, orderID+"|"+email)
	return f.err
}

func (f *fakeDiagnostics) RenderOrderConfirmation(name, orderID string) (string, error) {
	return "<p>" + name + " " + orderID + "</p>", nil
}

func (f *fakeDiagnostics) RenderTrackingUpdate(u models.TrackingUpdate) (string, error) {
	return "<p>" + u.TrackingNumber + " " + u.EstimatedDelivery + "</p>", nil
}
