package models

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func bindCheckout(t *testing.T, body string) (CheckoutRequest, error) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/create-checkout-session", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var req CheckoutRequest
	err := c.ShouldBindJSON(&req)
	return req, err
}

func TestCheckoutRequest_Valid(t *testing.T) {
	req, err := bindCheckout(t, `{
		"items": [{"name": "The Pupsicle", "price": 20.00, "quantity": 1, "image": "/assets/pupsicle.jpg"}],
		"customerEmail": "jo@example.com",
		"customerName": "Jo Bloggs",
		"total": 20
	}`)

	assert.NoError(t, err)
	assert.Len(t, req.Items, 1)
	assert.Equal(t, 20.0, *req.Items[0].Price)
	assert.Equal(t, int64(1), req.Items[0].Quantity)
}

func TestCheckoutItem_PriceBoundsInclusive(t *testing.T) {
	for _, price := range []string{"0.01", "999999.99"} {
		_, err := bindCheckout(t, `{"items":[{"name":"P","price":`+price+`,"quantity":1000}],"customerEmail":"jo@example.com","customerName":"Jo"}`)
		assert.NoError(t, err, "price %s", price)
	}
}

func TestCheckoutValidationMessage(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"not json", `{"items":`, MsgInvalidRequestBody},
		{"empty body", ``, MsgInvalidRequestBody},
		{"no items", `{"customerEmail":"jo@example.com","customerName":"Jo"}`, MsgInvalidItems},
		{"empty items", `{"items":[],"customerEmail":"jo@example.com","customerName":"Jo"}`, MsgInvalidItems},
		{"items not array", `{"items":"lots","customerEmail":"jo@example.com","customerName":"Jo"}`, MsgInvalidItems},
		{"zero quantity", `{"items":[{"name":"P","price":20,"quantity":0}],"customerEmail":"jo@example.com","customerName":"Jo"}`, MsgInvalidItems},
		{"negative quantity", `{"items":[{"name":"P","price":20,"quantity":-1}],"customerEmail":"jo@example.com","customerName":"Jo"}`, MsgInvalidItems},
		{"fractional quantity", `{"items":[{"name":"P","price":20,"quantity":1.5}],"customerEmail":"jo@example.com","customerName":"Jo"}`, MsgInvalidItems},
		{"missing price", `{"items":[{"name":"P","quantity":1}],"customerEmail":"jo@example.com","customerName":"Jo"}`, MsgInvalidItems},
		{"string price", `{"items":[{"name":"P","price":"20","quantity":1}],"customerEmail":"jo@example.com","customerName":"Jo"}`, MsgInvalidItems},
		{"zero price", `{"items":[{"name":"P","price":0,"quantity":1}],"customerEmail":"jo@example.com","customerName":"Jo"}`, MsgInvalidItems},
		{"sub-penny price", `{"items":[{"name":"P","price":0.001,"quantity":1}],"customerEmail":"jo@example.com","customerName":"Jo"}`, MsgInvalidItems},
		{"price too large", `{"items":[{"name":"P","price":1000000,"quantity":1}],"customerEmail":"jo@example.com","customerName":"Jo"}`, MsgInvalidItems},
		{"overflowing price", `{"items":[{"name":"P","price":1e300,"quantity":1}],"customerEmail":"jo@example.com","customerName":"Jo"}`, MsgInvalidItems},
		{"quantity too large", `{"items":[{"name":"P","price":20,"quantity":1000000000000}],"customerEmail":"jo@example.com","customerName":"Jo"}`, MsgInvalidItems},
		{"bad items beat missing email", `{"items":[],"customerName":"Jo"}`, MsgInvalidItems},
		{"missing email", `{"items":[{"name":"P","price":20,"quantity":1}],"customerName":"Jo"}`, MsgMissingCustomer},
		{"missing name", `{"items":[{"name":"P","price":20,"quantity":1}],"customerEmail":"jo@example.com"}`, MsgMissingCustomer},
		{"malformed email", `{"items":[{"name":"P","price":20,"quantity":1}],"customerEmail":"not-an-email","customerName":"Jo"}`, MsgInvalidCustomer},
		{"numeric name", `{"items":[{"name":"P","price":20,"quantity":1}],"customerEmail":"jo@example.com","customerName":42}`, MsgInvalidCustomer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := bindCheckout(t, tc.body)
			if assert.Error(t, err) {
				assert.Equal(t, tc.want, CheckoutValidationMessage(err))
			}
		})
	}
}

func TestTrackingEmailRequest_MissingFields(t *testing.T) {
	req := TrackingEmailRequest{TrackingNumber: "RM123456789GB"}
	assert.Equal(t, []string{"orderId", "carrier"}, req.MissingFields())

	req = TrackingEmailRequest{OrderID: "cs_1", TrackingNumber: "RM1", Carrier: "Royal Mail"}
	assert.Empty(t, req.MissingFields())
}
