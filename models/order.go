package models

import "time"

// OrderCompletion is what a verified checkout.session.completed event yields.
type OrderCompletion struct {
	OrderID       string
	CustomerEmail string
	CustomerName  string
	AmountTotal   int64
	Currency      string
}

// OrderCompletedEvent is published to the order events topic.
type OrderCompletedEvent struct {
	EventType     string    `json:"eventType"`
	OrderID       string    `json:"orderId"`
	CustomerEmail string    `json:"customerEmail"`
	CustomerName  string    `json:"customerName"`
	AmountTotal   int64     `json:"amountTotal"`
	Currency      string    `json:"currency"`
	CompletedAt   time.Time `json:"completedAt"`
}

const EventOrderCompleted = "order_completed"

// TrackingEmailRequest is the body of POST /admin/send-tracking-email.
// Customer details are optional and looked up from the checkout session
// when absent.
type TrackingEmailRequest struct {
	OrderID           string `json:"orderId"`
	TrackingNumber    string `json:"trackingNumber"`
	Carrier           string `json:"carrier"`
	CustomerEmail     string `json:"customerEmail" binding:"omitempty,email"`
	CustomerName      string `json:"customerName"`
	EstimatedDelivery string `json:"estimatedDelivery"`
}

// MissingFields lists the required fields that are empty, by JSON name.
func (r *TrackingEmailRequest) MissingFields() []string {
	var missing []string
	if r.OrderID == "" {
		missing = append(missing, "orderId")
	}
	if r.TrackingNumber == "" {
		missing = append(missing, "trackingNumber")
	}
	if r.Carrier == "" {
		missing = append(missing, "carrier")
	}
	return missing
}

// TrackingUpdate carries everything the shipping email template needs.
type TrackingUpdate struct {
	CustomerEmail     string
	CustomerName      string
	OrderID           string
	TrackingNumber    string
	Carrier           string
	EstimatedDelivery string
}
