package models

// CheckoutItem is one cart line as sent by the storefront. Price is in major
// currency units (pounds); the server converts it to minor units. The bounds
// keep every line between one penny and what an int64 amount can hold.
type CheckoutItem struct {
	Name     string   `json:"name" binding:"required"`
	Price    *float64 `json:"price" binding:"required,gte=0.01,lte=999999.99"`
	Quantity int64    `json:"quantity" binding:"required,gt=0,lte=1000"`
	Image    string   `json:"image"`
}

// CheckoutRequest is the body of POST /create-checkout-session. Total is the
// browser's own sum and is never used for pricing.
type CheckoutRequest struct {
	Items         []CheckoutItem `json:"items" binding:"required,min=1,dive"`
	CustomerEmail string         `json:"customerEmail" binding:"required,email"`
	CustomerName  string         `json:"customerName" binding:"required"`
	Total         float64        `json:"total"`
}

type CheckoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}
