package models

import (
	"math"
	"time"
)

// Order is a storefront order as returned by the commerce API. It is read-only
// for the engine.
type Order struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	ProductTitle  string    `json:"product_title"`
	Quantity      int       `json:"quantity"`
	TotalPrice    float64   `json:"total_price"`
	Currency      string    `json:"currency"`
	CustomerEmail string    `json:"customer_email"`
	CreatedAt     time.Time `json:"created_at"`
}

// TotalCents returns the order total rounded to whole cents.
func (o Order) TotalCents() int64 {
	return int64(math.Round(o.TotalPrice * 100))
}

// Feedback is a single storefront review entry.
type Feedback struct {
	InvoiceID string `json:"invoice_id"`
	Score     int    `json:"score"`
}

// MaxFeedbackScore is the top review rating.
const MaxFeedbackScore = 5

// Product is a catalog entry fetched from the storefront.
type Product struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Claimant identifies the chat user asking for coverage.
type Claimant struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}
