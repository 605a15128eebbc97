package models

import "time"

// Ticket is the one-per-order support channel record. A stored record means the
// ticket is open; closing removes the record, so there is no closed state on disk.
type Ticket struct {
	OrderID      string    `json:"order_id"`
	ChannelID    string    `json:"channel_id"`
	ChannelName  string    `json:"channel_name,omitempty"`
	ClaimantID   string    `json:"user_id"`
	ClaimantName string    `json:"user_name,omitempty"`
	ProductTitle string    `json:"product"`
	Quantity     int       `json:"quantity"`
	TotalPrice   float64   `json:"total_price"`
	Currency     string    `json:"currency"`
	OrderedAt    time.Time `json:"created_at"`
	OpenedAt     time.Time `json:"opened_at"`
}
