// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedQueue is the durable queue booking confirmations go to.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published when a booking is confirmed and its
// invoice minted. It carries enough for downstream consumers (notifications,
// calendar sync, accounting export) to act without querying the database.
type BookingConfirmedEvent struct {
	TenantID      uint64 `json:"tenant_id"`
	BookingID     uint64 `json:"booking_id"`
	ItemID        uint64 `json:"item_id"`
	CustomerID    uint64 `json:"customer_id"`
	InvoiceID     uint64 `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number"`
	Total         string `json:"total"` // decimal string, never a float
	Currency      string `json:"currency"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	ConfirmedAt   string `json:"confirmed_at"`
}
