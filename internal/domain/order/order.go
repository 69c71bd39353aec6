package order

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusPaid     Status = "paid"
	StatusFree     Status = "free"
	StatusFailed   Status = "failed"
	StatusRefunded Status = "refunded"
)

var ErrOrderNotFound = errors.New("order not found")

// LineItem is one purchased line, derived from the payment provider's own
// record of the session, never from client input.
type LineItem struct {
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	Quantity   int64  `json:"quantity"`
	UnitAmount int64  `json:"unitAmount"` // minor currency units
}

// Order is written exactly once per completed payment session and is
// immutable afterwards except for status transitions (failed/refunded are
// modeled but not written in the current flows).
type Order struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"ownerId,omitempty"`
	Email           string     `json:"email,omitempty"`
	LineItems       []LineItem `json:"lineItems"`
	Subtotal        int64      `json:"subtotal"` // minor currency units
	Currency        string     `json:"currency"`
	StripeSessionID string     `json:"stripeSessionId,omitempty"`
	Status          Status     `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Repository persists orders. Non-null StripeSessionID values are unique;
// the uniqueness must be enforced by the persistence layer, not checked in
// application code.
type Repository interface {
	// CreateIdempotent inserts the order unless one already exists for its
	// StripeSessionID. It reports whether a row was written; a duplicate is
	// a no-op success.
	CreateIdempotent(ctx context.Context, o *Order) (created bool, err error)
	GetBySessionID(ctx context.Context, sessionID string) (*Order, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Order, error)
}

// Paid is the stream payload published after an order is fulfilled.
type Paid struct {
	OrderID  string     `json:"order_id"`
	OwnerID  string     `json:"owner_id,omitempty"`
	Email    string     `json:"email,omitempty"`
	Items    []LineItem `json:"items"`
	Subtotal int64      `json:"subtotal"`
	Currency string     `json:"currency"`
	PaidAt   time.Time  `json:"paid_at"`
}

// EventOrderPaid is the stream event type for Paid payloads.
const EventOrderPaid = "OrderPaid"
