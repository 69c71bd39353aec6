package payment

import (
	"context"
	"errors"
)

var (
	// ErrInvalidSignature marks a webhook payload that failed signature
	// verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrNotConfigured marks a provider that is missing credentials.
	ErrNotConfigured = errors.New("payment provider is not configured")
)

// EventCheckoutCompleted is the provider event emitted when a hosted
// checkout session finishes payment.
const EventCheckoutCompleted = "checkout.session.completed"

// LineItem is one payable line in a checkout session. Price and title are
// always catalog-derived on the way in and provider-derived on the way out.
type LineItem struct {
	Slug       string
	Title      string
	Quantity   int64
	UnitAmount int64 // minor currency units
}

// CheckoutParams describes a hosted one-time-payment session request.
type CheckoutParams struct {
	LineItems     []LineItem
	Currency      string
	SuccessURL    string
	CancelURL     string
	CustomerEmail string // optional prefill
	Metadata      map[string]string
}

// CheckoutSession is the provider's handle to a hosted session. The caller
// performs a full navigation to URL.
type CheckoutSession struct {
	ID  string
	URL string
}

// SessionDetails is the provider's authoritative record of a session, used
// by fulfillment instead of webhook payload contents.
type SessionDetails struct {
	ID             string
	PaymentStatus  string
	AmountSubtotal int64
	AmountTotal    int64
	Currency       string
	CustomerEmail  string
	Metadata       map[string]string
	LineItems      []LineItem
}

// Event is a verified webhook event. SessionID is set for checkout session
// events; all other payload data must be re-fetched via GetSession.
type Event struct {
	ID        string
	Type      string
	SessionID string
}

// Provider is the external payment service. Implementations must verify
// webhook signatures before any payload parsing and carry bounded timeouts
// on all calls.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, params *CheckoutParams) (*CheckoutSession, error)
	GetSession(ctx context.Context, sessionID string) (*SessionDetails, error)
	VerifyWebhook(payload []byte, signature string) (*Event, error)
}
