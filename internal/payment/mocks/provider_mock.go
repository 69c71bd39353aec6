package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/storefront/internal/payment"
)

// MockProvider is a deterministic payment.Provider for testing. Sessions it
// creates get sequential ids and can be fetched back with their line items,
// so fulfillment can be exercised without network access.
type MockProvider struct {
	mu       sync.Mutex
	sessions map[string]*payment.SessionDetails
	nextID   int

	// For tracking calls in tests
	CreateCalls []payment.CheckoutParams
	GetCalls    []string

	CreateErr error
	GetErr    error
	// VerifyEvent is returned by VerifyWebhook when VerifyErr is nil.
	VerifyEvent *payment.Event
	VerifyErr   error
	// PaymentStatus stamps sessions created through CreateCheckoutSession.
	PaymentStatus string
}

// NewMockProvider creates a new MockProvider
func NewMockProvider() *MockProvider {
	return &MockProvider{
		sessions:      make(map[string]*payment.SessionDetails),
		PaymentStatus: "paid",
	}
}

func (m *MockProvider) CreateCheckoutSession(ctx context.Context, params *payment.CheckoutParams) (*payment.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls = append(m.CreateCalls, *params)
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}

	m.nextID++
	id := fmt.Sprintf("cs_test_%03d", m.nextID)

	var subtotal int64
	items := make([]payment.LineItem, len(params.LineItems))
	copy(items, params.LineItems)
	for _, li := range items {
		subtotal += li.UnitAmount * li.Quantity
	}

	m.sessions[id] = &payment.SessionDetails{
		ID:             id,
		PaymentStatus:  m.PaymentStatus,
		AmountSubtotal: subtotal,
		AmountTotal:    subtotal,
		Currency:       params.Currency,
		CustomerEmail:  params.CustomerEmail,
		Metadata:       params.Metadata,
		LineItems:      items,
	}
	return &payment.CheckoutSession{ID: id, URL: "https://checkout.example.test/" + id}, nil
}

func (m *MockProvider) GetSession(ctx context.Context, sessionID string) (*payment.SessionDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls = append(m.GetCalls, sessionID)
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("no such session: %s", sessionID)
	}
	out := *sess
	return &out, nil
}

func (m *MockProvider) VerifyWebhook(payload []byte, signature string) (*payment.Event, error) {
	if m.VerifyErr != nil {
		return nil, m.VerifyErr
	}
	if m.VerifyEvent != nil {
		return m.VerifyEvent, nil
	}
	return nil, payment.ErrInvalidSignature
}

// SeedSession registers a session so GetSession can return it without a
// prior CreateCheckoutSession.
func (m *MockProvider) SeedSession(details *payment.SessionDetails) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[details.ID] = details
}
