package mocks

import (
	"context"
	"sync"

	"github.com/example/storefront/internal/domain/order"
)

// MockOrderRepo is an in-memory order.Repository for testing. It enforces
// the same stripe_session_id uniqueness the real stores get from their
// persistence layer.
type MockOrderRepo struct {
	mu        sync.Mutex
	byID      map[string]order.Order
	bySession map[string]string // session id -> order id

	// For tracking calls in tests
	CreateCalls []order.Order
	CreateErr   error
}

// NewMockOrderRepo creates a new MockOrderRepo
func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{
		byID:      make(map[string]order.Order),
		bySession: make(map[string]string),
	}
}

func (m *MockOrderRepo) CreateIdempotent(ctx context.Context, o *order.Order) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls = append(m.CreateCalls, *o)
	if m.CreateErr != nil {
		return false, m.CreateErr
	}
	if o.StripeSessionID != "" {
		if _, exists := m.bySession[o.StripeSessionID]; exists {
			return false, nil
		}
		m.bySession[o.StripeSessionID] = o.ID
	}
	m.byID[o.ID] = *o
	return true, nil
}

func (m *MockOrderRepo) GetBySessionID(ctx context.Context, sessionID string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.bySession[sessionID]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	o := m.byID[id]
	return &o, nil
}

func (m *MockOrderRepo) ListByOwner(ctx context.Context, ownerID string) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for _, o := range m.byID {
		if o.OwnerID == ownerID {
			out = append(out, o)
		}
	}
	return out, nil
}

// Orders returns all stored orders.
func (m *MockOrderRepo) Orders() []order.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]order.Order, 0, len(m.byID))
	for _, o := range m.byID {
		out = append(out, o)
	}
	return out
}
