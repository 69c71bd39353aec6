package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/example/storefront/internal/domain/cart"
)

// MockCartRepo is an in-memory cart.Repository for testing.
type MockCartRepo struct {
	mu     sync.RWMutex
	carts  map[string]cart.Cart
	tokens map[string]bool

	// For tracking calls in tests
	SaveCalls  []cart.Cart
	GetErr     error
	SaveErr    error
	DeleteErr  error
	MergeCalls int
}

// NewMockCartRepo creates a new MockCartRepo
func NewMockCartRepo() *MockCartRepo {
	return &MockCartRepo{
		carts:  make(map[string]cart.Cart),
		tokens: make(map[string]bool),
	}
}

func (m *MockCartRepo) Get(ctx context.Context, ownerID string) (*cart.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	c, ok := m.carts[ownerID]
	if !ok {
		return nil, nil
	}
	out := c
	out.Items = append([]cart.Item(nil), c.Items...)
	return &out, nil
}

func (m *MockCartRepo) Save(ctx context.Context, c *cart.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *c
	stored.Items = append([]cart.Item(nil), c.Items...)
	m.SaveCalls = append(m.SaveCalls, stored)
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.carts[c.OwnerID] = stored
	return nil
}

func (m *MockCartRepo) Delete(ctx context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.carts, ownerID)
	return nil
}

func (m *MockCartRepo) SeenMergeToken(ctx context.Context, ownerID, token string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens[ownerID+"#"+token], nil
}

func (m *MockCartRepo) RecordMergeToken(ctx context.Context, ownerID, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[ownerID+"#"+token] = true
	return nil
}
