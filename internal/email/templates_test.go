package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildOrderReceiptBody(t *testing.T) {
	body := BuildOrderReceiptBody("order-123", 2499, "usd", []OrderItem{
		{Slug: "paid-a", Title: "Paid A", Quantity: 1, UnitAmount: 1999},
		{Slug: "paid-b", Title: "Paid B", Quantity: 1, UnitAmount: 500},
	})

	assert.Contains(t, body, "order-123")
	assert.Contains(t, body, "Paid A")
	assert.Contains(t, body, "Paid B")
	assert.Contains(t, body, "$19.99")
	assert.Contains(t, body, "$24.99")
}

func TestBuildOrderReceiptBody_FallsBackToSlug(t *testing.T) {
	body := BuildOrderReceiptBody("order-456", 1000, "usd", []OrderItem{
		{Slug: "mystery-item", Quantity: 1, UnitAmount: 1000},
	})

	assert.Contains(t, body, "mystery-item")
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$19.99", formatAmount(1999, "usd"))
	assert.Equal(t, "$0.05", formatAmount(5, "USD"))
	assert.Equal(t, "EUR 10.00", formatAmount(1000, "eur"))
}
