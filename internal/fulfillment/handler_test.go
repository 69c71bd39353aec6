package fulfillment

import (
	"context"
	"errors"
	"testing"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/infrastructure/store/mocks"
	"github.com/example/storefront/internal/notify"
	"github.com/example/storefront/internal/payment"
	paymocks "github.com/example/storefront/internal/payment/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler() (*Handler, *paymocks.MockProvider, *mocks.MockOrderRepo) {
	provider := paymocks.NewMockProvider()
	orders := mocks.NewMockOrderRepo()
	// Unconfigured sink: notifications are best-effort no-ops in tests
	sales := notify.NewSalesNotifier(notify.NewClient("", "Sales"))
	return NewHandler(provider, orders, sales, nil), provider, orders
}

func seedCompletedSession(provider *paymocks.MockProvider, sessionID string) {
	provider.SeedSession(&payment.SessionDetails{
		ID:             sessionID,
		PaymentStatus:  "paid",
		AmountSubtotal: 2499,
		AmountTotal:    2499,
		Currency:       "usd",
		CustomerEmail:  "buyer@example.com",
		Metadata:       map[string]string{"userId": "user-1", "source": "web"},
		LineItems: []payment.LineItem{
			{Slug: "paid-a", Title: "Paid A", Quantity: 1, UnitAmount: 1999},
			{Slug: "paid-b", Title: "Paid B", Quantity: 1, UnitAmount: 500},
		},
	})
	provider.VerifyEvent = &payment.Event{
		ID:        "evt_1",
		Type:      payment.EventCheckoutCompleted,
		SessionID: sessionID,
	}
}

func TestHandleWebhook_CreatesOrderFromProviderRecord(t *testing.T) {
	h, provider, orders := newTestHandler()
	seedCompletedSession(provider, "cs_live_001")

	err := h.HandleWebhook(context.Background(), []byte(`{}`), "sig")
	require.NoError(t, err)

	// Session was re-fetched rather than trusted from the payload
	assert.Equal(t, []string{"cs_live_001"}, provider.GetCalls)

	all := orders.Orders()
	require.Len(t, all, 1)
	o := all[0]
	assert.Equal(t, "cs_live_001", o.StripeSessionID)
	assert.Equal(t, "user-1", o.OwnerID)
	assert.Equal(t, "buyer@example.com", o.Email)
	assert.Equal(t, int64(2499), o.Subtotal)
	assert.Equal(t, order.StatusPaid, o.Status)
	require.Len(t, o.LineItems, 2)
	assert.Equal(t, "paid-a", o.LineItems[0].Slug)
}

func TestHandleWebhook_DuplicateDeliveryWritesOneOrder(t *testing.T) {
	h, provider, orders := newTestHandler()
	seedCompletedSession(provider, "cs_live_002")

	require.NoError(t, h.HandleWebhook(context.Background(), []byte(`{}`), "sig"))
	// At-least-once delivery: same event again
	require.NoError(t, h.HandleWebhook(context.Background(), []byte(`{}`), "sig"))

	assert.Len(t, orders.Orders(), 1)
	// Both deliveries attempted a write; the store deduplicated
	assert.Len(t, orders.CreateCalls, 2)
}

func TestHandleWebhook_InvalidSignatureNeverCreatesOrder(t *testing.T) {
	h, provider, orders := newTestHandler()
	provider.VerifyErr = payment.ErrInvalidSignature

	err := h.HandleWebhook(context.Background(), []byte(`{}`), "bad-sig")

	assert.ErrorIs(t, err, payment.ErrInvalidSignature)
	assert.Empty(t, provider.GetCalls)
	assert.Empty(t, orders.Orders())
}

func TestHandleWebhook_UnhandledEventTypeAcknowledged(t *testing.T) {
	h, provider, orders := newTestHandler()
	provider.VerifyEvent = &payment.Event{
		ID:   "evt_2",
		Type: "invoice.paid",
	}

	err := h.HandleWebhook(context.Background(), []byte(`{}`), "sig")

	require.NoError(t, err)
	assert.Empty(t, provider.GetCalls)
	assert.Empty(t, orders.Orders())
}

func TestHandleWebhook_CompletedEventWithoutSessionID(t *testing.T) {
	h, provider, _ := newTestHandler()
	provider.VerifyEvent = &payment.Event{
		ID:   "evt_3",
		Type: payment.EventCheckoutCompleted,
	}

	err := h.HandleWebhook(context.Background(), []byte(`{}`), "sig")

	assert.Error(t, err)
}

func TestHandleWebhook_SessionFetchFailureSurfaces(t *testing.T) {
	h, provider, orders := newTestHandler()
	seedCompletedSession(provider, "cs_live_003")
	provider.GetErr = errors.New("provider timeout")

	err := h.HandleWebhook(context.Background(), []byte(`{}`), "sig")

	// Surfaced so the provider retries the delivery
	assert.Error(t, err)
	assert.Empty(t, orders.Orders())
}

func TestHandleWebhook_ZeroTotalMarksOrderFree(t *testing.T) {
	h, provider, orders := newTestHandler()
	provider.SeedSession(&payment.SessionDetails{
		ID:            "cs_live_004",
		PaymentStatus: "no_payment_required",
		AmountTotal:   0,
		Currency:      "usd",
		Metadata:      map[string]string{"userId": "user-2"},
		LineItems: []payment.LineItem{
			{Slug: "comped", Title: "Comped", Quantity: 1, UnitAmount: 0},
		},
	})
	provider.VerifyEvent = &payment.Event{
		ID:        "evt_4",
		Type:      payment.EventCheckoutCompleted,
		SessionID: "cs_live_004",
	}

	require.NoError(t, h.HandleWebhook(context.Background(), []byte(`{}`), "sig"))

	all := orders.Orders()
	require.Len(t, all, 1)
	assert.Equal(t, order.StatusFree, all[0].Status)
}

func TestHandleWebhook_OrderStoreErrorSurfaces(t *testing.T) {
	h, provider, orders := newTestHandler()
	seedCompletedSession(provider, "cs_live_005")
	orders.CreateErr = errors.New("database down")

	err := h.HandleWebhook(context.Background(), []byte(`{}`), "sig")

	assert.Error(t, err)
}
