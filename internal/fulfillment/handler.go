package fulfillment

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/infrastructure/stream"
	"github.com/example/storefront/internal/notify"
	"github.com/example/storefront/internal/payment"
)

// fetchTimeout bounds the authoritative session re-fetch.
const fetchTimeout = 15 * time.Second

// Handler consumes verified payment-confirmation events and persists an
// Order exactly once per completed session. The event payload is trusted
// only for the session id; line items are re-fetched from the provider's
// own record.
type Handler struct {
	payments  payment.Provider
	orders    order.Repository
	sales     *notify.SalesNotifier
	publisher *stream.Publisher // optional
}

func NewHandler(payments payment.Provider, orders order.Repository, sales *notify.SalesNotifier, publisher *stream.Publisher) *Handler {
	return &Handler{
		payments:  payments,
		orders:    orders,
		sales:     sales,
		publisher: publisher,
	}
}

// HandleWebhook verifies and processes one inbound webhook delivery.
// Signature failures return payment.ErrInvalidSignature without any further
// processing. Verified but unhandled event types are acknowledged as no-ops
// to stay forward-compatible.
func (h *Handler) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := h.payments.VerifyWebhook(payload, signature)
	if err != nil {
		return err
	}

	if event.Type != payment.EventCheckoutCompleted {
		log.Printf("[Fulfillment] Ignoring event type %s", event.Type)
		return nil
	}
	if event.SessionID == "" {
		return fmt.Errorf("completed event %s carries no session id", event.ID)
	}

	return h.fulfillSession(ctx, event.SessionID)
}

func (h *Handler) fulfillSession(ctx context.Context, sessionID string) error {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	sess, err := h.payments.GetSession(fetchCtx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to fetch session %s: %w", sessionID, err)
	}

	lineItems := make([]order.LineItem, 0, len(sess.LineItems))
	for _, li := range sess.LineItems {
		lineItems = append(lineItems, order.LineItem{
			Slug:       li.Slug,
			Title:      li.Title,
			Quantity:   li.Quantity,
			UnitAmount: li.UnitAmount,
		})
	}

	subtotal := sess.AmountSubtotal
	if subtotal == 0 {
		subtotal = sess.AmountTotal
	}

	status := order.StatusPaid
	if sess.AmountTotal == 0 {
		status = order.StatusFree
	}

	now := time.Now()
	o := &order.Order{
		ID:              uuid.New().String(),
		OwnerID:         sess.Metadata["userId"],
		Email:           sess.CustomerEmail,
		LineItems:       lineItems,
		Subtotal:        subtotal,
		Currency:        sess.Currency,
		StripeSessionID: sess.ID,
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	created, err := h.orders.CreateIdempotent(ctx, o)
	if err != nil {
		return fmt.Errorf("failed to persist order for session %s: %w", sessionID, err)
	}
	if !created {
		// At-least-once delivery; the first delivery already fulfilled.
		log.Printf("[Fulfillment] Session %s already fulfilled, skipping", sessionID)
		return nil
	}

	log.Printf("[Fulfillment] Order %s created for session %s (%s)", o.ID, sessionID, status)

	// Best effort from here on: a notification or publish failure must not
	// surface to the payment service, which would retry pointlessly.
	h.sales.NotifyOrder(ctx, o)
	h.publishPaid(ctx, o)
	return nil
}

func (h *Handler) publishPaid(ctx context.Context, o *order.Order) {
	if h.publisher == nil {
		return
	}
	paid := order.Paid{
		OrderID:  o.ID,
		OwnerID:  o.OwnerID,
		Email:    o.Email,
		Items:    o.LineItems,
		Subtotal: o.Subtotal,
		Currency: o.Currency,
		PaidAt:   o.CreatedAt,
	}
	if err := h.publisher.Publish(ctx, o.ID, order.EventOrderPaid, paid); err != nil {
		log.Printf("[Fulfillment] Failed to publish %s for order %s: %v", order.EventOrderPaid, o.ID, err)
	}
}
