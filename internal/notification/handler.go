package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/email"
	"github.com/example/storefront/internal/infrastructure/stream"
)

// Handler turns order events into customer emails
type Handler struct {
	emailService *email.Service
}

// NewHandler creates a new notification handler
func NewHandler(emailSvc *email.Service) *Handler {
	return &Handler{
		emailService: emailSvc,
	}
}

// HandleEvent processes one event envelope from the order stream
func (h *Handler) HandleEvent(ctx context.Context, key []byte, env stream.Envelope) error {
	// Only paid orders get a receipt
	if env.Type == order.EventOrderPaid {
		return h.handleOrderPaid(env)
	}

	return nil
}

func (h *Handler) handleOrderPaid(env stream.Envelope) error {
	var e order.Paid
	if err := json.Unmarshal(env.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal OrderPaid event: %v", err)
		return err
	}

	log.Printf("[Notifier] Processing OrderPaid event for order %s", e.OrderID)

	if e.Email == "" {
		// Guest checkout without a captured email; nothing to send.
		log.Printf("[Notifier] Order %s has no customer email, skipping receipt", e.OrderID)
		return nil
	}

	emailItems := make([]email.OrderItem, len(e.Items))
	for i, item := range e.Items {
		emailItems[i] = email.OrderItem{
			Slug:       item.Slug,
			Title:      item.Title,
			Quantity:   int(item.Quantity),
			UnitAmount: item.UnitAmount,
		}
	}

	if err := h.emailService.SendOrderReceipt(e.Email, e.OrderID, e.Subtotal, e.Currency, emailItems); err != nil {
		log.Printf("[Notifier] Failed to send receipt to %s: %v", e.Email, err)
		return err
	}

	log.Printf("[Notifier] Receipt sent to %s for order %s", e.Email, e.OrderID)
	return nil
}
