package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/checkout"
	"github.com/example/storefront/internal/commission"
	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/fulfillment"
	"github.com/example/storefront/internal/notify"
	"github.com/example/storefront/internal/payment"
	"github.com/example/storefront/internal/support"
)

// maxWebhookBody bounds inbound webhook payloads.
const maxWebhookBody = 1 << 20

type Handlers struct {
	catalog     *catalog.Catalog
	carts       *cart.Service
	checkout    *checkout.Builder
	fulfillment *fulfillment.Handler
	orders      order.Repository
	commissions *notify.Client
	tickets     *notify.Client
}

func NewHandlers(
	cat *catalog.Catalog,
	carts *cart.Service,
	builder *checkout.Builder,
	fulfillmentHandler *fulfillment.Handler,
	orders order.Repository,
	commissions *notify.Client,
	tickets *notify.Client,
) *Handlers {
	return &Handlers{
		catalog:     cat,
		carts:       carts,
		checkout:    builder,
		fulfillment: fulfillmentHandler,
		orders:      orders,
		commissions: commissions,
		tickets:     tickets,
	}
}

// Product Handlers

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.catalog.List())
}

// Cart Handlers

type cartRequest struct {
	Items   []cart.Item `json:"items"`
	OpToken string      `json:"opToken,omitempty"`
}

type cartResponse struct {
	Items []cart.Item `json:"items"`
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		respondJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	c, err := h.carts.Get(r.Context(), userID)
	if err != nil {
		h.respondCartError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse{Items: c.Items})
}

func (h *Handlers) ReplaceCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		respondJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req cartRequest
	// A malformed or empty body replaces with an empty cart, same as a
	// client that sent no items.
	_ = json.NewDecoder(r.Body).Decode(&req)

	c, err := h.carts.Replace(r.Context(), userID, req.Items)
	if err != nil {
		h.respondCartError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse{Items: c.Items})
}

func (h *Handlers) MergeCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		respondJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req cartRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	opToken := req.OpToken
	if opToken == "" {
		opToken = r.Header.Get("X-Cart-Op")
	}

	c, err := h.carts.Merge(r.Context(), userID, req.Items, opToken)
	if err != nil {
		h.respondCartError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse{Items: c.Items})
}

func (h *Handlers) respondCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrUnauthorized):
		respondJSONError(w, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, cart.ErrTooManyItems):
		respondJSONError(w, "Cart has too many items", http.StatusBadRequest)
	default:
		log.Printf("[API] Cart error: %v", err)
		respondJSONError(w, "Cart is unavailable", http.StatusInternalServerError)
	}
}

// Checkout Handler

type checkoutRequest struct {
	Items []cart.Item `json:"items"`
}

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var (
		userID string
		email  string
	)
	if claims, ok := middleware.GetUserFromContext(r.Context()); ok {
		userID = claims.UserID
		email = claims.Email
	}

	var req checkoutRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	sess, err := h.checkout.CreateSession(r.Context(), userID, email, req.Items)
	if err != nil {
		var invalid *checkout.InvalidItemsError
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			respondJSONError(w, "Cart is empty", http.StatusBadRequest)
		case errors.As(err, &invalid):
			respondJSON(w, http.StatusBadRequest, map[string]any{
				"error":   "Some items are invalid",
				"invalid": invalid.Refs,
			})
		case errors.Is(err, checkout.ErrFreeCartUnsupported):
			respondJSONError(w, "Cart only contains free items and cannot be checked out", http.StatusBadRequest)
		default:
			// Upstream details stay server-side.
			log.Printf("[API] Checkout error: %v", err)
			respondJSONError(w, "Unable to create checkout session", http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"sessionId":   sess.ID,
		"redirectUrl": sess.URL,
	})
}

// Webhook Handler

func (h *Handlers) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondJSONError(w, "Unreadable payload", http.StatusBadRequest)
		return
	}
	signature := r.Header.Get("Stripe-Signature")

	if err := h.fulfillment.HandleWebhook(r.Context(), payload, signature); err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			respondJSONError(w, "Invalid signature", http.StatusBadRequest)
			return
		}
		log.Printf("[API] Webhook processing error: %v", err)
		// Non-2xx so the payment provider retries delivery.
		respondJSONError(w, "Webhook processing failed", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// Order Handlers

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		respondJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orders, err := h.orders.ListByOwner(r.Context(), userID)
	if err != nil {
		log.Printf("[API] Failed to list orders: %v", err)
		respondJSONError(w, "Orders are unavailable", http.StatusInternalServerError)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// Commission Handler

func (h *Handlers) CreateCommission(w http.ResponseWriter, r *http.Request) {
	var req commission.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "Invalid request body"})
		return
	}

	if err := req.Validate(); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
		return
	}

	// The submitter has no other durable record of the request, so a
	// missing sink is a hard failure rather than a silent drop.
	if !h.commissions.Configured() {
		respondJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "Commission intake is not configured"})
		return
	}

	if err := h.commissions.Send(r.Context(), req.Embed()); err != nil {
		log.Printf("[API] Commission notification failed: %v", err)
		respondJSON(w, http.StatusBadGateway, map[string]any{"ok": false, "error": "Failed to deliver commission request"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Support Handler

func (h *Handlers) CreateSupportTicket(w http.ResponseWriter, r *http.Request) {
	var ticket support.Ticket
	if err := json.NewDecoder(r.Body).Decode(&ticket); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := ticket.Validate(); err != nil {
		respondJSONError(w, "Missing fields", http.StatusBadRequest)
		return
	}

	// Unlike commissions, tickets are accepted even without a sink; the
	// submitter gets an acknowledgement and the forward is best-effort.
	if h.tickets.Configured() {
		if err := h.tickets.Send(r.Context(), ticket.Embed()); err != nil {
			log.Printf("[API] Support ticket notification failed: %v", err)
			respondJSONError(w, "Failed to deliver support ticket", http.StatusBadGateway)
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}
