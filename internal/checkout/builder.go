package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/payment"
)

var (
	// ErrEmptyCart rejects checkout of a cart with no entries.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrFreeCartUnsupported rejects a cart whose resolved items are all
	// zero-priced; the payment provider cannot process a zero-value session.
	ErrFreeCartUnsupported = errors.New("cart only contains free items")
)

// InvalidItemsError rejects the whole checkout when any product ref fails
// catalog resolution. No partial line-item set is ever sent upstream.
type InvalidItemsError struct {
	Refs []string
}

func (e *InvalidItemsError) Error() string {
	return fmt.Sprintf("invalid product refs: %s", strings.Join(e.Refs, ", "))
}

// sessionTimeout bounds the hosted-session request so a slow provider
// cannot hang a checkout request.
const sessionTimeout = 15 * time.Second

// Builder validates a requested item list against the catalog, computes
// authoritative line items, and requests an external hosted-payment
// session. Client input is trusted only for which products and quantities,
// never for prices.
type Builder struct {
	catalog  *catalog.Catalog
	carts    *cart.Service
	payments payment.Provider
	siteURL  string
}

func NewBuilder(cat *catalog.Catalog, carts *cart.Service, payments payment.Provider, siteURL string) *Builder {
	return &Builder{
		catalog:  cat,
		carts:    carts,
		payments: payments,
		siteURL:  strings.TrimSuffix(siteURL, "/"),
	}
}

// CreateSession builds a hosted checkout session. A resolved identity makes
// the server cart authoritative and the requested list is ignored; guests
// supply the list themselves. The cart is deliberately not cleared here —
// that happens only on confirmed fulfillment, so an abandoned payment
// attempt loses nothing.
func (b *Builder) CreateSession(ctx context.Context, ownerID, email string, requested []cart.Item) (*payment.CheckoutSession, error) {
	var items []cart.Item
	if ownerID != "" {
		c, err := b.carts.Get(ctx, ownerID)
		if err != nil {
			return nil, fmt.Errorf("failed to load cart: %w", err)
		}
		items = c.Items
	} else {
		items = cart.Normalize(requested)
	}

	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	var (
		lineItems   []payment.LineItem
		invalidRefs []string
		freeRefs    []string
	)
	for _, it := range items {
		prod, ok := b.catalog.Lookup(it.ProductRef)
		if !ok {
			invalidRefs = append(invalidRefs, it.ProductRef)
			continue
		}
		if prod.Free() {
			freeRefs = append(freeRefs, prod.Slug)
			continue
		}
		lineItems = append(lineItems, payment.LineItem{
			Slug:       prod.Slug,
			Title:      prod.Title,
			Quantity:   int64(cart.ClampQuantity(it.Quantity)),
			UnitAmount: prod.PriceCents,
		})
	}

	if len(invalidRefs) > 0 {
		return nil, &InvalidItemsError{Refs: invalidRefs}
	}
	if len(lineItems) == 0 {
		if len(freeRefs) > 0 {
			return nil, ErrFreeCartUnsupported
		}
		return nil, ErrEmptyCart
	}

	params := &payment.CheckoutParams{
		LineItems:     lineItems,
		Currency:      catalog.Currency,
		SuccessURL:    b.siteURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     b.siteURL + "/cart",
		CustomerEmail: email,
		Metadata: map[string]string{
			"userId": ownerID,
			"source": "web",
		},
	}

	callCtx, cancel := context.WithTimeout(ctx, sessionTimeout)
	defer cancel()

	sess, err := b.payments.CreateCheckoutSession(callCtx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return sess, nil
}
