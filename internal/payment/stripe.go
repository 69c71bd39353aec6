package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"
)

// StripeProvider implements Provider on Stripe hosted Checkout.
type StripeProvider struct {
	webhookSecret string
}

// NewStripeProvider configures the Stripe client. An empty secret key
// leaves the provider unconfigured; calls then fail with ErrNotConfigured
// rather than reaching the network.
func NewStripeProvider(secretKey, webhookSecret string) *StripeProvider {
	stripe.Key = secretKey
	return &StripeProvider{webhookSecret: webhookSecret}
}

func (p *StripeProvider) configured() bool {
	return stripe.Key != ""
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, params *CheckoutParams) (*CheckoutSession, error) {
	if !p.configured() {
		return nil, ErrNotConfigured
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(params.LineItems))
	for _, li := range params.LineItems {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(li.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(params.Currency),
				UnitAmount: stripe.Int64(li.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:     stripe.String(li.Title),
					Metadata: map[string]string{"slug": li.Slug},
				},
			},
		})
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode:                     stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:                lineItems,
		AllowPromotionCodes:      stripe.Bool(true),
		BillingAddressCollection: stripe.String("auto"),
		SuccessURL:               stripe.String(params.SuccessURL),
		CancelURL:                stripe.String(params.CancelURL),
	}
	sessionParams.Context = ctx
	if params.CustomerEmail != "" {
		sessionParams.CustomerEmail = stripe.String(params.CustomerEmail)
	}
	for k, v := range params.Metadata {
		sessionParams.AddMetadata(k, v)
	}

	sess, err := session.New(sessionParams)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session create failed: %w", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (p *StripeProvider) GetSession(ctx context.Context, sessionID string) (*SessionDetails, error) {
	if !p.configured() {
		return nil, ErrNotConfigured
	}

	getParams := &stripe.CheckoutSessionParams{}
	getParams.Context = ctx
	getParams.AddExpand("line_items")
	getParams.AddExpand("line_items.data.price.product")

	sess, err := session.Get(sessionID, getParams)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session fetch failed: %w", err)
	}

	details := &SessionDetails{
		ID:             sess.ID,
		PaymentStatus:  string(sess.PaymentStatus),
		AmountSubtotal: sess.AmountSubtotal,
		AmountTotal:    sess.AmountTotal,
		Currency:       strings.ToLower(string(sess.Currency)),
		Metadata:       sess.Metadata,
	}
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		details.CustomerEmail = sess.CustomerDetails.Email
	} else {
		details.CustomerEmail = sess.CustomerEmail
	}

	if sess.LineItems != nil {
		for _, li := range sess.LineItems.Data {
			item := LineItem{
				Title:    li.Description,
				Quantity: li.Quantity,
			}
			if li.Price != nil {
				item.UnitAmount = li.Price.UnitAmount
				if li.Price.Product != nil {
					item.Slug = li.Price.Product.Metadata["slug"]
				}
			}
			if item.Slug == "" {
				// Sessions created before slug metadata existed.
				item.Slug = li.Description
			}
			if item.Title == "" {
				item.Title = "Item"
			}
			if item.Quantity < 1 {
				item.Quantity = 1
			}
			details.LineItems = append(details.LineItems, item)
		}
	}
	return details, nil
}

func (p *StripeProvider) VerifyWebhook(payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: event.ID, Type: string(event.Type)}
	if strings.HasPrefix(out.Type, "checkout.session.") {
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("failed to unmarshal checkout session: %w", err)
		}
		out.SessionID = sess.ID
	}
	return out, nil
}
