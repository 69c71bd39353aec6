package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/example/storefront/internal/domain/order"
)

const salesEmbedColor = 0x22c55e

// SalesNotifier sends best-effort new-order pings. Failures are logged and
// swallowed; they never roll back or block fulfillment.
type SalesNotifier struct {
	client *Client
}

func NewSalesNotifier(client *Client) *SalesNotifier {
	return &SalesNotifier{client: client}
}

// NotifyOrder posts a summary of a fulfilled order.
func (n *SalesNotifier) NotifyOrder(ctx context.Context, o *order.Order) {
	if !n.client.Configured() {
		log.Println("[Notify] sales webhook URL missing; skipping notification")
		return
	}

	title := "New paid order"
	if o.Status == order.StatusFree {
		title = "New free order"
	}

	email := o.Email
	if email == "" {
		email = "unknown"
	}

	var items []string
	for _, li := range o.LineItems {
		items = append(items, fmt.Sprintf("• %s × %d", li.Title, li.Quantity))
	}
	breakdown := strings.Join(items, "\n")
	if breakdown == "" {
		breakdown = "-"
	}

	embed := Embed{
		Title:       title,
		Description: fmt.Sprintf("Session `%s`", o.StripeSessionID),
		Color:       salesEmbedColor,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Fields: []Field{
			{Name: "Customer", Value: email, Inline: true},
			{Name: "Total", Value: FormatAmount(o.Subtotal, o.Currency), Inline: true},
			{Name: "Items", Value: breakdown},
		},
	}

	if err := n.client.Send(ctx, embed); err != nil {
		log.Printf("[Notify] sales notification failed for order %s: %v", o.ID, err)
	}
}

// FormatAmount renders minor currency units as "12.34 USD".
func FormatAmount(minor int64, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(minor)/100, strings.ToUpper(currency))
}
