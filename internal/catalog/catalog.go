package catalog

// Currency is fixed for the whole store. Multi-currency is out of scope.
const Currency = "usd"

// Item is a purchasable product. The catalog is the only legitimate source
// of price and title at checkout time; client-supplied prices are never used.
type Item struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	PriceCents  int64  `json:"price_cents"`
	Image       string `json:"image,omitempty"`
}

// Free reports whether the item cannot be sent to the payment provider
// (zero-value sessions are rejected upstream).
func (i Item) Free() bool {
	return i.PriceCents <= 0
}

// Catalog is an immutable, in-process product list with slug lookup.
type Catalog struct {
	items  []Item
	bySlug map[string]Item
}

// New builds a catalog from a static item list. Later duplicates of a slug
// are ignored.
func New(items []Item) *Catalog {
	c := &Catalog{
		items:  make([]Item, 0, len(items)),
		bySlug: make(map[string]Item, len(items)),
	}
	for _, item := range items {
		if _, ok := c.bySlug[item.Slug]; ok {
			continue
		}
		c.items = append(c.items, item)
		c.bySlug[item.Slug] = item
	}
	return c
}

// Lookup resolves a product slug.
func (c *Catalog) Lookup(slug string) (Item, bool) {
	item, ok := c.bySlug[slug]
	return item, ok
}

// PriceCents returns the unit price for a slug, or 0 for unknown slugs.
// Cart subtotals tolerate unknown refs; checkout does not.
func (c *Catalog) PriceCents(slug string) int64 {
	return c.bySlug[slug].PriceCents
}

// List returns the catalog items in declaration order.
func (c *Catalog) List() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Default returns the production catalog.
func Default() *Catalog {
	return New([]Item{
		{
			Slug:        "bot-starter",
			Title:       "Discord Bot Starter",
			Description: "Command handler, database models, slash commands, and logging.",
			PriceCents:  1999,
			Image:       "/products/bot-starter.png",
		},
		{
			Slug:        "cad-starter",
			Title:       "CAD/MDT Starter",
			Description: "Web app and REST API skeleton with auth-ready structure.",
			PriceCents:  3999,
			Image:       "/products/cad-starter.png",
		},
		{
			Slug:        "payments-kit",
			Title:       "Stripe Payments Kit",
			Description: "Drop-in Stripe Checkout plus webhook boilerplate.",
			PriceCents:  1499,
			Image:       "/products/payments-kit.png",
		},
	})
}
