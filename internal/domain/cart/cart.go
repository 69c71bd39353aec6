package cart

import (
	"context"
	"errors"
	"time"
)

const (
	// MaxItemQuantity caps the quantity of a single product in a cart.
	MaxItemQuantity = 99
	// MaxDistinctItems caps the number of distinct products in a cart.
	MaxDistinctItems = 100
)

var (
	ErrUnauthorized = errors.New("cart owner identity is required")
	ErrTooManyItems = errors.New("cart exceeds the distinct item limit")
)

// Item is a (product reference, quantity) pair. Quantity is clamped to
// [1, MaxItemQuantity] on every mutation.
type Item struct {
	ProductRef string `json:"productRef"`
	Quantity   int    `json:"quantity"`
}

// Cart is the server-side cart for one owner. Items hold unique product
// references and preserve insertion order.
type Cart struct {
	OwnerID   string    `json:"ownerId"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ClampQuantity forces a quantity into the allowed range. Non-positive
// values become 1.
func ClampQuantity(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxItemQuantity {
		return MaxItemQuantity
	}
	return n
}

// Normalize deduplicates product refs (adding quantities), clamps
// quantities, and drops entries without a product ref. Order of first
// appearance is preserved.
func Normalize(items []Item) []Item {
	out := make([]Item, 0, len(items))
	index := make(map[string]int, len(items))
	for _, it := range items {
		if it.ProductRef == "" {
			continue
		}
		if i, ok := index[it.ProductRef]; ok {
			out[i].Quantity = ClampQuantity(out[i].Quantity + ClampQuantity(it.Quantity))
			continue
		}
		index[it.ProductRef] = len(out)
		out = append(out, Item{ProductRef: it.ProductRef, Quantity: ClampQuantity(it.Quantity)})
	}
	return out
}

// MergeItems merges incoming items into existing ones: a shared product ref
// adds quantities, a one-sided ref carries over unchanged. Existing order is
// preserved and new refs are appended in incoming order.
func MergeItems(existing, incoming []Item) []Item {
	merged := Normalize(existing)
	index := make(map[string]int, len(merged))
	for i, it := range merged {
		index[it.ProductRef] = i
	}
	for _, it := range Normalize(incoming) {
		if i, ok := index[it.ProductRef]; ok {
			merged[i].Quantity = ClampQuantity(merged[i].Quantity + it.Quantity)
			continue
		}
		index[it.ProductRef] = len(merged)
		merged = append(merged, it)
	}
	return merged
}

// Subtotal sums unit price times quantity over all items using the supplied
// price lookup. It is derived live and never stored.
func Subtotal(items []Item, priceCents func(ref string) int64) int64 {
	var total int64
	for _, it := range items {
		total += priceCents(it.ProductRef) * int64(it.Quantity)
	}
	return total
}

// Repository persists carts keyed uniquely by owner id.
type Repository interface {
	// Get returns the stored cart, or nil when the owner has none.
	Get(ctx context.Context, ownerID string) (*Cart, error)
	// Save upserts the cart for cart.OwnerID.
	Save(ctx context.Context, c *Cart) error
	// Delete removes the cart. Absence is not an error.
	Delete(ctx context.Context, ownerID string) error

	// SeenMergeToken reports whether a merge with this client-generated
	// token was already applied for the owner.
	SeenMergeToken(ctx context.Context, ownerID, token string) (bool, error)
	// RecordMergeToken marks a merge token as applied.
	RecordMergeToken(ctx context.Context, ownerID, token string, ttl time.Duration) error
}

// MergeTokenTTL bounds how long applied merge tokens are remembered.
// Retries past this window double-count, which matches the accepted-risk
// window for un-tokened merges.
const MergeTokenTTL = 24 * time.Hour

// Service implements the server-side cart operations. Every operation
// requires a resolved owner identity; an empty owner id short-circuits with
// ErrUnauthorized before persistence is touched.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the owner's cart. Absence is an empty cart, not an error.
func (s *Service) Get(ctx context.Context, ownerID string) (*Cart, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}
	c, err := s.repo.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return &Cart{OwnerID: ownerID, Items: []Item{}}, nil
	}
	c.Items = Normalize(c.Items)
	return c, nil
}

// Replace overwrites the owner's cart with the given items.
func (s *Service) Replace(ctx context.Context, ownerID string, items []Item) (*Cart, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}
	normalized := Normalize(items)
	if len(normalized) > MaxDistinctItems {
		return nil, ErrTooManyItems
	}
	c := &Cart{OwnerID: ownerID, Items: normalized, UpdatedAt: time.Now()}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Merge adds incoming quantities into the owner's cart and returns the new
// authoritative cart. A non-empty opToken dedupes retried merges: a token
// that was already applied returns the current cart without re-adding.
func (s *Service) Merge(ctx context.Context, ownerID string, incoming []Item, opToken string) (*Cart, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}

	if opToken != "" {
		seen, err := s.repo.SeenMergeToken(ctx, ownerID, opToken)
		if err != nil {
			return nil, err
		}
		if seen {
			return s.Get(ctx, ownerID)
		}
	}

	existing, err := s.repo.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	var base []Item
	if existing != nil {
		base = existing.Items
	}

	merged := MergeItems(base, incoming)
	if len(merged) > MaxDistinctItems {
		return nil, ErrTooManyItems
	}

	c := &Cart{OwnerID: ownerID, Items: merged, UpdatedAt: time.Now()}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	if opToken != "" {
		if err := s.repo.RecordMergeToken(ctx, ownerID, opToken, MergeTokenTTL); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Clear empties the owner's cart.
func (s *Service) Clear(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return ErrUnauthorized
	}
	return s.repo.Delete(ctx, ownerID)
}
