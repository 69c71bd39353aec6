package cart

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State tracks where the authoritative cart lives for a session.
type State string

const (
	// StateLocalOnly means no identity is established; the local cache is
	// the only cart.
	StateLocalOnly State = "local_only"
	// StateSyncing means identity was just established and reconciliation
	// with the server cart is in progress.
	StateSyncing State = "syncing"
	// StateServerAuthoritative is the steady state after a successful sync.
	StateServerAuthoritative State = "server_authoritative"
)

// Remote is the server-side cart as seen from a session.
type Remote interface {
	Fetch(ctx context.Context) ([]Item, error)
	Replace(ctx context.Context, items []Item) ([]Item, error)
	Merge(ctx context.Context, items []Item, opToken string) ([]Item, error)
}

// LocalCache persists the session's cart between page loads. It stands in
// for browser-local storage and is never authoritative once a server cart
// exists.
type LocalCache interface {
	Load() ([]Item, bool)
	Store(items []Item)
}

// MemoryCache is an in-process LocalCache.
type MemoryCache struct {
	mu    sync.Mutex
	items []Item
	ok    bool
}

func NewMemoryCache() *MemoryCache { return &MemoryCache{} }

func (c *MemoryCache) Load() ([]Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ok {
		return nil, false
	}
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out, true
}

func (c *MemoryCache) Store(items []Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make([]Item, len(items))
	copy(c.items, items)
	c.ok = true
}

// DefaultDebounce is the quiescence window before buffered mutations are
// pushed to the server.
const DefaultDebounce = 300 * time.Millisecond

// Session is a cart scoped to one client. Mutations apply optimistically to
// in-memory state, write through to the local cache, and — once the server
// is authoritative — are pushed to the Remote after a debounce window.
// A failed push keeps the session dirty so the next mutation or Flush
// retries it.
type Session struct {
	mu       sync.Mutex
	state    State
	items    []Item
	dirty    bool
	gen      uint64
	cache    LocalCache
	remote   Remote
	debounce time.Duration
	timer    *time.Timer
}

// NewSession builds a session seeded from the local cache. It starts in
// StateLocalOnly; call Sync when an identity is established.
func NewSession(cache LocalCache, remote Remote, debounce time.Duration) *Session {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	s := &Session{
		state:    StateLocalOnly,
		cache:    cache,
		remote:   remote,
		debounce: debounce,
	}
	if items, ok := cache.Load(); ok {
		s.items = Normalize(items)
		// Cached items are a persisted anonymous cart; they have never
		// reached the server, so the first Sync must merge them.
		s.dirty = len(s.items) > 0
	}
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Items returns a copy of the current cart contents.
func (s *Session) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Subtotal derives the live subtotal from a price lookup.
func (s *Session) Subtotal(priceCents func(ref string) int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Subtotal(s.items, priceCents)
}

// Add inserts a product or adds to its quantity. Quantities clamp to at
// least 1. A new product beyond the distinct item cap is ignored.
func (s *Session) Add(productRef string, qty int) {
	if productRef == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.items {
		if it.ProductRef == productRef {
			s.items[i].Quantity = ClampQuantity(it.Quantity + ClampQuantity(qty))
			s.afterMutation()
			return
		}
	}
	if len(s.items) >= MaxDistinctItems {
		return
	}
	s.items = append(s.items, Item{ProductRef: productRef, Quantity: ClampQuantity(qty)})
	s.afterMutation()
}

// Remove deletes a product. Absence is not an error.
func (s *Session) Remove(productRef string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.items {
		if it.ProductRef == productRef {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.afterMutation()
			return
		}
	}
}

// SetQuantity sets a product's quantity, silently clamping non-positive
// input to 1. Unknown products are ignored.
func (s *Session) SetQuantity(productRef string, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.items {
		if it.ProductRef == productRef {
			s.items[i].Quantity = ClampQuantity(qty)
			s.afterMutation()
			return
		}
	}
}

// Clear empties the cart.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.afterMutation()
}

// afterMutation persists to the local cache and schedules a debounced push.
// Callers hold s.mu.
func (s *Session) afterMutation() {
	s.gen++
	s.dirty = true
	s.cache.Store(s.items)
	if s.state == StateServerAuthoritative {
		s.schedulePushLocked()
	}
}

func (s *Session) schedulePushLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		// Detached context: an abandoned caller must not cancel a
		// pending cart write.
		s.push(context.Background())
	})
}

// Flush pushes any buffered mutations immediately.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	return s.push(ctx)
}

func (s *Session) push(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateServerAuthoritative || !s.dirty {
		s.mu.Unlock()
		return nil
	}
	gen := s.gen
	items := make([]Item, len(s.items))
	copy(items, s.items)
	s.mu.Unlock()

	if _, err := s.remote.Replace(ctx, items); err != nil {
		log.Printf("[CartSession] push failed (will retry on next mutation): %v", err)
		return err
	}

	s.mu.Lock()
	if s.gen == gen {
		s.dirty = false
	}
	s.mu.Unlock()
	return nil
}

// Sync reconciles the session with the server cart. It fires the
// LocalOnly → Syncing transition once per sign-in: locally-buffered items
// are merged into the server cart (quantities add) and the merged result is
// adopted; with nothing buffered the server cart is adopted directly. On
// success the server becomes authoritative. A failed sync returns the
// session to StateLocalOnly so the next sign-in event can retry.
func (s *Session) Sync(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateLocalOnly {
		s.mu.Unlock()
		return nil
	}
	s.state = StateSyncing
	dirty := s.dirty && len(s.items) > 0
	gen := s.gen
	local := make([]Item, len(s.items))
	copy(local, s.items)
	s.mu.Unlock()

	var (
		adopted []Item
		err     error
	)
	if dirty {
		adopted, err = s.remote.Merge(ctx, local, uuid.New().String())
	} else {
		adopted, err = s.remote.Fetch(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateLocalOnly
		return err
	}
	if s.gen == gen {
		s.items = Normalize(adopted)
		s.dirty = false
	} else {
		// A mutation landed while the sync was in flight; fold it into
		// the adopted cart and let the pending push reconcile the server.
		s.items = MergeItems(adopted, s.items)
	}
	s.gen++
	s.cache.Store(s.items)
	s.state = StateServerAuthoritative
	if s.dirty {
		s.schedulePushLocked()
	}
	return nil
}

// serviceRemote adapts a Service to the Remote interface for sessions
// embedded in the same process.
type serviceRemote struct {
	svc     *Service
	ownerID string
}

// NewServiceRemote binds a session Remote to an owner's server-side cart.
func NewServiceRemote(svc *Service, ownerID string) Remote {
	return &serviceRemote{svc: svc, ownerID: ownerID}
}

func (r *serviceRemote) Fetch(ctx context.Context) ([]Item, error) {
	c, err := r.svc.Get(ctx, r.ownerID)
	if err != nil {
		return nil, err
	}
	return c.Items, nil
}

func (r *serviceRemote) Replace(ctx context.Context, items []Item) ([]Item, error) {
	c, err := r.svc.Replace(ctx, r.ownerID, items)
	if err != nil {
		return nil, err
	}
	return c.Items, nil
}

func (r *serviceRemote) Merge(ctx context.Context, items []Item, opToken string) ([]Item, error) {
	c, err := r.svc.Merge(ctx, r.ownerID, items, opToken)
	if err != nil {
		return nil, err
	}
	return c.Items, nil
}
