// Package cart holds the cross-cutting cart state shared between direct UI
// edits and agent-pushed reconciliation. All mutation funnels through one
// mutex so the two paths cannot race on a bare object.
package cart

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/diogo/shopchat/internal/models"
)

// Listener is notified after every cart mutation. Called without the store
// lock held; implementations may read the store freely.
type Listener func()

// Store owns the client-side cart.
type Store struct {
	mu        sync.Mutex
	items     []models.CartItem
	summary   models.CartSummary
	panelOpen bool
	listeners []Listener
	logger    zerolog.Logger
}

// NewStore creates an empty cart store
func NewStore(logger zerolog.Logger) *Store {
	return &Store{logger: logger}
}

// Subscribe registers a listener for cart changes
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.Lock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l()
	}
}

// ApplySnapshot overwrites the cart with an authoritative snapshot pushed by
// the agent backend. Last writer wins: local edits made while the agent turn
// was in flight are discarded, not merged. The panel is opened so the shopper
// sees that the agent acted on the cart.
func (s *Store) ApplySnapshot(summary models.CartSummary) {
	s.mu.Lock()
	s.items = make([]models.CartItem, len(summary.Items))
	copy(s.items, summary.Items)
	s.summary = summary
	s.summary.Items = nil // item list lives in s.items
	s.panelOpen = true
	s.mu.Unlock()

	s.logger.Debug().Int("items", len(summary.Items)).Float64("total", summary.Total).Msg("cart snapshot applied")
	s.notify()
}

// AddItem adds a product locally, merging quantity on repeat adds of the same
// product/size. Totals are left untouched; only the backend computes them.
func (s *Store) AddItem(item models.CartItem) {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}

	s.mu.Lock()
	merged := false
	for i := range s.items {
		if s.items[i].ProductID == item.ProductID && s.items[i].SelectedSize == item.SelectedSize {
			s.items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		s.items = append(s.items, item)
	}
	s.mu.Unlock()

	s.notify()
}

// RemoveItem removes a product line locally
func (s *Store) RemoveItem(productID string) {
	s.mu.Lock()
	kept := s.items[:0]
	for _, item := range s.items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	s.items = kept
	s.mu.Unlock()

	s.notify()
}

// SetQuantity updates a line's quantity; zero or below removes the line
func (s *Store) SetQuantity(productID string, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(productID)
		return
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ProductID == productID {
			s.items[i].Quantity = quantity
			break
		}
	}
	s.mu.Unlock()

	s.notify()
}

// Clear empties the cart
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.summary = models.CartSummary{}
	s.mu.Unlock()

	s.notify()
}

// Items returns a copy of the cart lines
func (s *Store) Items() []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]models.CartItem, len(s.items))
	copy(items, s.items)
	return items
}

// Summary returns the last authoritative totals. Zero-valued until the agent
// has pushed a snapshot.
func (s *Store) Summary() models.CartSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Open marks the cart panel visible
func (s *Store) Open() {
	s.mu.Lock()
	s.panelOpen = true
	s.mu.Unlock()
	s.notify()
}

// Close marks the cart panel hidden
func (s *Store) Close() {
	s.mu.Lock()
	s.panelOpen = false
	s.mu.Unlock()
	s.notify()
}

// IsOpen reports cart panel visibility
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panelOpen
}
