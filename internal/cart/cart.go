// Package cart holds the set of products a shopper intends to buy.
package cart

import (
	"sync"

	"github.com/imrishuroy/go-template-storefront/internal/catalog"
)

// Item is a product plus a quantity, always >= 1 while stored.
type Item struct {
	Product  catalog.Product
	Quantity int
}

// LineTotal is price times quantity.
func (i Item) LineTotal() float64 {
	return i.Product.Price * float64(i.Quantity)
}

// Option configures a Store.
type Option func(*Store)

// WithNotifier registers a callback invoked after every AddItem, used for
// the "added to cart" confirmation.
func WithNotifier(fn func(p catalog.Product, quantity int)) Option {
	return func(s *Store) { s.onAdd = fn }
}

// Store owns one cart. All mutation goes through its methods; reads return copies.
type Store struct {
	mu    sync.RWMutex
	items []Item
	onAdd func(catalog.Product, int)
}

// New returns an empty cart.
func New(opts ...Option) *Store {
	s := &Store{}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) indexOf(productID string) int {
	for i, it := range s.items {
		if it.Product.ID == productID {
			return i
		}
	}
	return -1
}

// AddItem increments the quantity of p if present, otherwise appends it with quantity 1.
func (s *Store) AddItem(p catalog.Product) {
	s.AddQuantity(p, 1)
}

// AddQuantity adds n units of p and notifies once with the resulting
// quantity. n <= 0 is ignored.
func (s *Store) AddQuantity(p catalog.Product, n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	qty := n
	if i := s.indexOf(p.ID); i >= 0 {
		s.items[i].Quantity += n
		qty = s.items[i].Quantity
	} else {
		s.items = append(s.items, Item{Product: p, Quantity: n})
	}
	notify := s.onAdd
	s.mu.Unlock()

	if notify != nil {
		notify(p, qty)
	}
}

// RemoveItem deletes the item for productID. Unknown ids are ignored.
func (s *Store) RemoveItem(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(productID)
}

func (s *Store) removeLocked(productID string) {
	if i := s.indexOf(productID); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
}

// UpdateQuantity sets the quantity for productID. A quantity <= 0 removes the item.
func (s *Store) UpdateQuantity(productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if quantity <= 0 {
		s.removeLocked(productID)
		return
	}
	if i := s.indexOf(productID); i >= 0 {
		s.items[i].Quantity = quantity
	}
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// Items returns a copy of the cart contents in insertion order.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Total is the sum of price x quantity over all items.
func (s *Store) Total() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total float64
	for _, it := range s.items {
		total += it.LineTotal()
	}
	return total
}

// ItemCount is the sum of quantities.
func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no items.
func (s *Store) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items) == 0
}
