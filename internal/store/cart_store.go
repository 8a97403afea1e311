package store

import (
	"sync"

	"bakehouse/internal/device"
	"bakehouse/internal/domain"
	applog "bakehouse/internal/log"
)

// StockLookup answers "what is the last-known stock for this product".
// The cart uses it to clamp quantities; unknown products are unbounded.
type StockLookup interface {
	StockFor(id string) (int, bool)
}

// CartStore keeps the shopping cart and its derived total, independent
// of session state. Every mutation persists to the device so the cart
// survives restarts. No network calls originate here.
type CartStore struct {
	mu    sync.Mutex
	repo  *device.CartRepo
	stock StockLookup
	items []domain.CartItem
	index map[string]int
}

func NewCartStore(repo *device.CartRepo, stock StockLookup) *CartStore {
	s := &CartStore{repo: repo, stock: stock, index: map[string]int{}}
	items, err := repo.Load()
	if err != nil {
		applog.Error("cart.restore", err, nil)
		return s
	}
	s.items = items
	for i, it := range items {
		s.index[it.ProductID] = i
	}
	return s
}

// Add puts qty units of a product in the cart, clamped to the product's
// last-known stock. A zero-stock product is a no-op. Existing entries
// keep their position and price-at-add.
func (s *CartStore) Add(p domain.Product, qty int) error {
	if qty < 1 {
		qty = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	limit, known := s.stock.StockFor(p.ID)
	if i, ok := s.index[p.ID]; ok {
		next := s.items[i].Quantity + qty
		if known && next > limit {
			next = limit
		}
		if next < 1 {
			// Stock collapsed to zero since the item was added.
			return s.removeLocked(p.ID)
		}
		s.items[i].Quantity = next
		return s.persist()
	}
	if known && limit == 0 {
		return nil
	}
	if known && qty > limit {
		qty = limit
	}
	s.items = append(s.items, domain.CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		Image:     p.Image,
		Price:     p.Price,
		Quantity:  qty,
	})
	s.index[p.ID] = len(s.items) - 1
	return s.persist()
}

func (s *CartStore) Remove(productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(productID)
}

func (s *CartStore) removeLocked(productID string) error {
	i, ok := s.index[productID]
	if !ok {
		return nil
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	delete(s.index, productID)
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j].ProductID] = j
	}
	return s.persist()
}

// UpdateQuantity sets an absolute quantity. Zero or negative removes the
// entry; anything above last-known stock clamps.
func (s *CartStore) UpdateQuantity(productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if qty <= 0 {
		return s.removeLocked(productID)
	}
	i, ok := s.index[productID]
	if !ok {
		return nil
	}
	if limit, known := s.stock.StockFor(productID); known && qty > limit {
		qty = limit
	}
	if qty < 1 {
		return s.removeLocked(productID)
	}
	s.items[i].Quantity = qty
	return s.persist()
}

func (s *CartStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.index = map[string]int{}
	return s.persist()
}

// Items returns the cart in insertion order.
func (s *CartStore) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

// Total is always derived, never stored.
func (s *CartStore) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0.0
	for _, it := range s.items {
		total += it.Subtotal()
	}
	return total
}

// ItemCount sums quantities, for UI badges.
func (s *CartStore) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

// CheckoutItems converts the cart into the order payload shape.
func (s *CartStore) CheckoutItems() []domain.CheckoutItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CheckoutItem, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, domain.CheckoutItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}

func (s *CartStore) persist() error {
	if err := s.repo.Replace(s.items); err != nil {
		applog.Error("cart.persist", err, nil)
		return err
	}
	return nil
}
