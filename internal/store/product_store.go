package store

import (
	"context"
	"sync"

	"bakehouse/internal/api"
	"bakehouse/internal/domain"
)

// ProductStore caches the catalog and carries the tentative stock
// overlay: optimistic decrements applied after checkout, overwritten
// wholesale by the next authoritative fetch. The server's ledger stays
// the source of truth.
type ProductStore struct {
	mu        sync.Mutex
	client    *api.Client
	products  []domain.Product
	index     map[string]int
	tentative map[string]int // product id -> quantity deducted locally
	loading   bool
	err       string
}

func NewProductStore(client *api.Client) *ProductStore {
	return &ProductStore{
		client:    client,
		index:     map[string]int{},
		tentative: map[string]int{},
	}
}

// Fetch replaces the cached catalog and discards the tentative overlay.
func (s *ProductStore) Fetch(ctx context.Context) ([]domain.Product, error) {
	s.begin()
	products, err := s.client.ListProducts(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.err = err.Error()
		return nil, err
	}
	s.products = products
	s.index = make(map[string]int, len(products))
	for i, p := range products {
		s.index[p.ID] = i
	}
	s.tentative = map[string]int{}
	return s.snapshot(), nil
}

func (s *ProductStore) begin() {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
}

// Products returns the cached catalog with the overlay applied.
func (s *ProductStore) Products() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *ProductStore) snapshot() []domain.Product {
	out := make([]domain.Product, len(s.products))
	copy(out, s.products)
	for i := range out {
		if d := s.tentative[out[i].ID]; d > 0 {
			out[i].Stock -= d
			if out[i].Stock < 0 {
				out[i].Stock = 0
			}
		}
	}
	return out
}

// StockFor reports the last-known stock for a product, overlay included.
// ok is false when the product is not in the cache.
func (s *ProductStore) StockFor(id string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return 0, false
	}
	stock := s.products[i].Stock - s.tentative[id]
	if stock < 0 {
		stock = 0
	}
	return stock, true
}

// ApplyTentative records optimistic decrements for just-ordered items.
// Not durable truth; the next Fetch reconciles.
func (s *ProductStore) ApplyTentative(items []domain.CheckoutItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		if it.Quantity > 0 {
			s.tentative[it.ProductID] += it.Quantity
		}
	}
}

func (s *ProductStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *ProductStore) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
