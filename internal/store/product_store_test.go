package store_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"bakehouse/internal/api"
	"bakehouse/internal/domain"
	"bakehouse/internal/store"
)

func catalogServer(t *testing.T, stock *int64) *store.ProductStore {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"sourdough-01","name":"Sourdough","price":6.5,"stock":` +
			strconv.FormatInt(atomic.LoadInt64(stock), 10) + `}]`))
	}))
	t.Cleanup(srv.Close)
	return store.NewProductStore(api.NewClient(srv.URL, 5*time.Second, nil))
}

func TestTentativeOverlay(t *testing.T) {
	serverStock := int64(12)
	products := catalogServer(t, &serverStock)

	ctx := context.Background()
	if _, err := products.Fetch(ctx); err != nil {
		t.Fatal(err)
	}
	if got, _ := products.StockFor("sourdough-01"); got != 12 {
		t.Fatalf("stock = %d, want 12", got)
	}

	// Optimistic decrement after checkout.
	products.ApplyTentative([]domain.CheckoutItem{{ProductID: "sourdough-01", Quantity: 5}})
	if got, _ := products.StockFor("sourdough-01"); got != 7 {
		t.Fatalf("overlaid stock = %d, want 7", got)
	}
	if got := products.Products()[0].Stock; got != 7 {
		t.Fatalf("snapshot stock = %d, want 7", got)
	}

	// Overlay never goes below zero.
	products.ApplyTentative([]domain.CheckoutItem{{ProductID: "sourdough-01", Quantity: 100}})
	if got, _ := products.StockFor("sourdough-01"); got != 0 {
		t.Fatalf("overlaid stock = %d, want 0", got)
	}

	// The next authoritative fetch overwrites the overlay.
	atomic.StoreInt64(&serverStock, 9)
	if _, err := products.Fetch(ctx); err != nil {
		t.Fatal(err)
	}
	if got, _ := products.StockFor("sourdough-01"); got != 9 {
		t.Fatalf("reconciled stock = %d, want 9", got)
	}
}

func TestStockForUnknownProduct(t *testing.T) {
	serverStock := int64(1)
	products := catalogServer(t, &serverStock)
	if _, ok := products.StockFor("nope"); ok {
		t.Fatal("unknown product must report ok=false")
	}
}
