package store_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"bakehouse/internal/api"
	"bakehouse/internal/device"
	"bakehouse/internal/domain"
	"bakehouse/internal/store"
)

// requestLog records what the mock backend saw.
type requestLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *requestLog) add(r *http.Request) {
	l.mu.Lock()
	l.calls = append(l.calls, r.Method+" "+r.URL.Path)
	l.mu.Unlock()
}

func (l *requestLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

func (l *requestLog) count() int { return len(l.all()) }

type env struct {
	client   *api.Client
	session  *store.SessionStore
	guest    *device.GuestRepo
	products *store.ProductStore
	orders   *store.OrderStore
	log      *requestLog
}

// newEnv builds the store graph against a mock backend. role "" means a
// guest device; otherwise a session is persisted first, the way a prior
// login would have left it, and restored by the session store.
func newEnv(t *testing.T, role string, handler http.HandlerFunc) *env {
	t.Helper()
	log := &requestLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.add(r)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	db, err := device.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	sessionRepo := device.NewSessionRepo(db)
	if role != "" {
		if err := sessionRepo.Save(domain.User{ID: "u1", Email: "u@x.test", Role: role}, "tok-123"); err != nil {
			t.Fatal(err)
		}
	}
	session := store.NewSessionStore(sessionRepo)
	client := api.NewClient(srv.URL, 5*time.Second, session.Token)
	client.OnUnauthorized = session.Clear
	products := store.NewProductStore(client)
	guest := device.NewGuestRepo(db)
	return &env{
		client:   client,
		session:  session,
		guest:    guest,
		products: products,
		orders:   store.NewOrderStore(client, session, guest, products),
		log:      log,
	}
}

func TestGuestFetchNeverHitsNetwork(t *testing.T) {
	e := newEnv(t, "", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("guest fetch must not call the backend, got %s %s", r.Method, r.URL.Path)
	})

	orders, err := e.orders.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 0 {
		t.Fatalf("want empty guest history, got %+v", orders)
	}
	if e.log.count() != 0 {
		t.Fatalf("saw %d requests, want 0", e.log.count())
	}
	if e.orders.Loading() || e.orders.Err() != "" {
		t.Fatalf("loading=%v err=%q after fetch", e.orders.Loading(), e.orders.Err())
	}
}

const createdOrderJSON = `{
  "orderId":"g1","status":"pending","paymentMethod":"cash","cashAmount":20,
  "totalAmount":13.0,"createdAt":"2026-08-01T10:00:00Z",
  "customer":{"id":"g-7f3a","name":"Guest","email":"","phone":"","address":""},
  "items":[{"productId":"sourdough-01","name":"Sourdough","quantity":2,"unitPrice":6.5}]
}`

func TestGuestCreateOrderPersistsLocally(t *testing.T) {
	e := newEnv(t, "", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(createdOrderJSON))
	})

	o, err := e.orders.Create(context.Background(), domain.CheckoutPayload{
		Items:         []domain.CheckoutItem{{ProductID: "sourdough-01", Quantity: 2}},
		PaymentMethod: "cash",
		CashAmount:    20,
	})
	if err != nil {
		t.Fatal(err)
	}
	if o.ID != "g1" {
		t.Fatalf("order id = %q, want g1", o.ID)
	}

	// Head of the in-memory list.
	mem := e.orders.Orders()
	if len(mem) != 1 || mem[0].ID != "g1" {
		t.Fatalf("in-memory orders = %+v", mem)
	}

	// Head of the device guest history.
	persisted, err := e.guest.Orders()
	if err != nil {
		t.Fatal(err)
	}
	if len(persisted) != 1 || persisted[0].ID != "g1" {
		t.Fatalf("guest history = %+v", persisted)
	}

	// Server-assigned guest customer id remembered.
	cid, err := e.guest.CustomerID()
	if err != nil {
		t.Fatal(err)
	}
	if cid != "g-7f3a" {
		t.Fatalf("guest customer id = %q", cid)
	}

	// Guest fetch now returns the persisted order without a network call.
	before := e.log.count()
	orders, err := e.orders.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 1 || orders[0].ID != "g1" {
		t.Fatalf("guest fetch = %+v", orders)
	}
	if e.log.count() != before {
		t.Fatal("guest fetch issued a network call")
	}
}

func TestFetchEndpointByRole(t *testing.T) {
	for role, wantPath := range map[string]string{
		domain.RoleCustomer: "/orders",
		domain.RoleAdmin:    "/orders/all",
	} {
		e := newEnv(t, role, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok-123" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if r.URL.Path != wantPath {
				t.Errorf("role %s hit %s, want %s", role, r.URL.Path, wantPath)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[]`))
		})
		if _, err := e.orders.Fetch(context.Background()); err != nil {
			t.Fatalf("role %s: %v", role, err)
		}
	}
}

func TestStatusSkipIsAllowed(t *testing.T) {
	e := newEnv(t, domain.RoleAdmin, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet:
			w.Write([]byte(`[{"orderId":"o1","status":"pending","totalAmount":5}]`))
		case r.Method == http.MethodPatch:
			w.Write([]byte(`{"orderId":"o1"}`))
		default:
			http.NotFound(w, r)
		}
	})

	ctx := context.Background()
	if _, err := e.orders.Fetch(ctx); err != nil {
		t.Fatal(err)
	}
	if err := e.orders.UpdateStatus(ctx, "o1", domain.StatusReceived, ""); err != nil {
		t.Fatal(err)
	}
	if err := e.orders.UpdateStatus(ctx, "o1", domain.StatusReady, ""); err != nil {
		t.Fatal(err)
	}

	if got := e.orders.Orders()[0].Status; got != domain.StatusReady {
		t.Fatalf("status = %s, want ready", got)
	}
	patches := 0
	for _, call := range e.log.all() {
		if call == "PATCH /orders/o1/status" {
			patches++
		}
	}
	// Explicitly skipping "preparing" is allowed: exactly one PATCH per
	// call, none for the skipped state.
	if patches != 2 {
		t.Fatalf("saw %d PATCH requests, want 2", patches)
	}
}

func TestRejectRecordsReason(t *testing.T) {
	e := newEnv(t, domain.RoleAdmin, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			w.Write([]byte(`[{"orderId":"o1","status":"pending"}]`))
			return
		}
		w.Write([]byte(`{"orderId":"o1"}`))
	})

	ctx := context.Background()
	e.orders.Fetch(ctx)

	if err := e.orders.Reject(ctx, "o1", ""); err != store.ErrReasonRequired {
		t.Fatalf("want ErrReasonRequired, got %v", err)
	}
	if err := e.orders.Reject(ctx, "o1", "out of flour"); err != nil {
		t.Fatal(err)
	}
	o := e.orders.Orders()[0]
	if o.Status != domain.StatusRejected || o.Reason != "out of flour" {
		t.Fatalf("got %+v", o)
	}
	// Rejection only applies before the shop has picked the order up.
	if err := e.orders.Reject(ctx, "o1", "changed my mind"); err == nil {
		t.Fatal("rejected an already-rejected order")
	}
}

func TestCancelOnlyBeforePreparation(t *testing.T) {
	e := newEnv(t, domain.RoleAdmin, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			w.Write([]byte(`[{"orderId":"o1","status":"received"},{"orderId":"o2","status":"preparing"}]`))
			return
		}
		w.Write([]byte(`{"orderId":"o1"}`))
	})

	ctx := context.Background()
	e.orders.Fetch(ctx)
	before := e.log.count()

	if err := e.orders.Cancel(ctx, "o2"); err == nil {
		t.Fatal("cancelled an order already in preparation")
	}
	if e.log.count() != before {
		t.Fatal("refused cancel still hit the backend")
	}

	if err := e.orders.Cancel(ctx, "o1"); err != nil {
		t.Fatal(err)
	}
	if o := e.orders.Orders()[0]; o.Status != domain.StatusCancelled {
		t.Fatalf("got %+v", o)
	}
}

func TestAdvanceStopsAtTerminal(t *testing.T) {
	e := newEnv(t, domain.RoleAdmin, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			w.Write([]byte(`[{"orderId":"o1","status":"delivered"}]`))
			return
		}
		t.Errorf("no write should reach the backend, got %s %s", r.Method, r.URL.Path)
	})

	ctx := context.Background()
	e.orders.Fetch(ctx)

	if e.orders.CanAdvance("o1") {
		t.Fatal("advance must be disabled at a terminal status")
	}
	if err := e.orders.Advance(ctx, "o1"); err != domain.ErrTerminalStatus {
		t.Fatalf("want ErrTerminalStatus, got %v", err)
	}
}

func TestFetchErrorSurfacedNotRetried(t *testing.T) {
	e := newEnv(t, domain.RoleCustomer, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"oven on fire"}`))
	})

	_, err := e.orders.Fetch(context.Background())
	if err == nil {
		t.Fatal("want error")
	}
	if e.orders.Err() != "oven on fire" {
		t.Fatalf("err = %q, want backend message", e.orders.Err())
	}
	if got := e.log.count(); got != 1 {
		t.Fatalf("saw %d requests, want exactly 1 (no retry)", got)
	}
}

func TestGuestDeleteIsLocalOnly(t *testing.T) {
	e := newEnv(t, "", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(createdOrderJSON))
			return
		}
		t.Errorf("guest delete must not call the backend, got %s %s", r.Method, r.URL.Path)
	})

	ctx := context.Background()
	if _, err := e.orders.Create(ctx, domain.CheckoutPayload{
		Items: []domain.CheckoutItem{{ProductID: "sourdough-01", Quantity: 1}},
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.orders.Delete(ctx, "g1"); err != nil {
		t.Fatal(err)
	}
	if len(e.orders.Orders()) != 0 {
		t.Fatal("order still in memory")
	}
	persisted, _ := e.guest.Orders()
	if len(persisted) != 0 {
		t.Fatal("order still in guest history")
	}
}
