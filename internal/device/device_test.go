package device

import (
	"testing"

	"github.com/jmoiron/sqlx"

	"bakehouse/internal/domain"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open device db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCartReplaceKeepsOrder(t *testing.T) {
	repo := NewCartRepo(memdb(t))
	in := []domain.CartItem{
		{ProductID: "p-2", Name: "Croissant", Price: 2.2, Quantity: 3},
		{ProductID: "p-1", Name: "Baguette", Price: 1.2, Quantity: 1},
	}
	if err := repo.Replace(in); err != nil {
		t.Fatalf("replace: %v", err)
	}

	out, err := repo.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 2 || out[0].ProductID != "p-2" || out[1].ProductID != "p-1" {
		t.Fatalf("loaded cart out of order: %+v", out)
	}

	// A later replace fully supersedes the old rows.
	if err := repo.Replace(in[1:]); err != nil {
		t.Fatalf("replace: %v", err)
	}
	out, _ = repo.Load()
	if len(out) != 1 || out[0].ProductID != "p-1" {
		t.Fatalf("cart after rewrite: %+v", out)
	}
}

func TestSessionRoundtripAndClear(t *testing.T) {
	repo := NewSessionRepo(memdb(t))

	if _, _, ok, err := repo.Load(); err != nil || ok {
		t.Fatalf("fresh db: ok=%v err=%v", ok, err)
	}

	user := domain.User{ID: "u-1", Email: "marie@bakehouse.fr", Role: domain.RoleAdmin}
	if err := repo.Save(user, "tok-1"); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, tok, ok, err := repo.Load()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.Email != user.Email || got.Role != domain.RoleAdmin || tok != "tok-1" {
		t.Fatalf("loaded session = %+v token %q", got, tok)
	}

	// Save again overwrites the single row.
	if err := repo.Save(user, "tok-2"); err != nil {
		t.Fatalf("save: %v", err)
	}
	_, tok, _, _ = repo.Load()
	if tok != "tok-2" {
		t.Fatalf("token after resave = %q", tok)
	}

	if err := repo.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, _, ok, _ := repo.Load(); ok {
		t.Fatal("session survived clear")
	}
}

func TestGuestOrdersNewestFirst(t *testing.T) {
	repo := NewGuestRepo(memdb(t))
	for _, id := range []string{"o-1", "o-2", "o-3"} {
		if err := repo.Prepend(domain.Order{ID: id, Status: domain.StatusPending}); err != nil {
			t.Fatalf("prepend %s: %v", id, err)
		}
	}

	orders, err := repo.Orders()
	if err != nil {
		t.Fatalf("orders: %v", err)
	}
	if len(orders) != 3 || orders[0].ID != "o-3" || orders[2].ID != "o-1" {
		t.Fatalf("order history not newest-first: %+v", orders)
	}

	// Prepending the same id again updates in place.
	if err := repo.Prepend(domain.Order{ID: "o-2", Status: domain.StatusReady}); err != nil {
		t.Fatalf("re-prepend: %v", err)
	}
	orders, _ = repo.Orders()
	if len(orders) != 3 || orders[1].Status != domain.StatusReady {
		t.Fatalf("updated order not reflected: %+v", orders)
	}

	if err := repo.Delete("o-3"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	orders, _ = repo.Orders()
	if len(orders) != 2 || orders[0].ID != "o-2" {
		t.Fatalf("after delete: %+v", orders)
	}
}

func TestGuestCustomerID(t *testing.T) {
	repo := NewGuestRepo(memdb(t))

	id, err := repo.CustomerID()
	if err != nil || id != "" {
		t.Fatalf("fresh db: id=%q err=%v", id, err)
	}
	if err := repo.SetCustomerID("g-7f3a"); err != nil {
		t.Fatalf("set: %v", err)
	}
	id, _ = repo.CustomerID()
	if id != "g-7f3a" {
		t.Fatalf("id = %q", id)
	}
}

func TestProfileCache(t *testing.T) {
	repo := NewProfileRepo(memdb(t))

	if _, ok, err := repo.Load(); err != nil || ok {
		t.Fatalf("fresh db: ok=%v err=%v", ok, err)
	}
	cu := domain.Customer{ID: "u-1", Name: "Marie", Phone: "+33612345678"}
	if err := repo.Save(cu); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := repo.Load()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.Name != "Marie" || got.Phone != cu.Phone {
		t.Fatalf("cached profile = %+v", got)
	}
	if err := repo.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := repo.Load(); ok {
		t.Fatal("profile survived clear")
	}
}
