package normalize_test

import (
	"encoding/json"
	"testing"

	"bakehouse/internal/domain"
	"bakehouse/internal/normalize"
)

func raw(t *testing.T, s string) normalize.Raw {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestProductAliases(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"snake", `{"product_id":"p1","title":"Rye","unit_price":5.9,"stock_count":7,"is_featured":true}`},
		{"camel", `{"productId":"p1","name":"Rye","price":5.9,"stockCount":7,"featured":true}`},
		{"pascal", `{"Id":"p1","Name":"Rye","Price":5.9,"Stock":7,"Featured":true}`},
	}
	for _, tc := range cases {
		p := normalize.Product(raw(t, tc.in))
		if p.ID != "p1" || p.Name != "Rye" || p.Price != 5.9 || p.Stock != 7 || !p.Featured {
			t.Errorf("%s: bad mapping: %+v", tc.name, p)
		}
	}
}

func TestProductDefaults(t *testing.T) {
	p := normalize.Product(raw(t, `{"bogus": 1, "price": null}`))
	if p.ID != "" || p.Name != "" || p.Price != 0 || p.Stock != 0 || p.Featured {
		t.Fatalf("defaults violated: %+v", p)
	}
}

func TestOrderNestedCustomer(t *testing.T) {
	o := normalize.Order(raw(t, `{
	  "orderId":"o1","status":"ready","paymentMethod":"cash","cashAmount":20,
	  "rejectionReason":"","isDelivery":true,"totalAmount":13.0,"createdAt":"2026-08-01T10:00:00Z",
	  "customer":{"id":"c9","name":"Marie","email":"m@x.test","phone":"+1 555","address":"12 Rue"},
	  "items":[{"productId":"sourdough-01","name":"Sourdough","quantity":2,"unitPrice":6.5}]
	}`))
	if o.ID != "o1" || o.Status != domain.StatusReady || !o.Delivery {
		t.Fatalf("bad order: %+v", o)
	}
	if o.Customer.ID != "c9" || o.Customer.Name != "Marie" || o.Customer.Address != "12 Rue" {
		t.Fatalf("bad customer: %+v", o.Customer)
	}
	if len(o.Items) != 1 || o.Items[0].Quantity != 2 || o.Items[0].Price != 6.5 {
		t.Fatalf("bad items: %+v", o.Items)
	}
	// Subtotal computed when absent.
	if o.Items[0].Subtotal != 13.0 {
		t.Fatalf("subtotal = %v, want 13", o.Items[0].Subtotal)
	}
}

func TestOrderFlatCustomerAndSnakeFields(t *testing.T) {
	o := normalize.Order(raw(t, `{
	  "id":"o2","order_status":"pending","payment_method":"card",
	  "customer_name":"Luc","customer_email":"l@x.test","total_amount":4.2,
	  "order_items":[{"product_id":"baguette-01","qty":1,"price":4.2,"sub_total":4.2}]
	}`))
	if o.ID != "o2" || o.Status != domain.StatusPending || o.Total != 4.2 {
		t.Fatalf("bad order: %+v", o)
	}
	if o.Customer.Name != "Luc" || o.Customer.Email != "l@x.test" {
		t.Fatalf("bad flat customer: %+v", o.Customer)
	}
	if len(o.Items) != 1 || o.Items[0].ProductID != "baguette-01" || o.Items[0].Quantity != 1 {
		t.Fatalf("bad items: %+v", o.Items)
	}
}

func TestUnknownStatusDefaultsToPending(t *testing.T) {
	o := normalize.Order(raw(t, `{"id":"o3","status":"SHIPPED??"}`))
	if o.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending", o.Status)
	}
}

func TestAddressObject(t *testing.T) {
	cu := normalize.Customer(raw(t, `{
	  "full_name":"Ana","address":{"street":"5 Main","city":"Lyon","postalCode":"69001"}
	}`))
	if cu.Address != "5 Main, Lyon, 69001" {
		t.Fatalf("address = %q", cu.Address)
	}
}

func TestRoleMapping(t *testing.T) {
	if u := normalize.User(raw(t, `{"id":"u1","role":"ADMINISTRATOR"}`)); u.Role != domain.RoleAdmin {
		t.Fatalf("role = %q, want admin", u.Role)
	}
	if u := normalize.User(raw(t, `{"user":{"id":"u2","role":"buyer"}}`)); u.Role != domain.RoleCustomer {
		t.Fatalf("role = %q, want customer", u.Role)
	}
}

func TestNumericID(t *testing.T) {
	p := normalize.Product(raw(t, `{"id":42,"name":"Tarte"}`))
	if p.ID != "42" {
		t.Fatalf("id = %q, want \"42\"", p.ID)
	}
}
