package device

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"bakehouse/internal/domain"
)

// GuestRepo holds everything a guest session leaves on the device: the
// order history and the customer id the server assigned on first order.
// Guest data deliberately survives login and logout.
type GuestRepo struct{ db *sqlx.DB }

func NewGuestRepo(db *sqlx.DB) *GuestRepo { return &GuestRepo{db: db} }

// Orders returns the guest order list, newest first.
func (r *GuestRepo) Orders() ([]domain.Order, error) {
	var payloads []string
	if err := r.db.Select(&payloads, `SELECT payload FROM guest_orders ORDER BY position`); err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(payloads))
	for _, p := range payloads {
		var o domain.Order
		if err := json.Unmarshal([]byte(p), &o); err != nil {
			// A corrupt row should not take the whole history down.
			continue
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// Prepend puts a freshly created order at the head of the list.
func (r *GuestRepo) Prepend(o domain.Order) error {
	payload, err := json.Marshal(o)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
	  INSERT INTO guest_orders(order_id, position, payload, created_at)
	  VALUES(?, COALESCE((SELECT MIN(position) FROM guest_orders), 1) - 1, ?, ?)
	  ON CONFLICT(order_id) DO UPDATE SET payload=excluded.payload
	`, o.ID, string(payload), time.Now().Format(time.RFC3339))
	return err
}

func (r *GuestRepo) Delete(orderID string) error {
	_, err := r.db.Exec(`DELETE FROM guest_orders WHERE order_id = ?`, orderID)
	return err
}

// CustomerID returns the remembered guest customer id, if any.
func (r *GuestRepo) CustomerID() (string, error) {
	var id string
	err := r.db.Get(&id, `SELECT customer_id FROM guest_customer WHERE id = 1`)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}

func (r *GuestRepo) SetCustomerID(id string) error {
	_, err := r.db.Exec(`
	  INSERT INTO guest_customer(id, customer_id) VALUES(1, ?)
	  ON CONFLICT(id) DO UPDATE SET customer_id=excluded.customer_id
	`, id)
	return err
}
