// Package device is the client-side persistence layer: the cart, the
// session, guest orders and the profile cache all survive restarts in a
// single sqlite file on the device.
package device

import (
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open device db")
	}
	if err = db.Ping(); err != nil {
		return nil, errors.Wrap(err, "ping device db")
	}
	if err := ensureSchema(db); err != nil {
		return nil, errors.Wrap(err, "device schema")
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Cart: one row per product, position preserves insertion order.
CREATE TABLE IF NOT EXISTS cart_items(
  product_id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  image TEXT,
  price NUMERIC NOT NULL,
  qty INTEGER NOT NULL CHECK (qty >= 1),
  position INTEGER NOT NULL,
  updated_at TEXT
);

-- Session: single row, cleared on logout.
CREATE TABLE IF NOT EXISTS session(
  id INTEGER PRIMARY KEY CHECK (id = 1),
  token TEXT NOT NULL,
  user_json TEXT NOT NULL,
  saved_at TEXT
);

-- Guest orders: server-shaped records kept verbatim, position 0 = head.
CREATE TABLE IF NOT EXISTS guest_orders(
  order_id TEXT PRIMARY KEY,
  position INTEGER NOT NULL,
  payload TEXT NOT NULL,
  created_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_guest_orders_position ON guest_orders(position);

-- Synthetic customer id the server assigned on the first guest order.
CREATE TABLE IF NOT EXISTS guest_customer(
  id INTEGER PRIMARY KEY CHECK (id = 1),
  customer_id TEXT NOT NULL
);

-- Last fetched profile, for offline display and form prefill.
CREATE TABLE IF NOT EXISTS profile_cache(
  id INTEGER PRIMARY KEY CHECK (id = 1),
  payload TEXT NOT NULL,
  fetched_at TEXT
);
`
	_, err := db.Exec(schema)
	return err
}
