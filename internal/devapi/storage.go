// Package devapi is a self-contained fake of the bakery backend, for
// local development of the client. It implements the same REST surface
// the production API exposes, against a throwaway sqlite file. It keeps
// the legacy API's mixed field naming on purpose, so the client's
// normalization layer gets exercised against realistic responses.
package devapi

import (
	"log"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  price NUMERIC NOT NULL CHECK (price >= 0),
  category TEXT NOT NULL,
  image TEXT,
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  featured INTEGER NOT NULL DEFAULT 0,
  ingredients_json TEXT,
  allergens_json TEXT,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);

CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  phone TEXT,
  address TEXT,
  role TEXT NOT NULL CHECK (role IN ('customer','admin')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  customer_id TEXT,
  customer_name TEXT,
  customer_email TEXT,
  customer_phone TEXT,
  customer_address TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_method TEXT,
  cash_amount NUMERIC,
  reason TEXT,
  delivery INTEGER NOT NULL DEFAULT 0,
  total NUMERIC NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

CREATE TABLE IF NOT EXISTS order_items(
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  qty INTEGER NOT NULL CHECK (qty >= 1),
  price NUMERIC NOT NULL,
  PRIMARY KEY (order_id, product_id)
);
`
	_, err := db.Exec(schema)
	return err
}

// seedIfEmpty loads a small bakery catalog and two accounts so the CLI
// works against a fresh database.
func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM products`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo catalog and accounts")

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	tx.MustExec(`INSERT INTO products(id,name,description,price,category,image,stock,featured,ingredients_json,allergens_json) VALUES
	  ('sourdough-01','Sourdough Loaf','Naturally leavened, 36h fermentation',6.50,'bread','media/sourdough.jpg',12,1,'["flour","water","salt"]','["gluten"]'),
	  ('croissant-01','Butter Croissant','Laminated with French butter',3.20,'pastry','media/croissant.jpg',24,1,'["flour","butter","yeast"]','["gluten","dairy"]'),
	  ('baguette-01','Baguette Tradition','Crisp crust, open crumb',2.80,'bread','media/baguette.jpg',18,0,'["flour","water","salt","yeast"]','["gluten"]'),
	  ('canele-01','Canelé de Bordeaux','Caramelized shell, custard center',2.40,'pastry','media/canele.jpg',0,0,'["milk","eggs","rum"]','["dairy","eggs"]'),
	  ('rye-01','Dark Rye','Dense Scandinavian style',5.90,'bread','media/rye.jpg',7,0,'["rye flour","water","salt"]','["gluten"]')`)

	mk := func(id, email, name, role, raw, phone, address string) {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), 10)
		tx.MustExec(`INSERT INTO users(id,email,name,password_hash,phone,address,role) VALUES(?,?,?,?,?,?,?)`,
			id, email, name, string(h), phone, address, role)
	}
	mk("u-admin", "admin@bakehouse.test", "Shop Admin", "admin", "Passw0rd!", "", "")
	mk("u-marie", "marie@bakehouse.test", "Marie", "customer", "Passw0rd!", "+1 555 0101", "12 Rue des Fours")

	return tx.Commit()
}
