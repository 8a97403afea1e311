package device

import (
	"time"

	"github.com/jmoiron/sqlx"

	"bakehouse/internal/domain"
)

type CartRepo struct{ db *sqlx.DB }

func NewCartRepo(db *sqlx.DB) *CartRepo { return &CartRepo{db: db} }

type cartRow struct {
	ProductID string  `db:"product_id"`
	Name      string  `db:"name"`
	Image     string  `db:"image"`
	Price     float64 `db:"price"`
	Qty       int     `db:"qty"`
	Position  int     `db:"position"`
}

// Load returns the persisted cart in insertion order.
func (r *CartRepo) Load() ([]domain.CartItem, error) {
	var rows []cartRow
	if err := r.db.Select(&rows, `
	  SELECT product_id, name, COALESCE(image,'') AS image, price, qty, position
	  FROM cart_items ORDER BY position
	`); err != nil {
		return nil, err
	}
	items := make([]domain.CartItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.CartItem{
			ProductID: row.ProductID,
			Name:      row.Name,
			Image:     row.Image,
			Price:     row.Price,
			Quantity:  row.Qty,
		})
	}
	return items, nil
}

// Replace rewrites the whole cart. The store persists after every
// mutation, so a full rewrite keeps positions trivially consistent.
func (r *CartRepo) Replace(items []domain.CartItem) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM cart_items`); err != nil {
		return err
	}
	now := time.Now().Format(time.RFC3339)
	for i, it := range items {
		if _, err := tx.Exec(`
		  INSERT INTO cart_items(product_id,name,image,price,qty,position,updated_at)
		  VALUES(?,?,?,?,?,?,?)
		`, it.ProductID, it.Name, it.Image, it.Price, it.Quantity, i, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}
