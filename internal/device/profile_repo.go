package device

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"bakehouse/internal/domain"
)

type ProfileRepo struct{ db *sqlx.DB }

func NewProfileRepo(db *sqlx.DB) *ProfileRepo { return &ProfileRepo{db: db} }

func (r *ProfileRepo) Save(cu domain.Customer) error {
	payload, err := json.Marshal(cu)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
	  INSERT INTO profile_cache(id, payload, fetched_at) VALUES(1, ?, ?)
	  ON CONFLICT(id) DO UPDATE SET payload=excluded.payload, fetched_at=excluded.fetched_at
	`, string(payload), time.Now().Format(time.RFC3339))
	return err
}

func (r *ProfileRepo) Load() (domain.Customer, bool, error) {
	var payload string
	err := r.db.Get(&payload, `SELECT payload FROM profile_cache WHERE id = 1`)
	if err == sql.ErrNoRows {
		return domain.Customer{}, false, nil
	}
	if err != nil {
		return domain.Customer{}, false, err
	}
	var cu domain.Customer
	if err := json.Unmarshal([]byte(payload), &cu); err != nil {
		return domain.Customer{}, false, err
	}
	return cu, true, nil
}

func (r *ProfileRepo) Clear() error {
	_, err := r.db.Exec(`DELETE FROM profile_cache WHERE id = 1`)
	return err
}
