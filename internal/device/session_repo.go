package device

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"bakehouse/internal/domain"
)

type SessionRepo struct{ db *sqlx.DB }

func NewSessionRepo(db *sqlx.DB) *SessionRepo { return &SessionRepo{db: db} }

// Save overwrites the single persisted session row.
func (r *SessionRepo) Save(user domain.User, token string) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
	  INSERT INTO session(id, token, user_json, saved_at) VALUES(1, ?, ?, ?)
	  ON CONFLICT(id) DO UPDATE SET token=excluded.token, user_json=excluded.user_json, saved_at=excluded.saved_at
	`, token, string(payload), time.Now().Format(time.RFC3339))
	return err
}

// Load returns the persisted session, or ok=false when none exists.
func (r *SessionRepo) Load() (domain.User, string, bool, error) {
	var row struct {
		Token    string `db:"token"`
		UserJSON string `db:"user_json"`
	}
	err := r.db.Get(&row, `SELECT token, user_json FROM session WHERE id = 1`)
	if err == sql.ErrNoRows {
		return domain.User{}, "", false, nil
	}
	if err != nil {
		return domain.User{}, "", false, err
	}
	var u domain.User
	if err := json.Unmarshal([]byte(row.UserJSON), &u); err != nil {
		return domain.User{}, "", false, err
	}
	return u, row.Token, true, nil
}

func (r *SessionRepo) Clear() error {
	_, err := r.db.Exec(`DELETE FROM session WHERE id = 1`)
	return err
}
