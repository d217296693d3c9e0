package bank

import (
	"database/sql"
	"fmt"
)

// PostgresCredentialStore persists access tokens in their own table, keyed by
// linked item id. No query in the rest of the codebase joins against it.
type PostgresCredentialStore struct {
	db *sql.DB
}

func NewPostgresCredentialStore(db *sql.DB) *PostgresCredentialStore {
	return &PostgresCredentialStore{db: db}
}

func (s *PostgresCredentialStore) Save(itemID, accessToken string) error {
	_, err := s.db.Exec(
		`INSERT INTO bank_credentials (item_id, access_token) VALUES ($1, $2)
         ON CONFLICT (item_id) DO UPDATE SET access_token = EXCLUDED.access_token`,
		itemID, accessToken,
	)
	return err
}

func (s *PostgresCredentialStore) Get(itemID string) (string, error) {
	var accessToken string
	err := s.db.QueryRow(
		`SELECT access_token FROM bank_credentials WHERE item_id = $1`, itemID,
	).Scan(&accessToken)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("no credential stored for item %s", itemID)
	}
	if err != nil {
		return "", err
	}
	return accessToken, nil
}
