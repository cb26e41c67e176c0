package repositories

import (
	"database/sql"
	"fmt"
	"time"
)

// CredentialPair holds the provider token pair. Empty strings mean absent.
type CredentialPair struct {
	AccessToken  string
	RefreshToken string
}

// HasAccessToken reports whether an access token is present.
func (p CredentialPair) HasAccessToken() bool { return p.AccessToken != "" }

// HasRefreshToken reports whether a refresh token is present.
func (p CredentialPair) HasRefreshToken() bool { return p.RefreshToken != "" }

const credentialsSchema = `
CREATE TABLE IF NOT EXISTS credentials (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	access_token TEXT NOT NULL DEFAULT '',
	refresh_token TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMP NOT NULL
)
`

// CredentialsRepository persists the single credential record in sqlite.
type CredentialsRepository struct {
	db *sql.DB
}

// NewCredentialsRepository creates the repository and bootstraps its schema.
func NewCredentialsRepository(db *sql.DB) (*CredentialsRepository, error) {
	if _, err := db.Exec(credentialsSchema); err != nil {
		return nil, fmt.Errorf("failed to create credentials table: %w", err)
	}
	return &CredentialsRepository{db: db}, nil
}

// Save overwrites the credential record with the given pair.
func (r *CredentialsRepository) Save(pair CredentialPair) error {
	query := `
		INSERT INTO credentials (id, access_token, refresh_token, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			updated_at = excluded.updated_at
	`

	if _, err := r.db.Exec(query, pair.AccessToken, pair.RefreshToken, time.Now()); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	return nil
}

// Load retrieves the stored pair. The second return value reports whether a
// record exists.
func (r *CredentialsRepository) Load() (CredentialPair, bool, error) {
	query := `SELECT access_token, refresh_token FROM credentials WHERE id = 1`

	var pair CredentialPair
	err := r.db.QueryRow(query).Scan(&pair.AccessToken, &pair.RefreshToken)
	if err == sql.ErrNoRows {
		return CredentialPair{}, false, nil
	}
	if err != nil {
		return CredentialPair{}, false, fmt.Errorf("failed to load credentials: %w", err)
	}

	return pair, true, nil
}

// Clear deletes the credential record. Clearing an empty store is a no-op.
func (r *CredentialsRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM credentials WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}
