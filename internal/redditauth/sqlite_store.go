package redditauth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const credentialSchema = `
CREATE TABLE IF NOT EXISTS credentials (
    user_id       TEXT PRIMARY KEY,
    access_token  TEXT NOT NULL,
    refresh_token TEXT NOT NULL,
    expires_at    TEXT NOT NULL,
    scope         TEXT NOT NULL DEFAULT '',
    authenticated INTEGER NOT NULL DEFAULT 0,
    updated_at    TEXT NOT NULL
);`

// SQLiteStore persists credentials in a local sqlite database. It is the
// default backend.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLiteStore initializes or connects to the credential database.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create credential directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(credentialSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create credential schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

// Save upserts the credential for userID.
func (s *SQLiteStore) Save(ctx context.Context, userID string, cred Credential) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (user_id, access_token, refresh_token, expires_at, scope, authenticated, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(user_id) DO UPDATE SET
             access_token = excluded.access_token,
             refresh_token = excluded.refresh_token,
             expires_at = excluded.expires_at,
             scope = excluded.scope,
             authenticated = excluded.authenticated,
             updated_at = excluded.updated_at`,
		userID,
		cred.AccessToken,
		cred.RefreshToken,
		cred.ExpiresAt.UTC().Format(time.RFC3339Nano),
		cred.Scope,
		boolToInt(cred.Authenticated),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// Load returns the credential for userID and whether one was stored.
func (s *SQLiteStore) Load(ctx context.Context, userID string) (Credential, bool, error) {
	var (
		cred          Credential
		expiresAt     string
		authenticated int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT access_token, refresh_token, expires_at, scope, authenticated
         FROM credentials WHERE user_id = ?`, userID,
	).Scan(&cred.AccessToken, &cred.RefreshToken, &expiresAt, &cred.Scope, &authenticated)
	if errors.Is(err, sql.ErrNoRows) {
		return Credential{}, false, nil
	}
	if err != nil {
		return Credential{}, false, fmt.Errorf("load credential: %w", err)
	}

	parsed, err := time.Parse(time.RFC3339Nano, expiresAt)
	if err != nil {
		return Credential{}, false, fmt.Errorf("parse credential expiry: %w", err)
	}
	cred.ExpiresAt = parsed
	cred.Authenticated = authenticated != 0
	return cred, true, nil
}

// Delete removes the credential for userID.
func (s *SQLiteStore) Delete(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
