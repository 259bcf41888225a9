package redditauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// CredentialStore persists credentials across process restarts.
type CredentialStore interface {
	Save(ctx context.Context, userID string, cred Credential) error
	Load(ctx context.Context, userID string) (Credential, bool, error)
	Delete(ctx context.Context, userID string) error
}

// FileStore keeps credentials in a JSON document on disk. It is the fallback
// backend for installs without the sqlite store.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file-backed store at path. The parent directory is
// created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) readAll() (map[string]Credential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]Credential{}, nil
		}
		return nil, fmt.Errorf("read credential file: %w", err)
	}
	creds := map[string]Credential{}
	if len(data) == 0 {
		return creds, nil
	}
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("decode credential file: %w", err)
	}
	return creds, nil
}

func (s *FileStore) writeAll(creds map[string]Credential) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}

// Save stores the credential for userID.
func (s *FileStore) Save(_ context.Context, userID string, cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.readAll()
	if err != nil {
		return err
	}
	creds[userID] = cred
	return s.writeAll(creds)
}

// Load returns the credential for userID and whether one was stored.
func (s *FileStore) Load(_ context.Context, userID string) (Credential, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.readAll()
	if err != nil {
		return Credential{}, false, err
	}
	cred, ok := creds[userID]
	return cred, ok, nil
}

// Delete removes the credential for userID. Deleting an absent credential is
// not an error.
func (s *FileStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.readAll()
	if err != nil {
		return err
	}
	if _, ok := creds[userID]; !ok {
		return nil
	}
	delete(creds, userID)
	if len(creds) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove credential file: %w", err)
		}
		return nil
	}
	return s.writeAll(creds)
}
