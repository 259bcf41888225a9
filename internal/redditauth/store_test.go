package redditauth

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func roundTripStore(t *testing.T, store CredentialStore) {
	t.Helper()
	ctx := context.Background()

	if _, found, err := store.Load(ctx, "alice"); err != nil || found {
		t.Fatalf("empty store: found=%v err=%v", found, err)
	}

	want := Credential{
		AccessToken:   "A1",
		RefreshToken:  "R1",
		ExpiresAt:     time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		Scope:         "read",
		Authenticated: true,
	}
	if err := store.Save(ctx, "alice", want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, found, err := store.Load(ctx, "alice")
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken || got.Scope != want.Scope {
		t.Fatalf("credential mismatch: got %#v want %#v", got, want)
	}
	if !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Fatalf("expiry mismatch: got %v want %v", got.ExpiresAt, want.ExpiresAt)
	}
	if !got.Authenticated {
		t.Fatal("authenticated flag lost")
	}

	want.AccessToken = "A2"
	if err := store.Save(ctx, "alice", want); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _, err = store.Load(ctx, "alice")
	if err != nil || got.AccessToken != "A2" {
		t.Fatalf("overwrite not visible: %#v err=%v", got, err)
	}

	if err := store.Delete(ctx, "alice"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, found, _ := store.Load(ctx, "alice"); found {
		t.Fatal("credential still present after delete")
	}
	if err := store.Delete(ctx, "alice"); err != nil {
		t.Fatalf("deleting an absent credential must not fail: %v", err)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))
	roundTripStore(t, store)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "credentials.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	defer store.Close()
	roundTripStore(t, store)
}

func TestFileStoreKeepsOtherUsers(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))

	if err := store.Save(ctx, "alice", Credential{RefreshToken: "RA"}); err != nil {
		t.Fatalf("save alice: %v", err)
	}
	if err := store.Save(ctx, "bob", Credential{RefreshToken: "RB"}); err != nil {
		t.Fatalf("save bob: %v", err)
	}
	if err := store.Delete(ctx, "alice"); err != nil {
		t.Fatalf("delete alice: %v", err)
	}
	cred, found, err := store.Load(ctx, "bob")
	if err != nil || !found || cred.RefreshToken != "RB" {
		t.Fatalf("bob's credential lost: found=%v cred=%#v err=%v", found, cred, err)
	}
}
