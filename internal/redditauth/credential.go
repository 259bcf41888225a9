package redditauth

import "time"

// Credential is the persisted OAuth state for one account.
type Credential struct {
	AccessToken   string    `json:"access_token"`
	RefreshToken  string    `json:"refresh_token"`
	ExpiresAt     time.Time `json:"expires_at"`
	Scope         string    `json:"scope,omitempty"`
	Authenticated bool      `json:"authenticated"`
}

// Usable reports whether the access token is present and not within the
// expiry leeway of lapsing at the given instant.
func (c Credential) Usable(now time.Time, leeway time.Duration) bool {
	if !c.Authenticated || c.AccessToken == "" {
		return false
	}
	if c.ExpiresAt.IsZero() {
		return false
	}
	return now.Before(c.ExpiresAt.Add(-leeway))
}

// Refreshable reports whether a refresh attempt is possible at all.
func (c Credential) Refreshable() bool {
	return c.RefreshToken != ""
}
