package redditauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"redreel/internal/logging"
)

const (
	// expiryLeeway refreshes tokens slightly before they lapse so in-flight
	// listing requests never carry an expired bearer.
	expiryLeeway = 60 * time.Second
	// memoWindow throttles repeated refreshes of the same failing token.
	memoWindow            = 60 * time.Second
	defaultRefreshTimeout = 10 * time.Second
	defaultInitTimeout    = 15 * time.Second

	lockRetryInterval = 100 * time.Millisecond
	lockWaitCeiling   = 2 * time.Second
)

// Sentinel errors for the credential lifecycle.
var (
	ErrConfiguration   = errors.New("auth configuration error")
	ErrUnauthenticated = errors.New("not authenticated")
	ErrRefreshFailed   = errors.New("token refresh failed")
)

// Phase tracks the manager lifecycle so one-time initialization is explicit
// state, not a package-level flag.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseInitializing
	PhaseReady
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseInitializing:
		return "initializing"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Notifier receives best-effort lifecycle notifications. The ntfy service
// satisfies it; a nil notifier is replaced with a no-op.
type Notifier interface {
	NotifyAuthExpired(ctx context.Context, reason string) error
}

type noopNotifier struct{}

func (noopNotifier) NotifyAuthExpired(context.Context, string) error { return nil }

// HTTPDoer is the request execution seam, satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// refreshAttempt is a single-slot memo of the most recent refresh, overwritten
// on every attempt. A failed attempt for the same token inside memoWindow
// short-circuits without a network call.
type refreshAttempt struct {
	token  string
	at     time.Time
	failed bool
}

// Manager owns the access credential. All mutation goes through it; listing
// clients read tokens via AccessToken and never touch the credential directly.
type Manager struct {
	clientID     string
	clientSecret string
	authBaseURL  string
	redirectURI  string
	userAgent    string
	userID       string
	deviceID     string

	mu    sync.Mutex
	phase Phase
	cred  Credential
	memo  refreshAttempt

	store          CredentialStore
	lockPath       string
	httpClient     HTTPDoer
	notifier       Notifier
	logger         *slog.Logger
	now            func() time.Time
	refreshTimeout time.Duration
	initTimeout    time.Duration
}

// ManagerOption customises Manager construction.
type ManagerOption func(*Manager)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) ManagerOption {
	return func(m *Manager) {
		if client != nil {
			m.httpClient = client
		}
	}
}

// WithStore attaches a credential store. Without one the manager operates
// in-memory for the session.
func WithStore(store CredentialStore) ManagerOption {
	return func(m *Manager) { m.store = store }
}

// WithRefreshLock points the cross-process refresh lock at path. Without it
// concurrent processes may issue redundant refreshes, which the provider
// tolerates.
func WithRefreshLock(path string) ManagerOption {
	return func(m *Manager) { m.lockPath = path }
}

// WithNotifier attaches a lifecycle notifier.
func WithNotifier(notifier Notifier) ManagerOption {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithTimeouts overrides the refresh and initialization ceilings (used in
// tests). Zero leaves the corresponding default in place.
func WithTimeouts(refresh, initialize time.Duration) ManagerOption {
	return func(m *Manager) {
		if refresh > 0 {
			m.refreshTimeout = refresh
		}
		if initialize > 0 {
			m.initTimeout = initialize
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logging.NewComponentLogger(logger, "redditauth")
	}
}

// NewManager builds a Manager. A missing client id is the one fatal
// configuration error and is reported here rather than attempted later.
func NewManager(clientID, clientSecret, authBaseURL, redirectURI, userAgent, userID string, opts ...ManagerOption) (*Manager, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, fmt.Errorf("%w: client id is required", ErrConfiguration)
	}
	authBaseURL = strings.TrimRight(strings.TrimSpace(authBaseURL), "/")
	if authBaseURL == "" {
		return nil, fmt.Errorf("%w: auth base url is required", ErrConfiguration)
	}
	if userID == "" {
		userID = "default"
	}

	m := &Manager{
		clientID:       clientID,
		clientSecret:   strings.TrimSpace(clientSecret),
		authBaseURL:    authBaseURL,
		redirectURI:    strings.TrimSpace(redirectURI),
		userAgent:      strings.TrimSpace(userAgent),
		userID:         userID,
		deviceID:       uuid.NewString(),
		phase:          PhaseUninitialized,
		httpClient:     &http.Client{Timeout: defaultRefreshTimeout},
		notifier:       noopNotifier{},
		logger:         logging.NewNop(),
		now:            time.Now,
		refreshTimeout: defaultRefreshTimeout,
		initTimeout:    defaultInitTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Phase returns the current lifecycle phase.
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Credential returns a copy of the current credential for status reporting.
func (m *Manager) Credential() Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cred
}

// Initialize loads the persisted credential and attempts exactly one refresh
// when it is stale. A failed or hung refresh degrades to unauthenticated
// instead of returning an error; the whole sequence is bounded by a 15 second
// ceiling so session start never hangs on the token endpoint.
func (m *Manager) Initialize(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, m.initTimeout)
	defer cancel()

	m.mu.Lock()
	if m.phase == PhaseInitializing || m.phase == PhaseReady {
		m.mu.Unlock()
		return
	}
	m.phase = PhaseInitializing
	m.mu.Unlock()

	cred, found := m.loadStored(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if !found || !cred.Refreshable() {
		m.phase = PhaseFailed
		m.logger.Debug("no stored credential", logging.String("user_id", m.userID))
		return
	}
	m.cred = cred

	if cred.Usable(m.now(), expiryLeeway) {
		m.phase = PhaseReady
		return
	}
	if _, err := m.refreshLocked(ctx); err != nil {
		m.phase = PhaseFailed
		m.logger.Warn("initial refresh failed", logging.Error(err))
		return
	}
	m.phase = PhaseReady
}

func (m *Manager) loadStored(ctx context.Context) (Credential, bool) {
	if m.store == nil {
		return Credential{}, false
	}
	cred, found, err := m.store.Load(ctx, m.userID)
	if err != nil {
		// A broken store degrades to in-memory operation for the session.
		m.logger.Warn("credential store unavailable", logging.Error(err))
		return Credential{}, false
	}
	return cred, found
}

// AccessToken returns a currently valid access token, transparently
// refreshing when the cached one is missing or expires within the leeway.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cred.Usable(m.now(), expiryLeeway) {
		return m.cred.AccessToken, nil
	}
	if !m.cred.Refreshable() {
		return "", fmt.Errorf("%w: no refresh token", ErrUnauthenticated)
	}
	token, err := m.refreshLocked(ctx)
	if err != nil {
		return "", err
	}
	m.phase = PhaseReady
	return token, nil
}

// refreshLocked exchanges the refresh token for a new access token. Callers
// hold m.mu, which serializes concurrent refreshes within the process; the
// memo throttles repeats of the same failing token, and the optional file
// lock extends that guard across processes sharing a credential store.
func (m *Manager) refreshLocked(ctx context.Context) (string, error) {
	refreshToken := m.cred.RefreshToken
	now := m.now()

	if m.memo.failed && m.memo.token == refreshToken && now.Sub(m.memo.at) < memoWindow {
		return "", fmt.Errorf("%w: refresh failed %s ago, cooling down", ErrRefreshFailed, now.Sub(m.memo.at).Round(time.Second))
	}

	ctx, cancel := context.WithTimeout(ctx, m.refreshTimeout)
	defer cancel()

	unlock := m.acquireRefreshLock(ctx)
	defer unlock()

	// A sibling process may have refreshed and persisted a fresh credential
	// while this one waited on the lock. Adopt it instead of issuing a
	// redundant refresh.
	if m.lockPath != "" && m.store != nil {
		if cred, found := m.loadStored(ctx); found && cred.Usable(m.now(), expiryLeeway) {
			m.cred = cred
			m.memo = refreshAttempt{token: cred.RefreshToken, at: m.now(), failed: false}
			return cred.AccessToken, nil
		}
	}

	// Record the attempt before the network call so a failure observed by the
	// next caller is memoized even if this attempt never settles cleanly.
	m.memo = refreshAttempt{token: refreshToken, at: now, failed: true}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("device_id", m.deviceID)

	grant, status, err := m.tokenRequest(ctx, form)
	if err != nil {
		// Network failure or timeout: the refresh token is still good, so
		// keep it for a later attempt.
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	if status == http.StatusBadRequest || status == http.StatusUnauthorized {
		// The provider rejected the refresh token outright. Drop it so it is
		// never retried.
		m.cred = Credential{}
		if m.store != nil {
			if deleteErr := m.store.Delete(ctx, m.userID); deleteErr != nil {
				m.logger.Warn("delete rejected credential", logging.Error(deleteErr))
			}
		}
		go m.notifyAuthExpired(fmt.Sprintf("refresh rejected with HTTP %d", status))
		return "", fmt.Errorf("%w: provider rejected refresh token (HTTP %d)", ErrRefreshFailed, status)
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("%w: token endpoint returned HTTP %d", ErrRefreshFailed, status)
	}

	cred := Credential{
		AccessToken:   grant.AccessToken,
		RefreshToken:  grant.RefreshToken,
		ExpiresAt:     m.now().Add(time.Duration(grant.ExpiresIn) * time.Second),
		Scope:         grant.Scope,
		Authenticated: true,
	}
	if cred.RefreshToken == "" {
		// Rotation is optional: keep the old refresh token when the provider
		// omits a replacement.
		cred.RefreshToken = refreshToken
	}
	if cred.AccessToken == "" {
		return "", fmt.Errorf("%w: token endpoint returned no access token", ErrRefreshFailed)
	}

	m.cred = cred
	m.memo = refreshAttempt{token: cred.RefreshToken, at: m.now(), failed: false}
	m.persist(ctx, cred)

	m.logger.Info("access token refreshed",
		logging.String("user_id", m.userID),
		logging.String("expires_at", cred.ExpiresAt.Format(time.RFC3339)))
	return cred.AccessToken, nil
}

// acquireRefreshLock waits briefly for the cross-process refresh lock. Lock
// contention is not a refresh failure: when the lock cannot be acquired the
// manager degrades to process-local serialization (m.mu) and proceeds.
func (m *Manager) acquireRefreshLock(ctx context.Context) func() {
	if m.lockPath == "" {
		return func() {}
	}

	wait := lockWaitCeiling
	if half := m.refreshTimeout / 2; half < wait {
		wait = half
	}
	lockCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	fileLock := flock.New(m.lockPath)
	locked, err := fileLock.TryLockContext(lockCtx, lockRetryInterval)
	if err == nil && !locked {
		err = errors.New("lock held by another process")
	}
	if err != nil {
		m.logger.Warn("refresh lock unavailable, proceeding without it",
			logging.String("lock_path", m.lockPath),
			logging.Error(err))
		return func() {}
	}
	return func() {
		if unlockErr := fileLock.Unlock(); unlockErr != nil {
			m.logger.Warn("release refresh lock", logging.Error(unlockErr))
		}
	}
}

type tokenGrant struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
}

func (m *Manager) tokenRequest(ctx context.Context, form url.Values) (tokenGrant, int, error) {
	endpoint := m.authBaseURL + "/api/v1/access_token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return tokenGrant{}, 0, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(m.clientID, m.clientSecret)
	if m.userAgent != "" {
		req.Header.Set("User-Agent", m.userAgent)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return tokenGrant{}, 0, errors.New("token request timed out")
		}
		return tokenGrant{}, 0, fmt.Errorf("execute token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return tokenGrant{}, resp.StatusCode, nil
	}

	var grant tokenGrant
	if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
		return tokenGrant{}, resp.StatusCode, fmt.Errorf("decode token response: %w", err)
	}
	return grant, resp.StatusCode, nil
}

// Connect exchanges an authorization code for a credential and persists it.
func (m *Manager) Connect(ctx context.Context, authorizationCode string) error {
	authorizationCode = strings.TrimSpace(authorizationCode)
	if authorizationCode == "" {
		return fmt.Errorf("%w: authorization code is required", ErrConfiguration)
	}

	ctx, cancel := context.WithTimeout(ctx, m.refreshTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", authorizationCode)
	if m.redirectURI != "" {
		form.Set("redirect_uri", m.redirectURI)
	}

	grant, status, err := m.tokenRequest(ctx, form)
	if err != nil {
		return fmt.Errorf("authorization exchange: %w", err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("authorization exchange rejected with HTTP %d", status)
	}
	if grant.AccessToken == "" || grant.RefreshToken == "" {
		return errors.New("authorization exchange returned an incomplete grant")
	}

	cred := Credential{
		AccessToken:   grant.AccessToken,
		RefreshToken:  grant.RefreshToken,
		ExpiresAt:     m.now().Add(time.Duration(grant.ExpiresIn) * time.Second),
		Scope:         grant.Scope,
		Authenticated: true,
	}

	m.mu.Lock()
	m.cred = cred
	m.phase = PhaseReady
	m.memo = refreshAttempt{}
	m.persist(ctx, cred)
	m.mu.Unlock()

	m.logger.Info("account connected", logging.String("user_id", m.userID))
	return nil
}

// Disconnect clears local state and deletes the persisted credential. The
// remote revocation is best effort: local state is torn down first so the
// caller always observes a logged-out session even when the provider is
// unreachable.
func (m *Manager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	refreshToken := m.cred.RefreshToken
	m.cred = Credential{}
	m.memo = refreshAttempt{}
	// A deliberate disconnect returns the manager to its pristine state so
	// status reporting can tell it apart from a broken refresh.
	m.phase = PhaseUninitialized
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Delete(ctx, m.userID); err != nil {
			m.logger.Warn("delete stored credential", logging.Error(err))
		}
	}
	if refreshToken != "" {
		if err := m.revokeToken(ctx, refreshToken); err != nil {
			m.logger.Warn("remote token revocation failed", logging.Error(err))
		}
	}
	m.logger.Info("account disconnected", logging.String("user_id", m.userID))
	return nil
}

func (m *Manager) revokeToken(ctx context.Context, refreshToken string) error {
	ctx, cancel := context.WithTimeout(ctx, m.refreshTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("token", refreshToken)
	form.Set("token_type_hint", "refresh_token")

	endpoint := m.authBaseURL + "/api/v1/revoke_token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(m.clientID, m.clientSecret)
	if m.userAgent != "" {
		req.Header.Set("User-Agent", m.userAgent)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute revoke request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("revoke endpoint returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func (m *Manager) persist(ctx context.Context, cred Credential) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(ctx, m.userID, cred); err != nil {
		// Persistence failure keeps the session alive in memory only.
		m.logger.Warn("persist credential", logging.Error(err))
	}
}

func (m *Manager) notifyAuthExpired(reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.notifier.NotifyAuthExpired(ctx, reason); err != nil {
		m.logger.Debug("auth-expired notification failed", logging.Error(err))
	}
}
