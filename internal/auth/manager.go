package auth

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/ytmix/internal/repositories"
	"github.com/desertthunder/ytmix/internal/shared"
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"

	defaultSweepInterval = time.Minute
)

// DefaultScopes grants read access and playlist management.
var DefaultScopes = []string{
	"https://www.googleapis.com/auth/youtube.readonly",
	"https://www.googleapis.com/auth/youtube",
}

// CredentialStore persists the credential triple.
type CredentialStore interface {
	Store(ctx context.Context, accessToken string, expiresIn int, refreshToken string) error
	Read(ctx context.Context) (repositories.StoredCredential, error)
	Clear(ctx context.Context) error
}

// Exchanger trades codes and refresh tokens for access tokens.
type Exchanger interface {
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Validator confirms a token is accepted by the API.
type Validator interface {
	ValidateToken(ctx context.Context, token string) error
}

// Navigator hands a URL to the user's browser.
type Navigator func(url string) error

// Options configures a [Manager].
type Options struct {
	Store         CredentialStore
	Exchange      Exchanger
	Validator     Validator
	ClientID      string
	RedirectURL   string
	AuthURL       string
	Scopes        []string
	Navigate      Navigator
	SweepInterval time.Duration
	Logger        *log.Logger
}

// Manager is the token lifecycle state machine.
type Manager struct {
	store     CredentialStore
	exchange  Exchanger
	validator Validator
	oauth     *oauth2.Config
	navigate  Navigator
	interval  time.Duration
	logger    *log.Logger

	mu           sync.RWMutex
	state        State
	pendingState string

	// serializes refreshes between the sweep and token readers
	refreshMu sync.Mutex
}

// NewManager creates a [Manager] in the [Unauthenticated] state.
func NewManager(opts Options) *Manager {
	scopes := opts.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	interval := opts.SweepInterval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	authURL := opts.AuthURL
	if authURL == "" {
		authURL = googleAuthURL
	}
	navigate := opts.Navigate
	if navigate == nil {
		navigate = shared.OpenBrowser
	}

	return &Manager{
		store:     opts.Store,
		exchange:  opts.Exchange,
		validator: opts.Validator,
		oauth: &oauth2.Config{
			ClientID:    opts.ClientID,
			RedirectURL: opts.RedirectURL,
			Scopes:      scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: googleTokenURL,
			},
		},
		navigate: navigate,
		interval: interval,
		logger:   logger,
	}
}

// State returns the current authentication state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsAuthenticated reports whether the session holds a usable token.
func (m *Manager) IsAuthenticated() bool {
	return m.State() == Authenticated
}

// IsValidating reports whether a bootstrap is in progress.
func (m *Manager) IsValidating() bool {
	return m.State() == Validating
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()

	if prev != s {
		m.logger.Debug("auth state changed", "from", prev, "to", s)
	}
}

// Bootstrap settles the session from a redirect callback or, when cb is empty, the credential cache.
//
// A code is only exchanged when its state matches the one issued by the last
// [Manager.Authenticate] call, and a consumed code is scrubbed from cb.
// The returned state is never [Validating].
func (m *Manager) Bootstrap(ctx context.Context, cb *Callback) State {
	m.setState(Validating)

	if cb != nil && cb.Error != "" {
		m.logger.Warn("authorization denied", "error", cb.Error, "description", cb.ErrorDescription)
		m.setState(Unauthenticated)
		return Unauthenticated
	}

	if cb != nil && cb.Code != "" {
		return m.bootstrapCode(ctx, cb)
	}

	return m.bootstrapCache(ctx)
}

func (m *Manager) bootstrapCode(ctx context.Context, cb *Callback) State {
	m.mu.Lock()
	expected := m.pendingState
	m.pendingState = ""
	m.mu.Unlock()

	if expected == "" || cb.State != expected {
		m.logger.Warn("authorization state mismatch, ignoring code", "pending", expected != "")
		cb.Scrub()
		m.setState(Unauthenticated)
		return Unauthenticated
	}

	tok, err := m.exchange.ExchangeCode(ctx, cb.Code)
	cb.Scrub()
	if err != nil {
		m.logger.Error("failed to exchange authorization code", "error", err)
		m.setState(Unauthenticated)
		return Unauthenticated
	}

	if err := m.store.Store(ctx, tok.AccessToken, int(tok.ExpiresIn), tok.RefreshToken); err != nil {
		m.logger.Error("failed to store credentials", "error", err)
		m.setState(Unauthenticated)
		return Unauthenticated
	}

	if tok.RefreshToken == "" {
		m.logger.Warn("no refresh token issued, session cannot renew itself")
	}
	m.setState(Authenticated)
	return Authenticated
}

func (m *Manager) bootstrapCache(ctx context.Context) State {
	cred, err := m.store.Read(ctx)
	if err != nil {
		m.logger.Error("failed to read credentials", "error", err)
		m.setState(Unauthenticated)
		return Unauthenticated
	}

	if !cred.Expired {
		err := m.validator.ValidateToken(ctx, cred.AccessToken)
		if err == nil {
			m.setState(Authenticated)
			return Authenticated
		}
		m.logger.Debug("cached token rejected", "error", err)
	}

	if cred.HasRefreshToken() {
		if _, err := m.refresh(ctx, cred.RefreshToken); err != nil {
			m.logger.Warn("refresh failed, clearing credentials", "error", err)
			if err := m.store.Clear(ctx); err != nil {
				m.logger.Error("failed to clear credentials", "error", err)
			}
			m.setState(Unauthenticated)
			return Unauthenticated
		}
		m.setState(Authenticated)
		return Authenticated
	}

	if cred.AccessToken != "" {
		m.logger.Warn("accepting unverified token without refresh token")
		m.setState(Authenticated)
		return Authenticated
	}

	m.setState(Unauthenticated)
	return Unauthenticated
}

// refresh exchanges rt and stores the new access token, keeping rt.
func (m *Manager) refresh(ctx context.Context, rt string) (string, error) {
	tok, err := m.exchange.Refresh(ctx, rt)
	if err != nil {
		return "", err
	}
	if err := m.store.Store(ctx, tok.AccessToken, int(tok.ExpiresIn), ""); err != nil {
		return "", err
	}
	m.logger.Debug("access token refreshed", "expires_in", tok.ExpiresIn)
	return tok.AccessToken, nil
}

// AccessToken returns the current non-expired token, refreshing it first when it has expired.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	if !m.IsAuthenticated() {
		return "", shared.ErrAuthRequired
	}

	cred, err := m.store.Read(ctx)
	if err != nil {
		return "", err
	}
	if !cred.Expired {
		return cred.AccessToken, nil
	}
	if !cred.HasRefreshToken() {
		return "", shared.ErrTokenExpired
	}

	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	// another caller may have refreshed while we waited
	cred, err = m.store.Read(ctx)
	if err != nil {
		return "", err
	}
	if !cred.Expired {
		return cred.AccessToken, nil
	}

	token, err := m.refresh(ctx, cred.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrTokenExpired, err)
	}
	return token, nil
}

// Sweep refreshes an expired token in place, or logs out when it cannot.
func (m *Manager) Sweep(ctx context.Context) {
	if !m.IsAuthenticated() {
		return
	}

	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	cred, err := m.store.Read(ctx)
	if err != nil {
		m.logger.Error("sweep failed to read credentials", "error", err)
		return
	}
	if !cred.Expired {
		return
	}

	if cred.HasRefreshToken() {
		_, err := m.refresh(ctx, cred.RefreshToken)
		if err == nil {
			return
		}
		m.logger.Warn("sweep refresh failed, logging out", "error", err)
	} else {
		m.logger.Info("token expired without refresh token, logging out")
	}

	if err := m.Logout(ctx); err != nil {
		m.logger.Error("failed to clear credentials", "error", err)
	}
}

// Watch runs [Manager.Sweep] on the configured interval until ctx is done.
//
// ctx must be session scoped; a run's cancellation does not stop the sweep.
func (m *Manager) Watch(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// AuthURL builds the provider authorization URL requesting offline access.
//
// forceConsent re-prompts for consent so a new refresh token is issued.
func (m *Manager) AuthURL(state string, forceConsent bool) string {
	prompt := "select_account"
	if forceConsent {
		prompt = "consent"
	}
	return m.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", prompt))
}

// Authenticate sends the user to the provider. The matching [Callback] is
// expected to carry the generated state back to [Manager.Bootstrap].
func (m *Manager) Authenticate(forceConsent bool) error {
	state := shared.GenerateID()

	m.mu.Lock()
	m.pendingState = state
	m.mu.Unlock()

	url := m.AuthURL(state, forceConsent)
	m.logger.Debug("opening authorization page", "consent", forceConsent)
	if err := m.navigate(url); err != nil {
		return fmt.Errorf("%w: open %s: %w", shared.ErrAuthFailed, url, err)
	}
	return nil
}

// Logout clears the cache and returns to [Unauthenticated].
func (m *Manager) Logout(ctx context.Context) error {
	err := m.store.Clear(ctx)
	m.setState(Unauthenticated)
	return err
}

// ForceReAuthenticate logs out then authenticates with forced consent.
func (m *Manager) ForceReAuthenticate(ctx context.Context) error {
	if err := m.Logout(ctx); err != nil {
		return err
	}
	return m.Authenticate(true)
}
