package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/ytmix/internal/repositories"
	"github.com/desertthunder/ytmix/internal/shared"
	tu "github.com/desertthunder/ytmix/internal/testing"
)

type fakeExchange struct {
	mu           sync.Mutex
	codeToken    *oauth2.Token
	codeErr      error
	refreshToken *oauth2.Token
	refreshErr   error
	codes        []string
	refreshes    []string
}

func (f *fakeExchange) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
	return f.codeToken, f.codeErr
}

func (f *fakeExchange) Refresh(ctx context.Context, rt string) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes = append(f.refreshes, rt)
	return f.refreshToken, f.refreshErr
}

type fakeValidator struct {
	valid  map[string]bool
	probes []string
}

func (f *fakeValidator) ValidateToken(ctx context.Context, token string) error {
	f.probes = append(f.probes, token)
	if f.valid[token] {
		return nil
	}
	return errors.New("401")
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

type fixture struct {
	manager   *Manager
	store     *repositories.CredentialStore
	exchange  *fakeExchange
	validator *fakeValidator
	navigator *tu.Navigator
	clock     *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	c := &clock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	f := &fixture{
		store:     repositories.NewCredentialStore(db).WithClock(c.now),
		exchange:  &fakeExchange{},
		validator: &fakeValidator{valid: map[string]bool{}},
		navigator: &tu.Navigator{},
		clock:     c,
	}
	f.manager = NewManager(Options{
		Store:       f.store,
		Exchange:    f.exchange,
		Validator:   f.validator,
		ClientID:    "client-123",
		RedirectURL: "http://localhost:3000/callback",
		Navigate:    f.navigator.Open,
	})
	return f
}

// authorize starts an authorization and returns the state sent to the provider.
func (f *fixture) authorize(t *testing.T) string {
	t.Helper()
	if err := f.manager.Authenticate(false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, err := url.Parse(f.navigator.Last())
	if err != nil {
		t.Fatalf("invalid authorization URL: %v", err)
	}
	return u.Query().Get("state")
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()

	t.Run("by code", func(t *testing.T) {
		t.Run("success stores grant and scrubs code", func(t *testing.T) {
			f := newFixture(t)
			f.exchange.codeToken = &oauth2.Token{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 3600}

			cb := &Callback{Code: "code-1", State: f.authorize(t)}
			if got := f.manager.Bootstrap(ctx, cb); got != Authenticated {
				t.Fatalf("expected authenticated, got %s", got)
			}
			if cb.Code != "" {
				t.Error("code should be scrubbed")
			}

			cred, _ := f.store.Read(ctx)
			if cred.AccessToken != "at" || cred.RefreshToken != "rt" {
				t.Errorf("unexpected stored credential %+v", cred)
			}
		})

		t.Run("exchange failure", func(t *testing.T) {
			f := newFixture(t)
			f.exchange.codeErr = shared.ErrExchangeFailed

			cb := &Callback{Code: "code-1", State: f.authorize(t)}
			if got := f.manager.Bootstrap(ctx, cb); got != Unauthenticated {
				t.Errorf("expected unauthenticated, got %s", got)
			}
			if len(f.validator.probes) != 0 || len(f.exchange.refreshes) != 0 {
				t.Error("failed exchange should not fall through to the cache")
			}
		})

		t.Run("state mismatch", func(t *testing.T) {
			f := newFixture(t)
			f.exchange.codeToken = &oauth2.Token{AccessToken: "at", ExpiresIn: 3600}
			if err := f.manager.Authenticate(false); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got := f.manager.Bootstrap(ctx, &Callback{Code: "c", State: "forged"}); got != Unauthenticated {
				t.Errorf("expected unauthenticated, got %s", got)
			}
			if len(f.exchange.codes) != 0 {
				t.Error("code with wrong state must not be exchanged")
			}
		})

		t.Run("state match", func(t *testing.T) {
			f := newFixture(t)
			f.exchange.codeToken = &oauth2.Token{AccessToken: "at", ExpiresIn: 3600}
			state := f.authorize(t)

			if got := f.manager.Bootstrap(ctx, &Callback{Code: "c", State: state}); got != Authenticated {
				t.Errorf("expected authenticated, got %s", got)
			}
		})

		t.Run("no pending authorization", func(t *testing.T) {
			f := newFixture(t)
			f.exchange.codeToken = &oauth2.Token{AccessToken: "at", ExpiresIn: 3600}

			if got := f.manager.Bootstrap(ctx, &Callback{Code: "c", State: "anything"}); got != Unauthenticated {
				t.Errorf("expected unauthenticated, got %s", got)
			}
			if len(f.exchange.codes) != 0 {
				t.Error("unsolicited code must not be exchanged")
			}
		})

		t.Run("state is single use", func(t *testing.T) {
			f := newFixture(t)
			f.exchange.codeToken = &oauth2.Token{AccessToken: "at", ExpiresIn: 3600}
			state := f.authorize(t)

			f.manager.Bootstrap(ctx, &Callback{Code: "c1", State: state})
			f.manager.Logout(ctx)
			if got := f.manager.Bootstrap(ctx, &Callback{Code: "c2", State: state}); got != Unauthenticated {
				t.Errorf("replayed state should be rejected, got %s", got)
			}
			if len(f.exchange.codes) != 1 {
				t.Errorf("expected one exchange, got %d", len(f.exchange.codes))
			}
		})
	})

	t.Run("by error", func(t *testing.T) {
		f := newFixture(t)
		f.store.Store(ctx, "cached", 3600, "rt")
		f.validator.valid["cached"] = true

		got := f.manager.Bootstrap(ctx, &Callback{Error: "access_denied"})
		if got != Unauthenticated {
			t.Errorf("expected unauthenticated, got %s", got)
		}
		if len(f.validator.probes) != 0 {
			t.Error("error callback should not consult the cache")
		}
	})

	t.Run("by cache", func(t *testing.T) {
		t.Run("valid token", func(t *testing.T) {
			f := newFixture(t)
			f.store.Store(ctx, "cached", 3600, "")
			f.validator.valid["cached"] = true

			if got := f.manager.Bootstrap(ctx, nil); got != Authenticated {
				t.Errorf("expected authenticated, got %s", got)
			}
		})

		t.Run("rejected token refreshes", func(t *testing.T) {
			f := newFixture(t)
			f.store.Store(ctx, "cached", 3600, "rt")
			f.exchange.refreshToken = &oauth2.Token{AccessToken: "fresh", ExpiresIn: 3600}

			if got := f.manager.Bootstrap(ctx, &Callback{}); got != Authenticated {
				t.Fatalf("expected authenticated, got %s", got)
			}
			cred, _ := f.store.Read(ctx)
			if cred.AccessToken != "fresh" || cred.RefreshToken != "rt" {
				t.Errorf("unexpected credential %+v", cred)
			}
		})

		t.Run("expired token refreshes without probe", func(t *testing.T) {
			f := newFixture(t)
			f.store.Store(ctx, "old", 60, "rt")
			f.clock.t = f.clock.t.Add(2 * time.Minute)
			f.exchange.refreshToken = &oauth2.Token{AccessToken: "fresh", ExpiresIn: 3600}

			if got := f.manager.Bootstrap(ctx, nil); got != Authenticated {
				t.Errorf("expected authenticated, got %s", got)
			}
			if len(f.validator.probes) != 0 {
				t.Error("expired token should not be probed")
			}
		})

		t.Run("refresh failure clears", func(t *testing.T) {
			f := newFixture(t)
			f.store.Store(ctx, "old", 60, "rt")
			f.clock.t = f.clock.t.Add(2 * time.Minute)
			f.exchange.refreshErr = shared.ErrRefreshFailed

			if got := f.manager.Bootstrap(ctx, nil); got != Unauthenticated {
				t.Errorf("expected unauthenticated, got %s", got)
			}
			cred, _ := f.store.Read(ctx)
			if cred.HasRefreshToken() {
				t.Error("credentials should be cleared")
			}
		})

		t.Run("rejected token without refresh is accepted", func(t *testing.T) {
			f := newFixture(t)
			f.store.Store(ctx, "cached", 3600, "")

			if got := f.manager.Bootstrap(ctx, nil); got != Authenticated {
				t.Errorf("expected optimistic authentication, got %s", got)
			}
		})

		t.Run("empty cache", func(t *testing.T) {
			f := newFixture(t)
			if got := f.manager.Bootstrap(ctx, nil); got != Unauthenticated {
				t.Errorf("expected unauthenticated, got %s", got)
			}
			if f.manager.IsValidating() {
				t.Error("bootstrap must not stay in validating")
			}
		})
	})
}

func TestAccessToken(t *testing.T) {
	ctx := context.Background()

	t.Run("requires authentication", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.manager.AccessToken(ctx); !errors.Is(err, shared.ErrAuthRequired) {
			t.Errorf("expected ErrAuthRequired, got %v", err)
		}
	})

	t.Run("reads latest stored token", func(t *testing.T) {
		f := newFixture(t)
		f.store.Store(ctx, "first", 3600, "")
		f.validator.valid["first"] = true
		f.manager.Bootstrap(ctx, nil)

		f.store.Store(ctx, "second", 3600, "")
		got, err := f.manager.AccessToken(ctx)
		if err != nil || got != "second" {
			t.Errorf("expected second, got %q (%v)", got, err)
		}
	})

	t.Run("refreshes when expired", func(t *testing.T) {
		f := newFixture(t)
		f.store.Store(ctx, "first", 60, "rt")
		f.validator.valid["first"] = true
		f.manager.Bootstrap(ctx, nil)

		f.clock.t = f.clock.t.Add(time.Minute)
		f.exchange.refreshToken = &oauth2.Token{AccessToken: "fresh", ExpiresIn: 3600}

		got, err := f.manager.AccessToken(ctx)
		if err != nil || got != "fresh" {
			t.Errorf("expected fresh, got %q (%v)", got, err)
		}
	})

	t.Run("expired without refresh token", func(t *testing.T) {
		f := newFixture(t)
		f.store.Store(ctx, "first", 60, "")
		f.validator.valid["first"] = true
		f.manager.Bootstrap(ctx, nil)

		f.clock.t = f.clock.t.Add(time.Minute)
		if _, err := f.manager.AccessToken(ctx); !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})
}

func TestSweep(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, refresh string) *fixture {
		f := newFixture(t)
		f.store.Store(ctx, "tok", 60, refresh)
		f.validator.valid["tok"] = true
		if f.manager.Bootstrap(ctx, nil) != Authenticated {
			t.Fatal("expected authenticated fixture")
		}
		return f
	}

	t.Run("noop while valid", func(t *testing.T) {
		f := setup(t, "rt")
		f.manager.Sweep(ctx)
		if len(f.exchange.refreshes) != 0 {
			t.Error("no refresh expected before expiry")
		}
	})

	t.Run("refreshes in place", func(t *testing.T) {
		f := setup(t, "rt")
		f.clock.t = f.clock.t.Add(time.Hour)
		f.exchange.refreshToken = &oauth2.Token{AccessToken: "next", ExpiresIn: 3600}

		f.manager.Sweep(ctx)
		if !f.manager.IsAuthenticated() {
			t.Error("should stay authenticated")
		}
		cred, _ := f.store.Read(ctx)
		if cred.AccessToken != "next" {
			t.Errorf("expected refreshed token, got %q", cred.AccessToken)
		}
	})

	t.Run("refresh failure logs out", func(t *testing.T) {
		f := setup(t, "rt")
		f.clock.t = f.clock.t.Add(time.Hour)
		f.exchange.refreshErr = shared.ErrRefreshFailed

		f.manager.Sweep(ctx)
		if f.manager.State() != Unauthenticated {
			t.Errorf("expected unauthenticated, got %s", f.manager.State())
		}
	})

	t.Run("expired without refresh logs out", func(t *testing.T) {
		f := setup(t, "")
		f.clock.t = f.clock.t.Add(time.Hour)

		f.manager.Sweep(ctx)
		if f.manager.IsAuthenticated() {
			t.Error("expected logout")
		}
	})

	t.Run("Watch stops with context", func(t *testing.T) {
		f := setup(t, "rt")
		f.manager.interval = time.Millisecond
		wctx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			f.manager.Watch(wctx)
			close(done)
		}()
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Watch did not return after cancel")
		}
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("AuthURL", func(t *testing.T) {
		f := newFixture(t)
		tc := []struct {
			force  bool
			prompt string
		}{
			{force: false, prompt: "select_account"},
			{force: true, prompt: "consent"},
		}

		for _, tt := range tc {
			u, err := url.Parse(f.manager.AuthURL("st", tt.force))
			if err != nil {
				t.Fatalf("invalid URL: %v", err)
			}
			q := u.Query()
			if !strings.HasPrefix(u.String(), googleAuthURL) {
				t.Errorf("unexpected endpoint %s", u)
			}
			if q.Get("prompt") != tt.prompt || q.Get("access_type") != "offline" {
				t.Errorf("unexpected params %v", q)
			}
			if q.Get("client_id") != "client-123" || q.Get("response_type") != "code" || q.Get("state") != "st" {
				t.Errorf("unexpected params %v", q)
			}
			if !strings.Contains(q.Get("scope"), "youtube.readonly") {
				t.Errorf("expected youtube scopes, got %q", q.Get("scope"))
			}
		}
	})

	t.Run("navigation failure", func(t *testing.T) {
		f := newFixture(t)
		f.navigator.Err = errors.New("no display")
		if err := f.manager.Authenticate(false); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("ForceReAuthenticate", func(t *testing.T) {
		f := newFixture(t)
		f.store.Store(ctx, "tok", 3600, "rt")
		f.validator.valid["tok"] = true
		f.manager.Bootstrap(ctx, nil)

		if err := f.manager.ForceReAuthenticate(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.manager.IsAuthenticated() {
			t.Error("expected logout")
		}
		cred, _ := f.store.Read(ctx)
		if cred.HasRefreshToken() {
			t.Error("credentials should be cleared")
		}
		if !strings.Contains(f.navigator.Last(), "prompt=consent") {
			t.Errorf("expected consent prompt, got %s", f.navigator.Last())
		}
	})
}

func TestCallback(t *testing.T) {
	cb := CallbackFromQuery(url.Values{"code": {"c"}, "state": {"s"}})
	if cb.Empty() {
		t.Error("callback with code is not empty")
	}
	cb.Scrub()
	if !cb.Empty() || cb.State != "" {
		t.Errorf("expected scrubbed callback, got %+v", cb)
	}

	denied := CallbackFromQuery(url.Values{"error": {"access_denied"}, "error_description": {"nope"}})
	if denied.Empty() || denied.ErrorDescription != "nope" {
		t.Errorf("unexpected callback %+v", denied)
	}

	if Validating.String() != "validating" || State(9).String() != "unknown" {
		t.Error("unexpected state names")
	}
}
