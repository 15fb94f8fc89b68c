package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/ytmix/internal/auth"
	"github.com/desertthunder/ytmix/internal/server"
	"github.com/desertthunder/ytmix/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin runs the browser authorization flow.
//
// Starts a local HTTP server for the redirect, sends the user to the consent page,
// then hands the captured redirect to the token manager.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}
	if err := r.session(); err != nil {
		return err
	}

	consent := cmd.Bool("consent")
	if !consent && r.manager.Bootstrap(ctx, nil) == auth.Authenticated {
		return r.writePlain("✓ Already authenticated (use --consent to authorize again)\n")
	}

	return r.authorize(ctx, "authorization", func() error {
		return r.manager.Authenticate(consent)
	})
}

// AuthReauth clears stored credentials and authorizes with forced consent.
func (r *Runner) AuthReauth(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}
	if err := r.session(); err != nil {
		return err
	}

	return r.authorize(ctx, "reauthorization", func() error {
		return r.manager.ForceReAuthenticate(ctx)
	})
}

// authorize serves the redirect URI while start navigates to the provider.
func (r *Runner) authorize(ctx context.Context, prefix string, start func() error) error {
	srv, err := server.NewRedirectServer(r.config.Server.Addr(), r.config.Credentials.Google.RedirectURI,
		shared.WithLogger(r.logger, "component", "server"))
	if err != nil {
		return err
	}

	r.logger.Infof("starting redirect server for %s at %v", prefix, r.config.Server.Addr())
	if err := srv.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	r.writeStatus("→ Opening browser for YouTube %s...\n", prefix)
	if err := start(); err != nil {
		return err
	}

	timeout := r.config.Server.CallbackTimeout()
	r.writeStatus("→ Waiting for authorization (%v timeout)...\n", timeout)

	cb, err := srv.Wait(ctx, timeout)
	if err != nil {
		return err
	}

	if r.manager.Bootstrap(ctx, &cb) != auth.Authenticated {
		if cb.Error != "" {
			return fmt.Errorf("%w: %s", shared.ErrAuthFailed, cb.Error)
		}
		return fmt.Errorf("%w: could not complete %s", shared.ErrAuthFailed, prefix)
	}

	return r.writePlain("✓ Authorization successful\n")
}

// authStatus is the machine readable form of `auth status`.
type authStatus struct {
	State           string `json:"state"`
	Authenticated   bool   `json:"authenticated"`
	ExchangeHealthy bool   `json:"exchange_healthy"`
	ExchangeError   string `json:"exchange_error,omitempty"`
}

// AuthStatus reports the session state and the exchange service health.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.session(); err != nil {
		return err
	}

	r.logger.Info("checking auth status")

	state := r.manager.Bootstrap(ctx, nil)
	status := authStatus{
		State:         state.String(),
		Authenticated: state == auth.Authenticated,
	}
	if err := r.exchange.Health(ctx); err != nil {
		status.ExchangeError = err.Error()
	} else {
		status.ExchangeHealthy = true
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	if status.ExchangeHealthy {
		r.writePlain("%s\n", r.palette.OK("✓ Exchange service is healthy"))
	} else {
		r.writePlain("%s %s\n", r.palette.Err("✗ Exchange service unavailable:"), status.ExchangeError)
	}
	if status.Authenticated {
		return r.writePlain("Authentication: ✓ Authenticated\n")
	}
	return r.writePlain("Authentication: ✗ Not authenticated (run 'ytmix auth login')\n")
}

// AuthLogout clears stored credentials.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.session(); err != nil {
		return err
	}
	if err := r.manager.Logout(ctx); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return r.writePlain("✓ Logged out\n")
}
