package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmix/internal/auth"
	"github.com/desertthunder/ytmix/internal/shared"
)

// RedirectServer is a short-lived local listener that waits for a single
// authorization redirect.
type RedirectServer struct {
	addr     string
	handler  *CallbackHandler
	srv      *http.Server
	listener net.Listener
	errs     chan error
	logger   *log.Logger
}

// NewRedirectServer prepares a listener on addr whose callback route is the
// path of redirectURI.
func NewRedirectServer(addr, redirectURI string, logger *log.Logger) (*RedirectServer, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("%w: redirect uri %q: %v", shared.ErrInvalidConfig, redirectURI, err)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	handler := NewCallbackHandler(path)
	router := NewBasicRouter()
	router.Use(Recover(logger), Logging(logger))
	router.Handler(handler)

	return &RedirectServer{
		addr:    addr,
		handler: handler,
		srv: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		errs:   make(chan error, 1),
		logger: logger,
	}, nil
}

// Start binds the address and serves in the background.
func (s *RedirectServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	go func() {
		s.logger.Debug("redirect server listening", "addr", ln.Addr().String())
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errs <- err
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before [RedirectServer.Start].
func (s *RedirectServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Wait blocks until the redirect arrives, the server fails, timeout elapses or ctx ends.
func (s *RedirectServer) Wait(ctx context.Context, timeout time.Duration) (auth.Callback, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case cb := <-s.handler.Result():
		return cb, nil
	case err := <-s.errs:
		return auth.Callback{}, fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return auth.Callback{}, fmt.Errorf("%w: no authorization redirect after %v", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return auth.Callback{}, shared.CancelledError(ctx)
	}
}

// Shutdown stops the listener.
func (s *RedirectServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
