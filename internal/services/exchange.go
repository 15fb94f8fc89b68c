// Token exchange backend client
//
// The backend holds the OAuth client secret and trades authorization codes and
// refresh tokens for access tokens on the caller's behalf.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/ytmix/internal/shared"
)

const defaultRefreshExpiresIn = 3600

// APIResponse is a raw response from the exchange backend.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ExchangeService calls the token exchange backend.
type ExchangeService struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// NewExchangeService creates a client for the exchange backend at baseURL.
func NewExchangeService(baseURL string, client *http.Client) *ExchangeService {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &ExchangeService{baseURL: strings.TrimRight(baseURL, "/"), httpClient: client, now: time.Now}
}

// ExchangeCode trades an authorization code for a token grant.
//
// The returned token's ExpiresIn holds the lifetime in seconds and its RefreshToken may be empty.
func (e *ExchangeService) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := e.grant(ctx, "/api/auth/exchange", map[string]string{"code": code})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrExchangeFailed, err)
	}
	return tok, nil
}

// Refresh trades a refresh token for a new access token. A missing lifetime defaults to one hour.
func (e *ExchangeService) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	tok, err := e.grant(ctx, "/api/auth/refresh", map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	if tok.ExpiresIn <= 0 {
		tok.ExpiresIn = defaultRefreshExpiresIn
		tok.Expiry = e.now().Add(defaultRefreshExpiresIn * time.Second)
	}
	// the backend never rotates refresh tokens
	tok.RefreshToken = ""
	return tok, nil
}

// Health checks that the backend is reachable.
func (e *ExchangeService) Health(ctx context.Context) error {
	resp, err := e.Get(ctx, "/api/health")
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	}
	if !resp.OK() {
		return fmt.Errorf("%w: status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	}
	return nil
}

func (e *ExchangeService) grant(ctx context.Context, path string, payload map[string]string) (*oauth2.Token, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := e.Post(ctx, path, data)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(resp.Body, &tok); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("response missing access_token")
	}
	if tok.ExpiresIn > 0 {
		tok.Expiry = e.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	return &tok, nil
}

// Get performs a GET request to the specified path and returns the raw response.
func (e *ExchangeService) Get(ctx context.Context, path string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return e.do(req)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (e *ExchangeService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func (e *ExchangeService) do(req *http.Request) (*APIResponse, error) {
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &APIResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}, nil
}
