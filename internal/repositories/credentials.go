package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Keys under which the token lifecycle is persisted.
const (
	KeyAccessToken  = "youtube_access_token"
	KeyTokenExpiry  = "youtube_token_expiry"
	KeyRefreshToken = "youtube_refresh_token"
)

// CredentialRepository is a string key-value table backing the credential cache.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new [CredentialRepository] with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Get returns the stored value and whether the key exists.
func (r *CredentialRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM credentials WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get credential[%s]: %w", key, err)
	}
	return value, true, nil
}

// Set upserts a value.
func (r *CredentialRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set credential[%s]: %w", key, err)
	}
	return nil
}

// Delete removes a key. Missing keys are not an error.
func (r *CredentialRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete credential[%s]: %w", key, err)
	}
	return nil
}

// StoredCredential is the result of reading the credential cache.
//
// AccessToken is empty whenever the token is missing or expired.
type StoredCredential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Expired      bool
}

// HasRefreshToken reports whether a refresh can be attempted.
func (c StoredCredential) HasRefreshToken() bool {
	return c.RefreshToken != ""
}

// CredentialStore persists the access token, its absolute expiry and the refresh token.
type CredentialStore struct {
	repo *CredentialRepository
	now  func() time.Time
}

// NewCredentialStore creates a [CredentialStore] over db using the wall clock.
func NewCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{repo: NewCredentialRepository(db), now: time.Now}
}

// WithClock replaces the clock used to compute and check expiry.
func (s *CredentialStore) WithClock(now func() time.Time) *CredentialStore {
	s.now = now
	return s
}

// Store records accessToken expiring expiresIn seconds from now.
//
// An empty refreshToken leaves any previously stored refresh token in place.
func (s *CredentialStore) Store(ctx context.Context, accessToken string, expiresIn int, refreshToken string) error {
	expiry := s.now().Add(time.Duration(expiresIn) * time.Second).UnixMilli()

	if err := s.repo.Set(ctx, KeyAccessToken, accessToken); err != nil {
		return err
	}
	if err := s.repo.Set(ctx, KeyTokenExpiry, strconv.FormatInt(expiry, 10)); err != nil {
		return err
	}
	if refreshToken != "" {
		if err := s.repo.Set(ctx, KeyRefreshToken, refreshToken); err != nil {
			return err
		}
	}
	return nil
}

// Read returns the cached credential. A missing or unparsable expiry, or one at
// or before now, reads as expired with no access token.
func (s *CredentialStore) Read(ctx context.Context) (StoredCredential, error) {
	var cred StoredCredential

	refresh, _, err := s.repo.Get(ctx, KeyRefreshToken)
	if err != nil {
		return cred, err
	}
	cred.RefreshToken = refresh

	token, hasToken, err := s.repo.Get(ctx, KeyAccessToken)
	if err != nil {
		return cred, err
	}
	rawExpiry, hasExpiry, err := s.repo.Get(ctx, KeyTokenExpiry)
	if err != nil {
		return cred, err
	}

	cred.Expired = true
	if !hasToken || !hasExpiry || token == "" {
		return cred, nil
	}

	ms, err := strconv.ParseInt(rawExpiry, 10, 64)
	if err != nil {
		return cred, nil
	}
	cred.ExpiresAt = time.UnixMilli(ms)

	if s.now().Before(cred.ExpiresAt) {
		cred.AccessToken = token
		cred.Expired = false
	}
	return cred, nil
}

// Clear removes all three entries.
func (s *CredentialStore) Clear(ctx context.Context) error {
	for _, key := range []string{KeyAccessToken, KeyTokenExpiry, KeyRefreshToken} {
		if err := s.repo.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
