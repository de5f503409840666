// Package credential holds the operator's bearer credential in the
// shared persistent storage. It has no network or validation logic.
package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/atinyakov/opsconsole/internal/client/storage"
	"github.com/atinyakov/opsconsole/internal/models"
)

// Store reads and writes the credential keys of a storage.Storage.
type Store struct {
	kv storage.Storage
}

// NewStore returns a Store over kv.
func NewStore(kv storage.Storage) *Store {
	return &Store{kv: kv}
}

// Get returns the stored credential. ok is false when no access token is
// stored, whatever else is present.
func (s *Store) Get(ctx context.Context) (models.Credential, bool, error) {
	token, err := s.AccessToken(ctx)
	if err != nil || token == "" {
		return models.Credential{}, false, err
	}

	cred := models.Credential{AccessToken: token}
	if cred.RefreshToken, err = s.optional(ctx, storage.KeyRefreshToken); err != nil {
		return models.Credential{}, false, err
	}
	role, err := s.optional(ctx, storage.KeyRole)
	if err != nil {
		return models.Credential{}, false, err
	}
	cred.Role = models.Role(role)
	return cred, true, nil
}

// AccessToken returns the stored access token, or "" when logged out.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	return s.optional(ctx, storage.KeyAccessToken)
}

// Set replaces the credential in one atomic storage step. Fields left
// empty are removed so that a new credential never inherits a previous
// refresh token or role.
func (s *Store) Set(ctx context.Context, cred models.Credential) error {
	if cred.AccessToken == "" {
		return errors.New("credential: empty access token")
	}

	values := map[string]string{storage.KeyAccessToken: cred.AccessToken}
	var stale []string
	if cred.RefreshToken != "" {
		values[storage.KeyRefreshToken] = cred.RefreshToken
	} else {
		stale = append(stale, storage.KeyRefreshToken)
	}
	if cred.Role != "" {
		values[storage.KeyRole] = string(cred.Role)
	} else {
		stale = append(stale, storage.KeyRole)
	}

	if err := s.kv.Replace(ctx, values, stale); err != nil {
		return fmt.Errorf("credential: set: %w", err)
	}
	return nil
}

// Clear removes every credential field in one atomic delete.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, storage.CredentialKeys...); err != nil {
		return fmt.Errorf("credential: clear: %w", err)
	}
	return nil
}

// Purge removes the credential and the cached profile snapshot in one
// atomic delete. It is the purge path taken when the server reports the
// credential as invalid, and by logout.
func (s *Store) Purge(ctx context.Context) error {
	if err := s.kv.Delete(ctx, storage.SessionKeys...); err != nil {
		return fmt.Errorf("credential: purge session: %w", err)
	}
	return nil
}

func (s *Store) optional(ctx context.Context, key string) (string, error) {
	v, err := s.kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("credential: read %s: %w", key, err)
	}
	return v, nil
}
