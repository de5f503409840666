// Package storage provides the process-wide persistent key/value state
// shared by the credential store and the profile cache.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when a key is absent.
var ErrNotFound = errors.New("storage: key not found")

// Persisted session keys.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyRole         = "role"
	KeyProfile      = "profile"
)

// CredentialKeys are the keys owned by the credential store.
var CredentialKeys = []string{KeyAccessToken, KeyRefreshToken, KeyRole}

// SessionKeys is every key that makes up the persisted session.
var SessionKeys = []string{KeyAccessToken, KeyRefreshToken, KeyRole, KeyProfile}

// Storage is a string key/value store. Set, Delete and Replace are
// atomic over all the keys they are given: readers never observe a
// partial write or a partial delete.
type Storage interface {
	// Get returns the value of key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set writes all values in one atomic step.
	Set(ctx context.Context, values map[string]string) error
	// Delete removes all keys in one atomic step. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// Replace removes del and writes set in one atomic step. A key in
	// both ends up written.
	Replace(ctx context.Context, set map[string]string, del []string) error
}
