// Package models defines the data structures shared by the console
// session layer and the list views.
package models

import (
	"encoding/json"
	"time"
)

// Role is the privilege level of a console operator.
type Role string

const (
	// RoleAdmin is a regular administrator.
	RoleAdmin Role = "admin"
	// RoleSuperAdmin may additionally manage administrators.
	RoleSuperAdmin Role = "superadmin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Credential is the bearer credential issued by the external login flow.
type Credential struct {
	// AccessToken is sent as "Authorization: Bearer <token>". An empty
	// AccessToken means logged out.
	AccessToken string `json:"accessToken"`
	// RefreshToken is kept for the login flow; the console never uses it.
	RefreshToken string `json:"refreshToken,omitempty"`
	// Role is the role the credential was issued for.
	Role Role `json:"role,omitempty"`
}

// ProfileSnapshot is the cached identity of the logged-in operator.
type ProfileSnapshot struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	CachedAt  time.Time
	ExpiresIn time.Duration
}

// ExpiresAt is the hard expiry instant of the snapshot.
func (p ProfileSnapshot) ExpiresAt() time.Time {
	return p.CachedAt.Add(p.ExpiresIn)
}

// FreshAt reports whether the snapshot may still be served at now.
func (p ProfileSnapshot) FreshAt(now time.Time) bool {
	return now.Before(p.ExpiresAt())
}

// snapshotJSON is the persisted form: cachedAt in unix milliseconds and
// expiresIn in milliseconds.
type snapshotJSON struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	CachedAt  int64  `json:"cachedAt"`
	ExpiresIn int64  `json:"expiresIn"`
}

// MarshalJSON encodes the snapshot in its persisted form.
func (p ProfileSnapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{
		ID:        p.ID,
		Name:      p.Name,
		Email:     p.Email,
		Role:      p.Role,
		CachedAt:  p.CachedAt.UnixMilli(),
		ExpiresIn: p.ExpiresIn.Milliseconds(),
	})
}

// UnmarshalJSON decodes the persisted form.
func (p *ProfileSnapshot) UnmarshalJSON(b []byte) error {
	var s snapshotJSON
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*p = ProfileSnapshot{
		ID:        s.ID,
		Name:      s.Name,
		Email:     s.Email,
		Role:      s.Role,
		CachedAt:  time.UnixMilli(s.CachedAt),
		ExpiresIn: time.Duration(s.ExpiresIn) * time.Millisecond,
	}
	return nil
}

// Payment is a row of the admin payments list.
type Payment struct {
	ID        string  `json:"id"`
	RequestID string  `json:"request_id,omitempty"`
	ClientID  string  `json:"client_id,omitempty"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency,omitempty"`
	Method    string  `json:"method"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
}
