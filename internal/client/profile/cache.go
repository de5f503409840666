// Package profile caches the logged-in operator's profile for a fixed
// TTL and sweeps expired snapshots in the background.
//
// A snapshot is trusted until it expires: reads never revalidate with
// the server. A session revoked server-side therefore stays visible
// locally until the next authenticated call fails or until the first
// sweep after expiry, whichever comes first; the bound is TTL plus the
// sweep interval.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/opsconsole/internal/client/api"
	"github.com/atinyakov/opsconsole/internal/client/storage"
	"github.com/atinyakov/opsconsole/internal/clock"
	"github.com/atinyakov/opsconsole/internal/logger"
	"github.com/atinyakov/opsconsole/internal/models"
)

const (
	// DefaultTTL is how long a fetched profile is served from cache.
	DefaultTTL = time.Hour
	// DefaultSweepInterval is how often the sweeper checks for expiry.
	DefaultSweepInterval = 5 * time.Minute
	// MePath is the identity endpoint.
	MePath = "/auth/me"
)

// State is the cache state.
type State int

const (
	Empty State = iota
	Fresh
	Stale
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// Doer executes an API request.
type Doer interface {
	Execute(ctx context.Context, req api.Request) api.Outcome
}

// Cache is the profile cache. It keeps no in-memory copy: the snapshot
// lives in the shared storage under storage.KeyProfile, so purging the
// session storage also empties the cache. A snapshot is only served
// while an access token is present.
type Cache struct {
	kv    storage.Storage
	creds api.Credentials
	doer  Doer
	clock clock.Clock
	ttl   time.Duration
	log   *zap.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock sets the time source.
func WithClock(c clock.Clock) Option { return func(cc *Cache) { cc.clock = c } }

// WithTTL sets the snapshot lifetime.
func WithTTL(ttl time.Duration) Option { return func(cc *Cache) { cc.ttl = ttl } }

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option { return func(cc *Cache) { cc.log = logger.OrNop(log) } }

// NewCache returns a Cache storing snapshots in kv and fetching through
// doer. creds gates every read on the current access token.
func NewCache(kv storage.Storage, creds api.Credentials, doer Doer, opts ...Option) *Cache {
	c := &Cache{
		kv:    kv,
		creds: creds,
		doer:  doer,
		clock: clock.Real(),
		ttl:   DefaultTTL,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	return c
}

// TTL returns the configured snapshot lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

// State reports whether a snapshot is stored and whether it has expired.
func (c *Cache) State(ctx context.Context) (State, error) {
	snap, err := c.load(ctx)
	if err != nil {
		return Empty, err
	}
	return c.stateOf(snap), nil
}

func (c *Cache) stateOf(snap *models.ProfileSnapshot) State {
	switch {
	case snap == nil:
		return Empty
	case snap.FreshAt(c.clock.Now()):
		return Fresh
	default:
		return Stale
	}
}

// Get returns the profile. Without an access token it drops any stored
// snapshot and returns api.NeedsLogin with no network call. A fresh
// snapshot is returned without a network call; otherwise the profile is
// fetched, cached and returned. The snapshot is non-nil only when the
// outcome is api.Success. Failed fetches leave the cache untouched.
func (c *Cache) Get(ctx context.Context) (*models.ProfileSnapshot, api.Outcome) {
	token, err := c.creds.AccessToken(ctx)
	if err != nil {
		c.log.Error("read access token", zap.Error(err))
		return nil, api.UnexpectedError{Message: "credential storage unavailable"}
	}
	if token == "" {
		if err := c.Clear(ctx); err != nil {
			c.log.Warn("drop orphaned profile", zap.Error(err))
		}
		return nil, api.NeedsLogin{Message: "not logged in", ErrorType: api.ErrorTypeTokenMissing}
	}

	snap, err := c.load(ctx)
	if err != nil {
		c.log.Error("read cached profile", zap.Error(err))
		return nil, api.UnexpectedError{Message: "profile cache unavailable"}
	}
	if c.stateOf(snap) == Fresh {
		return snap, successOf(snap)
	}

	out := c.doer.Execute(ctx, api.Request{
		Method:                 http.MethodGet,
		Path:                   MePath,
		NotFoundMeansLoggedOut: true,
	})
	ok, isSuccess := out.(api.Success)
	if !isSuccess {
		return nil, out
	}

	fetched, err := decodeProfile(ok.Data)
	if err != nil {
		c.log.Warn("decode profile", zap.Error(err))
		return nil, api.UnexpectedError{Message: "invalid profile payload", StatusCode: http.StatusOK}
	}
	fetched.CachedAt = c.clock.Now()
	fetched.ExpiresIn = c.ttl

	if err := c.Set(ctx, *fetched); err != nil {
		c.log.Error("cache profile", zap.Error(err))
	}
	return fetched, successOf(fetched)
}

// Set stores snap, replacing any previous snapshot in one write.
func (c *Cache) Set(ctx context.Context, snap models.ProfileSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("profile: encode snapshot: %w", err)
	}
	if err := c.kv.Set(ctx, map[string]string{storage.KeyProfile: string(b)}); err != nil {
		return fmt.Errorf("profile: store snapshot: %w", err)
	}
	return nil
}

// Clear removes the snapshot.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.kv.Delete(ctx, storage.KeyProfile); err != nil {
		return fmt.Errorf("profile: clear: %w", err)
	}
	return nil
}

// load returns the stored snapshot, or nil when there is none. A
// snapshot that cannot be decoded counts as none.
func (c *Cache) load(ctx context.Context) (*models.ProfileSnapshot, error) {
	raw, err := c.kv.Get(ctx, storage.KeyProfile)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("profile: load snapshot: %w", err)
	}

	var snap models.ProfileSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		c.log.Warn("discarding corrupt profile snapshot", zap.Error(err))
		return nil, nil
	}
	return &snap, nil
}

func successOf(snap *models.ProfileSnapshot) api.Outcome {
	out, err := api.NewSuccess("profile loaded", snap)
	if err != nil {
		return api.UnexpectedError{Message: err.Error()}
	}
	return out
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type profileFields struct {
	ID    flexString  `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

// decodeProfile reads the /auth/me data member, either flat or wrapped
// in a "user" object.
func decodeProfile(data json.RawMessage) (*models.ProfileSnapshot, error) {
	var payload struct {
		profileFields
		User *profileFields `json:"user"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	f := payload.profileFields
	if payload.User != nil {
		f = *payload.User
	}
	if f.ID == "" && f.Email == "" {
		return nil, errors.New("profile has neither id nor email")
	}
	return &models.ProfileSnapshot{
		ID:    string(f.ID),
		Name:  f.Name,
		Email: f.Email,
		Role:  f.Role,
	}, nil
}
