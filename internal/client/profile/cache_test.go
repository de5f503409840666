package profile

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/opsconsole/internal/client/api"
	"github.com/atinyakov/opsconsole/internal/client/storage"
	"github.com/atinyakov/opsconsole/internal/clock"
	"github.com/atinyakov/opsconsole/internal/models"
)

var epoch = time.UnixMilli(1_760_000_000_000)

// fakeDoer returns queued outcomes and records requests.
type fakeDoer struct {
	outcomes []api.Outcome
	requests []api.Request
}

func (f *fakeDoer) Execute(_ context.Context, req api.Request) api.Outcome {
	f.requests = append(f.requests, req)
	if len(f.outcomes) == 0 {
		return api.NetworkError{Message: "no outcome queued"}
	}
	out := f.outcomes[0]
	f.outcomes = f.outcomes[1:]
	return out
}

// fakeCreds serves a fixed access token.
type fakeCreds struct {
	token string
	err   error
}

func (f *fakeCreds) AccessToken(context.Context) (string, error) { return f.token, f.err }

func meSuccess(data string) api.Outcome {
	return api.Success{Message: "ok", Data: json.RawMessage(data)}
}

func newTestCache(doer Doer) (*Cache, *clock.FakeClock, *storage.MemoryStorage) {
	return newTestCacheWith(doer, &fakeCreds{token: "tok"})
}

func newTestCacheWith(doer Doer, creds api.Credentials) (*Cache, *clock.FakeClock, *storage.MemoryStorage) {
	fc := clock.NewFake(epoch)
	kv := storage.NewMemoryStorage()
	return NewCache(kv, creds, doer, WithClock(fc), WithTTL(3600000*time.Millisecond)), fc, kv
}

func TestGet_EmptyFetchesAndCaches(t *testing.T) {
	doer := &fakeDoer{outcomes: []api.Outcome{
		meSuccess(`{"id":7,"name":"Ada","email":"ada@example.com","role":"superadmin"}`),
	}}
	c, _, _ := newTestCache(doer)

	snap, out := c.Get(context.Background())
	require.IsType(t, api.Success{}, out)
	require.NotNil(t, snap)
	assert.Equal(t, "7", snap.ID)
	assert.Equal(t, models.RoleSuperAdmin, snap.Role)
	assert.True(t, snap.CachedAt.Equal(epoch))
	assert.Equal(t, time.Hour, snap.ExpiresIn)

	require.Len(t, doer.requests, 1)
	assert.Equal(t, MePath, doer.requests[0].Path)
	assert.True(t, doer.requests[0].NotFoundMeansLoggedOut)

	st, err := c.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Fresh, st)
}

func TestGet_WrappedUserPayload(t *testing.T) {
	doer := &fakeDoer{outcomes: []api.Outcome{
		meSuccess(`{"user":{"id":"u-1","name":"Lin","email":"lin@example.com","role":"admin"}}`),
	}}
	c, _, _ := newTestCache(doer)

	snap, out := c.Get(context.Background())
	require.IsType(t, api.Success{}, out)
	assert.Equal(t, "u-1", snap.ID)
	assert.Equal(t, "Lin", snap.Name)
}

func TestGet_TTLBoundary(t *testing.T) {
	doer := &fakeDoer{outcomes: []api.Outcome{
		meSuccess(`{"id":"1","email":"a@example.com"}`),
		meSuccess(`{"id":"1","email":"b@example.com"}`),
	}}
	c, fc, _ := newTestCache(doer)
	ctx := context.Background()

	_, out := c.Get(ctx)
	require.IsType(t, api.Success{}, out)

	fc.Advance(3599999 * time.Millisecond)
	snap, out := c.Get(ctx)
	require.IsType(t, api.Success{}, out)
	assert.Equal(t, "a@example.com", snap.Email)
	assert.Len(t, doer.requests, 1, "fresh snapshot must not hit the network")

	fc.Advance(2 * time.Millisecond)
	snap, out = c.Get(ctx)
	require.IsType(t, api.Success{}, out)
	assert.Equal(t, "b@example.com", snap.Email)
	assert.Len(t, doer.requests, 2)
	assert.True(t, snap.CachedAt.Equal(epoch.Add(3600001*time.Millisecond)))
}

func TestGet_FailureLeavesCacheUntouched(t *testing.T) {
	tests := []struct {
		name string
		out  api.Outcome
	}{
		{"server", api.ServerError{Message: "boom", ErrorType: api.ErrorTypeServerError}},
		{"network", api.NetworkError{Message: "down"}},
		{"forbidden", api.Forbidden{Message: "no", ErrorType: api.ErrorTypeInsufficientPrivilege}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := &fakeDoer{outcomes: []api.Outcome{tt.out}}
			c, fc, kv := newTestCache(doer)
			ctx := context.Background()

			stale := models.ProfileSnapshot{ID: "old", CachedAt: epoch, ExpiresIn: time.Minute}
			require.NoError(t, c.Set(ctx, stale))
			fc.Advance(2 * time.Minute)

			snap, out := c.Get(ctx)
			assert.Nil(t, snap)
			assert.Equal(t, tt.out, out)

			raw, err := kv.Get(ctx, storage.KeyProfile)
			require.NoError(t, err)
			var kept models.ProfileSnapshot
			require.NoError(t, json.Unmarshal([]byte(raw), &kept))
			assert.Equal(t, "old", kept.ID)
		})
	}
}

func TestGet_NeedsLoginPropagates(t *testing.T) {
	want := api.NeedsLogin{Message: "not logged in", ErrorType: api.ErrorTypeTokenMissing}
	c, _, _ := newTestCache(&fakeDoer{outcomes: []api.Outcome{want}})

	snap, out := c.Get(context.Background())
	assert.Nil(t, snap)
	assert.Equal(t, want, out)
}

func TestGet_InvalidPayload(t *testing.T) {
	for _, data := range []string{`[]`, `{}`, `null`} {
		c, _, kv := newTestCache(&fakeDoer{outcomes: []api.Outcome{meSuccess(data)}})
		snap, out := c.Get(context.Background())
		assert.Nil(t, snap, data)
		assert.IsType(t, api.UnexpectedError{}, out, data)
		assert.Zero(t, kv.Len(), data)
	}
}

func TestGet_CorruptSnapshotRefetches(t *testing.T) {
	doer := &fakeDoer{outcomes: []api.Outcome{meSuccess(`{"id":"1"}`)}}
	c, _, kv := newTestCache(doer)
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, map[string]string{storage.KeyProfile: "{broken"}))

	st, err := c.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, Empty, st)

	snap, out := c.Get(ctx)
	require.IsType(t, api.Success{}, out)
	assert.Equal(t, "1", snap.ID)
}

type failingStorage struct{ storage.MemoryStorage }

func (*failingStorage) Get(context.Context, string) (string, error) {
	return "", errors.New("disk gone")
}

func TestGet_StorageError(t *testing.T) {
	doer := &fakeDoer{}
	c := NewCache(&failingStorage{}, &fakeCreds{token: "tok"}, doer)

	snap, out := c.Get(context.Background())
	assert.Nil(t, snap)
	assert.IsType(t, api.UnexpectedError{}, out)
	assert.Empty(t, doer.requests)
}

func TestGet_NoTokenDropsSnapshot(t *testing.T) {
	ctx := context.Background()
	creds := &fakeCreds{token: "tok"}
	doer := &fakeDoer{}
	c, _, kv := newTestCacheWith(doer, creds)
	require.NoError(t, c.Set(ctx, models.ProfileSnapshot{ID: "1", CachedAt: epoch, ExpiresIn: time.Hour}))

	creds.token = ""
	snap, out := c.Get(ctx)
	assert.Nil(t, snap)
	nl, ok := out.(api.NeedsLogin)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, api.ErrorTypeTokenMissing, nl.ErrorType)
	assert.False(t, nl.Purge)
	assert.Empty(t, doer.requests)

	_, err := kv.Get(ctx, storage.KeyProfile)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGet_CredentialReadError(t *testing.T) {
	doer := &fakeDoer{}
	c, _, _ := newTestCacheWith(doer, &fakeCreds{err: errors.New("disk gone")})

	snap, out := c.Get(context.Background())
	assert.Nil(t, snap)
	assert.IsType(t, api.UnexpectedError{}, out)
	assert.Empty(t, doer.requests)
}

func TestSetClearState(t *testing.T) {
	c, fc, _ := newTestCache(&fakeDoer{})
	ctx := context.Background()

	st, err := c.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, Empty, st)

	require.NoError(t, c.Set(ctx, models.ProfileSnapshot{ID: "1", CachedAt: epoch, ExpiresIn: time.Second}))
	st, _ = c.State(ctx)
	assert.Equal(t, Fresh, st)

	fc.Advance(time.Second)
	st, _ = c.State(ctx)
	assert.Equal(t, Stale, st)

	require.NoError(t, c.Clear(ctx))
	st, _ = c.State(ctx)
	assert.Equal(t, Empty, st)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "empty", Empty.String())
	assert.Equal(t, "fresh", Fresh.String())
	assert.Equal(t, "stale", Stale.String())
	assert.Equal(t, "state(9)", State(9).String())
}

func TestNewCache_Defaults(t *testing.T) {
	c := NewCache(storage.NewMemoryStorage(), &fakeCreds{}, &fakeDoer{}, WithTTL(-1))
	assert.Equal(t, DefaultTTL, c.TTL())
}
