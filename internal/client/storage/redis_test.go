package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedisStorage(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStorage("redis://"+mr.Addr()+"/0", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestNewRedisStorage_BadURL(t *testing.T) {
	_, err := NewRedisStorage("http://localhost:6379", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse redis url")
}

func TestRedisStorage_KeyPrefix(t *testing.T) {
	s, err := NewRedisStorage("redis://localhost:6379/0", "")
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "opsconsole:accessToken", s.key(KeyAccessToken))

	s2, err := NewRedisStorage("redis://localhost:6379/0", "team-a:")
	require.NoError(t, err)
	defer s2.Close()
	assert.Equal(t, "team-a:role", s2.key(KeyRole))
}

func TestRedisStorage_Unreachable(t *testing.T) {
	s, err := NewRedisStorage("redis://127.0.0.1:1/0?dial_timeout=100ms&max_retries=-1", "")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	_, err = s.Get(ctx, KeyRole)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.Error(t, s.Set(ctx, map[string]string{KeyRole: "admin"}))
	assert.Error(t, s.Delete(ctx, KeyRole))
	assert.ErrorContains(t, s.Ping(ctx), "ping redis")
}

func TestRedisStorage_EmptyOperationsSkipNetwork(t *testing.T) {
	s, err := NewRedisStorage("redis://127.0.0.1:1/0?dial_timeout=100ms&max_retries=-1", "")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	assert.NoError(t, s.Set(ctx, nil))
	assert.NoError(t, s.Delete(ctx))
}

func TestRedisStorage_PrefixedKeysOnServer(t *testing.T) {
	s, mr := newMiniRedisStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, map[string]string{KeyAccessToken: "tok"}))
	v, err := mr.Get("opsconsole:accessToken")
	require.NoError(t, err)
	assert.Equal(t, "tok", v)
	assert.False(t, mr.Exists(KeyAccessToken))
	assert.NoError(t, s.Ping(ctx))
}

func TestRedisStorage_MissingKeyIsNotFound(t *testing.T) {
	s, _ := newMiniRedisStorage(t)
	_, err := s.Get(context.Background(), KeyProfile)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStorage_OneCommandPerWriteAndDelete(t *testing.T) {
	s, mr := newMiniRedisStorage(t)
	ctx := context.Background()
	// open the pooled connection first so its handshake is not counted
	require.NoError(t, s.Ping(ctx))

	before := mr.CommandCount()
	require.NoError(t, s.Set(ctx, map[string]string{
		KeyAccessToken:  "tok",
		KeyRefreshToken: "ref",
		KeyRole:         "admin",
		KeyProfile:      `{"id":"1"}`,
	}))
	assert.Equal(t, before+1, mr.CommandCount(), "all keys written by one MSET")

	before = mr.CommandCount()
	require.NoError(t, s.Delete(ctx, SessionKeys...))
	assert.Equal(t, before+1, mr.CommandCount(), "all keys removed by one DEL")
	assert.Empty(t, mr.Keys())
}

func TestRedisStorage_ReplaceIsTransactional(t *testing.T) {
	s, mr := newMiniRedisStorage(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, map[string]string{KeyAccessToken: "old", KeyRole: "admin"}))

	require.NoError(t, s.Replace(ctx, map[string]string{KeyAccessToken: "new"}, []string{KeyRole}))
	assert.Equal(t, []string{"opsconsole:accessToken"}, mr.Keys())
	v, err := mr.Get("opsconsole:accessToken")
	require.NoError(t, err)
	assert.Equal(t, "new", v)
}
