package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends returns every Storage implementation that can run without
// external services. Redis runs against an in-process miniredis.
func backends(t *testing.T) map[string]Storage {
	t.Helper()
	rs, _ := newMiniRedisStorage(t)
	return map[string]Storage{
		"memory": NewMemoryStorage(),
		"file":   NewFileStorage(filepath.Join(t.TempDir(), "state.json")),
		"redis":  rs,
	}
}

func TestStorage_Contract(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, KeyAccessToken)
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set(ctx, map[string]string{
				KeyAccessToken:  "tok",
				KeyRefreshToken: "ref",
				KeyRole:         "admin",
				KeyProfile:      `{"id":"1"}`,
			}))

			v, err := s.Get(ctx, KeyRole)
			require.NoError(t, err)
			assert.Equal(t, "admin", v)

			require.NoError(t, s.Delete(ctx, CredentialKeys...))
			for _, k := range CredentialKeys {
				_, err := s.Get(ctx, k)
				assert.ErrorIs(t, err, ErrNotFound, k)
			}
			v, err = s.Get(ctx, KeyProfile)
			require.NoError(t, err)
			assert.Equal(t, `{"id":"1"}`, v)

			require.NoError(t, s.Delete(ctx, SessionKeys...))
			_, err = s.Get(ctx, KeyProfile)
			assert.ErrorIs(t, err, ErrNotFound)

			// deleting absent keys is not an error
			require.NoError(t, s.Delete(ctx, "missing"))
		})
	}
}

func TestStorage_Replace(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set(ctx, map[string]string{
				KeyAccessToken:  "old",
				KeyRefreshToken: "ref",
				KeyRole:         "admin",
			}))

			require.NoError(t, s.Replace(ctx,
				map[string]string{KeyAccessToken: "new", KeyRole: "superadmin"},
				[]string{KeyRefreshToken, KeyRole},
			))

			v, err := s.Get(ctx, KeyAccessToken)
			require.NoError(t, err)
			assert.Equal(t, "new", v)
			v, err = s.Get(ctx, KeyRole)
			require.NoError(t, err)
			assert.Equal(t, "superadmin", v, "a key both deleted and set ends up written")
			_, err = s.Get(ctx, KeyRefreshToken)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Replace(ctx, nil, nil))
			require.NoError(t, s.Replace(ctx, nil, []string{KeyRole}))
			_, err = s.Get(ctx, KeyRole)
			assert.ErrorIs(t, err, ErrNotFound)
			require.NoError(t, s.Replace(ctx, map[string]string{KeyRole: "admin"}, nil))
			v, err = s.Get(ctx, KeyRole)
			require.NoError(t, err)
			assert.Equal(t, "admin", v)
		})
	}
}

func TestFileStorage_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	require.NoError(t, NewFileStorage(path).Set(ctx, map[string]string{KeyAccessToken: "tok"}))

	v, err := NewFileStorage(path).Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", v)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStorage_SeesOtherWriters(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	a, b := NewFileStorage(path), NewFileStorage(path)

	require.NoError(t, a.Set(ctx, map[string]string{KeyRole: "admin"}))
	v, err := b.Get(ctx, KeyRole)
	require.NoError(t, err)
	assert.Equal(t, "admin", v)

	require.NoError(t, b.Delete(ctx, KeyRole))
	_, err = a.Get(ctx, KeyRole)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStorage_VersionIncrements(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	s := NewFileStorage(path)

	require.NoError(t, s.Set(ctx, map[string]string{"a": "1"}))
	require.NoError(t, s.Set(ctx, map[string]string{"b": "2"}))

	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	var st fileState
	require.NoError(t, json.Unmarshal(buf, &st))
	assert.Equal(t, int64(2), st.Version)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, st.Values)
}

func TestFileStorage_CorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("not-json"), 0600))

	_, err := NewFileStorage(path).Get(ctx, KeyRole)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode state file")
}

func TestNewFileStorage_DefaultPath(t *testing.T) {
	assert.Equal(t, DefaultFile, NewFileStorage("").Path())
}
