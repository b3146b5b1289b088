package kv

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/kuitter-gate/internal/config"
)

func setupRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	r, err := InitServer(context.Background(), config.RedisConnection{AddressRedis: mr.Addr(), KeyPrefix: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func setupSQLite(t *testing.T) *SQLite {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func backends(t *testing.T) map[string]Factory {
	r, _ := setupRedis(t)
	return map[string]Factory{
		"redis":  r,
		"sqlite": setupSQLite(t),
	}
}

func TestStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	for name, f := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := f.For("device")

			_, found, err := s.Get(ctx, KeyTheme)
			require.NoError(t, err)
			assert.False(t, found)

			require.NoError(t, s.Set(ctx, KeyTheme, "dark"))
			require.NoError(t, s.Set(ctx, KeyTheme, "light"))

			val, found, err := s.Get(ctx, KeyTheme)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "light", val)

			require.NoError(t, s.Delete(ctx, KeyTheme))
			require.NoError(t, s.Delete(ctx, KeyTheme))
			_, found, err = s.Get(ctx, KeyTheme)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestStore_SetNXWritesOnce(t *testing.T) {
	ctx := context.Background()
	for name, f := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := f.For("device")

			written, err := s.SetNX(ctx, KeyTrialStart, "1000")
			require.NoError(t, err)
			assert.True(t, written)

			written, err = s.SetNX(ctx, KeyTrialStart, "2000")
			require.NoError(t, err)
			assert.False(t, written)

			val, _, err := s.Get(ctx, KeyTrialStart)
			require.NoError(t, err)
			assert.Equal(t, "1000", val)
		})
	}
}

func TestStore_ClearIsScopedToNamespace(t *testing.T) {
	ctx := context.Background()
	for name, f := range backends(t) {
		t.Run(name, func(t *testing.T) {
			alice := f.For("alice")
			bob := f.For("bob")

			for i := 0; i < 250; i++ {
				require.NoError(t, alice.Set(ctx, "k"+strconv.Itoa(i), "v"))
			}
			require.NoError(t, bob.Set(ctx, KeySubscription, "active"))

			require.NoError(t, alice.Clear(ctx))

			_, found, err := alice.Get(ctx, "k42")
			require.NoError(t, err)
			assert.False(t, found)

			val, found, err := bob.Get(ctx, KeySubscription)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "active", val)
		})
	}
}

func TestRedis_KeyLayout(t *testing.T) {
	r, mr := setupRedis(t)
	require.NoError(t, r.For("user-1").Set(context.Background(), KeySubscription, "active"))

	val, err := mr.Get("test:user-1:subscription_status")
	require.NoError(t, err)
	assert.Equal(t, "active", val)
}

func TestInitServerInvalidAddr(t *testing.T) {
	r, err := InitServer(context.Background(), config.RedisConnection{AddressRedis: "127.0.0.1:1"})
	assert.Nil(t, r)
	assert.Error(t, err)
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.For("device").Set(ctx, KeyTrialStart, "12345"))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	val, found, err := s.For("device").Get(ctx, KeyTrialStart)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "12345", val)
}

func TestRedis_Ping(t *testing.T) {
	r, mr := setupRedis(t)
	require.NoError(t, r.Ping(context.Background()))
	mr.Close()
	assert.Error(t, r.Ping(context.Background()))
}
