package repository_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/nikolayk812/storefront/internal/port"
	"github.com/nikolayk812/storefront/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T, ttl time.Duration) (port.SnapshotStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return repository.NewRedisSnapshot(client, ttl), mr
}

func TestRedisSnapshot_SaveLoad(t *testing.T) {
	store, mr := setupRedis(t, time.Hour)
	ctx := t.Context()
	sessionID := gofakeit.UUID()

	snapshot := randomSnapshot(1)
	require.NoError(t, store.Save(ctx, sessionID, snapshot))

	assert.True(t, mr.Exists("cart:"+sessionID))
	assert.Equal(t, time.Hour, mr.TTL("cart:"+sessionID))

	loaded, err := store.Load(ctx, sessionID)
	require.NoError(t, err)
	assertSnapshot(t, snapshot, loaded)
}

func TestRedisSnapshot_IgnoresStaleVersion(t *testing.T) {
	store, _ := setupRedis(t, time.Hour)
	ctx := t.Context()
	sessionID := gofakeit.UUID()

	current := randomSnapshot(3)
	require.NoError(t, store.Save(ctx, sessionID, current))
	require.NoError(t, store.Save(ctx, sessionID, randomSnapshot(2)))

	loaded, err := store.Load(ctx, sessionID)
	require.NoError(t, err)
	assertSnapshot(t, current, loaded)

	next := randomSnapshot(4)
	require.NoError(t, store.Save(ctx, sessionID, next))
	loaded, err = store.Load(ctx, sessionID)
	require.NoError(t, err)
	assertSnapshot(t, next, loaded)
}

func TestRedisSnapshot_Expiry(t *testing.T) {
	store, mr := setupRedis(t, time.Minute)
	ctx := t.Context()
	sessionID := gofakeit.UUID()

	require.NoError(t, store.Save(ctx, sessionID, randomSnapshot(1)))
	mr.FastForward(2 * time.Minute)

	_, err := store.Load(ctx, sessionID)
	require.ErrorIs(t, err, port.ErrSnapshotNotFound)
}

func TestRedisSnapshot_Delete(t *testing.T) {
	store, mr := setupRedis(t, time.Hour)
	ctx := t.Context()
	sessionID := gofakeit.UUID()

	require.NoError(t, store.Save(ctx, sessionID, randomSnapshot(1)))
	require.NoError(t, store.Delete(ctx, sessionID))

	assert.False(t, mr.Exists("cart:"+sessionID))
	_, err := store.Load(ctx, sessionID)
	require.ErrorIs(t, err, port.ErrSnapshotNotFound)
}

func TestRedisSnapshot_CorruptValue(t *testing.T) {
	store, mr := setupRedis(t, time.Hour)
	sessionID := gofakeit.UUID()

	require.NoError(t, mr.Set("cart:"+sessionID, "{not json"))

	_, err := store.Load(t.Context(), sessionID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, port.ErrSnapshotNotFound)
}

func TestRedisSnapshot_Unavailable(t *testing.T) {
	store, mr := setupRedis(t, time.Hour)
	mr.Close()

	err := store.Save(t.Context(), gofakeit.UUID(), randomSnapshot(1))
	require.Error(t, err)
}

func TestRedisSnapshot_EmptySessionID(t *testing.T) {
	store, _ := setupRedis(t, time.Hour)
	ctx := t.Context()

	_, err := store.Load(ctx, "")
	require.EqualError(t, err, "sessionID is empty")
	require.EqualError(t, store.Save(ctx, "", randomSnapshot(1)), "sessionID is empty")
	require.EqualError(t, store.Delete(ctx, ""), "sessionID is empty")
}
