package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/rapport/pkg/adapters/redis"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/ports"
	"github.com/aretw0/rapport/pkg/ports/tests"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestStore_Contract(t *testing.T) {
	_, client := newClient(t)
	tests.RunResultStoreContract(t, redis.NewFromClient(client))
}

func TestStore_TTL(t *testing.T) {
	mr, client := newClient(t)

	now := time.Unix(1_700_000_000, 0)
	store := redis.NewFromClient(client,
		redis.WithTTL(time.Minute),
		redis.WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", &domain.Result{SessionID: "s1", Totals: domain.Scores{Clarity: 2}}))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)

	mr.FastForward(2 * time.Minute)
	now = now.Add(2 * time.Minute)

	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrResultNotFound)

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStore_Prefix(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("test:"))

	require.NoError(t, store.Save(context.Background(), "abc", &domain.Result{SessionID: "abc"}))
	assert.True(t, mr.Exists("test:abc"))
	assert.True(t, mr.Exists("test:index"))
}

func TestCache_GetSet(t *testing.T) {
	mr, client := newClient(t)
	cache := redis.NewCache(client)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	want := ports.GenerationResponse{Text: "hello", Model: "m", Usage: ports.Usage{TotalTokens: 3}}
	require.NoError(t, cache.Set(ctx, "k", want, 10*time.Second))

	got, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	mr.FastForward(11 * time.Second)
	_, ok, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_CorruptEntry(t *testing.T) {
	mr, client := newClient(t)
	cache := redis.NewCache(client, redis.WithCachePrefix("c:"))

	require.NoError(t, mr.Set("c:bad", "{not json"))
	_, _, err := cache.Get(context.Background(), "bad")
	assert.Error(t, err)
}
