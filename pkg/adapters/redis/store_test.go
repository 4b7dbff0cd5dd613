package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/launchpad/pkg/adapters/redis"
	"github.com/aretw0/launchpad/pkg/domain"
	"github.com/aretw0/launchpad/pkg/ports"
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

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunSessionStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	rec := domain.SessionRecord{ID: "client", RunID: "run-ttl", Status: domain.SessionRunning}

	require.NoError(t, store.Save(ctx, rec))

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// Key expiration only; the index score is pruned by List when the value is gone.
	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, rec.Key())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	records, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	members, err := client.ZRange(ctx, redis.DefaultPrefix+"index", 0, -1).Result()
	require.NoError(t, err)
	assert.Empty(t, members, "stale index members are pruned by List")
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()
	rec := domain.SessionRecord{ID: "client", RunID: "run-1"}

	require.NoError(t, store.Save(ctx, rec))

	assert.True(t, mr.Exists("custom:app:run-1/client"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "client", records[0].ID)
}
