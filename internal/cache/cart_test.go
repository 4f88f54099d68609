package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestCartStore_SetAndItems(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	store := NewCartStore(client)
	cartID := "test-cart-set"
	client.Del(ctx, cartKeyPrefix+cartID)
	defer client.Del(ctx, cartKeyPrefix+cartID)

	require.NoError(t, store.Set(ctx, cartID, "sheet", 2))
	require.NoError(t, store.Set(ctx, cartID, "screw", 5))
	require.NoError(t, store.Set(ctx, cartID, "sheet", 3))

	items, err := store.Items(ctx, cartID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"sheet": 3, "screw": 5}, items)

	ttl, err := client.TTL(ctx, cartKeyPrefix+cartID).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 6*24*time.Hour)
}

func TestCartStore_RemoveAndClear(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	store := NewCartStore(client)
	cartID := "test-cart-remove"
	client.Del(ctx, cartKeyPrefix+cartID)

	require.NoError(t, store.Set(ctx, cartID, "sheet", 2))
	require.NoError(t, store.Set(ctx, cartID, "screw", 1))
	require.NoError(t, store.Remove(ctx, cartID, "sheet"))

	items, err := store.Items(ctx, cartID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"screw": 1}, items)

	require.NoError(t, store.Clear(ctx, cartID))
	items, err = store.Items(ctx, cartID)
	require.NoError(t, err)
	assert.Empty(t, items)
}
