package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cartKeyPrefix = "cart:"
	cartTTL       = 7 * 24 * time.Hour
)

// CartStore keeps each cart as a hash of product id to quantity.
type CartStore struct {
	client *redis.Client
}

func NewCartStore(client *redis.Client) *CartStore {
	return &CartStore{client: client}
}

func (c *CartStore) Items(ctx context.Context, cartID string) (map[string]int, error) {
	raw, err := c.client.HGetAll(ctx, cartKeyPrefix+cartID).Result()
	if err != nil {
		return nil, err
	}

	items := make(map[string]int, len(raw))
	for productID, v := range raw {
		qty, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("cart %s: bad quantity for %s: %w", cartID, productID, err)
		}
		if qty > 0 {
			items[productID] = qty
		}
	}
	return items, nil
}

// Set writes a quantity and refreshes the cart's expiry.
func (c *CartStore) Set(ctx context.Context, cartID, productID string, quantity int) error {
	key := cartKeyPrefix + cartID
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, productID, quantity)
		pipe.Expire(ctx, key, cartTTL)
		return nil
	})
	return err
}

func (c *CartStore) Remove(ctx context.Context, cartID, productID string) error {
	key := cartKeyPrefix + cartID
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, key, productID)
		pipe.Expire(ctx, key, cartTTL)
		return nil
	})
	return err
}

func (c *CartStore) Clear(ctx context.Context, cartID string) error {
	return c.client.Del(ctx, cartKeyPrefix+cartID).Err()
}

func (c *CartStore) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
