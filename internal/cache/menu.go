package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const menuKeyPrefix = "mcpizza:menu:"

// MenuCache keeps raw store menus in Redis for ttl.
type MenuCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewMenuCache(client *redis.Client, ttl time.Duration) *MenuCache {
	return &MenuCache{client: client, ttl: ttl}
}

func (c *MenuCache) GetMenu(ctx context.Context, storeID string) ([]byte, bool, error) {
	raw, err := c.client.Get(ctx, menuKeyPrefix+storeID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read menu %s: %w", storeID, err)
	}
	return raw, true, nil
}

func (c *MenuCache) SetMenu(ctx context.Context, storeID string, raw []byte) error {
	if err := c.client.Set(ctx, menuKeyPrefix+storeID, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache menu %s: %w", storeID, err)
	}
	return nil
}
