// Package redis 购物车快照缓存
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/vinashop/storefront/internal/cart/application"
	"github.com/vinashop/storefront/pkg/cache"
)

// CartCache 缓存购物车快照，降低列表页的重算开销
type CartCache struct {
	rdb *cache.RedisCache
	ttl time.Duration
}

// NewCartCache 创建快照缓存
func NewCartCache(rdb *cache.RedisCache, ttl time.Duration) *CartCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CartCache{rdb: rdb, ttl: ttl}
}

func (c *CartCache) key(userID string) string {
	return fmt.Sprintf("cart_snapshot_%s", userID)
}

// GetSnapshot 读取缓存的快照，未命中时 found 为 false
func (c *CartCache) GetSnapshot(ctx context.Context, userID string) (application.Snapshot, bool, error) {
	var snap application.Snapshot
	found, err := c.rdb.GetJSON(ctx, c.key(userID), &snap)
	return snap, found, err
}

// SetSnapshot 写入快照
func (c *CartCache) SetSnapshot(ctx context.Context, userID string, snap application.Snapshot) error {
	return c.rdb.SetJSON(ctx, c.key(userID), snap, c.ttl)
}

// Invalidate 变更后失效快照
func (c *CartCache) Invalidate(ctx context.Context, userID string) error {
	return c.rdb.Delete(ctx, c.key(userID))
}
