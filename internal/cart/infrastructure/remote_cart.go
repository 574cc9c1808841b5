// Package infrastructure 购物车远端确认适配：
// 持久化到 MySQL，失效 Redis 快照，向 Kafka 发布领域事件
package infrastructure

import (
	"context"
	"time"

	"github.com/vinashop/storefront/internal/cart/application"
	"github.com/vinashop/storefront/internal/cart/domain"
	cartredis "github.com/vinashop/storefront/internal/cart/infrastructure/persistence/redis"
	"github.com/vinashop/storefront/pkg/logger"
)

const (
	topicCartItemAdded   = "cart.item.added"
	topicCartItemRemoved = "cart.item.removed"
	topicCartCleared     = "cart.cleared"
)

// RemoteCartAdapter 实现 application.RemoteCart
type RemoteCartAdapter struct {
	repo      domain.CartRepository
	cache     *cartredis.CartCache
	publisher domain.EventPublisher
}

// NewRemoteCartAdapter 创建远端确认适配器；cache 与 publisher 可为 nil
func NewRemoteCartAdapter(repo domain.CartRepository, cache *cartredis.CartCache, publisher domain.EventPublisher) *RemoteCartAdapter {
	return &RemoteCartAdapter{repo: repo, cache: cache, publisher: publisher}
}

// UpsertItem 持久化行项目并发布添加事件
func (a *RemoteCartAdapter) UpsertItem(ctx context.Context, userID string, item domain.CartItem) (uint, error) {
	itemID, err := a.repo.UpsertItem(ctx, userID, &item)
	if err != nil {
		return 0, err
	}
	a.invalidate(ctx, userID)
	a.publish(ctx, topicCartItemAdded, userID, domain.CartItemAddedEvent{
		UserID:    userID,
		ItemID:    itemID,
		ProductID: item.ProductID,
		VariantID: item.ProductVariantID,
		Quantity:  item.Quantity,
		Price:     item.FinalPrice,
		Timestamp: time.Now(),
	})
	return itemID, nil
}

// RemoveItem 删除行项目并发布移除事件
func (a *RemoteCartAdapter) RemoveItem(ctx context.Context, userID string, itemID uint) error {
	if err := a.repo.RemoveItem(ctx, userID, itemID); err != nil {
		return err
	}
	a.invalidate(ctx, userID)
	a.publish(ctx, topicCartItemRemoved, userID, domain.CartItemRemovedEvent{
		UserID:    userID,
		ItemID:    itemID,
		Timestamp: time.Now(),
	})
	return nil
}

// RemoveItems 批量删除行项目
func (a *RemoteCartAdapter) RemoveItems(ctx context.Context, userID string, itemIDs []uint) error {
	if err := a.repo.RemoveItems(ctx, userID, itemIDs); err != nil {
		return err
	}
	a.invalidate(ctx, userID)
	for _, id := range itemIDs {
		a.publish(ctx, topicCartItemRemoved, userID, domain.CartItemRemovedEvent{
			UserID:    userID,
			ItemID:    id,
			Timestamp: time.Now(),
		})
	}
	return nil
}

// SetSelected 持久化勾选状态
func (a *RemoteCartAdapter) SetSelected(ctx context.Context, userID string, itemIDs []uint, selected bool) error {
	if err := a.repo.SetSelected(ctx, userID, itemIDs, selected); err != nil {
		return err
	}
	a.invalidate(ctx, userID)
	return nil
}

// Clear 清空购物车并发布清空事件
func (a *RemoteCartAdapter) Clear(ctx context.Context, userID string) error {
	if err := a.repo.Clear(ctx, userID); err != nil {
		return err
	}
	a.invalidate(ctx, userID)
	a.publish(ctx, topicCartCleared, userID, domain.CartClearedEvent{
		UserID:    userID,
		Timestamp: time.Now(),
	})
	return nil
}

func (a *RemoteCartAdapter) invalidate(ctx context.Context, userID string) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Invalidate(ctx, userID); err != nil {
		logger.Warn(ctx, "Failed to invalidate cart snapshot cache", "user_id", userID, "error", err)
	}
}

func (a *RemoteCartAdapter) publish(ctx context.Context, topic, userID string, event any) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.Publish(ctx, topic, userID, event); err != nil {
		logger.Warn(ctx, "Failed to publish cart event", "topic", topic, "user_id", userID, "error", err)
	}
}

var _ application.RemoteCart = (*RemoteCartAdapter)(nil)
