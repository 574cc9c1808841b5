package domain

import "context"

// CartRepository 购物车仓储接口
type CartRepository interface {
	// GetByUserID 获取用户购物车
	GetByUserID(ctx context.Context, userID string) (*Cart, error)
	// UpsertItem 插入或更新行项目，返回持久化后的行项目 ID
	UpsertItem(ctx context.Context, userID string, item *CartItem) (uint, error)
	// RemoveItem 删除行项目
	RemoveItem(ctx context.Context, userID string, itemID uint) error
	// RemoveItems 批量删除行项目
	RemoveItems(ctx context.Context, userID string, itemIDs []uint) error
	// SetSelected 更新行项目勾选状态
	SetSelected(ctx context.Context, userID string, itemIDs []uint, selected bool) error
	// Clear 清空用户购物车
	Clear(ctx context.Context, userID string) error
}
