// Package mysql 购物车的 GORM 持久化实现
package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/vinashop/storefront/internal/cart/domain"
)

type cartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓储
func NewCartRepository(db *gorm.DB) domain.CartRepository {
	return &cartRepository{db: db}
}

// GetByUserID 查询用户购物车及全部行项目；尚无购物车时返回 nil
func (r *cartRepository) GetByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("user_id = ?", userID).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// ensureCart 取得用户购物车，不存在时创建
func (r *cartRepository) ensureCart(tx *gorm.DB, userID string) (*domain.Cart, error) {
	var cart domain.Cart
	err := tx.Where(domain.Cart{UserID: userID}).
		Attrs(domain.Cart{UserID: userID}).
		FirstOrCreate(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// UpsertItem 插入或更新行项目
// ID 为零时按商品/变体匹配已有行，命中则覆盖数量与价格，否则新建
func (r *cartRepository) UpsertItem(ctx context.Context, userID string, item *domain.CartItem) (uint, error) {
	var itemID uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := r.ensureCart(tx, userID)
		if err != nil {
			return err
		}
		item.CartID = cart.ID

		if item.ID != 0 {
			itemID = item.ID
			return tx.Model(&domain.CartItem{}).
				Where("id = ? AND cart_id = ?", item.ID, cart.ID).
				Updates(map[string]interface{}{
					"quantity":    item.Quantity,
					"final_price": item.FinalPrice,
					"selected":    item.Selected,
				}).Error
		}

		var existing domain.CartItem
		query := tx.Where("cart_id = ? AND product_id = ?", cart.ID, item.ProductID)
		if item.ProductVariantID != nil {
			query = query.Where("product_variant_id = ?", *item.ProductVariantID)
		} else {
			query = query.Where("product_variant_id IS NULL")
		}
		err = query.First(&existing).Error
		if err == nil {
			itemID = existing.ID
			return tx.Model(&existing).Updates(map[string]interface{}{
				"quantity":    item.Quantity,
				"final_price": item.FinalPrice,
			}).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(item).Error; err != nil {
			return err
		}
		itemID = item.ID
		return nil
	})
	return itemID, err
}

// RemoveItem 删除行项目
func (r *cartRepository) RemoveItem(ctx context.Context, userID string, itemID uint) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND cart_id IN (SELECT id FROM carts WHERE user_id = ?)", itemID, userID).
		Delete(&domain.CartItem{}).Error
}

// RemoveItems 批量删除行项目
func (r *cartRepository) RemoveItems(ctx context.Context, userID string, itemIDs []uint) error {
	if len(itemIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("id IN ? AND cart_id IN (SELECT id FROM carts WHERE user_id = ?)", itemIDs, userID).
		Delete(&domain.CartItem{}).Error
}

// SetSelected 同步行项目勾选状态
func (r *cartRepository) SetSelected(ctx context.Context, userID string, itemIDs []uint, selected bool) error {
	if len(itemIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&domain.CartItem{}).
		Where("id IN ? AND cart_id IN (SELECT id FROM carts WHERE user_id = ?)", itemIDs, userID).
		Update("selected", selected).Error
}

// Clear 清空用户购物车的全部行项目
func (r *cartRepository) Clear(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("cart_id IN (SELECT id FROM carts WHERE user_id = ?)", userID).
		Delete(&domain.CartItem{}).Error
}
