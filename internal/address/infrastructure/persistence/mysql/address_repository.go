// Package mysql 收货地址的 GORM 持久化实现
package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/vinashop/storefront/internal/address/domain"
)

type addressRepository struct {
	db *gorm.DB
}

// NewAddressRepository 创建地址仓储
func NewAddressRepository(db *gorm.DB) domain.AddressRepository {
	return &addressRepository{db: db}
}

// unsetDefaults 取消用户其他地址的默认标记
func unsetDefaults(tx *gorm.DB, userID string, exceptID uint) error {
	query := tx.Model(&domain.ShippingAddress{}).Where("user_id = ? AND is_default = ?", userID, true)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	return query.Update("is_default", false).Error
}

// Create 新增地址；设为默认时同一事务内取消其他默认，保证用户至多一个默认地址
func (r *addressRepository) Create(ctx context.Context, address *domain.ShippingAddress) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if address.IsDefault {
			if err := unsetDefaults(tx, address.UserID, 0); err != nil {
				return err
			}
		}
		return tx.Create(address).Error
	})
}

// Update 更新地址，默认标记处理同 Create
func (r *addressRepository) Update(ctx context.Context, address *domain.ShippingAddress) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if address.IsDefault {
			if err := unsetDefaults(tx, address.UserID, address.ID); err != nil {
				return err
			}
		}
		return tx.Model(&domain.ShippingAddress{}).
			Where("id = ? AND user_id = ?", address.ID, address.UserID).
			Updates(map[string]interface{}{
				"receiver":      address.Receiver,
				"phone":         address.Phone,
				"province_code": address.ProvinceCode,
				"province_name": address.ProvinceName,
				"district_code": address.DistrictCode,
				"district_name": address.DistrictName,
				"ward_code":     address.WardCode,
				"ward_name":     address.WardName,
				"detail":        address.Detail,
				"is_default":    address.IsDefault,
			}).Error
	})
}

// Delete 删除地址
func (r *addressRepository) Delete(ctx context.Context, userID string, addressID uint) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", addressID, userID).
		Delete(&domain.ShippingAddress{}).Error
}

// GetByID 按 ID 查询；不存在时返回 nil
func (r *addressRepository) GetByID(ctx context.Context, userID string, addressID uint) (*domain.ShippingAddress, error) {
	var address domain.ShippingAddress
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", addressID, userID).
		First(&address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &address, nil
}

// ListByUser 查询用户全部地址，默认地址排最前
func (r *addressRepository) ListByUser(ctx context.Context, userID string) ([]*domain.ShippingAddress, error) {
	var addresses []*domain.ShippingAddress
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, updated_at DESC").
		Find(&addresses).Error
	if err != nil {
		return nil, err
	}
	return addresses, nil
}

// SetDefault 指定默认地址
func (r *addressRepository) SetDefault(ctx context.Context, userID string, addressID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := unsetDefaults(tx, userID, addressID); err != nil {
			return err
		}
		result := tx.Model(&domain.ShippingAddress{}).
			Where("id = ? AND user_id = ?", addressID, userID).
			Update("is_default", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
