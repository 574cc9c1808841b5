// Package domain 地址上下文的领域模型：收货地址与行政区划
package domain

import (
	"context"
	"time"
)

// ShippingAddress 收货地址
type ShippingAddress struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 归属用户
	UserID string `gorm:"size:64;index" json:"user_id"`
	// 收货人姓名
	Receiver string `gorm:"size:64" json:"receiver"`
	// 联系电话
	Phone string `gorm:"size:20" json:"phone"`
	// 省/直辖市编码
	ProvinceCode string `gorm:"size:16" json:"province_code"`
	// 省/直辖市名称
	ProvinceName string `gorm:"size:64" json:"province_name"`
	// 郡/县编码
	DistrictCode string `gorm:"size:16" json:"district_code"`
	// 郡/县名称
	DistrictName string `gorm:"size:64" json:"district_name"`
	// 坊/社编码
	WardCode string `gorm:"size:16" json:"ward_code"`
	// 坊/社名称
	WardName string `gorm:"size:64" json:"ward_name"`
	// 详细地址
	Detail string `gorm:"size:255" json:"detail"`
	// 是否默认地址；每个用户至多一个
	IsDefault bool `gorm:"index" json:"is_default"`
}

// TableName 指定表名
func (ShippingAddress) TableName() string { return "shipping_addresses" }

// AddressRepository 收货地址仓储接口
type AddressRepository interface {
	// Create 新增地址；IsDefault 为真时在同一事务内取消其他默认
	Create(ctx context.Context, address *ShippingAddress) error
	// Update 更新地址；IsDefault 为真时在同一事务内取消其他默认
	Update(ctx context.Context, address *ShippingAddress) error
	// Delete 删除地址
	Delete(ctx context.Context, userID string, addressID uint) error
	// GetByID 按 ID 查询
	GetByID(ctx context.Context, userID string, addressID uint) (*ShippingAddress, error)
	// ListByUser 查询用户全部地址，默认地址排最前
	ListByUser(ctx context.Context, userID string) ([]*ShippingAddress, error)
	// SetDefault 指定默认地址，同一事务内保证用户至多一个默认
	SetDefault(ctx context.Context, userID string, addressID uint) error
}
