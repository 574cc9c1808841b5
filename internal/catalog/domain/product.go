// Package domain 包含商品目录服务的领域模型
package domain

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product 商品实体
type Product struct {
	gorm.Model
	// 商品名称
	Name string `gorm:"column:name;type:varchar(255);not null" json:"name"`
	// 别名（URL 友好）
	Slug string `gorm:"column:slug;type:varchar(255);uniqueIndex;not null" json:"slug"`
	// 描述
	Description string `gorm:"column:description;type:text" json:"description"`
	// 基础价格（VND）
	BasePrice decimal.Decimal `gorm:"column:base_price;type:decimal(20,2);not null" json:"base_price"`
	// 主图地址
	ImageURL string `gorm:"column:image_url;type:varchar(512)" json:"image_url"`
	// 分类 ID
	CategoryID uint `gorm:"column:category_id;index" json:"category_id"`
	// 是否上架
	Active bool `gorm:"column:active;not null;default:true" json:"active"`
	// 规格变体
	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
}

// TableName 指定表名
func (Product) TableName() string { return "products" }

// ProductVariant 商品规格变体
// 一组属性值组合对应一个可购买的 SKU
type ProductVariant struct {
	gorm.Model
	// 所属商品 ID
	ProductID uint `gorm:"column:product_id;index;not null" json:"product_id"`
	// SKU 编码
	SKU string `gorm:"column:sku;type:varchar(64);uniqueIndex;not null" json:"sku"`
	// 变体价格（VND），为零时回落到商品基础价格
	Price decimal.Decimal `gorm:"column:price;type:decimal(20,2)" json:"price"`
	// 库存数量
	Stock int `gorm:"column:stock;not null;default:0" json:"stock"`
	// 属性值组合
	AttributeValues []VariantAttributeValue `gorm:"foreignKey:VariantID" json:"attribute_values,omitempty"`
}

// TableName 指定表名
func (ProductVariant) TableName() string { return "product_variants" }

// EffectivePrice 变体生效价格
func (v *ProductVariant) EffectivePrice(productBase decimal.Decimal) decimal.Decimal {
	if v.Price.IsPositive() {
		return v.Price
	}
	return productBase
}

// VariantAttributeValue 变体与属性值的关联
type VariantAttributeValue struct {
	gorm.Model
	// 变体 ID
	VariantID uint `gorm:"column:variant_id;index;not null" json:"variant_id"`
	// 属性 ID
	AttributeID uint `gorm:"column:attribute_id;not null" json:"attribute_id"`
	// 属性值 ID
	AttributeValueID uint `gorm:"column:attribute_value_id;not null" json:"attribute_value_id"`
}

// TableName 指定表名
func (VariantAttributeValue) TableName() string { return "variant_attribute_values" }

// ProductRepository 商品仓储接口
type ProductRepository interface {
	// 保存商品
	Save(ctx context.Context, product *Product) error
	// 获取商品
	Get(ctx context.Context, id uint) (*Product, error)
	// 按别名获取商品
	GetBySlug(ctx context.Context, slug string) (*Product, error)
	// 分页获取商品列表
	List(ctx context.Context, categoryID uint, limit, offset int) ([]*Product, int64, error)
	// 获取变体
	GetVariant(ctx context.Context, variantID uint) (*ProductVariant, error)
	// 删除商品
	Delete(ctx context.Context, id uint) error
}
