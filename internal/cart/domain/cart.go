// Package domain 包含购物车服务的领域模型
package domain

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Cart 购物车聚合
// 每个用户一份，持有全部行项目
type Cart struct {
	gorm.Model
	// 用户 ID
	UserID string `gorm:"column:user_id;type:varchar(36);uniqueIndex;not null" json:"user_id"`
	// 行项目
	Items []CartItem `gorm:"foreignKey:CartID" json:"items"`
}

// TableName 指定表名
func (Cart) TableName() string { return "carts" }

// AttrPair 行项目携带的 (属性 ID, 属性值 ID) 对
type AttrPair struct {
	AttributeID      uint `json:"attribute_id"`
	AttributeValueID uint `json:"attribute_value_id"`
}

// CartItem 购物车行项目
// 一个商品（可带选中的变体）及其待购数量；数量恒 >= 1
type CartItem struct {
	gorm.Model
	// 所属购物车 ID
	CartID uint `gorm:"column:cart_id;index;not null" json:"cart_id"`
	// 商品 ID
	ProductID uint `gorm:"column:product_id;index;not null" json:"product_id"`
	// 变体 ID（可空）
	ProductVariantID *uint `gorm:"column:product_variant_id;index" json:"product_variant_id,omitempty"`
	// 数量
	Quantity int `gorm:"column:quantity;not null" json:"quantity"`
	// 加购时的价格（VND）
	PriceAtAdd decimal.Decimal `gorm:"column:price_at_add;type:decimal(20,2);not null" json:"price_at_add"`
	// 读取时刻的促销折后价（VND）
	FinalPrice decimal.Decimal `gorm:"column:final_price;type:decimal(20,2);not null" json:"final_price"`
	// 是否勾选进入本次结算
	Selected bool `gorm:"column:selected;not null;default:false" json:"selected"`
	// 属性值组合
	Attributes []AttrPair `gorm:"column:attributes;type:json;serializer:json" json:"attributes,omitempty"`
}

// TableName 指定表名
func (CartItem) TableName() string { return "cart_items" }

// SameVariant 两个行项目是否指向同一商品/变体组合
func (i *CartItem) SameVariant(productID uint, variantID *uint) bool {
	if i.ProductID != productID {
		return false
	}
	if i.ProductVariantID == nil && variantID == nil {
		return true
	}
	if i.ProductVariantID == nil || variantID == nil {
		return false
	}
	return *i.ProductVariantID == *variantID
}

// LineTotal 行小计：折后价 × 数量
func (i *CartItem) LineTotal() decimal.Decimal {
	return i.FinalPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// FindItem 按行项目 ID 查找，未找到返回 -1
func (c *Cart) FindItem(itemID uint) int {
	for idx := range c.Items {
		if c.Items[idx].ID == itemID {
			return idx
		}
	}
	return -1
}

// FindVariant 按商品/变体组合查找，未找到返回 -1
func (c *Cart) FindVariant(productID uint, variantID *uint) int {
	for idx := range c.Items {
		if c.Items[idx].SameVariant(productID, variantID) {
			return idx
		}
	}
	return -1
}

// Total 全车金额：Σ 折后价 × 数量
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for idx := range c.Items {
		total = total.Add(c.Items[idx].LineTotal())
	}
	return total
}
