package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DiscountType 折扣类型
type DiscountType string

const (
	// DiscountTypePercent 按百分比折扣
	DiscountTypePercent DiscountType = "PERCENT"
	// DiscountTypeFixed 按固定金额折扣
	DiscountTypeFixed DiscountType = "FIXED"
)

// Promotion 促销活动
// 可选地挂在某个商品上，用于推导展示用的最终价格
type Promotion struct {
	gorm.Model
	// 活动名称
	Name string `gorm:"column:name;type:varchar(255);not null" json:"name"`
	// 关联商品 ID
	ProductID uint `gorm:"column:product_id;index;not null" json:"product_id"`
	// 折扣类型
	DiscountType DiscountType `gorm:"column:discount_type;type:varchar(10);not null" json:"discount_type"`
	// 折扣值：PERCENT 时为百分比，FIXED 时为金额（VND）
	DiscountValue decimal.Decimal `gorm:"column:discount_value;type:decimal(20,2);not null" json:"discount_value"`
	// 赠品商品 ID
	GiftProductID *uint `gorm:"column:gift_product_id" json:"gift_product_id,omitempty"`
	// 赠品数量
	GiftQuantity int `gorm:"column:gift_quantity;default:0" json:"gift_quantity"`
	// 生效时间
	StartAt time.Time `gorm:"column:start_at;index;not null" json:"start_at"`
	// 结束时间（闪购倒计时以此为准）
	EndAt time.Time `gorm:"column:end_at;index;not null" json:"end_at"`
}

// TableName 指定表名
func (Promotion) TableName() string { return "promotions" }

// IsActiveAt 活动在指定时刻是否生效
func (p *Promotion) IsActiveAt(t time.Time) bool {
	return !t.Before(p.StartAt) && t.Before(p.EndAt)
}

// Remaining 距活动结束的剩余时长，未生效或已结束返回 0
func (p *Promotion) Remaining(t time.Time) time.Duration {
	if !p.IsActiveAt(t) {
		return 0
	}
	return p.EndAt.Sub(t)
}

// PriceQuote 价格核算结果
type PriceQuote struct {
	// 原价
	BasePrice decimal.Decimal `json:"base_price"`
	// 折后价
	FinalPrice decimal.Decimal `json:"final_price"`
	// 展示用折扣百分比
	DiscountPercent int `json:"discount_percent"`
}

var (
	oneHundred = decimal.NewFromInt(100)
)

// QuotePrice 依据基础价格与可选促销计算折后价与展示百分比
// 规则：
//   - basePrice <= 0 或无生效促销：原价返回，0%
//   - PERCENT：final = base × (1 − v/100)，百分比即 v
//   - FIXED：final = max(0, base − v)，百分比为 round(v/base × 100)
func QuotePrice(basePrice decimal.Decimal, promo *Promotion, now time.Time) PriceQuote {
	quote := PriceQuote{
		BasePrice:  basePrice,
		FinalPrice: basePrice,
	}

	if !basePrice.IsPositive() || promo == nil || !promo.IsActiveAt(now) {
		return quote
	}

	switch promo.DiscountType {
	case DiscountTypePercent:
		factor := decimal.NewFromInt(1).Sub(promo.DiscountValue.Div(oneHundred))
		quote.FinalPrice = basePrice.Mul(factor)
		quote.DiscountPercent = int(promo.DiscountValue.Round(0).IntPart())
	case DiscountTypeFixed:
		discounted := basePrice.Sub(promo.DiscountValue)
		if discounted.IsNegative() {
			discounted = decimal.Zero
		}
		quote.FinalPrice = discounted
		quote.DiscountPercent = int(promo.DiscountValue.Div(basePrice).Mul(oneHundred).Round(0).IntPart())
	}

	return quote
}

// PromotionRepository 促销仓储接口
type PromotionRepository interface {
	// 保存促销
	Save(ctx context.Context, promo *Promotion) error
	// 获取促销
	Get(ctx context.Context, id uint) (*Promotion, error)
	// 获取商品在指定时刻生效的促销，没有则返回 nil
	GetActiveByProduct(ctx context.Context, productID uint, at time.Time) (*Promotion, error)
	// 分页获取促销列表
	List(ctx context.Context, limit, offset int) ([]*Promotion, int64, error)
	// 删除促销
	Delete(ctx context.Context, id uint) error
}
