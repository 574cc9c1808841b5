package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ProductCreatedEvent 商品创建事件
type ProductCreatedEvent struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	BasePrice decimal.Decimal `json:"base_price"`
	Timestamp time.Time       `json:"timestamp"`
}

// PromotionCreatedEvent 促销创建事件
type PromotionCreatedEvent struct {
	PromotionID  uint            `json:"promotion_id"`
	ProductID    uint            `json:"product_id"`
	DiscountType DiscountType    `json:"discount_type"`
	Value        decimal.Decimal `json:"value"`
	StartAt      time.Time       `json:"start_at"`
	EndAt        time.Time       `json:"end_at"`
	Timestamp    time.Time       `json:"timestamp"`
}

// EventPublisher 事件发布者接口
type EventPublisher interface {
	// Publish 发布领域事件，key 用于分区
	Publish(ctx context.Context, topic string, key string, event any) error
}
