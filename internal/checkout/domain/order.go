// Package domain 结算上下文的领域模型：订单、下单流程状态机与支付方式
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	// OrderStatusPendingPayment 待支付
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	// OrderStatusPaid 已支付
	OrderStatusPaid OrderStatus = "PAID"
	// OrderStatusCancelled 已取消
	OrderStatusCancelled OrderStatus = "CANCELLED"
	// OrderStatusFailed 下单失败
	OrderStatusFailed OrderStatus = "FAILED"
)

// PaymentMethod 支付方式
type PaymentMethod string

const (
	// PaymentMethodVNPay VNPay 网关支付
	PaymentMethodVNPay PaymentMethod = "VNPAY"
	// PaymentMethodCOD 货到付款
	PaymentMethodCOD PaymentMethod = "COD"
)

// Valid 是否为受支持的支付方式
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodVNPay || m == PaymentMethodCOD
}

// ShippingMethod 配送方式
type ShippingMethod struct {
	// 配送方式编码
	Code string `json:"code"`
	// 展示名称
	Name string `json:"name"`
	// 运费
	Fee decimal.Decimal `json:"fee"`
}

// Order 订单
type Order struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 对外订单号（雪花 ID）
	OrderNo string `gorm:"size:32;uniqueIndex" json:"order_no"`
	// 下单用户
	UserID string `gorm:"size:64;index" json:"user_id"`
	// 订单状态
	Status OrderStatus `gorm:"size:32;index" json:"status"`
	// 行项目
	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	// 商品金额合计
	ItemsAmount decimal.Decimal `gorm:"type:decimal(20,2)" json:"items_amount"`
	// 运费
	ShippingFee decimal.Decimal `gorm:"type:decimal(20,2)" json:"shipping_fee"`
	// 应付总额
	TotalAmount decimal.Decimal `gorm:"type:decimal(20,2)" json:"total_amount"`
	// 收货地址
	AddressID uint `json:"address_id"`
	// 配送方式编码
	ShippingCode string `gorm:"size:32" json:"shipping_code"`
	// 支付方式
	PaymentMethod PaymentMethod `gorm:"size:16" json:"payment_method"`
	// 支付跳转地址（VNPay）
	PaymentURL string `gorm:"size:512" json:"payment_url,omitempty"`
}

// TableName 指定表名
func (Order) TableName() string { return "orders" }

// OrderItem 订单行项目
type OrderItem struct {
	ID      uint `gorm:"primarykey" json:"id"`
	OrderID uint `gorm:"index" json:"order_id"`

	// 来源购物车行项目
	CartItemID uint `json:"cart_item_id"`
	// 商品
	ProductID uint `json:"product_id"`
	// 商品变体
	ProductVariantID *uint `json:"product_variant_id,omitempty"`
	// 购买数量
	Quantity int `json:"quantity"`
	// 成交单价
	UnitPrice decimal.Decimal `gorm:"type:decimal(20,2)" json:"unit_price"`
	// 属性摘要文本
	AttributeText string `gorm:"size:255" json:"attribute_text"`
}

// TableName 指定表名
func (OrderItem) TableName() string { return "order_items" }

// LineTotal 行小计
func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderRepository 订单仓储接口
type OrderRepository interface {
	// Create 持久化订单及行项目，outbox 非空时在同一事务内写入发件箱
	Create(ctx context.Context, order *Order, outbox *OutboxMessage) error
	// GetByOrderNo 按订单号查询
	GetByOrderNo(ctx context.Context, orderNo string) (*Order, error)
	// ListByUser 分页查询用户订单
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Order, int64, error)
	// UpdateStatus 更新订单状态
	UpdateStatus(ctx context.Context, orderNo string, status OrderStatus) error
}

// OrderCreatedEvent 订单创建事件
type OrderCreatedEvent struct {
	OrderNo     string          `json:"order_no"`
	UserID      string          `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemCount   int             `json:"item_count"`
	Payment     PaymentMethod   `json:"payment"`
	Timestamp   time.Time       `json:"timestamp"`
}
