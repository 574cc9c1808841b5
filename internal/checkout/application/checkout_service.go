// Package application 实现结算上下文的应用层：
// 管理每个用户的下单流程状态机，提交时组装订单并持久化，领域事件经发件箱投递
package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vinashop/storefront/internal/checkout/domain"
	"github.com/vinashop/storefront/pkg/logger"
	"github.com/vinashop/storefront/pkg/metrics"
	"github.com/vinashop/storefront/pkg/utils"
)

const topicOrderCreated = "checkout.order.created"

// PaymentGateway 支付网关接口
type PaymentGateway interface {
	// BuildPaymentURL 构造支付跳转地址
	BuildPaymentURL(orderNo string, amount decimal.Decimal) string
	// QueryStatus 查询支付状态
	QueryStatus(ctx context.Context, orderNo string) (status, message string, err error)
}

// CartGateway 购物车上下文回调
// 下单成功后把已提交的行项目从购物车移除并清空勾选
type CartGateway interface {
	RemoveSubmitted(ctx context.Context, userID string, cartItemIDs []uint)
}

// SubmitResult 提交结果
type SubmitResult struct {
	OrderNo string `json:"order_no"`
	// 应付总额
	TotalAmount decimal.Decimal `json:"total_amount"`
	// VNPay 跳转地址；货到付款为空
	PaymentURL string `json:"payment_url,omitempty"`
	// 新标签页被拦截时客户端可在当前页跳转支付地址
	SameTabFallback bool `json:"same_tab_fallback"`
}

// CheckoutService 结算应用服务
type CheckoutService struct {
	orders  domain.OrderRepository
	gateway PaymentGateway
	carts   CartGateway
	idgen   *utils.SnowflakeID
	mets    *metrics.Metrics

	mu        sync.Mutex
	composers map[string]*domain.Composer
}

// NewCheckoutService 创建结算服务；carts、mets 可为 nil
func NewCheckoutService(
	orders domain.OrderRepository,
	gateway PaymentGateway,
	carts CartGateway,
	idgen *utils.SnowflakeID,
	mets *metrics.Metrics,
) *CheckoutService {
	return &CheckoutService{
		orders:    orders,
		gateway:   gateway,
		carts:     carts,
		idgen:     idgen,
		mets:      mets,
		composers: make(map[string]*domain.Composer),
	}
}

// Composer 获取用户的下单流程，不存在时创建
func (s *CheckoutService) Composer(userID string) *domain.Composer {
	s.mu.Lock()
	defer s.mu.Unlock()
	composer, ok := s.composers[userID]
	if !ok {
		composer = domain.NewComposer(userID)
		s.composers[userID] = composer
	}
	return composer
}

// Submit 提交订单
// 守卫通过后：生成订单号 → 构造支付地址 → 订单与事件同事务持久化 → 清理购物车
func (s *CheckoutService) Submit(ctx context.Context, userID string) (*SubmitResult, error) {
	composer := s.Composer(userID)

	if err := composer.BeginSubmit(); err != nil {
		s.countSubmit("rejected")
		return nil, err
	}

	items, addressID, shipping, paymentMethod := composer.Draft()
	orderNo := fmt.Sprintf("%d", s.idgen.Generate())

	orderItems := make([]domain.OrderItem, 0, len(items))
	cartItemIDs := make([]uint, 0, len(items))
	itemsAmount := decimal.Zero
	for _, item := range items {
		orderItems = append(orderItems, domain.OrderItem{
			CartItemID:       item.CartItemID,
			ProductID:        item.ProductID,
			ProductVariantID: item.ProductVariantID,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPrice,
			AttributeText:    item.AttributeText,
		})
		cartItemIDs = append(cartItemIDs, item.CartItemID)
		itemsAmount = itemsAmount.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	totalAmount := itemsAmount.Add(shipping.Fee)

	order := &domain.Order{
		OrderNo:       orderNo,
		UserID:        userID,
		Status:        domain.OrderStatusPendingPayment,
		Items:         orderItems,
		ItemsAmount:   itemsAmount,
		ShippingFee:   shipping.Fee,
		TotalAmount:   totalAmount,
		AddressID:     addressID,
		ShippingCode:  shipping.Code,
		PaymentMethod: paymentMethod,
	}

	var paymentURL string
	if paymentMethod == domain.PaymentMethodVNPay {
		paymentURL = s.gateway.BuildPaymentURL(orderNo, totalAmount)
		order.PaymentURL = paymentURL
	}

	event := domain.OrderCreatedEvent{
		OrderNo:     orderNo,
		UserID:      userID,
		TotalAmount: totalAmount,
		ItemCount:   len(orderItems),
		Payment:     paymentMethod,
		Timestamp:   time.Now(),
	}
	outboxMsg, err := domain.NewOutboxMessage(topicOrderCreated, userID, event)
	if err != nil {
		_ = composer.Fail(err)
		s.countSubmit("failed")
		return nil, err
	}

	// 订单与事件同事务落库，投递由发件箱中继完成
	if err := s.orders.Create(ctx, order, outboxMsg); err != nil {
		// 服务端错误原文透传给调用方
		_ = composer.Fail(err)
		s.countSubmit("failed")
		logger.Error(ctx, "Failed to create order", "user_id", userID, "order_no", orderNo, "error", err)
		return nil, err
	}

	if s.carts != nil {
		s.carts.RemoveSubmitted(ctx, userID, cartItemIDs)
	}

	_ = composer.Complete(orderNo, paymentURL)
	s.evict(userID)

	s.countSubmit("ok")
	if s.mets != nil {
		amount, _ := totalAmount.Float64()
		s.mets.OrderAmount.Observe(amount)
	}

	return &SubmitResult{
		OrderNo:         orderNo,
		TotalAmount:     totalAmount,
		PaymentURL:      paymentURL,
		SameTabFallback: paymentURL != "",
	}, nil
}

// GetOrder 查询订单详情
func (s *CheckoutService) GetOrder(ctx context.Context, userID, orderNo string) (*domain.Order, error) {
	order, err := s.orders.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}
	if order == nil || order.UserID != userID {
		return nil, nil
	}
	return order, nil
}

// ListOrders 分页查询用户订单
func (s *CheckoutService) ListOrders(ctx context.Context, userID string, limit, offset int) ([]*domain.Order, int64, error) {
	return s.orders.ListByUser(ctx, userID, limit, offset)
}

// QueryPaymentStatus 查询订单支付状态，已支付时落库
func (s *CheckoutService) QueryPaymentStatus(ctx context.Context, userID, orderNo string) (string, string, error) {
	order, err := s.GetOrder(ctx, userID, orderNo)
	if err != nil {
		return "", "", err
	}
	if order == nil {
		return "", "", fmt.Errorf("order %s not found", orderNo)
	}

	status, message, err := s.gateway.QueryStatus(ctx, orderNo)
	if err != nil {
		return "", "", err
	}
	if status == "PAID" && order.Status == domain.OrderStatusPendingPayment {
		if err := s.orders.UpdateStatus(ctx, orderNo, domain.OrderStatusPaid); err != nil {
			logger.Warn(ctx, "Failed to persist paid status", "order_no", orderNo, "error", err)
		}
	}
	return status, message, nil
}

// ResetComposer 放弃当前下单流程，回到起始态
func (s *CheckoutService) ResetComposer(userID string) {
	s.Composer(userID).Reset()
}

func (s *CheckoutService) evict(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.composers, userID)
}

func (s *CheckoutService) countSubmit(outcome string) {
	if s.mets != nil {
		s.mets.OrdersSubmittedTotal.WithLabelValues(outcome).Inc()
	}
}
