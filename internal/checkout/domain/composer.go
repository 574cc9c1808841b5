package domain

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

// ComposerState 下单流程状态
type ComposerState string

const (
	// StateSelectingAddress 选择收货地址
	StateSelectingAddress ComposerState = "SELECTING_ADDRESS"
	// StateSelectingShipping 选择配送方式
	StateSelectingShipping ComposerState = "SELECTING_SHIPPING"
	// StateSelectingPayment 选择支付方式
	StateSelectingPayment ComposerState = "SELECTING_PAYMENT"
	// StateReadyToSubmit 就绪待提交
	StateReadyToSubmit ComposerState = "READY_TO_SUBMIT"
	// StateSubmitting 提交中
	StateSubmitting ComposerState = "SUBMITTING"
	// StateCompleted 下单完成
	StateCompleted ComposerState = "COMPLETED"
	// StateFailed 下单失败
	StateFailed ComposerState = "FAILED"
)

// 提交前置条件缺失时的用户可感知错误，逐项区分
var (
	// ErrNotAuthenticated 未登录
	ErrNotAuthenticated = errors.New("please sign in before placing an order")
	// ErrNoItems 未选择任何商品
	ErrNoItems = errors.New("no items selected for checkout")
	// ErrNoAddress 未选择收货地址
	ErrNoAddress = errors.New("please choose a shipping address")
	// ErrNoShipping 未选择配送方式
	ErrNoShipping = errors.New("please choose a shipping method")
	// ErrNoPayment 未选择支付方式
	ErrNoPayment = errors.New("please choose a payment method")
	// ErrAlreadySubmitting 已在提交中，拒绝重复提交
	ErrAlreadySubmitting = errors.New("order submission already in progress")
	// ErrInvalidDraft 行项目校验失败（价格非正或缺少商品 ID）
	ErrInvalidDraft = errors.New("order contains invalid items")
	// ErrInvalidTransition 非法状态流转
	ErrInvalidTransition = errors.New("invalid checkout state transition")
)

// rank 状态在线性流程中的序号，用于约束只进不退
var rank = map[ComposerState]int{
	StateSelectingAddress:  0,
	StateSelectingShipping: 1,
	StateSelectingPayment:  2,
	StateReadyToSubmit:     3,
	StateSubmitting:        4,
	StateCompleted:         5,
	StateFailed:            5,
}

// DraftItem 提交前的订单行草稿
type DraftItem struct {
	CartItemID       uint            `json:"cart_item_id"`
	ProductID        uint            `json:"product_id"`
	ProductVariantID *uint           `json:"product_variant_id,omitempty"`
	Quantity         int             `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	AttributeText    string          `json:"attribute_text"`
}

// Validate 行草稿硬校验：价格非正或缺少商品 ID 直接拒绝，不发起任何远端调用
func (d DraftItem) Validate() error {
	if d.ProductID == 0 {
		return ErrInvalidDraft
	}
	if !d.UnitPrice.IsPositive() {
		return ErrInvalidDraft
	}
	if d.Quantity < 1 {
		return ErrInvalidDraft
	}
	return nil
}

// Composer 下单流程状态机
// 线性推进：SELECTING_ADDRESS → SELECTING_SHIPPING → SELECTING_PAYMENT →
// READY_TO_SUBMIT → SUBMITTING → {COMPLETED | FAILED}；除 Reset 外不允许回退
type Composer struct {
	mu sync.Mutex

	userID string
	state  ComposerState

	items    []DraftItem
	address  *uint
	shipping *ShippingMethod
	payment  PaymentMethod

	// 终态信息
	orderNo    string
	paymentURL string
	failure    error
}

// NewComposer 创建下单流程；userID 为空表示未登录，提交时被守卫拦截
func NewComposer(userID string) *Composer {
	return &Composer{
		userID: userID,
		state:  StateSelectingAddress,
	}
}

// State 当前状态
func (c *Composer) State() ComposerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetItems 设置待提交行项目（逐行硬校验）
func (c *Composer) SetItems(items []DraftItem) error {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if rank[c.state] >= rank[StateSubmitting] {
		return ErrInvalidTransition
	}
	c.items = append([]DraftItem(nil), items...)
	return nil
}

// SelectAddress 选择收货地址并推进到配送方式选择
func (c *Composer) SelectAddress(addressID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rank[c.state] >= rank[StateSubmitting] {
		return ErrInvalidTransition
	}
	c.address = &addressID
	if c.state == StateSelectingAddress {
		c.state = StateSelectingShipping
	}
	return nil
}

// SelectShipping 选择配送方式并推进到支付方式选择
func (c *Composer) SelectShipping(method ShippingMethod) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rank[c.state] >= rank[StateSubmitting] {
		return ErrInvalidTransition
	}
	if c.address == nil {
		return ErrNoAddress
	}
	m := method
	c.shipping = &m
	if c.state == StateSelectingShipping {
		c.state = StateSelectingPayment
	}
	return nil
}

// SelectPayment 选择支付方式并推进到就绪态
func (c *Composer) SelectPayment(method PaymentMethod) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rank[c.state] >= rank[StateSubmitting] {
		return ErrInvalidTransition
	}
	if !method.Valid() {
		return ErrNoPayment
	}
	if c.shipping == nil {
		return ErrNoShipping
	}
	c.payment = method
	if c.state == StateSelectingPayment {
		c.state = StateReadyToSubmit
	}
	return nil
}

// guardLocked 提交守卫：逐项检查前置条件，返回第一个缺失项的专属错误
func (c *Composer) guardLocked() error {
	if c.userID == "" {
		return ErrNotAuthenticated
	}
	if len(c.items) == 0 {
		return ErrNoItems
	}
	if c.address == nil {
		return ErrNoAddress
	}
	if c.shipping == nil {
		return ErrNoShipping
	}
	if c.payment == "" {
		return ErrNoPayment
	}
	return nil
}

// BeginSubmit 通过守卫后进入提交中；重复调用返回 ErrAlreadySubmitting
func (c *Composer) BeginSubmit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSubmitting {
		return ErrAlreadySubmitting
	}
	if c.state == StateCompleted || c.state == StateFailed {
		return ErrInvalidTransition
	}
	if err := c.guardLocked(); err != nil {
		return err
	}
	c.state = StateSubmitting
	return nil
}

// Complete 提交成功，记录订单号与支付跳转地址
func (c *Composer) Complete(orderNo, paymentURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateSubmitting {
		return ErrInvalidTransition
	}
	c.state = StateCompleted
	c.orderNo = orderNo
	c.paymentURL = paymentURL
	return nil
}

// Fail 提交失败，保留服务端错误原文
func (c *Composer) Fail(cause error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateSubmitting {
		return ErrInvalidTransition
	}
	c.state = StateFailed
	c.failure = cause
	return nil
}

// Reset 整体回退到起始态；唯一允许的回退路径
func (c *Composer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateSelectingAddress
	c.items = nil
	c.address = nil
	c.shipping = nil
	c.payment = ""
	c.orderNo = ""
	c.paymentURL = ""
	c.failure = nil
}

// Draft 返回当前草稿内容（提交服务组装订单用）
func (c *Composer) Draft() (items []DraftItem, addressID uint, shipping ShippingMethod, payment PaymentMethod) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items = append([]DraftItem(nil), c.items...)
	if c.address != nil {
		addressID = *c.address
	}
	if c.shipping != nil {
		shipping = *c.shipping
	}
	payment = c.payment
	return
}

// Result 终态信息
func (c *Composer) Result() (orderNo, paymentURL string, failure error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orderNo, c.paymentURL, c.failure
}

// ItemsAmount 草稿行金额合计
func (c *Composer) ItemsAmount() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// Total 应付总额 = 行金额合计 + 运费
func (c *Composer) Total() decimal.Decimal {
	amount := c.ItemsAmount()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shipping != nil {
		amount = amount.Add(c.shipping.Fee)
	}
	return amount
}
