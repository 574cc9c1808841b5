package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/vinashop/storefront/internal/checkout/application"
	"github.com/vinashop/storefront/internal/checkout/domain"
	"github.com/vinashop/storefront/pkg/logger"
	"github.com/vinashop/storefront/pkg/middleware"
	"github.com/vinashop/storefront/pkg/response"
)

// CheckoutHandler HTTP 处理器
type CheckoutHandler struct {
	svc *application.CheckoutService
}

// NewCheckoutHandler 创建 HTTP 处理器实例
func NewCheckoutHandler(svc *application.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

// RegisterRoutes 注册路由
func (h *CheckoutHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/checkout")
	{
		api.GET("/state", h.GetState)
		api.POST("/items", h.SetItems)
		api.POST("/address", h.SelectAddress)
		api.POST("/shipping", h.SelectShipping)
		api.POST("/payment", h.SelectPayment)
		api.POST("/submit", h.Submit)
		api.POST("/reset", h.Reset)
		api.GET("/orders", h.ListOrders)
		api.GET("/orders/:order_no", h.GetOrder)
		api.GET("/orders/:order_no/payment-status", h.PaymentStatus)
	}
}

func (h *CheckoutHandler) userID(c *gin.Context) (string, bool) {
	userID := middleware.CurrentUserID(c)
	if userID == "" {
		response.ErrorWithStatus(c, http.StatusUnauthorized, domain.ErrNotAuthenticated.Error(), "")
		return "", false
	}
	return userID, true
}

// GetState 返回下单流程当前状态与金额
func (h *CheckoutHandler) GetState(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	composer := h.svc.Composer(userID)
	response.Success(c, gin.H{
		"state":        composer.State(),
		"items_amount": composer.ItemsAmount(),
		"total":        composer.Total(),
	})
}

// SetItemsRequest 设置待提交行项目请求
type SetItemsRequest struct {
	Items []domain.DraftItem `json:"items" binding:"required"`
}

// SetItems 设置待提交行项目
func (h *CheckoutHandler) SetItems(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req SetItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	if err := h.svc.Composer(userID).SetItems(req.Items); err != nil {
		h.writeComposerError(c, err)
		return
	}
	response.Success(c, nil)
}

// SelectAddressRequest 选择收货地址请求
type SelectAddressRequest struct {
	AddressID uint `json:"address_id" binding:"required"`
}

// SelectAddress 选择收货地址
func (h *CheckoutHandler) SelectAddress(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req SelectAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	if err := h.svc.Composer(userID).SelectAddress(req.AddressID); err != nil {
		h.writeComposerError(c, err)
		return
	}
	response.Success(c, gin.H{"state": h.svc.Composer(userID).State()})
}

// SelectShippingRequest 选择配送方式请求
type SelectShippingRequest struct {
	Code string  `json:"code" binding:"required"`
	Name string  `json:"name"`
	Fee  float64 `json:"fee"`
}

// SelectShipping 选择配送方式
func (h *CheckoutHandler) SelectShipping(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req SelectShippingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	err := h.svc.Composer(userID).SelectShipping(domain.ShippingMethod{
		Code: req.Code,
		Name: req.Name,
		Fee:  decimal.NewFromFloat(req.Fee),
	})
	if err != nil {
		h.writeComposerError(c, err)
		return
	}
	response.Success(c, gin.H{"state": h.svc.Composer(userID).State()})
}

// SelectPaymentRequest 选择支付方式请求
type SelectPaymentRequest struct {
	Method string `json:"method" binding:"required"`
}

// SelectPayment 选择支付方式
func (h *CheckoutHandler) SelectPayment(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req SelectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	if err := h.svc.Composer(userID).SelectPayment(domain.PaymentMethod(req.Method)); err != nil {
		h.writeComposerError(c, err)
		return
	}
	response.Success(c, gin.H{"state": h.svc.Composer(userID).State()})
}

// Submit 提交订单
func (h *CheckoutHandler) Submit(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	result, err := h.svc.Submit(c.Request.Context(), userID)
	if err != nil {
		h.writeComposerError(c, err)
		return
	}
	response.Success(c, result)
}

// Reset 放弃当前下单流程
func (h *CheckoutHandler) Reset(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	h.svc.ResetComposer(userID)
	response.Success(c, nil)
}

// ListOrders 分页查询用户订单
func (h *CheckoutHandler) ListOrders(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, total, err := h.svc.ListOrders(c.Request.Context(), userID, limit, offset)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to list orders", "user_id", userID, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.SuccessWithTotal(c, orders, total)
}

// GetOrder 查询订单详情
func (h *CheckoutHandler) GetOrder(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	order, err := h.svc.GetOrder(c.Request.Context(), userID, c.Param("order_no"))
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to get order", "order_no", c.Param("order_no"), "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	if order == nil {
		response.ErrorWithStatus(c, http.StatusNotFound, "order not found", "")
		return
	}
	response.Success(c, order)
}

// PaymentStatus 查询订单支付状态
func (h *CheckoutHandler) PaymentStatus(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	status, message, err := h.svc.QueryPaymentStatus(c.Request.Context(), userID, c.Param("order_no"))
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to query payment status", "order_no", c.Param("order_no"), "error", err)
		response.ErrorWithStatus(c, http.StatusBadGateway, err.Error(), "")
		return
	}
	response.Success(c, gin.H{"status": status, "message": message})
}

// writeComposerError 把状态机守卫错误映射为对应的 HTTP 状态码
func (h *CheckoutHandler) writeComposerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		response.ErrorWithStatus(c, http.StatusUnauthorized, err.Error(), "")
	case errors.Is(err, domain.ErrAlreadySubmitting):
		response.ErrorWithStatus(c, http.StatusConflict, err.Error(), "")
	case errors.Is(err, domain.ErrNoItems),
		errors.Is(err, domain.ErrNoAddress),
		errors.Is(err, domain.ErrNoShipping),
		errors.Is(err, domain.ErrNoPayment),
		errors.Is(err, domain.ErrInvalidDraft),
		errors.Is(err, domain.ErrInvalidTransition):
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
	default:
		logger.Error(c.Request.Context(), "Order submission failed", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
	}
}
