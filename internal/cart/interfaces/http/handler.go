package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/vinashop/storefront/internal/cart/application"
	"github.com/vinashop/storefront/internal/cart/domain"
	cartredis "github.com/vinashop/storefront/internal/cart/infrastructure/persistence/redis"
	"github.com/vinashop/storefront/pkg/logger"
	"github.com/vinashop/storefront/pkg/middleware"
	"github.com/vinashop/storefront/pkg/response"
)

// CartHandler HTTP 处理器
// 所有变更接口返回变更后的快照，前端据此直接渲染
type CartHandler struct {
	stores   *application.StoreManager
	cache    *cartredis.CartCache
	resolver application.PriceResolver
}

// NewCartHandler 创建 HTTP 处理器实例；cache 与 resolver 可为 nil
func NewCartHandler(stores *application.StoreManager, cache *cartredis.CartCache, resolver application.PriceResolver) *CartHandler {
	return &CartHandler{stores: stores, cache: cache, resolver: resolver}
}

// RegisterRoutes 注册路由
func (h *CartHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/cart")
	{
		api.GET("", h.GetCart)
		api.POST("/items", h.AddItem)
		api.PUT("/items/:id/quantity", h.UpdateQuantity)
		api.DELETE("/items/:id", h.RemoveItem)
		api.POST("/items/:id/toggle", h.ToggleSelect)
		api.POST("/select-all", h.SelectAll)
		api.DELETE("/selection", h.ClearSelected)
		api.DELETE("", h.Clear)
	}
}

func (h *CartHandler) store(c *gin.Context) (*application.Store, bool) {
	userID := middleware.CurrentUserID(c)
	if userID == "" {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "missing user identity", "")
		return nil, false
	}
	store, err := h.stores.Get(c.Request.Context(), userID)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to load cart store", "user_id", userID, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return nil, false
	}
	return store, true
}

// GetCart 获取购物车快照；缓存命中直接返回，否则重算折后价后回填
func (h *CartHandler) GetCart(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if h.cache != nil {
		if snap, found, err := h.cache.GetSnapshot(ctx, store.UserID()); err == nil && found {
			response.Success(c, snap)
			return
		}
	}

	if h.resolver != nil {
		if err := store.RefreshPrices(ctx, h.resolver); err != nil {
			logger.Warn(ctx, "Failed to refresh cart prices", "user_id", store.UserID(), "error", err)
		}
	}

	snap := store.Snapshot()
	if h.cache != nil {
		if err := h.cache.SetSnapshot(ctx, store.UserID(), snap); err != nil {
			logger.Warn(ctx, "Failed to cache cart snapshot", "user_id", store.UserID(), "error", err)
		}
	}
	response.Success(c, snap)
}

// AddItemRequest 加购请求
type AddItemRequest struct {
	ProductID        uint              `json:"product_id" binding:"required"`
	ProductVariantID *uint             `json:"product_variant_id"`
	Quantity         int               `json:"quantity" binding:"required"`
	UnitPrice        float64           `json:"unit_price" binding:"required"`
	FinalPrice       float64           `json:"final_price"`
	Attributes       []domain.AttrPair `json:"attributes"`
}

// AddItem 加购商品
func (h *CartHandler) AddItem(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	item, err := store.AddItem(c.Request.Context(), application.AddItemInput{
		ProductID:        req.ProductID,
		ProductVariantID: req.ProductVariantID,
		Quantity:         req.Quantity,
		UnitPrice:        decimal.NewFromFloat(req.UnitPrice),
		FinalPrice:       decimal.NewFromFloat(req.FinalPrice),
		Attributes:       req.Attributes,
	})
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	response.Success(c, gin.H{"item": item, "snapshot": store.Snapshot()})
}

// UpdateQuantityRequest 数量更新请求
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateQuantity 更新行项目数量；数量小于 1 视为移除
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}

	itemID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid item id", "")
		return
	}

	var req UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	if err := store.UpdateQuantity(c.Request.Context(), uint(itemID), req.Quantity); err != nil {
		h.writeStoreError(c, err)
		return
	}
	response.Success(c, store.Snapshot())
}

// RemoveItem 移除行项目
func (h *CartHandler) RemoveItem(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}

	itemID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid item id", "")
		return
	}

	if err := store.RemoveItem(c.Request.Context(), uint(itemID)); err != nil {
		h.writeStoreError(c, err)
		return
	}
	response.Success(c, store.Snapshot())
}

// ToggleSelect 切换行项目勾选状态
func (h *CartHandler) ToggleSelect(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}

	itemID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid item id", "")
		return
	}

	if err := store.ToggleSelect(c.Request.Context(), uint(itemID)); err != nil {
		h.writeStoreError(c, err)
		return
	}
	response.Success(c, store.Snapshot())
}

// SelectAllRequest 全选/全不选请求
type SelectAllRequest struct {
	Selected bool   `json:"selected"`
	ItemIDs  []uint `json:"item_ids" binding:"required"`
}

// SelectAll 对一批行项目统一设置勾选状态
func (h *CartHandler) SelectAll(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}

	var req SelectAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	store.SelectAll(c.Request.Context(), req.Selected, req.ItemIDs)
	response.Success(c, store.Snapshot())
}

// ClearSelected 清空勾选集合
func (h *CartHandler) ClearSelected(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	store.ClearSelected(c.Request.Context())
	response.Success(c, store.Snapshot())
}

// Clear 清空购物车
func (h *CartHandler) Clear(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	store.Clear(c.Request.Context())
	response.Success(c, store.Snapshot())
}

func (h *CartHandler) writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, application.ErrItemNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, application.ErrInvalidQuantity):
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
	default:
		logger.Error(c.Request.Context(), "Cart mutation failed", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
	}
}
