package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/vinashop/storefront/internal/catalog/application"
	"github.com/vinashop/storefront/internal/catalog/domain"
	"github.com/vinashop/storefront/pkg/logger"
	"github.com/vinashop/storefront/pkg/response"
)

// CatalogHandler HTTP 处理器
// 负责处理商品、促销与属性相关的 HTTP 请求
type CatalogHandler struct {
	cmd   *application.CatalogCommandService
	query *application.CatalogQueryService
}

// NewCatalogHandler 创建 HTTP 处理器实例
func NewCatalogHandler(cmd *application.CatalogCommandService, query *application.CatalogQueryService) *CatalogHandler {
	return &CatalogHandler{cmd: cmd, query: query}
}

// RegisterRoutes 注册路由
func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/catalog")
	{
		api.GET("/products", h.ListProducts)
		api.GET("/products/:id", h.GetProduct)
		api.GET("/products/:id/price", h.GetPrice)
		api.POST("/products", h.CreateProduct)
		api.POST("/promotions", h.CreatePromotion)
		api.POST("/attributes/render", h.RenderAttributes)
	}
}

// ListProducts 分页获取商品列表
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	categoryID, _ := strconv.ParseUint(c.DefaultQuery("category_id", "0"), 10, 64)

	products, total, err := h.query.ListProducts(c.Request.Context(), uint(categoryID), limit, offset)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to list products", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.SuccessWithTotal(c, products, total)
}

// GetProduct 获取商品详情
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid product id", "")
		return
	}

	product, err := h.query.GetProduct(c.Request.Context(), uint(id))
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to get product", "product_id", id, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	if product == nil {
		response.ErrorWithStatus(c, http.StatusNotFound, "product not found", "")
		return
	}
	response.Success(c, product)
}

// GetPrice 核算商品当前价格（促销生效则为折后价）
func (h *CatalogHandler) GetPrice(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid product id", "")
		return
	}

	var variantID *uint
	if raw := c.Query("variant_id"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "invalid variant id", "")
			return
		}
		vid := uint(v)
		variantID = &vid
	}

	quote, err := h.query.ResolvePrice(c.Request.Context(), uint(id), variantID)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to resolve price", "product_id", id, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, quote)
}

// CreateProductRequest 创建商品请求
type CreateProductRequest struct {
	Name        string  `json:"name" binding:"required"`
	Slug        string  `json:"slug" binding:"required"`
	Description string  `json:"description"`
	BasePrice   float64 `json:"base_price" binding:"required"`
	ImageURL    string  `json:"image_url"`
	CategoryID  uint    `json:"category_id"`
}

// CreateProduct 创建商品
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	product, err := h.cmd.CreateProduct(c.Request.Context(), application.CreateProductCommand{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		BasePrice:   decimal.NewFromFloat(req.BasePrice),
		ImageURL:    req.ImageURL,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to create product", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, product)
}

// CreatePromotionRequest 创建促销请求
type CreatePromotionRequest struct {
	Name          string    `json:"name" binding:"required"`
	ProductID     uint      `json:"product_id" binding:"required"`
	DiscountType  string    `json:"discount_type" binding:"required"`
	DiscountValue float64   `json:"discount_value" binding:"required"`
	GiftProductID *uint     `json:"gift_product_id"`
	GiftQuantity  int       `json:"gift_quantity"`
	StartAt       time.Time `json:"start_at" binding:"required"`
	EndAt         time.Time `json:"end_at" binding:"required"`
}

// CreatePromotion 创建促销
func (h *CatalogHandler) CreatePromotion(c *gin.Context) {
	var req CreatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	promo, err := h.cmd.CreatePromotion(c.Request.Context(), application.CreatePromotionCommand{
		Name:          req.Name,
		ProductID:     req.ProductID,
		DiscountType:  domain.DiscountType(req.DiscountType),
		DiscountValue: decimal.NewFromFloat(req.DiscountValue),
		GiftProductID: req.GiftProductID,
		GiftQuantity:  req.GiftQuantity,
		StartAt:       req.StartAt,
		EndAt:         req.EndAt,
	})
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to create promotion", "error", err)
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	response.Success(c, promo)
}

// RenderAttributesRequest 属性渲染请求
type RenderAttributesRequest struct {
	Pairs []domain.AttrPair `json:"pairs"`
}

// RenderAttributes 把属性 ID 对渲染为可读文本
func (h *CatalogHandler) RenderAttributes(c *gin.Context) {
	var req RenderAttributesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	rendered, err := h.query.RenderAttributes(c.Request.Context(), req.Pairs)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to render attributes", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, gin.H{"rendered": rendered})
}
