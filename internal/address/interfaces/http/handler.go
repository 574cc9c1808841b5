package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vinashop/storefront/internal/address/application"
	"github.com/vinashop/storefront/pkg/logger"
	"github.com/vinashop/storefront/pkg/middleware"
	"github.com/vinashop/storefront/pkg/response"
)

// AddressHandler HTTP 处理器
type AddressHandler struct {
	addresses *application.AddressService
	geo       *application.GeoService
}

// NewAddressHandler 创建 HTTP 处理器实例
func NewAddressHandler(addresses *application.AddressService, geo *application.GeoService) *AddressHandler {
	return &AddressHandler{addresses: addresses, geo: geo}
}

// RegisterRoutes 注册路由
func (h *AddressHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/addresses")
	{
		api.GET("", h.List)
		api.GET("/default", h.GetDefault)
		api.GET("/:id", h.Get)
		api.POST("", h.Create)
		api.PUT("/:id", h.Update)
		api.DELETE("/:id", h.Delete)
		api.POST("/:id/default", h.SetDefault)
	}
	geo := router.Group("/api/v1/geo")
	{
		geo.GET("/provinces", h.Provinces)
		geo.GET("/provinces/:code/districts", h.Districts)
		geo.GET("/districts/:code/wards", h.Wards)
	}
}

func (h *AddressHandler) userID(c *gin.Context) (string, bool) {
	userID := middleware.CurrentUserID(c)
	if userID == "" {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "missing user identity", "")
		return "", false
	}
	return userID, true
}

// AddressRequest 地址写入请求
type AddressRequest struct {
	Receiver     string `json:"receiver" binding:"required"`
	Phone        string `json:"phone" binding:"required"`
	ProvinceCode string `json:"province_code" binding:"required"`
	ProvinceName string `json:"province_name" binding:"required"`
	DistrictCode string `json:"district_code" binding:"required"`
	DistrictName string `json:"district_name" binding:"required"`
	WardCode     string `json:"ward_code" binding:"required"`
	WardName     string `json:"ward_name" binding:"required"`
	Detail       string `json:"detail" binding:"required"`
	IsDefault    bool   `json:"is_default"`
}

func (r AddressRequest) toCommand() application.CreateAddressCommand {
	return application.CreateAddressCommand{
		Receiver:     r.Receiver,
		Phone:        r.Phone,
		ProvinceCode: r.ProvinceCode,
		ProvinceName: r.ProvinceName,
		DistrictCode: r.DistrictCode,
		DistrictName: r.DistrictName,
		WardCode:     r.WardCode,
		WardName:     r.WardName,
		Detail:       r.Detail,
		IsDefault:    r.IsDefault,
	}
}

// List 查询用户全部地址
func (h *AddressHandler) List(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	addresses, err := h.addresses.List(c.Request.Context(), userID)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to list addresses", "user_id", userID, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, addresses)
}

// GetDefault 查询默认地址
func (h *AddressHandler) GetDefault(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	address, err := h.addresses.Default(c.Request.Context(), userID)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to get default address", "user_id", userID, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, address)
}

// Get 查询地址详情
func (h *AddressHandler) Get(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	addressID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid address id", "")
		return
	}

	address, err := h.addresses.Get(c.Request.Context(), userID, uint(addressID))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, address)
}

// Create 新增地址
func (h *AddressHandler) Create(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	address, err := h.addresses.Create(c.Request.Context(), userID, req.toCommand())
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to create address", "user_id", userID, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, address)
}

// Update 更新地址
func (h *AddressHandler) Update(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	addressID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid address id", "")
		return
	}

	var req AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	address, err := h.addresses.Update(c.Request.Context(), userID, uint(addressID), req.toCommand())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, address)
}

// Delete 删除地址
func (h *AddressHandler) Delete(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	addressID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid address id", "")
		return
	}

	if err := h.addresses.Delete(c.Request.Context(), userID, uint(addressID)); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, nil)
}

// SetDefault 指定默认地址
func (h *AddressHandler) SetDefault(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	addressID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid address id", "")
		return
	}

	if err := h.addresses.SetDefault(c.Request.Context(), userID, uint(addressID)); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, nil)
}

// Provinces 全部省/直辖市
func (h *AddressHandler) Provinces(c *gin.Context) {
	provinces, err := h.geo.Provinces(c.Request.Context())
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to fetch provinces", "error", err)
		response.ErrorWithStatus(c, http.StatusBadGateway, err.Error(), "")
		return
	}
	response.Success(c, provinces)
}

// Districts 省下辖郡/县
func (h *AddressHandler) Districts(c *gin.Context) {
	districts, err := h.geo.Districts(c.Request.Context(), c.Param("code"))
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to fetch districts", "province", c.Param("code"), "error", err)
		response.ErrorWithStatus(c, http.StatusBadGateway, err.Error(), "")
		return
	}
	response.Success(c, districts)
}

// Wards 郡/县下辖坊/社
func (h *AddressHandler) Wards(c *gin.Context) {
	wards, err := h.geo.Wards(c.Request.Context(), c.Param("code"))
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to fetch wards", "district", c.Param("code"), "error", err)
		response.ErrorWithStatus(c, http.StatusBadGateway, err.Error(), "")
		return
	}
	response.Success(c, wards)
}

func (h *AddressHandler) writeError(c *gin.Context, err error) {
	if errors.Is(err, application.ErrAddressNotFound) {
		response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), "")
		return
	}
	logger.Error(c.Request.Context(), "Address operation failed", "error", err)
	response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
}
