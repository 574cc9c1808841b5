// Package response 提供统一的 HTTP 响应封装，约定 {code, message, data} 信封
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body 响应信封
type Body struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Total   int64  `json:"total,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Code: 0, Message: "ok", Data: data})
}

// SuccessWithTotal 带总数的列表成功响应
func SuccessWithTotal(c *gin.Context, data any, total int64) {
	c.JSON(http.StatusOK, Body{Code: 0, Message: "ok", Data: data, Total: total})
}

// Error 失败响应，HTTP 状态码为 500
func Error(c *gin.Context, message string) {
	ErrorWithStatus(c, http.StatusInternalServerError, message, "")
}

// ErrorWithStatus 指定状态码的失败响应，detail 为可选的内部细节
func ErrorWithStatus(c *gin.Context, status int, message, detail string) {
	body := Body{Code: status, Message: message}
	if detail != "" {
		body.Data = gin.H{"detail": detail}
	}
	c.JSON(status, body)
}
