// Package payment VNPay 支付网关客户端
package payment

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/vinashop/storefront/pkg/config"
	"github.com/vinashop/storefront/pkg/logger"
)

// statusResponse 支付状态查询响应
type statusResponse struct {
	OrderNo string `json:"order_no"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// VNPayClient VNPay 网关客户端
// 状态查询走熔断器，网关抖动时快速失败
type VNPayClient struct {
	http      *resty.Client
	breaker   *gobreaker.CircuitBreaker
	baseURL   string
	returnURL string
}

// NewVNPayClient 创建网关客户端
func NewVNPayClient(cfg config.PaymentConfig) *VNPayClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.Timeout) * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "vnpay",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "Payment gateway breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &VNPayClient{
		http:      client,
		breaker:   breaker,
		baseURL:   cfg.BaseURL,
		returnURL: cfg.ReturnURL,
	}
}

// BuildPaymentURL 构造支付跳转地址，前端在新标签页打开
func (c *VNPayClient) BuildPaymentURL(orderNo string, amount decimal.Decimal) string {
	query := url.Values{}
	query.Set("orderId", orderNo)
	query.Set("amount", amount.String())
	query.Set("returnUrl", c.returnURL)
	return fmt.Sprintf("%s/payments/vnpay?%s", c.baseURL, query.Encode())
}

// QueryStatus 查询订单支付状态，返回状态码与网关附言
func (c *VNPayClient) QueryStatus(ctx context.Context, orderNo string) (string, string, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var status statusResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&status).
			Get(fmt.Sprintf("/payments/vnpay/%s/status", orderNo))
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("payment gateway returned %d", resp.StatusCode())
		}
		return &status, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("query payment status: %w", err)
	}
	status := result.(*statusResponse)
	return status.Status, status.Message, nil
}
