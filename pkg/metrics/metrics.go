// Package metrics 提供 Prometheus helper，包含常用 counter/gauge/histogram 模板
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// 购物车操作计数
	CartMutationsTotal *prometheus.CounterVec
	// 购物车补偿（回滚）计数
	CartCompensationsTotal prometheus.Counter
	// 被淘汰的过期确认计数
	CartStaleConfirmsTotal prometheus.Counter

	// 订单提交计数
	OrdersSubmittedTotal *prometheus.CounterVec
	// 订单金额
	OrderAmount prometheus.Histogram

	// 行政区划缓存命中计数
	GeoCacheHitsTotal *prometheus.CounterVec
	// 第三方行政区划请求耗时
	GeoProviderDuration *prometheus.HistogramVec
}

// New 创建并注册指标实例
func New(serviceName string) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		CartMutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: serviceName,
			Name:      "cart_mutations_total",
			Help:      "Cart mutations by kind and outcome",
		}, []string{"kind", "outcome"}),
		CartCompensationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: serviceName,
			Name:      "cart_compensations_total",
			Help:      "Cart mutations rolled back after remote failure",
		}),
		CartStaleConfirmsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: serviceName,
			Name:      "cart_stale_confirms_total",
			Help:      "Remote confirmations ignored because a newer mutation superseded them",
		}),
		OrdersSubmittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: serviceName,
			Name:      "orders_submitted_total",
			Help:      "Order submissions by outcome",
		}, []string{"outcome"}),
		OrderAmount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: serviceName,
			Name:      "order_amount_vnd",
			Help:      "Submitted order totals in VND",
			Buckets:   prometheus.ExponentialBuckets(10000, 4, 10),
		}),
		GeoCacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: serviceName,
			Name:      "geo_cache_hits_total",
			Help:      "Administrative geography cache lookups by result",
		}, []string{"result"}),
		GeoProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: serviceName,
			Name:      "geo_provider_duration_seconds",
			Help:      "Third-party geography API latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CartMutationsTotal,
		m.CartCompensationsTotal,
		m.CartStaleConfirmsTotal,
		m.OrdersSubmittedTotal,
		m.OrderAmount,
		m.GeoCacheHitsTotal,
		m.GeoProviderDuration,
	)

	return m
}

// Handler 返回 /metrics 的 gin 处理器
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
