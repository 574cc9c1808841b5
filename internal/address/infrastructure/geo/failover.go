package geo

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vinashop/storefront/internal/address/domain"
	"github.com/vinashop/storefront/pkg/logger"
	"github.com/vinashop/storefront/pkg/metrics"
)

// FailoverProvider 主备数据源编排
// 主数据源走熔断器，打开或失败时切换备用数据源
type FailoverProvider struct {
	primary   domain.GeoProvider
	secondary domain.GeoProvider
	breaker   *gobreaker.CircuitBreaker
	mets      *metrics.Metrics
}

// NewFailoverProvider 创建主备编排；mets 可为 nil
func NewFailoverProvider(primary, secondary domain.GeoProvider, mets *metrics.Metrics) *FailoverProvider {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "geo_primary",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "Geo provider breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &FailoverProvider{
		primary:   primary,
		secondary: secondary,
		breaker:   breaker,
		mets:      mets,
	}
}

// Name 数据源标识
func (p *FailoverProvider) Name() string { return "failover" }

func observe(mets *metrics.Metrics, provider string, start time.Time) {
	if mets != nil {
		mets.GeoProviderDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	}
}

func failover[T any](ctx context.Context, p *FailoverProvider, fetch func(domain.GeoProvider) ([]T, error)) ([]T, error) {
	start := time.Now()
	result, err := p.breaker.Execute(func() (interface{}, error) {
		return fetch(p.primary)
	})
	observe(p.mets, p.primary.Name(), start)
	if err == nil {
		return result.([]T), nil
	}

	logger.Warn(ctx, "Primary geo provider failed, falling back",
		"primary", p.primary.Name(), "secondary", p.secondary.Name(), "error", err)

	start = time.Now()
	fallback, ferr := fetch(p.secondary)
	observe(p.mets, p.secondary.Name(), start)
	if ferr != nil {
		// 备用也失败时返回主数据源错误，语义更贴近根因
		return nil, err
	}
	return fallback, nil
}

// Provinces 全部省/直辖市
func (p *FailoverProvider) Provinces(ctx context.Context) ([]domain.Province, error) {
	return failover(ctx, p, func(g domain.GeoProvider) ([]domain.Province, error) {
		return g.Provinces(ctx)
	})
}

// Districts 省下辖郡/县
func (p *FailoverProvider) Districts(ctx context.Context, provinceCode string) ([]domain.District, error) {
	return failover(ctx, p, func(g domain.GeoProvider) ([]domain.District, error) {
		return g.Districts(ctx, provinceCode)
	})
}

// Wards 郡/县下辖坊/社
func (p *FailoverProvider) Wards(ctx context.Context, districtCode string) ([]domain.Ward, error) {
	return failover(ctx, p, func(g domain.GeoProvider) ([]domain.Ward, error) {
		return g.Wards(ctx, districtCode)
	})
}
