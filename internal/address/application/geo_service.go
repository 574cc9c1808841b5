// Package application 实现地址上下文的应用层
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/vinashop/storefront/internal/address/domain"
	"github.com/vinashop/storefront/pkg/logger"
	"github.com/vinashop/storefront/pkg/metrics"
)

const (
	keyProvinces = "provinces_cache"
	keyDistricts = "districts_%s"
	keyWards     = "wards_%s"
)

// GeoCache 行政区划缓存接口
type GeoCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// cacheEnvelope 缓存信封，带写入时间方便排查陈旧数据
type cacheEnvelope[T any] struct {
	CachedAt time.Time `json:"cached_at"`
	Data     []T       `json:"data"`
}

// GeoService 行政区划查询服务
// 行政区划数据更新极少，按 TTL 整表缓存
type GeoService struct {
	provider domain.GeoProvider
	cache    GeoCache
	ttl      time.Duration
	mets     *metrics.Metrics
}

// NewGeoService 创建行政区划服务；cache 与 mets 可为 nil
func NewGeoService(provider domain.GeoProvider, cache GeoCache, ttl time.Duration, mets *metrics.Metrics) *GeoService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &GeoService{provider: provider, cache: cache, ttl: ttl, mets: mets}
}

func cachedFetch[T any](ctx context.Context, s *GeoService, key string, fetch func() ([]T, error)) ([]T, error) {
	if s.cache != nil {
		var envelope cacheEnvelope[T]
		found, err := s.cache.GetJSON(ctx, key, &envelope)
		if err != nil {
			logger.Warn(ctx, "Geo cache read failed", "key", key, "error", err)
		}
		if found {
			s.countCache("hit")
			return envelope.Data, nil
		}
		s.countCache("miss")
	}

	data, err := fetch()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		envelope := cacheEnvelope[T]{CachedAt: time.Now(), Data: data}
		if err := s.cache.SetJSON(ctx, key, envelope, s.ttl); err != nil {
			logger.Warn(ctx, "Geo cache write failed", "key", key, "error", err)
		}
	}
	return data, nil
}

// Provinces 全部省/直辖市
func (s *GeoService) Provinces(ctx context.Context) ([]domain.Province, error) {
	return cachedFetch(ctx, s, keyProvinces, func() ([]domain.Province, error) {
		return s.provider.Provinces(ctx)
	})
}

// Districts 省下辖郡/县
func (s *GeoService) Districts(ctx context.Context, provinceCode string) ([]domain.District, error) {
	return cachedFetch(ctx, s, fmt.Sprintf(keyDistricts, provinceCode), func() ([]domain.District, error) {
		return s.provider.Districts(ctx, provinceCode)
	})
}

// Wards 郡/县下辖坊/社
func (s *GeoService) Wards(ctx context.Context, districtCode string) ([]domain.Ward, error) {
	return cachedFetch(ctx, s, fmt.Sprintf(keyWards, districtCode), func() ([]domain.Ward, error) {
		return s.provider.Wards(ctx, districtCode)
	})
}

func (s *GeoService) countCache(result string) {
	if s.mets != nil {
		s.mets.GeoCacheHitsTotal.WithLabelValues(result).Inc()
	}
}
