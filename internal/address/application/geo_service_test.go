package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinashop/storefront/internal/address/domain"
)

type fakeGeoProvider struct {
	calls     int
	provinces []domain.Province
	err       error
}

func (p *fakeGeoProvider) Name() string { return "fake" }

func (p *fakeGeoProvider) Provinces(context.Context) ([]domain.Province, error) {
	p.calls++
	return p.provinces, p.err
}

func (p *fakeGeoProvider) Districts(_ context.Context, provinceCode string) ([]domain.District, error) {
	p.calls++
	return []domain.District{{Code: "760", Name: "Quận 1", ProvinceCode: provinceCode}}, p.err
}

func (p *fakeGeoProvider) Wards(_ context.Context, districtCode string) ([]domain.Ward, error) {
	p.calls++
	return []domain.Ward{{Code: "26734", Name: "Phường Bến Nghé", DistrictCode: districtCode}}, p.err
}

// fakeGeoCache 内存 JSON 缓存
type fakeGeoCache struct {
	entries map[string][]byte
	sets    int
}

func newFakeGeoCache() *fakeGeoCache {
	return &fakeGeoCache{entries: make(map[string][]byte)}
}

func (c *fakeGeoCache) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *fakeGeoCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	c.sets++
	return nil
}

func TestGeoServiceCachesProvinces(t *testing.T) {
	provider := &fakeGeoProvider{provinces: []domain.Province{{Code: "79", Name: "Thành phố Hồ Chí Minh"}}}
	cache := newFakeGeoCache()
	svc := NewGeoService(provider, cache, time.Hour, nil)
	ctx := context.Background()

	first, err := svc.Provinces(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, provider.calls)
	assert.Contains(t, cache.entries, "provinces_cache")

	second, err := svc.Provinces(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.calls, "cache hit skips the provider")
}

func TestGeoServiceCacheKeysPerCode(t *testing.T) {
	provider := &fakeGeoProvider{}
	cache := newFakeGeoCache()
	svc := NewGeoService(provider, cache, time.Hour, nil)
	ctx := context.Background()

	_, err := svc.Districts(ctx, "79")
	require.NoError(t, err)
	_, err = svc.Wards(ctx, "760")
	require.NoError(t, err)

	assert.Contains(t, cache.entries, "districts_79")
	assert.Contains(t, cache.entries, "wards_760")
}

func TestGeoServiceProviderErrorNotCached(t *testing.T) {
	provider := &fakeGeoProvider{err: errors.New("upstream down")}
	cache := newFakeGeoCache()
	svc := NewGeoService(provider, cache, time.Hour, nil)

	_, err := svc.Provinces(context.Background())
	require.Error(t, err)
	assert.Zero(t, cache.sets, "failures must not poison the cache")
}

func TestGeoServiceWorksWithoutCache(t *testing.T) {
	provider := &fakeGeoProvider{provinces: []domain.Province{{Code: "79", Name: "Thành phố Hồ Chí Minh"}}}
	svc := NewGeoService(provider, nil, 0, nil)

	provinces, err := svc.Provinces(context.Background())
	require.NoError(t, err)
	assert.Len(t, provinces, 1)
}
