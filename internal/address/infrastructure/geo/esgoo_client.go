package geo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/vinashop/storefront/internal/address/domain"
)

// EsgooClient 备用数据源客户端（esgoo.net 风格）
type EsgooClient struct {
	http *resty.Client
}

// NewEsgooClient 创建备用数据源客户端
func NewEsgooClient(baseURL string, timeout time.Duration) *EsgooClient {
	return &EsgooClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetRetryCount(1),
	}
}

// Name 数据源标识
func (c *EsgooClient) Name() string { return "esgoo" }

type esgooResponse struct {
	Error int         `json:"error"`
	Data  []esgooUnit `json:"data"`
}

type esgooUnit struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
}

func (c *EsgooClient) fetch(ctx context.Context, path string) ([]esgooUnit, error) {
	var body esgooResponse
	resp, err := c.http.R().SetContext(ctx).SetResult(&body).Get(path)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("esgoo api returned %d", resp.StatusCode())
	}
	if body.Error != 0 {
		return nil, fmt.Errorf("esgoo api error code %d", body.Error)
	}
	return body.Data, nil
}

// Provinces 全部省/直辖市
func (c *EsgooClient) Provinces(ctx context.Context) ([]domain.Province, error) {
	units, err := c.fetch(ctx, "/1/0.htm")
	if err != nil {
		return nil, err
	}
	provinces := make([]domain.Province, 0, len(units))
	for _, u := range units {
		provinces = append(provinces, domain.Province{Code: u.ID, Name: u.FullName})
	}
	return provinces, nil
}

// Districts 省下辖郡/县
func (c *EsgooClient) Districts(ctx context.Context, provinceCode string) ([]domain.District, error) {
	units, err := c.fetch(ctx, fmt.Sprintf("/2/%s.htm", provinceCode))
	if err != nil {
		return nil, err
	}
	districts := make([]domain.District, 0, len(units))
	for _, u := range units {
		districts = append(districts, domain.District{
			Code:         u.ID,
			Name:         u.FullName,
			ProvinceCode: provinceCode,
		})
	}
	return districts, nil
}

// Wards 郡/县下辖坊/社
func (c *EsgooClient) Wards(ctx context.Context, districtCode string) ([]domain.Ward, error) {
	units, err := c.fetch(ctx, fmt.Sprintf("/3/%s.htm", districtCode))
	if err != nil {
		return nil, err
	}
	wards := make([]domain.Ward, 0, len(units))
	for _, u := range units {
		wards = append(wards, domain.Ward{
			Code:         u.ID,
			Name:         u.FullName,
			DistrictCode: districtCode,
		})
	}
	return wards, nil
}
