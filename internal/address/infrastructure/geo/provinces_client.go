// Package geo 行政区划第三方数据源客户端
package geo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/vinashop/storefront/internal/address/domain"
)

// ProvincesOpenAPIClient 主数据源客户端（provinces.open-api.vn 风格）
type ProvincesOpenAPIClient struct {
	http *resty.Client
}

// NewProvincesOpenAPIClient 创建主数据源客户端
func NewProvincesOpenAPIClient(baseURL string, timeout time.Duration) *ProvincesOpenAPIClient {
	return &ProvincesOpenAPIClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetRetryCount(1),
	}
}

// Name 数据源标识
func (c *ProvincesOpenAPIClient) Name() string { return "provinces_open_api" }

type openAPIProvince struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

type openAPIProvinceDetail struct {
	Code      int               `json:"code"`
	Name      string            `json:"name"`
	Districts []openAPIDistrict `json:"districts"`
}

type openAPIDistrict struct {
	Code  int           `json:"code"`
	Name  string        `json:"name"`
	Wards []openAPIWard `json:"wards"`
}

type openAPIWard struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

// Provinces 全部省/直辖市
func (c *ProvincesOpenAPIClient) Provinces(ctx context.Context) ([]domain.Province, error) {
	var raw []openAPIProvince
	resp, err := c.http.R().SetContext(ctx).SetResult(&raw).Get("/p/")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("provinces api returned %d", resp.StatusCode())
	}

	provinces := make([]domain.Province, 0, len(raw))
	for _, p := range raw {
		provinces = append(provinces, domain.Province{
			Code: strconv.Itoa(p.Code),
			Name: p.Name,
		})
	}
	return provinces, nil
}

// Districts 省下辖郡/县（depth=2 一次取全）
func (c *ProvincesOpenAPIClient) Districts(ctx context.Context, provinceCode string) ([]domain.District, error) {
	var detail openAPIProvinceDetail
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("depth", "2").
		SetResult(&detail).
		Get(fmt.Sprintf("/p/%s", provinceCode))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("provinces api returned %d", resp.StatusCode())
	}

	districts := make([]domain.District, 0, len(detail.Districts))
	for _, d := range detail.Districts {
		districts = append(districts, domain.District{
			Code:         strconv.Itoa(d.Code),
			Name:         d.Name,
			ProvinceCode: provinceCode,
		})
	}
	return districts, nil
}

// Wards 郡/县下辖坊/社
func (c *ProvincesOpenAPIClient) Wards(ctx context.Context, districtCode string) ([]domain.Ward, error) {
	var detail openAPIDistrict
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("depth", "2").
		SetResult(&detail).
		Get(fmt.Sprintf("/d/%s", districtCode))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("provinces api returned %d", resp.StatusCode())
	}

	wards := make([]domain.Ward, 0, len(detail.Wards))
	for _, w := range detail.Wards {
		wards = append(wards, domain.Ward{
			Code:         strconv.Itoa(w.Code),
			Name:         w.Name,
			DistrictCode: districtCode,
		})
	}
	return wards, nil
}
