package domain

import "context"

// Province 省/直辖市
type Province struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// District 郡/县
type District struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	ProvinceCode string `json:"province_code"`
}

// Ward 坊/社
type Ward struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	DistrictCode string `json:"district_code"`
}

// GeoProvider 行政区划数据源接口
type GeoProvider interface {
	// Name 数据源标识（监控标签用）
	Name() string
	// Provinces 全部省/直辖市
	Provinces(ctx context.Context) ([]Province, error)
	// Districts 省下辖郡/县
	Districts(ctx context.Context, provinceCode string) ([]District, error)
	// Wards 郡/县下辖坊/社
	Wards(ctx context.Context, districtCode string) ([]Ward, error)
}
