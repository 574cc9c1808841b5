package application

import (
	"context"
	"errors"

	"github.com/vinashop/storefront/internal/address/domain"
)

// ErrAddressNotFound 地址不存在
var ErrAddressNotFound = errors.New("shipping address not found")

// AddressService 收货地址应用服务
type AddressService struct {
	repo domain.AddressRepository
}

// NewAddressService 创建地址服务
func NewAddressService(repo domain.AddressRepository) *AddressService {
	return &AddressService{repo: repo}
}

// CreateAddressCommand 新增地址命令
type CreateAddressCommand struct {
	Receiver     string
	Phone        string
	ProvinceCode string
	ProvinceName string
	DistrictCode string
	DistrictName string
	WardCode     string
	WardName     string
	Detail       string
	IsDefault    bool
}

// Create 新增地址；用户的首个地址自动设为默认
func (s *AddressService) Create(ctx context.Context, userID string, cmd CreateAddressCommand) (*domain.ShippingAddress, error) {
	existing, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	address := &domain.ShippingAddress{
		UserID:       userID,
		Receiver:     cmd.Receiver,
		Phone:        cmd.Phone,
		ProvinceCode: cmd.ProvinceCode,
		ProvinceName: cmd.ProvinceName,
		DistrictCode: cmd.DistrictCode,
		DistrictName: cmd.DistrictName,
		WardCode:     cmd.WardCode,
		WardName:     cmd.WardName,
		Detail:       cmd.Detail,
		IsDefault:    cmd.IsDefault || len(existing) == 0,
	}
	if err := s.repo.Create(ctx, address); err != nil {
		return nil, err
	}
	return address, nil
}

// Update 更新地址
func (s *AddressService) Update(ctx context.Context, userID string, addressID uint, cmd CreateAddressCommand) (*domain.ShippingAddress, error) {
	existing, err := s.repo.GetByID(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrAddressNotFound
	}

	existing.Receiver = cmd.Receiver
	existing.Phone = cmd.Phone
	existing.ProvinceCode = cmd.ProvinceCode
	existing.ProvinceName = cmd.ProvinceName
	existing.DistrictCode = cmd.DistrictCode
	existing.DistrictName = cmd.DistrictName
	existing.WardCode = cmd.WardCode
	existing.WardName = cmd.WardName
	existing.Detail = cmd.Detail
	existing.IsDefault = cmd.IsDefault

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete 删除地址
func (s *AddressService) Delete(ctx context.Context, userID string, addressID uint) error {
	return s.repo.Delete(ctx, userID, addressID)
}

// List 查询用户全部地址
func (s *AddressService) List(ctx context.Context, userID string) ([]*domain.ShippingAddress, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Get 查询地址详情
func (s *AddressService) Get(ctx context.Context, userID string, addressID uint) (*domain.ShippingAddress, error) {
	address, err := s.repo.GetByID(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}
	if address == nil {
		return nil, ErrAddressNotFound
	}
	return address, nil
}

// SetDefault 指定默认地址
func (s *AddressService) SetDefault(ctx context.Context, userID string, addressID uint) error {
	return s.repo.SetDefault(ctx, userID, addressID)
}

// Default 查询默认地址；无默认时返回 nil
func (s *AddressService) Default(ctx context.Context, userID string) (*domain.ShippingAddress, error) {
	addresses, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, address := range addresses {
		if address.IsDefault {
			return address, nil
		}
	}
	return nil, nil
}
