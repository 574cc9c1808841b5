package application

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vinashop/storefront/internal/catalog/domain"
)

// CreateProductCommand 创建商品命令
type CreateProductCommand struct {
	Name        string
	Slug        string
	Description string
	BasePrice   decimal.Decimal
	ImageURL    string
	CategoryID  uint
}

// CreatePromotionCommand 创建促销命令
type CreatePromotionCommand struct {
	Name          string
	ProductID     uint
	DiscountType  domain.DiscountType
	DiscountValue decimal.Decimal
	GiftProductID *uint
	GiftQuantity  int
	StartAt       time.Time
	EndAt         time.Time
}

// CatalogCommandService 商品目录命令服务
type CatalogCommandService struct {
	products   domain.ProductRepository
	promotions domain.PromotionRepository
	attributes domain.AttributeRepository
	publisher  domain.EventPublisher
}

// NewCatalogCommandService 创建商品目录命令服务实例
func NewCatalogCommandService(
	products domain.ProductRepository,
	promotions domain.PromotionRepository,
	attributes domain.AttributeRepository,
	publisher domain.EventPublisher,
) *CatalogCommandService {
	return &CatalogCommandService{
		products:   products,
		promotions: promotions,
		attributes: attributes,
		publisher:  publisher,
	}
}

// CreateProduct 创建商品
func (s *CatalogCommandService) CreateProduct(ctx context.Context, cmd CreateProductCommand) (*domain.Product, error) {
	if !cmd.BasePrice.IsPositive() {
		return nil, fmt.Errorf("base price must be positive")
	}

	product := &domain.Product{
		Name:        cmd.Name,
		Slug:        cmd.Slug,
		Description: cmd.Description,
		BasePrice:   cmd.BasePrice,
		ImageURL:    cmd.ImageURL,
		CategoryID:  cmd.CategoryID,
		Active:      true,
	}
	if err := s.products.Save(ctx, product); err != nil {
		return nil, err
	}

	event := domain.ProductCreatedEvent{
		ProductID: product.ID,
		Name:      product.Name,
		BasePrice: product.BasePrice,
		Timestamp: time.Now(),
	}
	s.publisher.Publish(ctx, "catalog.product.created", fmt.Sprint(product.ID), event)

	return product, nil
}

// CreatePromotion 创建促销
func (s *CatalogCommandService) CreatePromotion(ctx context.Context, cmd CreatePromotionCommand) (*domain.Promotion, error) {
	if cmd.DiscountType != domain.DiscountTypePercent && cmd.DiscountType != domain.DiscountTypeFixed {
		return nil, fmt.Errorf("unknown discount type: %s", cmd.DiscountType)
	}
	if !cmd.DiscountValue.IsPositive() {
		return nil, fmt.Errorf("discount value must be positive")
	}
	if cmd.DiscountType == domain.DiscountTypePercent && cmd.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("percent discount cannot exceed 100")
	}
	if !cmd.EndAt.After(cmd.StartAt) {
		return nil, fmt.Errorf("promotion end must be after start")
	}

	promo := &domain.Promotion{
		Name:          cmd.Name,
		ProductID:     cmd.ProductID,
		DiscountType:  cmd.DiscountType,
		DiscountValue: cmd.DiscountValue,
		GiftProductID: cmd.GiftProductID,
		GiftQuantity:  cmd.GiftQuantity,
		StartAt:       cmd.StartAt,
		EndAt:         cmd.EndAt,
	}
	if err := s.promotions.Save(ctx, promo); err != nil {
		return nil, err
	}

	event := domain.PromotionCreatedEvent{
		PromotionID:  promo.ID,
		ProductID:    promo.ProductID,
		DiscountType: promo.DiscountType,
		Value:        promo.DiscountValue,
		StartAt:      promo.StartAt,
		EndAt:        promo.EndAt,
		Timestamp:    time.Now(),
	}
	s.publisher.Publish(ctx, "catalog.promotion.created", fmt.Sprint(promo.ProductID), event)

	return promo, nil
}

// SaveAttribute 保存属性
func (s *CatalogCommandService) SaveAttribute(ctx context.Context, attr *domain.Attribute) error {
	return s.attributes.SaveAttribute(ctx, attr)
}

// SaveAttributeValue 保存属性值
func (s *CatalogCommandService) SaveAttributeValue(ctx context.Context, value *domain.AttributeValue) error {
	return s.attributes.SaveAttributeValue(ctx, value)
}
