package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vinashop/storefront/internal/catalog/domain"
	"gorm.io/gorm"
)

// CatalogQueryService 商品目录查询服务
type CatalogQueryService struct {
	products   domain.ProductRepository
	promotions domain.PromotionRepository
	attributes domain.AttributeRepository

	mu       sync.RWMutex
	resolver *domain.AttributeResolver
}

// NewCatalogQueryService 创建商品目录查询服务实例
func NewCatalogQueryService(
	products domain.ProductRepository,
	promotions domain.PromotionRepository,
	attributes domain.AttributeRepository,
) *CatalogQueryService {
	return &CatalogQueryService{
		products:   products,
		promotions: promotions,
		attributes: attributes,
	}
}

// GetProduct 获取商品详情
func (s *CatalogQueryService) GetProduct(ctx context.Context, id uint) (*domain.Product, error) {
	product, err := s.products.Get(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return product, err
}

// ListProducts 分页获取商品列表
func (s *CatalogQueryService) ListProducts(ctx context.Context, categoryID uint, limit, offset int) ([]*domain.Product, int64, error) {
	return s.products.List(ctx, categoryID, limit, offset)
}

// ResolvePrice 核算商品（或其变体）的当前价格
// 读取时刻生效的促销参与折扣计算
func (s *CatalogQueryService) ResolvePrice(ctx context.Context, productID uint, variantID *uint) (domain.PriceQuote, error) {
	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return domain.PriceQuote{}, err
	}

	base := product.BasePrice
	if variantID != nil {
		variant, err := s.products.GetVariant(ctx, *variantID)
		if err != nil {
			return domain.PriceQuote{}, err
		}
		base = variant.EffectivePrice(product.BasePrice)
	}

	promo, err := s.promotions.GetActiveByProduct(ctx, productID, time.Now())
	if err != nil {
		return domain.PriceQuote{}, err
	}

	return domain.QuotePrice(base, promo, time.Now()), nil
}

// GetActivePromotion 获取商品当前生效的促销，没有则返回 nil
func (s *CatalogQueryService) GetActivePromotion(ctx context.Context, productID uint) (*domain.Promotion, error) {
	return s.promotions.GetActiveByProduct(ctx, productID, time.Now())
}

// RenderAttributes 把行项目携带的属性对渲染为可读文本
// 解析器按来源指纹记忆化，来源列表变更时才重建
func (s *CatalogQueryService) RenderAttributes(ctx context.Context, pairs []domain.AttrPair) (string, error) {
	resolver, err := s.currentResolver(ctx)
	if err != nil {
		return "", err
	}
	return resolver.Render(pairs), nil
}

// currentResolver 返回与数据库内容一致的解析器
func (s *CatalogQueryService) currentResolver(ctx context.Context) (*domain.AttributeResolver, error) {
	attrs, err := s.attributes.ListAttributes(ctx)
	if err != nil {
		return nil, err
	}
	values, err := s.attributes.ListAttributeValues(ctx)
	if err != nil {
		return nil, err
	}

	fingerprint := domain.Fingerprint(attrs, values)

	s.mu.RLock()
	cached := s.resolver
	s.mu.RUnlock()
	if cached != nil && cached.Fingerprint() == fingerprint {
		return cached, nil
	}

	resolver := domain.NewAttributeResolver(attrs, values)
	s.mu.Lock()
	s.resolver = resolver
	s.mu.Unlock()
	return resolver, nil
}

// PriceOf 购物车读取最终价格用的便捷封装
func (s *CatalogQueryService) PriceOf(ctx context.Context, productID uint, variantID *uint) (decimal.Decimal, error) {
	quote, err := s.ResolvePrice(ctx, productID, variantID)
	if err != nil {
		return decimal.Zero, err
	}
	return quote.FinalPrice, nil
}
