package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/vinashop/storefront/internal/catalog/domain"
	"gorm.io/gorm"
)

type productRepository struct{ db *gorm.DB }

// NewProductRepository 创建商品仓储实例
func NewProductRepository(db *gorm.DB) domain.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Save(ctx context.Context, product *domain.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *productRepository) Get(ctx context.Context, id uint) (*domain.Product, error) {
	var product domain.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Preload("Variants.AttributeValues").
		First(&product, id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	var product domain.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("slug = ?", slug).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, categoryID uint, limit, offset int) ([]*domain.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Product{}).Where("active = ?", true)
	if categoryID != 0 {
		query = query.Where("category_id = ?", categoryID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []*domain.Product
	err := query.Limit(limit).Offset(offset).Order("id DESC").Find(&products).Error
	return products, total, err
}

func (r *productRepository) GetVariant(ctx context.Context, variantID uint) (*domain.ProductVariant, error) {
	var variant domain.ProductVariant
	err := r.db.WithContext(ctx).
		Preload("AttributeValues").
		First(&variant, variantID).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *productRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.Product{}, id).Error
}

type promotionRepository struct{ db *gorm.DB }

// NewPromotionRepository 创建促销仓储实例
func NewPromotionRepository(db *gorm.DB) domain.PromotionRepository {
	return &promotionRepository{db: db}
}

func (r *promotionRepository) Save(ctx context.Context, promo *domain.Promotion) error {
	return r.db.WithContext(ctx).Save(promo).Error
}

func (r *promotionRepository) Get(ctx context.Context, id uint) (*domain.Promotion, error) {
	var promo domain.Promotion
	if err := r.db.WithContext(ctx).First(&promo, id).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *promotionRepository) GetActiveByProduct(ctx context.Context, productID uint, at time.Time) (*domain.Promotion, error) {
	var promo domain.Promotion
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND start_at <= ? AND end_at > ?", productID, at, at).
		Order("start_at DESC").
		First(&promo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *promotionRepository) List(ctx context.Context, limit, offset int) ([]*domain.Promotion, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Promotion{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var promos []*domain.Promotion
	err := r.db.WithContext(ctx).Limit(limit).Offset(offset).Order("id DESC").Find(&promos).Error
	return promos, total, err
}

func (r *promotionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.Promotion{}, id).Error
}

type attributeRepository struct{ db *gorm.DB }

// NewAttributeRepository 创建属性仓储实例
func NewAttributeRepository(db *gorm.DB) domain.AttributeRepository {
	return &attributeRepository{db: db}
}

func (r *attributeRepository) ListAttributes(ctx context.Context) ([]domain.Attribute, error) {
	var attrs []domain.Attribute
	err := r.db.WithContext(ctx).Find(&attrs).Error
	return attrs, err
}

func (r *attributeRepository) ListAttributeValues(ctx context.Context) ([]domain.AttributeValue, error) {
	var values []domain.AttributeValue
	err := r.db.WithContext(ctx).Find(&values).Error
	return values, err
}

func (r *attributeRepository) SaveAttribute(ctx context.Context, attr *domain.Attribute) error {
	return r.db.WithContext(ctx).Save(attr).Error
}

func (r *attributeRepository) SaveAttributeValue(ctx context.Context, value *domain.AttributeValue) error {
	return r.db.WithContext(ctx).Save(value).Error
}
