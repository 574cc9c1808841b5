package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vinashop/storefront/internal/checkout/domain"
)

type outboxRepository struct {
	db *gorm.DB
}

// NewOutboxRepository 创建发件箱仓储
func NewOutboxRepository(db *gorm.DB) domain.OutboxRepository {
	return &outboxRepository{db: db}
}

// FetchPending 按创建时间取一批待投递记录
func (r *outboxRepository) FetchPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	var messages []domain.OutboxMessage
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.OutboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkSent 批量标记已投递
func (r *outboxRepository) MarkSent(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&domain.OutboxMessage{}).
		Where("id IN ?", ids).
		Update("status", domain.OutboxStatusSent).Error
}

// DeleteSentBefore 清理早于 before 的已投递记录
func (r *outboxRepository) DeleteSentBefore(ctx context.Context, before time.Time) error {
	return r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", domain.OutboxStatusSent, before).
		Delete(&domain.OutboxMessage{}).Error
}
