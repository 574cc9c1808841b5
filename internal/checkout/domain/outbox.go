package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// 发件箱记录状态
const (
	// OutboxStatusPending 待投递
	OutboxStatusPending = "pending"
	// OutboxStatusSent 已投递
	OutboxStatusSent = "sent"
)

// OutboxMessage 待投递的领域事件
// 与订单写入同一事务落库，由中继异步投递到 Kafka
type OutboxMessage struct {
	ID        string    `gorm:"size:36;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 目标主题
	Topic string `gorm:"size:100" json:"topic"`
	// 分区键
	Key string `gorm:"column:message_key;size:100" json:"key"`
	// 事件 JSON 负载
	Payload string `gorm:"type:text" json:"payload"`
	// 投递状态
	Status string `gorm:"size:20;index;default:'pending'" json:"status"`
}

// TableName 指定表名
func (OutboxMessage) TableName() string { return "checkout_outbox_messages" }

// NewOutboxMessage 序列化事件并生成待投递记录
func NewOutboxMessage(topic, key string, event any) (*OutboxMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal outbox event: %w", err)
	}
	return &OutboxMessage{
		ID:      uuid.New().String(),
		Topic:   topic,
		Key:     key,
		Payload: string(payload),
		Status:  OutboxStatusPending,
	}, nil
}

// OutboxRepository 发件箱仓储接口
type OutboxRepository interface {
	// FetchPending 按创建时间取一批待投递记录
	FetchPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	// MarkSent 批量标记已投递
	MarkSent(ctx context.Context, ids []string) error
	// DeleteSentBefore 清理早于 before 的已投递记录
	DeleteSentBefore(ctx context.Context, before time.Time) error
}
