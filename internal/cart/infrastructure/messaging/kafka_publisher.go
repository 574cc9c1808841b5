// Package messaging 提供购物车领域事件的 Kafka 发布实现
package messaging

import (
	"context"

	"github.com/vinashop/storefront/internal/cart/domain"
	"github.com/vinashop/storefront/pkg/mq"
)

// KafkaEventPublisher 基于共享 Kafka 生产者的事件发布器
type KafkaEventPublisher struct {
	producer *mq.KafkaProducer
}

// NewKafkaEventPublisher 创建事件发布器实例
func NewKafkaEventPublisher(producer *mq.KafkaProducer) domain.EventPublisher {
	return &KafkaEventPublisher{producer: producer}
}

// Publish 发布领域事件
func (p *KafkaEventPublisher) Publish(ctx context.Context, topic string, key string, event any) error {
	return p.producer.SendMessage(ctx, topic, key, event)
}
