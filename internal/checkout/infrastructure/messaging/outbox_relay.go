// Package messaging 实现结算上下文的发件箱中继：
// 轮询与订单同事务落库的待投递事件并发往 Kafka
package messaging

import (
	"context"
	"time"

	"github.com/vinashop/storefront/internal/checkout/domain"
	"github.com/vinashop/storefront/pkg/logger"
)

// Sender 消息投递接口，由 pkg/mq 的生产者实现
type Sender interface {
	SendRaw(ctx context.Context, topic string, key string, value []byte) error
}

// OutboxRelay 发件箱中继
type OutboxRelay struct {
	outbox    domain.OutboxRepository
	sender    Sender
	interval  time.Duration
	batchSize int
	retention time.Duration
}

// RelayOption 中继可选配置
type RelayOption func(*OutboxRelay)

// WithInterval 设置轮询间隔
func WithInterval(d time.Duration) RelayOption {
	return func(r *OutboxRelay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithBatchSize 设置单次投递批量上限
func WithBatchSize(n int) RelayOption {
	return func(r *OutboxRelay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// NewOutboxRelay 创建发件箱中继
func NewOutboxRelay(outbox domain.OutboxRepository, sender Sender, opts ...RelayOption) *OutboxRelay {
	r := &OutboxRelay{
		outbox:    outbox,
		sender:    sender,
		interval:  time.Second,
		batchSize: 100,
		retention: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start 阻塞轮询直到 ctx 取消；调用方以 goroutine 启动
func (r *OutboxRelay) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	cleanup := time.NewTicker(time.Hour)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.DrainOnce(ctx); err != nil {
				logger.Warn(ctx, "Outbox drain failed", "error", err)
			}
		case <-cleanup.C:
			if err := r.outbox.DeleteSentBefore(ctx, time.Now().Add(-r.retention)); err != nil {
				logger.Warn(ctx, "Outbox cleanup failed", "error", err)
			}
		}
	}
}

// DrainOnce 投递一批待发事件，返回成功条数
// 单条失败不阻塞后续记录，留待下一轮重试
func (r *OutboxRelay) DrainOnce(ctx context.Context) (int, error) {
	messages, err := r.outbox.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	sent := make([]string, 0, len(messages))
	for _, msg := range messages {
		if err := r.sender.SendRaw(ctx, msg.Topic, msg.Key, []byte(msg.Payload)); err != nil {
			logger.Warn(ctx, "Failed to relay outbox message",
				"id", msg.ID,
				"topic", msg.Topic,
				"error", err,
			)
			continue
		}
		sent = append(sent, msg.ID)
	}

	if err := r.outbox.MarkSent(ctx, sent); err != nil {
		return 0, err
	}
	return len(sent), nil
}
