package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinashop/storefront/internal/checkout/domain"
)

// fakeOutboxRepo 内存发件箱
type fakeOutboxRepo struct {
	messages []domain.OutboxMessage
}

func (r *fakeOutboxRepo) FetchPending(_ context.Context, limit int) ([]domain.OutboxMessage, error) {
	pending := make([]domain.OutboxMessage, 0, limit)
	for _, msg := range r.messages {
		if msg.Status == domain.OutboxStatusPending {
			pending = append(pending, msg)
			if len(pending) == limit {
				break
			}
		}
	}
	return pending, nil
}

func (r *fakeOutboxRepo) MarkSent(_ context.Context, ids []string) error {
	marked := make(map[string]bool, len(ids))
	for _, id := range ids {
		marked[id] = true
	}
	for i := range r.messages {
		if marked[r.messages[i].ID] {
			r.messages[i].Status = domain.OutboxStatusSent
		}
	}
	return nil
}

func (r *fakeOutboxRepo) DeleteSentBefore(context.Context, time.Time) error { return nil }

// fakeSender 记录投递内容，可按主题注入失败
type fakeSender struct {
	sent    []string
	failFor map[string]error
}

func (s *fakeSender) SendRaw(_ context.Context, topic string, _ string, _ []byte) error {
	if err := s.failFor[topic]; err != nil {
		return err
	}
	s.sent = append(s.sent, topic)
	return nil
}

func stageMessage(t *testing.T, repo *fakeOutboxRepo, topic string) string {
	t.Helper()
	msg, err := domain.NewOutboxMessage(topic, "u1", map[string]string{"order_no": "123"})
	require.NoError(t, err)
	repo.messages = append(repo.messages, *msg)
	return msg.ID
}

func TestOutboxRelayDrainsPending(t *testing.T) {
	repo := &fakeOutboxRepo{}
	stageMessage(t, repo, "checkout.order.created")
	stageMessage(t, repo, "checkout.order.created")
	sender := &fakeSender{}

	relay := NewOutboxRelay(repo, sender)
	count, err := relay.DrainOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, count)
	assert.Len(t, sender.sent, 2)
	for _, msg := range repo.messages {
		assert.Equal(t, domain.OutboxStatusSent, msg.Status)
	}
}

func TestOutboxRelayKeepsFailedMessagesPending(t *testing.T) {
	repo := &fakeOutboxRepo{}
	stageMessage(t, repo, "checkout.order.created")
	sender := &fakeSender{failFor: map[string]error{
		"checkout.order.created": errors.New("broker unavailable"),
	}}

	relay := NewOutboxRelay(repo, sender)
	count, err := relay.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, domain.OutboxStatusPending, repo.messages[0].Status, "failed delivery retries next round")

	// 故障恢复后同一条消息补投成功
	sender.failFor = nil
	count, err = relay.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, domain.OutboxStatusSent, repo.messages[0].Status)
}

func TestOutboxRelayHonorsBatchSize(t *testing.T) {
	repo := &fakeOutboxRepo{}
	for i := 0; i < 5; i++ {
		stageMessage(t, repo, "checkout.order.created")
	}
	sender := &fakeSender{}

	relay := NewOutboxRelay(repo, sender, WithBatchSize(2))
	count, err := relay.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
