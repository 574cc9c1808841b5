package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinashop/storefront/internal/checkout/domain"
	"github.com/vinashop/storefront/pkg/utils"
)

type fakeOrderRepo struct {
	orders    map[string]*domain.Order
	outbox    []*domain.OutboxMessage
	createErr error
	creates   int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*domain.Order)}
}

func (r *fakeOrderRepo) Create(_ context.Context, order *domain.Order, outbox *domain.OutboxMessage) error {
	r.creates++
	if r.createErr != nil {
		return r.createErr
	}
	r.orders[order.OrderNo] = order
	if outbox != nil {
		r.outbox = append(r.outbox, outbox)
	}
	return nil
}

func (r *fakeOrderRepo) GetByOrderNo(_ context.Context, orderNo string) (*domain.Order, error) {
	return r.orders[orderNo], nil
}

func (r *fakeOrderRepo) ListByUser(context.Context, string, int, int) ([]*domain.Order, int64, error) {
	return nil, 0, nil
}

func (r *fakeOrderRepo) UpdateStatus(_ context.Context, orderNo string, status domain.OrderStatus) error {
	if order, ok := r.orders[orderNo]; ok {
		order.Status = status
	}
	return nil
}

type fakeGateway struct {
	status      string
	queryCalls  int
	builtOrders []string
}

func (g *fakeGateway) BuildPaymentURL(orderNo string, amount decimal.Decimal) string {
	g.builtOrders = append(g.builtOrders, orderNo)
	return "https://pay.example.com/payments/vnpay?orderId=" + orderNo + "&amount=" + amount.String()
}

func (g *fakeGateway) QueryStatus(context.Context, string) (string, string, error) {
	g.queryCalls++
	return g.status, "", nil
}

type fakeCartGateway struct {
	userID  string
	removed []uint
}

func (g *fakeCartGateway) RemoveSubmitted(_ context.Context, userID string, cartItemIDs []uint) {
	g.userID = userID
	g.removed = cartItemIDs
}

func newService(repo *fakeOrderRepo, gateway *fakeGateway, carts *fakeCartGateway) *CheckoutService {
	return NewCheckoutService(repo, gateway, carts, utils.NewSnowflakeID(1), nil)
}

func prepare(t *testing.T, svc *CheckoutService, userID string, payment domain.PaymentMethod) {
	t.Helper()
	composer := svc.Composer(userID)
	require.NoError(t, composer.SetItems([]domain.DraftItem{
		{CartItemID: 11, ProductID: 1, Quantity: 2, UnitPrice: decimal.NewFromInt(50000)},
		{CartItemID: 12, ProductID: 2, Quantity: 1, UnitPrice: decimal.NewFromInt(30000)},
	}))
	require.NoError(t, composer.SelectAddress(7))
	require.NoError(t, composer.SelectShipping(domain.ShippingMethod{Code: "GHN", Fee: decimal.NewFromInt(20000)}))
	require.NoError(t, composer.SelectPayment(payment))
}

func TestSubmitCreatesOrderAndCleansCart(t *testing.T) {
	repo := newFakeOrderRepo()
	gateway := &fakeGateway{}
	carts := &fakeCartGateway{}
	svc := newService(repo, gateway, carts)

	prepare(t, svc, "u1", domain.PaymentMethodVNPay)
	result, err := svc.Submit(context.Background(), "u1")
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(150000).Equal(result.TotalAmount), "130000 items + 20000 shipping")
	assert.Contains(t, result.PaymentURL, "orderId="+result.OrderNo)
	assert.True(t, result.SameTabFallback, "client may open the payment url in the same tab")

	order := repo.orders[result.OrderNo]
	require.NotNil(t, order)
	assert.Equal(t, domain.OrderStatusPendingPayment, order.Status)
	assert.Len(t, order.Items, 2)

	assert.Equal(t, "u1", carts.userID)
	assert.Equal(t, []uint{11, 12}, carts.removed, "submitted items removed from the cart")
}

func TestSubmitStagesOutboxWithOrder(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newService(repo, &fakeGateway{}, &fakeCartGateway{})

	prepare(t, svc, "u1", domain.PaymentMethodVNPay)
	result, err := svc.Submit(context.Background(), "u1")
	require.NoError(t, err)

	require.Len(t, repo.outbox, 1, "event staged in the order transaction")
	msg := repo.outbox[0]
	assert.Equal(t, topicOrderCreated, msg.Topic)
	assert.Equal(t, "u1", msg.Key)
	assert.Equal(t, domain.OutboxStatusPending, msg.Status)

	var event domain.OrderCreatedEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
	assert.Equal(t, result.OrderNo, event.OrderNo)
	assert.Equal(t, 2, event.ItemCount)
	assert.True(t, result.TotalAmount.Equal(event.TotalAmount))
}

func TestSubmitCODHasNoPaymentURL(t *testing.T) {
	repo := newFakeOrderRepo()
	gateway := &fakeGateway{}
	svc := newService(repo, gateway, &fakeCartGateway{})

	prepare(t, svc, "u1", domain.PaymentMethodCOD)
	result, err := svc.Submit(context.Background(), "u1")
	require.NoError(t, err)

	assert.Empty(t, result.PaymentURL)
	assert.False(t, result.SameTabFallback, "no payment redirect for cash on delivery")
	assert.Empty(t, gateway.builtOrders)
}

func TestSubmitGuardFailureSkipsPersistence(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newService(repo, &fakeGateway{}, &fakeCartGateway{})

	_, err := svc.Submit(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrNoItems)
	assert.Zero(t, repo.creates, "guard failure must not reach the repository")
}

func TestInvalidDraftRejectedBeforeAnyCall(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newService(repo, &fakeGateway{}, &fakeCartGateway{})

	err := svc.Composer("u1").SetItems([]domain.DraftItem{
		{CartItemID: 11, ProductID: 1, Quantity: 1, UnitPrice: decimal.Zero},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDraft)
	assert.Zero(t, repo.creates)
}

func TestSubmitFailureKeepsErrorVerbatim(t *testing.T) {
	repo := newFakeOrderRepo()
	repo.createErr = errors.New("duplicate order")
	carts := &fakeCartGateway{}
	svc := newService(repo, &fakeGateway{}, carts)

	prepare(t, svc, "u1", domain.PaymentMethodCOD)
	composer := svc.Composer("u1")

	_, err := svc.Submit(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, "duplicate order", err.Error())
	assert.Equal(t, domain.StateFailed, composer.State())
	assert.Empty(t, carts.removed, "cart untouched on failure")
	assert.Empty(t, repo.outbox, "no event staged when the transaction fails")
}

func TestSubmitEvictsComposer(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newService(repo, &fakeGateway{}, &fakeCartGateway{})

	prepare(t, svc, "u1", domain.PaymentMethodCOD)
	first := svc.Composer("u1")
	_, err := svc.Submit(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, domain.StateCompleted, first.State())
	assert.NotSame(t, first, svc.Composer("u1"), "next checkout starts a fresh flow")
}

func TestQueryPaymentStatusPersistsPaid(t *testing.T) {
	repo := newFakeOrderRepo()
	gateway := &fakeGateway{status: "PAID"}
	svc := newService(repo, gateway, &fakeCartGateway{})

	prepare(t, svc, "u1", domain.PaymentMethodVNPay)
	result, err := svc.Submit(context.Background(), "u1")
	require.NoError(t, err)

	status, _, err := svc.QueryPaymentStatus(context.Background(), "u1", result.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, "PAID", status)
	assert.Equal(t, domain.OrderStatusPaid, repo.orders[result.OrderNo].Status)
}
