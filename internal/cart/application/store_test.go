package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinashop/storefront/internal/cart/domain"
)

// fakeRemote 可编排失败与阻塞的远端确认桩
type fakeRemote struct {
	mu          sync.Mutex
	nextID      uint
	upsertErr   map[int]error         // 按数量触发失败
	upsertGate  map[int]chan struct{} // 按数量阻塞确认
	removeErr   error
	removeGate  chan struct{} // 阻塞批量移除确认
	clearErr    error
	upsertCalls int
	removeCalls int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		upsertErr:  make(map[int]error),
		upsertGate: make(map[int]chan struct{}),
	}
}

func (f *fakeRemote) UpsertItem(_ context.Context, _ string, item domain.CartItem) (uint, error) {
	f.mu.Lock()
	f.upsertCalls++
	gate := f.upsertGate[item.Quantity]
	err := f.upsertErr[item.Quantity]
	id := item.ID
	if id == 0 {
		f.nextID++
		id = 100 + f.nextID
	}
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (f *fakeRemote) RemoveItem(context.Context, string, uint) error {
	f.mu.Lock()
	f.removeCalls++
	defer f.mu.Unlock()
	return f.removeErr
}

func (f *fakeRemote) RemoveItems(context.Context, string, []uint) error {
	f.mu.Lock()
	f.removeCalls++
	gate := f.removeGate
	err := f.removeErr
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return err
}

func (f *fakeRemote) SetSelected(context.Context, string, []uint, bool) error { return nil }

func (f *fakeRemote) Clear(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clearErr
}

func vnd(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func addTestItem(t *testing.T, s *Store, productID uint, qty int, price int64) domain.CartItem {
	t.Helper()
	item, err := s.AddItem(context.Background(), AddItemInput{
		ProductID: productID,
		Quantity:  qty,
		UnitPrice: vnd(price),
	})
	require.NoError(t, err)
	return item
}

func TestStoreAddItemMergesSameVariant(t *testing.T) {
	remote := newFakeRemote()
	s := NewStore("u1", remote)

	addTestItem(t, s, 1, 3, 50000)
	addTestItem(t, s, 1, 1, 50000)
	s.Wait()

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 4, items[0].Quantity)
}

func TestStoreQuantityRoundTrip(t *testing.T) {
	remote := newFakeRemote()
	s := NewStore("u1", remote)

	item := addTestItem(t, s, 1, 3, 50000)
	s.Wait()
	item = s.Items()[0] // 确认后 ID 已换成远端 ID

	require.NoError(t, s.UpdateQuantity(context.Background(), item.ID, item.Quantity+1))
	require.NoError(t, s.UpdateQuantity(context.Background(), item.ID, 5))
	require.NoError(t, s.UpdateQuantity(context.Background(), item.ID, 4))
	s.Wait()

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 4, items[0].Quantity)
}

func TestStoreUpdateQuantityBelowOneRemoves(t *testing.T) {
	remote := newFakeRemote()
	s := NewStore("u1", remote)

	item := addTestItem(t, s, 1, 2, 50000)
	s.Wait()
	item = s.Items()[0]

	require.NoError(t, s.UpdateQuantity(context.Background(), item.ID, 0))
	s.Wait()

	assert.Empty(t, s.Items())
	assert.Equal(t, 1, remote.removeCalls)
}

func TestStoreSelectedTotal(t *testing.T) {
	remote := newFakeRemote()
	s := NewStore("u1", remote)

	addTestItem(t, s, 1, 2, 50000)
	addTestItem(t, s, 2, 1, 30000)
	s.Wait()

	items := s.Items()
	require.Len(t, items, 2)
	var a, b domain.CartItem
	for _, item := range items {
		if item.ProductID == 1 {
			a = item
		} else {
			b = item
		}
	}

	require.NoError(t, s.ToggleSelect(context.Background(), a.ID))
	require.NoError(t, s.ToggleSelect(context.Background(), b.ID))
	assert.True(t, vnd(130000).Equal(s.SelectedTotal()), "2x50000 + 1x30000")

	require.NoError(t, s.ToggleSelect(context.Background(), b.ID))
	assert.True(t, vnd(100000).Equal(s.SelectedTotal()))

	s.ClearSelected(context.Background())
	assert.True(t, s.SelectedTotal().IsZero())
	s.Wait()
}

func TestStoreSelectAllCoversVisibleOnly(t *testing.T) {
	remote := newFakeRemote()
	s := NewStore("u1", remote, WithVisibleLimit(10))

	for i := 1; i <= 12; i++ {
		addTestItem(t, s, uint(i), 1, 10000)
	}
	s.Wait()

	assert.False(t, s.IsSelectAll(), "empty selection never covers")

	items := s.Items()
	visible := make([]uint, 0, 10)
	for _, item := range items[:10] {
		visible = append(visible, item.ID)
	}
	s.SelectAll(context.Background(), true, visible)
	assert.True(t, s.IsSelectAll())

	snap := s.Snapshot()
	assert.True(t, snap.SelectAllDisabled, "12 items exceed the visible limit")
	s.Wait()
}

func TestStoreEmptyCartIsNotSelectAll(t *testing.T) {
	s := NewStore("u1", newFakeRemote())
	assert.False(t, s.IsSelectAll())
}

func TestStoreAddRollsBackOnRemoteFailure(t *testing.T) {
	remote := newFakeRemote()
	remote.upsertErr[3] = errors.New("remote unavailable")
	s := NewStore("u1", remote)

	addTestItem(t, s, 1, 3, 50000)
	require.Len(t, s.Items(), 1, "optimistic apply is immediate")

	s.Wait()
	assert.Empty(t, s.Items(), "failed confirmation rolls the add back")
}

func TestStoreUpdateRollsBackOnRemoteFailure(t *testing.T) {
	remote := newFakeRemote()
	s := NewStore("u1", remote)

	item := addTestItem(t, s, 1, 2, 50000)
	s.Wait()
	item = s.Items()[0]

	remote.mu.Lock()
	remote.upsertErr[7] = errors.New("remote unavailable")
	remote.mu.Unlock()

	require.NoError(t, s.UpdateQuantity(context.Background(), item.ID, 7))
	assert.Equal(t, 7, s.Items()[0].Quantity)

	s.Wait()
	assert.Equal(t, 2, s.Items()[0].Quantity, "failed confirmation restores the quantity")
}

func TestStoreRemoveRollsBackOnRemoteFailure(t *testing.T) {
	remote := newFakeRemote()
	s := NewStore("u1", remote)

	item := addTestItem(t, s, 1, 2, 50000)
	s.Wait()
	item = s.Items()[0]
	require.NoError(t, s.ToggleSelect(context.Background(), item.ID))

	remote.mu.Lock()
	remote.removeErr = errors.New("remote unavailable")
	remote.mu.Unlock()

	require.NoError(t, s.RemoveItem(context.Background(), item.ID))
	assert.Empty(t, s.Items())

	s.Wait()
	items := s.Items()
	require.Len(t, items, 1, "failed removal restores the item")
	assert.Equal(t, item.ID, items[0].ID)
	assert.True(t, s.Snapshot().Items[0].Selected, "selection restored with the item")
}

func TestStoreStaleConfirmationIsDiscarded(t *testing.T) {
	remote := newFakeRemote()
	s := NewStore("u1", remote)

	item := addTestItem(t, s, 1, 2, 50000)
	s.Wait()
	item = s.Items()[0]

	// 第一次更新的确认被挂起并注定失败，第二次更新先完成
	gate := make(chan struct{})
	remote.mu.Lock()
	remote.upsertErr[7] = errors.New("remote unavailable")
	remote.upsertGate[7] = gate
	remote.mu.Unlock()

	require.NoError(t, s.UpdateQuantity(context.Background(), item.ID, 7))
	require.NoError(t, s.UpdateQuantity(context.Background(), item.ID, 9))
	close(gate)
	s.Wait()

	assert.Equal(t, 9, s.Items()[0].Quantity, "superseded failure must not roll back the newer state")
}

func TestStoreClearRollsBackOnRemoteFailure(t *testing.T) {
	remote := newFakeRemote()
	s := NewStore("u1", remote)

	a := addTestItem(t, s, 1, 2, 50000)
	addTestItem(t, s, 2, 1, 30000)
	s.Wait()
	a = s.Items()[0]
	require.NoError(t, s.ToggleSelect(context.Background(), a.ID))

	remote.mu.Lock()
	remote.clearErr = errors.New("remote unavailable")
	remote.mu.Unlock()

	s.Clear(context.Background())
	assert.Empty(t, s.Items())

	s.Wait()
	assert.Len(t, s.Items(), 2, "failed clear restores all items")
	assert.True(t, vnd(100000).Equal(s.SelectedTotal()), "selection restored")
}

func TestStoreClearSupersedesInFlightBatchRemove(t *testing.T) {
	remote := newFakeRemote()
	s := NewStore("u1", remote)

	addTestItem(t, s, 1, 2, 50000)
	addTestItem(t, s, 2, 1, 30000)
	s.Wait()

	items := s.Items()
	ids := []uint{items[0].ID, items[1].ID}

	// 批量移除的确认被挂起并注定失败，期间用户清空了购物车
	gate := make(chan struct{})
	remote.mu.Lock()
	remote.removeErr = errors.New("remote unavailable")
	remote.removeGate = gate
	remote.mu.Unlock()

	s.RemoveItems(context.Background(), ids)
	s.Clear(context.Background())
	close(gate)
	s.Wait()

	assert.Empty(t, s.Items(), "superseded batch-remove failure must not restore items into a cleared cart")
}

func TestStoreMergeRollbackRestoresFinalPrice(t *testing.T) {
	remote := newFakeRemote()
	s := NewStore("u1", remote)

	addTestItem(t, s, 1, 2, 50000)
	s.Wait()

	remote.mu.Lock()
	remote.upsertErr[3] = errors.New("remote unavailable")
	remote.mu.Unlock()

	_, err := s.AddItem(context.Background(), AddItemInput{
		ProductID:  1,
		Quantity:   1,
		UnitPrice:  vnd(50000),
		FinalPrice: vnd(40000),
	})
	require.NoError(t, err)
	merged := s.Items()[0]
	assert.Equal(t, 3, merged.Quantity)
	assert.True(t, vnd(40000).Equal(merged.FinalPrice), "promo price applies optimistically")

	s.Wait()
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity, "failed merge restores the quantity")
	assert.True(t, vnd(50000).Equal(items[0].FinalPrice), "failed merge restores the previous price")
}

func TestStoreTempIDReconciledToRemoteID(t *testing.T) {
	remote := newFakeRemote()
	s := NewStore("u1", remote)

	item := addTestItem(t, s, 1, 1, 50000)
	assert.GreaterOrEqual(t, item.ID, tempIDBase, "new items carry a temporary id until confirmed")
	require.NoError(t, s.ToggleSelect(context.Background(), item.ID))

	s.Wait()
	items := s.Items()
	require.Len(t, items, 1)
	assert.Less(t, items[0].ID, tempIDBase, "confirmed items use the remote id")
	assert.True(t, s.Snapshot().Items[0].Selected, "selection follows the id swap")
}

func TestStoreSubscribeReceivesEvents(t *testing.T) {
	remote := newFakeRemote()
	remote.upsertErr[5] = errors.New("remote unavailable")
	s := NewStore("u1", remote)

	var mu sync.Mutex
	var events []Event
	unsubscribe := s.Subscribe(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	addTestItem(t, s, 1, 5, 50000)
	s.Wait()

	mu.Lock()
	require.NotEmpty(t, events)
	assert.Equal(t, EventChanged, events[0].Type)
	last := events[len(events)-1]
	assert.Equal(t, EventRolledBack, last.Type)
	assert.Error(t, last.Err)
	assert.Empty(t, last.Snapshot.Items, "rollback snapshot reflects the restored state")
	seen := len(events)
	mu.Unlock()

	unsubscribe()
	addTestItem(t, s, 2, 1, 10000)
	s.Wait()

	mu.Lock()
	assert.Equal(t, seen, len(events), "no events after unsubscribe")
	mu.Unlock()
}

func TestStoreRemoveItemsBatch(t *testing.T) {
	remote := newFakeRemote()
	s := NewStore("u1", remote)

	for i := 1; i <= 3; i++ {
		addTestItem(t, s, uint(i), 1, 10000)
	}
	s.Wait()

	items := s.Items()
	s.RemoveItems(context.Background(), []uint{items[0].ID, items[1].ID})
	s.Wait()

	remaining := s.Items()
	require.Len(t, remaining, 1)
	assert.Equal(t, items[2].ID, remaining[0].ID)
}

func TestStoreVisibleLimitInSnapshot(t *testing.T) {
	remote := newFakeRemote()
	s := NewStore("u1", remote, WithVisibleLimit(10))

	for i := 1; i <= 11; i++ {
		addTestItem(t, s, uint(i), 1, 10000)
	}
	s.Wait()

	snap := s.Snapshot()
	assert.Len(t, snap.Items, 11, "snapshot carries the full list")
	assert.Equal(t, 10, snap.VisibleLimit)
	assert.True(t, snap.SelectAllDisabled)
}

func TestStoreManagerReusesInstance(t *testing.T) {
	remote := newFakeRemote()
	repo := &fakeCartRepo{}
	m := NewStoreManager(repo, remote)

	s1, err := m.Get(context.Background(), "u1")
	require.NoError(t, err)
	s2, err := m.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, repo.loads)
}

func TestStoreManagerRestoresSelection(t *testing.T) {
	remote := newFakeRemote()
	repo := &fakeCartRepo{
		cart: &domain.Cart{
			UserID: "u1",
			Items: []domain.CartItem{
				{ProductID: 1, Quantity: 2, PriceAtAdd: vnd(50000), FinalPrice: vnd(50000), Selected: true},
				{ProductID: 2, Quantity: 1, PriceAtAdd: vnd(30000), FinalPrice: vnd(30000)},
			},
		},
	}
	repo.cart.Items[0].ID = 11
	repo.cart.Items[1].ID = 12

	m := NewStoreManager(repo, remote)
	s, err := m.Get(context.Background(), "u1")
	require.NoError(t, err)

	assert.True(t, vnd(100000).Equal(s.SelectedTotal()))
}

// fakeCartRepo 仅支撑管理器加载路径
type fakeCartRepo struct {
	cart  *domain.Cart
	loads int
}

func (r *fakeCartRepo) GetByUserID(context.Context, string) (*domain.Cart, error) {
	r.loads++
	return r.cart, nil
}

func (r *fakeCartRepo) UpsertItem(context.Context, string, *domain.CartItem) (uint, error) {
	return 0, fmt.Errorf("not implemented")
}
func (r *fakeCartRepo) RemoveItem(context.Context, string, uint) error         { return nil }
func (r *fakeCartRepo) RemoveItems(context.Context, string, []uint) error      { return nil }
func (r *fakeCartRepo) SetSelected(context.Context, string, []uint, bool) error { return nil }
func (r *fakeCartRepo) Clear(context.Context, string) error                    { return nil }
