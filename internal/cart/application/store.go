// Package application 实现购物车的应用层：
// 以显式 Store 对象承载待购清单与勾选状态，本地乐观更新先行，
// 远端确认失败时统一补偿回滚，更新的确认按行项目代次淘汰过期响应。
package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vinashop/storefront/internal/cart/domain"
	"github.com/vinashop/storefront/pkg/logger"
	"github.com/vinashop/storefront/pkg/metrics"
)

// ErrItemNotFound 行项目不存在
var ErrItemNotFound = errors.New("cart item not found")

// ErrInvalidQuantity 加购数量非法
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// 新增行项目在远端确认前使用的临时 ID 起点，避开数据库自增区间
const tempIDBase uint = 1 << 31

// 整车操作（清空、批量移除）在代次表中占用的键
const cartWideKey uint = 0

// RemoteCart 远端购物车确认接口
// Store 本地先行变更后通过它达成最终一致
type RemoteCart interface {
	// UpsertItem 插入或更新行项目，返回远端分配的行项目 ID
	UpsertItem(ctx context.Context, userID string, item domain.CartItem) (uint, error)
	// RemoveItem 删除行项目
	RemoveItem(ctx context.Context, userID string, itemID uint) error
	// RemoveItems 批量删除行项目
	RemoveItems(ctx context.Context, userID string, itemIDs []uint) error
	// SetSelected 同步勾选状态
	SetSelected(ctx context.Context, userID string, itemIDs []uint, selected bool) error
	// Clear 清空购物车
	Clear(ctx context.Context, userID string) error
}

// PriceResolver 行项目折后价解析接口，由商品目录实现
type PriceResolver interface {
	PriceOf(ctx context.Context, productID uint, variantID *uint) (decimal.Decimal, error)
}

// EventType 订阅事件类型
type EventType string

const (
	// EventChanged 本地状态发生变更
	EventChanged EventType = "changed"
	// EventRolledBack 远端确认失败，本地已补偿回滚
	EventRolledBack EventType = "rolled_back"
)

// Event 推送给订阅者的事件
type Event struct {
	Type EventType
	// 涉及的行项目 ID（整车操作为 0）
	ItemID uint
	// 变更种类：add / update / remove / select / clear
	Kind string
	// 回滚事件携带的远端错误
	Err error
	// 变更后的状态快照
	Snapshot Snapshot
}

// Snapshot 状态快照，交给订阅者与 HTTP 层渲染
type Snapshot struct {
	Items             []domain.CartItem `json:"items"`
	SelectedIDs       []uint            `json:"selected_ids"`
	SelectedTotal     decimal.Decimal   `json:"selected_total"`
	Total             decimal.Decimal   `json:"total"`
	VisibleLimit      int               `json:"visible_limit"`
	IsSelectAll       bool              `json:"is_select_all"`
	SelectAllDisabled bool              `json:"select_all_disabled"`
}

// AddItemInput 加购入参
type AddItemInput struct {
	ProductID        uint
	ProductVariantID *uint
	Quantity         int
	// 加购时价格
	UnitPrice decimal.Decimal
	// 促销折后价，为零时回落到 UnitPrice
	FinalPrice decimal.Decimal
	// 属性值组合
	Attributes []domain.AttrPair
}

// Store 购物车存储
// 单一事实来源：待购清单 + 勾选集合；所有派生值读取时重算
type Store struct {
	userID       string
	remote       RemoteCart
	visibleLimit int
	mets         *metrics.Metrics

	mu      sync.Mutex
	items   []domain.CartItem
	sel     domain.SelectionSet
	gens    map[uint]uint64
	tempSeq uint

	subs   map[int]func(Event)
	subSeq int

	wg sync.WaitGroup
}

// Option Store 可选配置
type Option func(*Store)

// WithVisibleLimit 设置购物车页展示条目上限
func WithVisibleLimit(limit int) Option {
	return func(s *Store) {
		if limit > 0 {
			s.visibleLimit = limit
		}
	}
}

// WithMetrics 注入指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.mets = m }
}

// NewStore 创建空的购物车存储
func NewStore(userID string, remote RemoteCart, opts ...Option) *Store {
	s := &Store{
		userID:       userID,
		remote:       remote,
		visibleLimit: 10,
		sel:          domain.NewSelectionSet(),
		gens:         make(map[uint]uint64),
		subs:         make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewStoreFromCart 从持久化的购物车恢复存储（含勾选状态）
func NewStoreFromCart(cart *domain.Cart, remote RemoteCart, opts ...Option) *Store {
	s := NewStore(cart.UserID, remote, opts...)
	s.items = append(s.items, cart.Items...)
	for idx := range s.items {
		if s.items[idx].Selected {
			s.sel[s.items[idx].ID] = struct{}{}
		}
	}
	return s
}

// UserID 返回存储归属的用户
func (s *Store) UserID() string { return s.userID }

// Subscribe 注册订阅者，返回取消函数
func (s *Store) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subSeq++
	id := s.subSeq
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// AddItem 加购：同商品/变体合并数量，否则插入新行
// 本地先行生效，远端确认失败时回滚并通知订阅者
func (s *Store) AddItem(ctx context.Context, input AddItemInput) (domain.CartItem, error) {
	if input.Quantity < 1 {
		return domain.CartItem{}, ErrInvalidQuantity
	}

	final := input.FinalPrice
	if final.IsZero() {
		final = input.UnitPrice
	}

	s.mu.Lock()

	idx := s.findVariantLocked(input.ProductID, input.ProductVariantID)
	if idx >= 0 {
		// 合并数量：等价于一次数量更新
		item := s.items[idx]
		prevQty := item.Quantity
		prevFinal := item.FinalPrice
		s.items[idx].Quantity += input.Quantity
		s.items[idx].FinalPrice = final
		merged := s.items[idx]
		gen := s.bumpLocked(merged.ID)
		ev := s.eventLocked(EventChanged, merged.ID, "add", nil)
		s.mu.Unlock()

		s.dispatch(ev)
		s.confirmUpsert(ctx, merged, gen, "add", func() {
			if i := s.findItemLocked(merged.ID); i >= 0 {
				s.items[i].Quantity = prevQty
				s.items[i].FinalPrice = prevFinal
			}
		})
		return merged, nil
	}

	s.tempSeq++
	item := domain.CartItem{
		ProductID:        input.ProductID,
		ProductVariantID: input.ProductVariantID,
		Quantity:         input.Quantity,
		PriceAtAdd:       input.UnitPrice,
		FinalPrice:       final,
		Attributes:       input.Attributes,
	}
	item.ID = tempIDBase + s.tempSeq
	item.CreatedAt = time.Now()
	s.items = append(s.items, item)
	gen := s.bumpLocked(item.ID)
	ev := s.eventLocked(EventChanged, item.ID, "add", nil)
	s.mu.Unlock()

	s.dispatch(ev)
	s.confirmInsert(ctx, item, gen)
	return item, nil
}

// UpdateQuantity 更新数量；newQty < 1 时等价于移除
func (s *Store) UpdateQuantity(ctx context.Context, itemID uint, newQty int) error {
	if newQty < 1 {
		return s.RemoveItem(ctx, itemID)
	}

	s.mu.Lock()
	idx := s.findItemLocked(itemID)
	if idx < 0 {
		s.mu.Unlock()
		return ErrItemNotFound
	}

	prevQty := s.items[idx].Quantity
	s.items[idx].Quantity = newQty
	updated := s.items[idx]
	gen := s.bumpLocked(itemID)
	ev := s.eventLocked(EventChanged, itemID, "update", nil)
	s.mu.Unlock()

	s.dispatch(ev)
	s.confirmUpsert(ctx, updated, gen, "update", func() {
		if i := s.findItemLocked(itemID); i >= 0 {
			s.items[i].Quantity = prevQty
		}
	})
	return nil
}

// RemoveItem 移除行项目；远端确认失败时恢复行项目与勾选状态
func (s *Store) RemoveItem(ctx context.Context, itemID uint) error {
	s.mu.Lock()
	idx := s.findItemLocked(itemID)
	if idx < 0 {
		s.mu.Unlock()
		return ErrItemNotFound
	}

	removed := s.items[idx]
	wasSelected := s.sel.Has(itemID)
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.sel.Prune(s.existsLocked)
	gen := s.bumpLocked(itemID)
	ev := s.eventLocked(EventChanged, itemID, "remove", nil)
	s.mu.Unlock()

	s.dispatch(ev)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.remote.RemoveItem(context.WithoutCancel(ctx), s.userID, itemID)
		if err == nil {
			s.countMutation("remove", "ok")
			return
		}
		s.compensate(itemID, gen, "remove", err, func() {
			s.items = append(s.items, removed)
			if wasSelected {
				s.sel[itemID] = struct{}{}
			}
		})
	}()
	return nil
}

// RemoveItems 批量移除（结算成功后调用）；失败时整批恢复
func (s *Store) RemoveItems(ctx context.Context, itemIDs []uint) {
	if len(itemIDs) == 0 {
		return
	}

	s.mu.Lock()
	wanted := make(map[uint]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}

	removed := make([]domain.CartItem, 0, len(itemIDs))
	kept := s.items[:0]
	for _, item := range s.items {
		if wanted[item.ID] {
			removed = append(removed, item)
			delete(s.gens, item.ID)
		} else {
			kept = append(kept, item)
		}
	}
	s.items = kept
	selected := make([]uint, 0, len(removed))
	for _, item := range removed {
		if s.sel.Has(item.ID) {
			selected = append(selected, item.ID)
		}
	}
	s.sel.Prune(s.existsLocked)
	gen := s.bumpLocked(cartWideKey)
	ev := s.eventLocked(EventChanged, cartWideKey, "remove", nil)
	s.mu.Unlock()

	if len(removed) == 0 {
		return
	}
	s.dispatch(ev)

	ids := make([]uint, len(removed))
	for i, item := range removed {
		ids[i] = item.ID
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.remote.RemoveItems(context.WithoutCancel(ctx), s.userID, ids)
		if err == nil {
			s.countMutation("remove", "ok")
			return
		}
		s.compensate(cartWideKey, gen, "remove", err, func() {
			s.items = append(s.items, removed...)
			s.sel.Set(true, selected)
		})
	}()
}

// Clear 清空购物车与勾选集合（结算完成或用户主动清空）
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	prevItems := append([]domain.CartItem(nil), s.items...)
	prevSelected := s.sel.IDs()
	s.items = nil
	s.sel.Clear()
	// 清空淘汰所有在途确认：逐键递增，代次只增不减，
	// 重建映射会让整车键从 1 重新计数并与在途确认撞号
	for id := range s.gens {
		s.gens[id]++
	}
	gen := s.bumpLocked(cartWideKey)
	ev := s.eventLocked(EventChanged, cartWideKey, "clear", nil)
	s.mu.Unlock()

	s.dispatch(ev)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.remote.Clear(context.WithoutCancel(ctx), s.userID)
		if err == nil {
			s.countMutation("clear", "ok")
			return
		}
		s.compensate(cartWideKey, gen, "clear", err, func() {
			s.items = prevItems
			s.sel.Set(true, prevSelected)
		})
	}()
}

// ToggleSelect 勾选/取消勾选切换
func (s *Store) ToggleSelect(ctx context.Context, itemID uint) error {
	s.mu.Lock()
	if s.findItemLocked(itemID) < 0 {
		s.mu.Unlock()
		return ErrItemNotFound
	}
	s.sel.Toggle(itemID)
	selected := s.sel.Has(itemID)
	ev := s.eventLocked(EventChanged, itemID, "select", nil)
	s.mu.Unlock()

	s.dispatch(ev)
	s.syncSelection(ctx, []uint{itemID}, selected)
	return nil
}

// SelectAll 对一批行项目统一设置勾选状态；不存在的 ID 被忽略
func (s *Store) SelectAll(ctx context.Context, flag bool, itemIDs []uint) {
	s.mu.Lock()
	existing := make([]uint, 0, len(itemIDs))
	for _, id := range itemIDs {
		if s.findItemLocked(id) >= 0 {
			existing = append(existing, id)
		}
	}
	s.sel.Set(flag, existing)
	ev := s.eventLocked(EventChanged, cartWideKey, "select", nil)
	s.mu.Unlock()

	s.dispatch(ev)
	s.syncSelection(ctx, existing, flag)
}

// ClearSelected 仅清空勾选集合
func (s *Store) ClearSelected(ctx context.Context) {
	s.mu.Lock()
	ids := s.sel.IDs()
	s.sel.Clear()
	ev := s.eventLocked(EventChanged, cartWideKey, "select", nil)
	s.mu.Unlock()

	s.dispatch(ev)
	s.syncSelection(ctx, ids, false)
}

// IsSelectAll 勾选集合是否覆盖全部可见行项目
func (s *Store) IsSelectAll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.Covers(s.visibleIDsLocked())
}

// SelectedTotal 勾选行项目金额合计：Σ 折后价 × 数量
func (s *Store) SelectedTotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedTotalLocked()
}

// Items 返回全部行项目副本
func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CartItem(nil), s.items...)
}

// SelectedItems 返回勾选行项目副本
func (s *Store) SelectedItems() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	selected := make([]domain.CartItem, 0, len(s.sel))
	for _, item := range s.items {
		if s.sel.Has(item.ID) {
			selected = append(selected, item)
		}
	}
	return selected
}

// Snapshot 返回当前状态快照
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// RefreshPrices 按商品目录重算每行折后价（读取时刻的促销口径）
func (s *Store) RefreshPrices(ctx context.Context, resolver PriceResolver) error {
	s.mu.Lock()
	items := append([]domain.CartItem(nil), s.items...)
	s.mu.Unlock()

	prices := make(map[uint]decimal.Decimal, len(items))
	for _, item := range items {
		price, err := resolver.PriceOf(ctx, item.ProductID, item.ProductVariantID)
		if err != nil {
			return err
		}
		prices[item.ID] = price
	}

	s.mu.Lock()
	for idx := range s.items {
		if price, ok := prices[s.items[idx].ID]; ok && price.IsPositive() {
			s.items[idx].FinalPrice = price
		}
	}
	ev := s.eventLocked(EventChanged, cartWideKey, "update", nil)
	s.mu.Unlock()

	s.dispatch(ev)
	return nil
}

// Wait 等待所有在途远端确认收尾（测试与优雅退出用）
func (s *Store) Wait() {
	s.wg.Wait()
}

// ---- 内部 ----

func (s *Store) findItemLocked(itemID uint) int {
	for idx := range s.items {
		if s.items[idx].ID == itemID {
			return idx
		}
	}
	return -1
}

func (s *Store) findVariantLocked(productID uint, variantID *uint) int {
	for idx := range s.items {
		if s.items[idx].SameVariant(productID, variantID) {
			return idx
		}
	}
	return -1
}

func (s *Store) existsLocked(id uint) bool {
	return s.findItemLocked(id) >= 0
}

func (s *Store) bumpLocked(id uint) uint64 {
	s.gens[id]++
	return s.gens[id]
}

// currentLocked 该代次是否仍是行项目的最新变更
func (s *Store) currentLocked(id uint, gen uint64) bool {
	return s.gens[id] == gen
}

func (s *Store) visibleIDsLocked() []uint {
	n := len(s.items)
	if n > s.visibleLimit {
		n = s.visibleLimit
	}
	ids := make([]uint, 0, n)
	for idx := 0; idx < n; idx++ {
		ids = append(ids, s.items[idx].ID)
	}
	return ids
}

func (s *Store) selectedTotalLocked() decimal.Decimal {
	total := decimal.Zero
	for idx := range s.items {
		if s.sel.Has(s.items[idx].ID) {
			total = total.Add(s.items[idx].LineTotal())
		}
	}
	return total
}

func (s *Store) snapshotLocked() Snapshot {
	items := append([]domain.CartItem(nil), s.items...)
	for idx := range items {
		items[idx].Selected = s.sel.Has(items[idx].ID)
	}

	selectedIDs := s.sel.IDs()
	sort.Slice(selectedIDs, func(i, j int) bool { return selectedIDs[i] < selectedIDs[j] })

	total := decimal.Zero
	for idx := range items {
		total = total.Add(items[idx].LineTotal())
	}

	return Snapshot{
		Items:             items,
		SelectedIDs:       selectedIDs,
		SelectedTotal:     s.selectedTotalLocked(),
		Total:             total,
		VisibleLimit:      s.visibleLimit,
		IsSelectAll:       s.sel.Covers(s.visibleIDsLocked()),
		SelectAllDisabled: len(s.items) > s.visibleLimit,
	}
}

func (s *Store) eventLocked(t EventType, itemID uint, kind string, err error) Event {
	return Event{
		Type:     t,
		ItemID:   itemID,
		Kind:     kind,
		Err:      err,
		Snapshot: s.snapshotLocked(),
	}
}

// dispatch 在不持锁的情况下把事件推给订阅者
func (s *Store) dispatch(ev Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// confirmInsert 新增行项目的远端确认：成功时把临时 ID 换成远端 ID
func (s *Store) confirmInsert(ctx context.Context, item domain.CartItem, gen uint64) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		tempID := item.ID
		item.ID = 0
		remoteID, err := s.remote.UpsertItem(context.WithoutCancel(ctx), s.userID, item)
		if err != nil {
			s.compensate(tempID, gen, "add", err, func() {
				if idx := s.findItemLocked(tempID); idx >= 0 {
					s.items = append(s.items[:idx], s.items[idx+1:]...)
				}
				s.sel.Prune(s.existsLocked)
			})
			return
		}

		s.mu.Lock()
		idx := s.findItemLocked(tempID)
		if idx < 0 {
			// 行项目已被后续变更移除
			s.mu.Unlock()
			s.countStale()
			return
		}
		// ID 归属与状态新旧无关：即使已有更新的变更，远端 ID 也要换上
		if remoteID != 0 {
			s.items[idx].ID = remoteID
			s.gens[remoteID] = s.gens[tempID]
			delete(s.gens, tempID)
			if s.sel.Has(tempID) {
				delete(s.sel, tempID)
				s.sel[remoteID] = struct{}{}
			}
		}
		ev := s.eventLocked(EventChanged, remoteID, "add", nil)
		s.mu.Unlock()

		s.dispatch(ev)
		s.countMutation("add", "ok")
	}()
}

// confirmUpsert 已有行项目的远端确认
func (s *Store) confirmUpsert(ctx context.Context, item domain.CartItem, gen uint64, kind string, undo func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, err := s.remote.UpsertItem(context.WithoutCancel(ctx), s.userID, item)
		if err == nil {
			s.countMutation(kind, "ok")
			return
		}
		s.compensate(item.ID, gen, kind, err, undo)
	}()
}

// compensate 远端确认失败时的统一补偿：
// 仅当该代次仍是最新变更时回滚并通知订阅者；已被更新替代的确认直接丢弃
func (s *Store) compensate(id uint, gen uint64, kind string, cause error, undo func()) {
	s.mu.Lock()
	if !s.currentLocked(id, gen) {
		s.mu.Unlock()
		s.countStale()
		return
	}
	undo()
	s.bumpLocked(id)
	ev := s.eventLocked(EventRolledBack, id, kind, cause)
	s.mu.Unlock()

	logger.Warn(context.Background(), "Cart mutation rolled back",
		"user_id", s.userID,
		"item_id", id,
		"kind", kind,
		"error", cause,
	)
	s.dispatch(ev)
	s.countMutation(kind, "rolled_back")
	if s.mets != nil {
		s.mets.CartCompensationsTotal.Inc()
	}
}

// syncSelection 勾选状态是展示态，远端同步尽力而为，失败不回滚
func (s *Store) syncSelection(ctx context.Context, ids []uint, flag bool) {
	if len(ids) == 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.remote.SetSelected(context.WithoutCancel(ctx), s.userID, ids, flag); err != nil {
			logger.Warn(context.Background(), "Failed to sync cart selection",
				"user_id", s.userID,
				"error", err,
			)
		}
	}()
}

func (s *Store) countMutation(kind, outcome string) {
	if s.mets != nil {
		s.mets.CartMutationsTotal.WithLabelValues(kind, outcome).Inc()
	}
}

func (s *Store) countStale() {
	if s.mets != nil {
		s.mets.CartStaleConfirmsTotal.Inc()
	}
}
