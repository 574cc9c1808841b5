package application

import (
	"context"
	"sync"

	"github.com/vinashop/storefront/internal/cart/domain"
)

// StoreManager 按用户维护购物车存储实例
// 首次访问时从仓储加载持久化状态，之后复用同一实例
type StoreManager struct {
	mu     sync.RWMutex
	stores map[string]*Store

	repo   domain.CartRepository
	remote RemoteCart
	opts   []Option
}

// NewStoreManager 创建存储管理器
func NewStoreManager(repo domain.CartRepository, remote RemoteCart, opts ...Option) *StoreManager {
	return &StoreManager{
		stores: make(map[string]*Store),
		repo:   repo,
		remote: remote,
		opts:   opts,
	}
}

// Get 获取用户的购物车存储，不存在时从仓储加载并恢复勾选状态
func (m *StoreManager) Get(ctx context.Context, userID string) (*Store, error) {
	m.mu.RLock()
	store, ok := m.stores[userID]
	m.mu.RUnlock()
	if ok {
		return store, nil
	}

	cart, err := m.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// 加载期间可能已有并发请求建好实例
	if store, ok = m.stores[userID]; ok {
		return store, nil
	}
	if cart != nil {
		store = NewStoreFromCart(cart, m.remote, m.opts...)
	} else {
		store = NewStore(userID, m.remote, m.opts...)
	}
	m.stores[userID] = store
	return store, nil
}

// Evict 驱逐用户的存储实例，先等在途确认收尾
func (m *StoreManager) Evict(userID string) {
	m.mu.Lock()
	store, ok := m.stores[userID]
	delete(m.stores, userID)
	m.mu.Unlock()
	if ok {
		store.Wait()
	}
}

// Drain 等待所有存储的在途确认收尾（优雅退出用）
func (m *StoreManager) Drain() {
	m.mu.RLock()
	stores := make([]*Store, 0, len(m.stores))
	for _, s := range m.stores {
		stores = append(stores, s)
	}
	m.mu.RUnlock()
	for _, s := range stores {
		s.Wait()
	}
}
