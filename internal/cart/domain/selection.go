package domain

// SelectionSet 用户勾选进入本次结算的行项目 ID 集合
// 不变量：集合中的每个 ID 都必须指向一个存在的行项目；行项目被移除时同步剔除
type SelectionSet map[uint]struct{}

// NewSelectionSet 创建空选择集
func NewSelectionSet() SelectionSet {
	return make(SelectionSet)
}

// Has 是否已勾选
func (s SelectionSet) Has(id uint) bool {
	_, ok := s[id]
	return ok
}

// Toggle 勾选/取消勾选切换
func (s SelectionSet) Toggle(id uint) {
	if s.Has(id) {
		delete(s, id)
	} else {
		s[id] = struct{}{}
	}
}

// Set 对一批 ID 统一设置勾选状态
func (s SelectionSet) Set(flag bool, ids []uint) {
	for _, id := range ids {
		if flag {
			s[id] = struct{}{}
		} else {
			delete(s, id)
		}
	}
}

// Prune 剔除不再指向存在行项目的 ID
func (s SelectionSet) Prune(exists func(id uint) bool) {
	for id := range s {
		if !exists(id) {
			delete(s, id)
		}
	}
}

// Covers 选择集是否覆盖给定的全部 ID；ids 为空时返回 false
func (s SelectionSet) Covers(ids []uint) bool {
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if !s.Has(id) {
			return false
		}
	}
	return true
}

// IDs 返回集合内的 ID 副本
func (s SelectionSet) IDs() []uint {
	ids := make([]uint, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}

// Clear 清空选择集
func (s SelectionSet) Clear() {
	for id := range s {
		delete(s, id)
	}
}
