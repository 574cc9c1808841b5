package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectionSetToggleAndCovers(t *testing.T) {
	s := NewSelectionSet()

	assert.False(t, s.Covers(nil), "empty id list never counts as covered")
	assert.False(t, s.Covers([]uint{1}))

	s.Toggle(1)
	s.Toggle(2)
	assert.True(t, s.Covers([]uint{1, 2}))
	assert.False(t, s.Covers([]uint{1, 2, 3}))

	s.Toggle(2)
	assert.False(t, s.Has(2))
	assert.True(t, s.Has(1))
}

func TestSelectionSetPruneDropsMissing(t *testing.T) {
	s := NewSelectionSet()
	s.Set(true, []uint{1, 2, 3})

	existing := map[uint]bool{1: true, 3: true}
	s.Prune(func(id uint) bool { return existing[id] })

	assert.ElementsMatch(t, []uint{1, 3}, s.IDs())
}

func TestSelectionSetBulkSet(t *testing.T) {
	s := NewSelectionSet()
	s.Set(true, []uint{1, 2, 3})
	s.Set(false, []uint{2})
	assert.ElementsMatch(t, []uint{1, 3}, s.IDs())

	s.Clear()
	assert.Empty(t, s.IDs())
}
