package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testResolver() *AttributeResolver {
	attrs := []Attribute{
		{Name: "Màu sắc"},
		{Name: "Kích thước"},
	}
	attrs[0].ID = 1
	attrs[1].ID = 2

	values := []AttributeValue{
		{AttributeID: 1, Value: "Đỏ"},
		{AttributeID: 2, Value: "XL"},
	}
	values[0].ID = 10
	values[1].ID = 20

	return NewAttributeResolver(attrs, values)
}

func TestRenderJoinsPairs(t *testing.T) {
	r := testResolver()

	rendered := r.Render([]AttrPair{
		{AttributeID: 1, AttributeValueID: 10},
		{AttributeID: 2, AttributeValueID: 20},
	})

	assert.Equal(t, "Màu sắc: Đỏ, Kích thước: XL", rendered)
}

func TestRenderEmptyPairs(t *testing.T) {
	r := testResolver()

	assert.Equal(t, "", r.Render(nil))
	assert.Equal(t, "", r.Render([]AttrPair{}))
}

func TestRenderSkipsUnknownIDs(t *testing.T) {
	r := testResolver()

	rendered := r.Render([]AttrPair{
		{AttributeID: 99, AttributeValueID: 10},
		{AttributeID: 2, AttributeValueID: 20},
	})

	assert.Equal(t, "Kích thước: XL", rendered)
}

func TestFingerprintStableForSameSource(t *testing.T) {
	attrs := []Attribute{{Name: "Màu sắc"}}
	attrs[0].ID = 1
	values := []AttributeValue{{AttributeID: 1, Value: "Đỏ"}}
	values[0].ID = 10

	assert.Equal(t, Fingerprint(attrs, values), Fingerprint(attrs, values))

	changed := append([]AttributeValue{}, values...)
	changed[0].Value = "Xanh"
	assert.NotEqual(t, Fingerprint(attrs, values), Fingerprint(attrs, changed))
}
