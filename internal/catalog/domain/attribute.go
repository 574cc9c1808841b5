package domain

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

// Attribute 商品属性（如「Màu sắc」「Kích thước」）
type Attribute struct {
	gorm.Model
	// 属性名
	Name string `gorm:"column:name;type:varchar(128);not null" json:"name"`
}

// TableName 指定表名
func (Attribute) TableName() string { return "attributes" }

// AttributeValue 属性值（如「Đỏ」「XL」）
type AttributeValue struct {
	gorm.Model
	// 所属属性 ID
	AttributeID uint `gorm:"column:attribute_id;index;not null" json:"attribute_id"`
	// 属性值
	Value string `gorm:"column:value;type:varchar(128);not null" json:"value"`
}

// TableName 指定表名
func (AttributeValue) TableName() string { return "attribute_values" }

// AttrPair 行项目携带的 (属性 ID, 属性值 ID) 对
type AttrPair struct {
	AttributeID      uint `json:"attribute_id"`
	AttributeValueID uint `json:"attribute_value_id"`
}

// AttributeResolver 纯查表：把数值 ID 映射为可读标签
// 两张查找表各构建一次，来源列表不变时不重建
type AttributeResolver struct {
	names       map[uint]string
	values      map[uint]string
	fingerprint string
}

// NewAttributeResolver 从属性与属性值列表构建解析器
func NewAttributeResolver(attrs []Attribute, values []AttributeValue) *AttributeResolver {
	r := &AttributeResolver{
		names:  make(map[uint]string, len(attrs)),
		values: make(map[uint]string, len(values)),
	}
	for _, a := range attrs {
		r.names[a.ID] = a.Name
	}
	for _, v := range values {
		r.values[v.ID] = v.Value
	}
	r.fingerprint = Fingerprint(attrs, values)
	return r
}

// Fingerprint 计算来源列表的指纹，用于判断是否需要重建解析器
func Fingerprint(attrs []Attribute, values []AttributeValue) string {
	parts := make([]string, 0, len(attrs)+len(values))
	for _, a := range attrs {
		parts = append(parts, fmt.Sprintf("a:%d:%s:%d", a.ID, a.Name, a.UpdatedAt.UnixNano()))
	}
	for _, v := range values {
		parts = append(parts, fmt.Sprintf("v:%d:%s:%d", v.ID, v.Value, v.UpdatedAt.UnixNano()))
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

// Fingerprint 返回构建时的来源指纹
func (r *AttributeResolver) Fingerprint() string {
	return r.fingerprint
}

// AttributeName 属性 ID 对应的名称，未知 ID 返回空串
func (r *AttributeResolver) AttributeName(id uint) string {
	return r.names[id]
}

// ValueLabel 属性值 ID 对应的值，未知 ID 返回空串
func (r *AttributeResolver) ValueLabel(id uint) string {
	return r.values[id]
}

// Render 把 (属性, 属性值) 对渲染为 "名称: 值" 并以 ", " 连接
// 没有任何可解析的对时返回空串
func (r *AttributeResolver) Render(pairs []AttrPair) string {
	if len(pairs) == 0 {
		return ""
	}

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		name := r.names[p.AttributeID]
		value := r.values[p.AttributeValueID]
		if name == "" || value == "" {
			continue
		}
		parts = append(parts, name+": "+value)
	}
	return strings.Join(parts, ", ")
}

// AttributeRepository 属性仓储接口
type AttributeRepository interface {
	// 获取全部属性
	ListAttributes(ctx context.Context) ([]Attribute, error)
	// 获取全部属性值
	ListAttributeValues(ctx context.Context) ([]AttributeValue, error)
	// 保存属性
	SaveAttribute(ctx context.Context, attr *Attribute) error
	// 保存属性值
	SaveAttributeValue(ctx context.Context, value *AttributeValue) error
}
