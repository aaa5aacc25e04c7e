package beans

import "sort"

// AttributeAccessor 通用的 key→value 元数据包，附带可追溯的来源信息。
// 被 BeanDefinition 嵌入使用；配置加载器可以在定义上附加任意元数据。
// 本身不做并发保护：定义在注册后、冻结前由注册表的锁串行化修改。
type AttributeAccessor struct {
	attributes map[string]any
	source     any
}

// SetAttribute 设置一个属性。value 为 nil 时等价于删除。
func (a *AttributeAccessor) SetAttribute(name string, value any) {
	if value == nil {
		a.RemoveAttribute(name)
		return
	}
	if a.attributes == nil {
		a.attributes = make(map[string]any)
	}
	a.attributes[name] = value
}

// GetAttribute 获取属性值，不存在时返回 nil。
func (a *AttributeAccessor) GetAttribute(name string) any {
	return a.attributes[name]
}

// HasAttribute 判断属性是否存在。
func (a *AttributeAccessor) HasAttribute(name string) bool {
	_, ok := a.attributes[name]
	return ok
}

// RemoveAttribute 删除属性并返回其旧值。
func (a *AttributeAccessor) RemoveAttribute(name string) any {
	old, ok := a.attributes[name]
	if ok {
		delete(a.attributes, name)
	}
	return old
}

// AttributeNames 返回所有属性名（排序后，保证确定性）。
func (a *AttributeAccessor) AttributeNames() []string {
	names := make([]string, 0, len(a.attributes))
	for name := range a.attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetSource 设置元数据来源（例如配置文件位置），仅用于追溯。
func (a *AttributeAccessor) SetSource(source any) {
	a.source = source
}

// Source 返回元数据来源。
func (a *AttributeAccessor) Source() any {
	return a.source
}

// copyAttributesFrom 从另一个 accessor 复制全部属性和来源。
func (a *AttributeAccessor) copyAttributesFrom(other *AttributeAccessor) {
	a.source = other.source
	if len(other.attributes) == 0 {
		return
	}
	if a.attributes == nil {
		a.attributes = make(map[string]any, len(other.attributes))
	}
	for k, v := range other.attributes {
		a.attributes[k] = v
	}
}
