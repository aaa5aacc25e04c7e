package beans

import "fmt"

// GetMergedBeanDefinition 返回展平后的合并定义：父链的全部属性折叠进来，
// 子定义的显式字段优先。本地没有定义时委托父工厂。
// 返回的定义归产生它的工厂所有，调用方不应修改。
//
// 合并缓存的失效只在本工厂内进行：祖先工厂在冻结前修改定义不会
// 失效子工厂已缓存的合并结果。层级结构应在全部注册完成后再解析。
func (f *BeanFactory) GetMergedBeanDefinition(name string) (*BeanDefinition, error) {
	canonical := f.CanonicalName(name)
	if f.ContainsBeanDefinition(canonical) {
		return f.getMergedLocalDefinition(canonical, nil)
	}
	if f.parent != nil {
		return f.parent.GetMergedBeanDefinition(name)
	}
	return nil, &NoSuchBeanDefinitionError{Name: name}
}

// getMergedLocalDefinition 对本地定义计算（或命中缓存的）合并定义。
// visiting 用于父链环检测。
func (f *BeanFactory) getMergedLocalDefinition(name string, visiting map[string]struct{}) (*BeanDefinition, error) {
	f.mu.RLock()
	if cached, ok := f.merged[name]; ok {
		f.mu.RUnlock()
		return cached, nil
	}
	def, ok := f.definitions[name]
	f.mu.RUnlock()

	if !ok {
		return nil, &NoSuchBeanDefinitionError{Name: name}
	}

	merged, err := f.computeMerged(name, def, visiting)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.merged[name] = merged
	f.mu.Unlock()
	return merged, nil
}

func (f *BeanFactory) computeMerged(name string, def *BeanDefinition, visiting map[string]struct{}) (*BeanDefinition, error) {
	if def.ParentName == "" {
		// 没有父定义：合并结果就是防御性拷贝
		return def.Clone(), nil
	}

	if visiting == nil {
		visiting = make(map[string]struct{})
	}
	if _, dup := visiting[name]; dup {
		return nil, &BeanDefinitionStoreError{
			Name:    name,
			Message: "定义继承链存在环路",
		}
	}
	visiting[name] = struct{}{}

	parentName := f.CanonicalName(def.ParentName)

	var parentMerged *BeanDefinition
	var err error
	switch {
	case parentName != name && f.ContainsBeanDefinition(parentName):
		parentMerged, err = f.getMergedLocalDefinition(parentName, visiting)
	case f.parent != nil:
		// 父定义名与自身同名、或本地不存在：到祖先工厂解析
		parentMerged, err = f.parent.GetMergedBeanDefinition(def.ParentName)
	default:
		err = &NoSuchBeanDefinitionError{Name: def.ParentName}
	}
	if err != nil {
		return nil, fmt.Errorf("beans: 解析 bean %q 的父定义 %q 失败: %w", name, def.ParentName, err)
	}

	merged := parentMerged.Clone()
	overlayChild(merged, def)
	return merged, nil
}

// overlayChild 把子定义的显式字段覆盖到合并结果上。
//
// 规则：非零的标量字段覆盖；构造参数和属性集合取并集，键冲突子级优先；
// LazyInit/Primary 子级只能置位不能复位；AutowireCandidate 任一方显式
// 置否即为否（默认为真）；Abstract 从不继承，始终取子级的值。
func overlayChild(merged, child *BeanDefinition) {
	if child.Type != nil {
		merged.Type = child.Type
	}
	if child.Factory != nil {
		merged.Factory = child.Factory
		merged.FactoryBeanName = ""
		merged.FactoryMethodName = ""
	}
	if child.FactoryBeanName != "" {
		merged.FactoryBeanName = child.FactoryBeanName
		merged.Factory = nil
	}
	if child.FactoryMethodName != "" {
		merged.FactoryMethodName = child.FactoryMethodName
		merged.Factory = nil
	}
	if child.Scope != "" {
		merged.Scope = child.Scope
	}
	if len(child.DependsOn) > 0 {
		merged.DependsOn = append([]string(nil), child.DependsOn...)
	}
	if child.Qualifier != "" {
		merged.Qualifier = child.Qualifier
	}
	if child.Role != RoleApplication {
		merged.Role = child.Role
	}

	merged.LazyInit = merged.LazyInit || child.LazyInit
	merged.Primary = merged.Primary || child.Primary
	merged.AutowireCandidate = merged.AutowireCandidate && child.AutowireCandidate
	merged.Abstract = child.Abstract

	merged.ConstructorArgs.mergeFrom(child.ConstructorArgs)
	merged.Properties.mergeFrom(child.Properties)

	for _, attrName := range child.AttributeNames() {
		merged.SetAttribute(attrName, child.GetAttribute(attrName))
	}
	if child.Source() != nil {
		merged.SetSource(child.Source())
	}

	// 合并结果是展平的根定义
	merged.ParentName = ""
	merged.SetOriginatingDefinition(child.originating)
}
