package beans

import "fmt"

// RegisterBeanDefinition 注册 bean 定义。
// 名称在同一工厂层级内唯一；跨层级的同名定义是允许的（子级遮蔽父级）。
func (f *BeanFactory) RegisterBeanDefinition(name string, def *BeanDefinition) error {
	if f.frozen.Load() {
		return &ConfigurationFrozenError{Op: "RegisterBeanDefinition", Name: name}
	}
	if name == "" {
		return &BeanDefinitionStoreError{Message: "bean 名称不能为空"}
	}
	if def == nil {
		return &BeanDefinitionStoreError{Name: name, Message: "定义不能为 nil"}
	}
	if err := def.Validate(); err != nil {
		return &BeanDefinitionStoreError{Name: name, Message: err.Error()}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.definitions[name]; exists {
		return &BeanDefinitionStoreError{Name: name, Message: "定义已注册"}
	}
	if f.aliases.isAlias(name) {
		return &BeanDefinitionStoreError{
			Name:    name,
			Message: fmt.Sprintf("名称 %q 已被注册为别名", name),
		}
	}
	if f.singletons.contains(name) {
		return &BeanDefinitionStoreError{
			Name:    name,
			Message: "名称已被单例实例占用",
		}
	}

	f.definitions[name] = def
	f.definitionNames = append(f.definitionNames, name)
	f.clearMergedLocked(name)
	return nil
}

// RemoveBeanDefinition 移除定义。不存在返回 NoSuchBeanDefinitionError。
func (f *BeanFactory) RemoveBeanDefinition(name string) error {
	if f.frozen.Load() {
		return &ConfigurationFrozenError{Op: "RemoveBeanDefinition", Name: name}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.definitions[name]; !exists {
		return &NoSuchBeanDefinitionError{Name: name}
	}
	delete(f.definitions, name)
	for i, n := range f.definitionNames {
		if n == name {
			f.definitionNames = append(f.definitionNames[:i], f.definitionNames[i+1:]...)
			break
		}
	}
	f.clearMergedLocked(name)
	return nil
}

// GetBeanDefinition 返回本地注册的原始定义（不做合并，别名已解析）。
func (f *BeanFactory) GetBeanDefinition(name string) (*BeanDefinition, error) {
	canonical := f.CanonicalName(name)
	f.mu.RLock()
	defer f.mu.RUnlock()
	def, ok := f.definitions[canonical]
	if !ok {
		return nil, &NoSuchBeanDefinitionError{Name: name}
	}
	return def, nil
}

// ContainsBeanDefinition 判断本地是否注册了该定义。
func (f *BeanFactory) ContainsBeanDefinition(name string) bool {
	canonical := f.CanonicalName(name)
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.definitions[canonical]
	return ok
}

// BeanDefinitionNames 返回本地定义名称（按注册顺序）。
func (f *BeanFactory) BeanDefinitionNames() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.definitionNames...)
}

// BeanDefinitionCount 返回本地定义数量。
func (f *BeanFactory) BeanDefinitionCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.definitions)
}

// RegisterAlias 为 bean 注册别名。
// 别名不得与已有 bean 名称或指向其它 bean 的别名冲突；
// 为同一目标重复注册是幂等的。
func (f *BeanFactory) RegisterAlias(name, alias string) error {
	if f.frozen.Load() {
		return &ConfigurationFrozenError{Op: "RegisterAlias", Name: alias}
	}
	if name == "" || alias == "" {
		return &BeanDefinitionStoreError{Message: "别名和目标名称都不能为空"}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.definitions[alias]; exists && alias != name {
		return &BeanDefinitionStoreError{
			Name:    alias,
			Message: fmt.Sprintf("别名 %q 与已注册的 bean 名称冲突", alias),
		}
	}
	return f.aliases.registerAlias(name, alias)
}

// RemoveAlias 删除别名。
func (f *BeanFactory) RemoveAlias(alias string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.aliases.removeAlias(alias)
}

// Aliases 返回指向 name 的全部别名。
func (f *BeanFactory) Aliases(name string) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.aliases.aliasesFor(name)
}

// CanonicalName 解析别名链，返回最终 bean 名称。
func (f *BeanFactory) CanonicalName(name string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.aliases.canonicalName(name)
}

// FreezeConfiguration 冻结配置：合并缓存转为永久，
// 后续结构性修改以 ConfigurationFrozenError 拒绝。
func (f *BeanFactory) FreezeConfiguration() {
	f.frozen.Store(true)
}

// IsConfigurationFrozen 判断配置是否已冻结。
func (f *BeanFactory) IsConfigurationFrozen() bool {
	return f.frozen.Load()
}

// clearMergedLocked 失效 name 及祖先链包含 name 的全部合并缓存条目。
// 调用方必须持有写锁。
func (f *BeanFactory) clearMergedLocked(name string) {
	delete(f.merged, name)
	for cached := range f.merged {
		if f.ancestorChainContainsLocked(cached, name) {
			delete(f.merged, cached)
		}
	}
}

// ancestorChainContainsLocked 判断 beanName 的本地父链中是否包含 target。
func (f *BeanFactory) ancestorChainContainsLocked(beanName, target string) bool {
	seen := make(map[string]struct{})
	cur := beanName
	for {
		if _, dup := seen[cur]; dup {
			return false
		}
		seen[cur] = struct{}{}
		def, ok := f.definitions[cur]
		if !ok || def.ParentName == "" {
			return false
		}
		parent := f.aliases.canonicalName(def.ParentName)
		if parent == target {
			return true
		}
		cur = parent
	}
}
