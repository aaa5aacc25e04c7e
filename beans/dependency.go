package beans

import (
	"reflect"
	"sort"
)

// DependencyDescriptor 描述一个待装配的依赖点。
type DependencyDescriptor struct {
	// Type 期望的依赖类型（接口或具体类型）。
	Type reflect.Type
	// Qualifier 限定符。多候选时用于收窄，匹配定义的
	// Qualifier 字段或 bean 名称本身。
	Qualifier string
	// Required 为 true 时无候选返回 NoSuchBeanDefinitionError，
	// 否则返回 nil 实例。
	Required bool
}

// ResolveDependency 按类型解析依赖。裁决顺序固定：
// 固定值注册表 → 唯一候选 → 唯一 primary → 限定符收窄 → AmbiguousDependencyError。
func (f *BeanFactory) ResolveDependency(desc DependencyDescriptor) (any, error) {
	return f.resolveDependency(desc, "", newResolutionPath())
}

func (f *BeanFactory) resolveDependency(desc DependencyDescriptor, requester string, path *resolutionPath) (any, error) {
	if desc.Type == nil {
		return nil, &NoSuchBeanDefinitionError{Type: nil}
	}

	// 固定值注册表优先于一切候选收集，本工厂找不到时沿父链向上
	if value, ok := f.lookupResolvable(desc.Type); ok {
		return value, nil
	}

	candidates := f.collectCandidates(desc.Type, nil)

	switch len(candidates) {
	case 0:
		if desc.Required {
			return nil, &NoSuchBeanDefinitionError{Type: desc.Type}
		}
		return nil, nil
	case 1:
		return f.resolveCandidate(candidates[0], requester, path)
	}

	// 多候选：唯一 primary 胜出
	if winner, ok := f.determinePrimary(candidates); ok {
		return f.resolveCandidate(winner, requester, path)
	}

	// 限定符收窄
	if desc.Qualifier != "" {
		matched := f.matchQualifier(candidates, desc.Qualifier)
		if len(matched) == 1 {
			return f.resolveCandidate(matched[0], requester, path)
		}
		if len(matched) > 1 {
			candidates = matched
		}
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.name
	}
	sort.Strings(names)
	return nil, &AmbiguousDependencyError{Type: desc.Type, Candidates: names}
}

// candidateRef 记录候选 bean 及拥有它的工厂。
// 子工厂解析时候选可能来自祖先，实例必须从其属主处取得。
type candidateRef struct {
	name  string
	owner *BeanFactory
	def   *BeanDefinition
}

func (f *BeanFactory) resolveCandidate(c candidateRef, requester string, path *resolutionPath) (any, error) {
	if requester != "" && c.owner == f {
		f.singletons.registerDependentBean(c.name, requester)
	}
	return c.owner.getBean(c.name, path)
}

// lookupResolvable 沿父链查找按类型注册的固定值。
// 先精确匹配，再按可赋值性匹配；多个可赋值类型时
// 按类型字符串排序取最小者，保证结果确定。
func (f *BeanFactory) lookupResolvable(typ reflect.Type) (any, bool) {
	for cur := f; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		if value, ok := cur.resolvable[typ]; ok {
			cur.mu.RUnlock()
			return value, true
		}
		var bestType reflect.Type
		var bestValue any
		for regType, value := range cur.resolvable {
			if !regType.AssignableTo(typ) {
				continue
			}
			if bestType == nil || regType.String() < bestType.String() {
				bestType = regType
				bestValue = value
			}
		}
		cur.mu.RUnlock()
		if bestType != nil {
			return bestValue, true
		}
	}
	return nil, false
}

// collectCandidates 收集本工厂及全部祖先中类型兼容的自动装配候选。
// 同名时子工厂的定义遮蔽祖先的。
func (f *BeanFactory) collectCandidates(typ reflect.Type, seen map[string]struct{}) []candidateRef {
	if seen == nil {
		seen = make(map[string]struct{})
	}

	f.mu.RLock()
	names := append([]string(nil), f.definitionNames...)
	f.mu.RUnlock()

	var out []candidateRef
	for _, name := range names {
		if _, shadowed := seen[name]; shadowed {
			continue
		}
		seen[name] = struct{}{}

		mbd, err := f.getMergedLocalDefinition(name, nil)
		if err != nil || mbd.Abstract || !mbd.AutowireCandidate {
			continue
		}
		beanType := f.typeForBean(name)
		if beanType == nil || !typeMatches(beanType, typ) || f.isIgnored(beanType) {
			continue
		}
		out = append(out, candidateRef{name: name, owner: f, def: mbd})
	}

	// 手工注册的单例实例同样参与候选
	for _, name := range f.singletons.names() {
		if _, shadowed := seen[name]; shadowed {
			continue
		}
		if f.ContainsBeanDefinition(name) {
			continue
		}
		seen[name] = struct{}{}
		inst, ok := f.singletons.getCached(name)
		if !ok || inst == nil {
			continue
		}
		beanType := reflect.TypeOf(inst)
		if !typeMatches(beanType, typ) || f.isIgnored(beanType) {
			continue
		}
		out = append(out, candidateRef{name: name, owner: f})
	}

	if f.parent != nil {
		out = append(out, f.parent.collectCandidates(typ, seen)...)
	}
	return out
}

func (f *BeanFactory) determinePrimary(candidates []candidateRef) (candidateRef, bool) {
	var winner candidateRef
	count := 0
	for _, c := range candidates {
		if c.def != nil && c.def.Primary {
			winner = c
			count++
		}
	}
	return winner, count == 1
}

func (f *BeanFactory) matchQualifier(candidates []candidateRef, qualifier string) []candidateRef {
	var matched []candidateRef
	for _, c := range candidates {
		if c.name == qualifier || (c.def != nil && c.def.Qualifier == qualifier) {
			matched = append(matched, c)
		}
	}
	return matched
}

func (f *BeanFactory) isIgnored(beanType reflect.Type) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if _, ok := f.ignoredTypes[beanType]; ok {
		return true
	}
	for iface := range f.ignoredInterfaces {
		if iface.Kind() == reflect.Interface && beanType.Implements(iface) {
			return true
		}
	}
	return false
}

// typeMatches 判断候选类型能否满足依赖点类型。
func typeMatches(candidate, want reflect.Type) bool {
	if candidate == nil || want == nil {
		return false
	}
	if candidate.AssignableTo(want) {
		return true
	}
	// 指针候选对非指针依赖点的解引用匹配不做，保持可赋值性语义
	return false
}

// IsAutowireCandidate 判断名称对应的 bean 能否作为给定依赖点的候选。
func (f *BeanFactory) IsAutowireCandidate(name string, desc DependencyDescriptor) (bool, error) {
	canonical := f.CanonicalName(name)
	if !f.ContainsLocalBean(canonical) {
		if f.parent != nil {
			return f.parent.IsAutowireCandidate(name, desc)
		}
		return false, &NoSuchBeanDefinitionError{Name: name}
	}

	if f.ContainsBeanDefinition(canonical) {
		mbd, err := f.getMergedLocalDefinition(canonical, nil)
		if err != nil {
			return false, err
		}
		if !mbd.AutowireCandidate || mbd.Abstract {
			return false, nil
		}
	}

	beanType := f.typeForBean(canonical)
	if desc.Type != nil && (beanType == nil || !typeMatches(beanType, desc.Type)) {
		return false, nil
	}
	if desc.Qualifier != "" && canonical != desc.Qualifier {
		if def, err := f.GetMergedBeanDefinition(canonical); err != nil || def.Qualifier != desc.Qualifier {
			return false, nil
		}
	}
	return true, nil
}

// GetBeanNamesForType 返回本工厂及祖先中类型兼容的全部 bean 名称，
// 子工厂的定义遮蔽祖先同名定义。
func (f *BeanFactory) GetBeanNamesForType(typ reflect.Type) []string {
	candidates := f.collectCandidatesAll(typ, nil)
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.name)
	}
	return names
}

// collectCandidatesAll 与 collectCandidates 相同但不过滤 AutowireCandidate 标志。
func (f *BeanFactory) collectCandidatesAll(typ reflect.Type, seen map[string]struct{}) []candidateRef {
	if seen == nil {
		seen = make(map[string]struct{})
	}

	f.mu.RLock()
	names := append([]string(nil), f.definitionNames...)
	f.mu.RUnlock()

	var out []candidateRef
	for _, name := range names {
		if _, shadowed := seen[name]; shadowed {
			continue
		}
		seen[name] = struct{}{}
		mbd, err := f.getMergedLocalDefinition(name, nil)
		if err != nil || mbd.Abstract {
			continue
		}
		beanType := f.typeForBean(name)
		if beanType == nil || !typeMatches(beanType, typ) {
			continue
		}
		out = append(out, candidateRef{name: name, owner: f, def: mbd})
	}
	for _, name := range f.singletons.names() {
		if _, shadowed := seen[name]; shadowed {
			continue
		}
		if f.ContainsBeanDefinition(name) {
			continue
		}
		seen[name] = struct{}{}
		inst, ok := f.singletons.getCached(name)
		if !ok || inst == nil {
			continue
		}
		if typeMatches(reflect.TypeOf(inst), typ) {
			out = append(out, candidateRef{name: name, owner: f})
		}
	}
	if f.parent != nil {
		out = append(out, f.parent.collectCandidatesAll(typ, seen)...)
	}
	return out
}

// typeForBean 在不实例化的前提下推断 bean 的类型：
// 定义的显式类型 → 构造函数返回类型 → 已缓存实例的运行时类型。
func (f *BeanFactory) typeForBean(name string) reflect.Type {
	canonical := f.CanonicalName(name)

	if f.ContainsBeanDefinition(canonical) {
		mbd, err := f.getMergedLocalDefinition(canonical, nil)
		if err != nil {
			return nil
		}
		if mbd.Type != nil {
			return mbd.Type
		}
		if mbd.Factory != nil {
			return factoryReturnType(reflect.TypeOf(mbd.Factory))
		}
		if mbd.FactoryBeanName != "" && mbd.FactoryMethodName != "" {
			factoryType := f.typeForBean(mbd.FactoryBeanName)
			if factoryType != nil {
				if method, ok := factoryType.MethodByName(mbd.FactoryMethodName); ok {
					return factoryReturnType(method.Type)
				}
			}
		}
		return nil
	}

	if inst, ok := f.singletons.getCached(canonical); ok && inst != nil {
		return reflect.TypeOf(inst)
	}
	if f.parent != nil {
		return f.parent.typeForBean(name)
	}
	return nil
}

// factoryReturnType 取函数的首个返回值类型（尾随 error 返回不参与）。
func factoryReturnType(fn reflect.Type) reflect.Type {
	if fn == nil || fn.Kind() != reflect.Func || fn.NumOut() == 0 {
		return nil
	}
	return fn.Out(0)
}
