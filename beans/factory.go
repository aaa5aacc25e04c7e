package beans

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/gocrud/ioc/logging"
)

// StringValueResolver 解析配置字符串中的内嵌表达式（例如 "${key}" 占位符）。
// 未注册任何解析器时字符串原样使用。
type StringValueResolver func(value string) (string, error)

// BeanFactory 名称键控的 bean 工厂。
//
// 能力集合：按名/按类型查询、父子层级委托、定义继承合并、
// 作用域管理、后置处理管线和按类型自动装配。
// 启动完成后可被多个 goroutine 并发访问；结构性修改
// （注册定义、别名、作用域、后置处理器）与读取之间由内部锁串行化。
type BeanFactory struct {
	mu     sync.RWMutex
	parent *BeanFactory

	definitions     map[string]*BeanDefinition
	definitionNames []string
	aliases         *aliasRegistry
	merged          map[string]*BeanDefinition
	frozen          atomic.Bool

	singletons *singletonRegistry
	scopes     map[string]Scope

	postProcessors []BeanPostProcessor

	resolvable        map[reflect.Type]any
	ignoredTypes      map[reflect.Type]struct{}
	ignoredInterfaces map[reflect.Type]struct{}

	valueResolvers []StringValueResolver
	converter      TypeConverter
	strategy       InstantiationStrategy

	// securityContext 不透明的安全上下文对象，仅透传，核心不检查内容。
	securityContext any

	// allowCircularReferences 允许通过提前暴露未完成实例打破属性互引循环。
	allowCircularReferences bool

	logger logging.Logger
}

// Option 配置工厂。
type Option func(*BeanFactory)

// WithParent 设置父工厂。本地找不到的 bean 会完整委托给父工厂解析。
func WithParent(parent *BeanFactory) Option {
	return func(f *BeanFactory) { f.parent = parent }
}

// WithLogger 设置日志记录器（默认为空实现）。
func WithLogger(logger logging.Logger) Option {
	return func(f *BeanFactory) { f.logger = logger }
}

// WithInstantiationStrategy 替换实例化策略。
func WithInstantiationStrategy(strategy InstantiationStrategy) Option {
	return func(f *BeanFactory) { f.strategy = strategy }
}

// WithTypeConverter 替换类型转换器。
func WithTypeConverter(converter TypeConverter) Option {
	return func(f *BeanFactory) { f.converter = converter }
}

// WithAllowCircularReferences 控制早期引用逃生口（默认开启）。
// 关闭后属性互引的循环会以 CircularReferenceError 失败。
func WithAllowCircularReferences(allow bool) Option {
	return func(f *BeanFactory) { f.allowCircularReferences = allow }
}

// NewBeanFactory 创建 bean 工厂。
func NewBeanFactory(opts ...Option) *BeanFactory {
	f := &BeanFactory{
		definitions:             make(map[string]*BeanDefinition),
		aliases:                 newAliasRegistry(),
		merged:                  make(map[string]*BeanDefinition),
		scopes:                  make(map[string]Scope),
		resolvable:              make(map[reflect.Type]any),
		ignoredTypes:            make(map[reflect.Type]struct{}),
		ignoredInterfaces:       make(map[reflect.Type]struct{}),
		converter:               simpleTypeConverter{},
		strategy:                reflectiveStrategy{},
		allowCircularReferences: true,
		logger:                  logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.singletons = newSingletonRegistry(f.logger)

	// 工厂自身可以作为依赖被注入
	f.resolvable[reflect.TypeOf(f)] = f
	return f
}

// Parent 返回父工厂，没有时为 nil。
func (f *BeanFactory) Parent() *BeanFactory {
	return f.parent
}

// Logger 返回工厂使用的日志记录器。
func (f *BeanFactory) Logger() logging.Logger {
	return f.logger
}

// GetBean 按名称解析 bean。本地缓存和定义优先；
// 本地不存在且有父工厂时完整委托给父工厂。
func (f *BeanFactory) GetBean(name string) (any, error) {
	return f.getBean(name, newResolutionPath())
}

// MustGetBean 同 GetBean，失败时 panic。
func (f *BeanFactory) MustGetBean(name string) any {
	inst, err := f.GetBean(name)
	if err != nil {
		panic(fmt.Sprintf("beans: 获取 bean %q 失败: %v", name, err))
	}
	return inst
}

// GetBeanOf 按名称解析并断言为 T。
func GetBeanOf[T any](f *BeanFactory, name string) (T, error) {
	var zero T
	inst, err := f.GetBean(name)
	if err != nil {
		return zero, err
	}
	typed, ok := inst.(T)
	if !ok {
		return zero, newCreationError(name,
			fmt.Sprintf("解析结果是 %T，期望 %v", inst, reflect.TypeOf((*T)(nil)).Elem()), nil)
	}
	return typed, nil
}

// ResolveType 按类型 T 解析唯一候选 bean。
func ResolveType[T any](f *BeanFactory) (T, error) {
	var zero T
	inst, err := f.ResolveDependency(DependencyDescriptor{
		Type:     reflect.TypeOf((*T)(nil)).Elem(),
		Required: true,
	})
	if err != nil {
		return zero, err
	}
	typed, ok := inst.(T)
	if !ok {
		return zero, &ConversionError{Value: inst, Target: reflect.TypeOf((*T)(nil)).Elem()}
	}
	return typed, nil
}

func (f *BeanFactory) getBean(name string, path *resolutionPath) (any, error) {
	canonical := f.CanonicalName(name)

	// 完整单例缓存（含手工注册的实例）
	if inst, ok := f.singletons.getCached(canonical); ok {
		return inst, nil
	}

	if !f.ContainsLocalBean(canonical) {
		if f.parent != nil {
			return f.parent.getBean(name, path)
		}
		return nil, &NoSuchBeanDefinitionError{Name: name}
	}

	mbd, err := f.getMergedLocalDefinition(canonical, nil)
	if err != nil {
		// 手工注册的单例没有定义，但上面的缓存检查已经覆盖；
		// 到这里说明确实没有可用定义。
		return nil, err
	}

	if mbd.Abstract {
		return nil, &BeanDefinitionStoreError{
			Name:    canonical,
			Message: "抽象定义只能作为父模板，不能直接实例化",
		}
	}

	// depends-on 的 bean 必须先完成初始化
	for _, dep := range mbd.DependsOn {
		depName := f.CanonicalName(dep)
		if f.singletons.isDependent(canonical, depName) {
			return nil, &CircularReferenceError{Chain: []string{canonical, depName, canonical}}
		}
		f.singletons.registerDependentBean(depName, canonical)
		if _, err := f.getBean(depName, path); err != nil {
			return nil, newCreationError(canonical,
				fmt.Sprintf("depends-on bean %q 初始化失败", depName), err)
		}
	}

	switch scopeName := mbd.ScopeName(); scopeName {
	case ScopeSingleton:
		return f.singletons.getSingleton(canonical, path, func() (any, error) {
			return f.createBean(canonical, mbd, path)
		})

	case ScopePrototype:
		// 原型不缓存、不登记销毁，生命周期归调用方
		if path.contains(canonical) {
			return nil, &CircularReferenceError{Chain: path.cycleChain(canonical)}
		}
		path.push(canonical)
		defer path.pop()
		return f.createBean(canonical, mbd, path)

	default:
		f.mu.RLock()
		scope, ok := f.scopes[scopeName]
		f.mu.RUnlock()
		if !ok {
			return nil, &UnknownScopeError{ScopeName: scopeName, BeanName: canonical}
		}
		if path.contains(canonical) {
			return nil, &CircularReferenceError{Chain: path.cycleChain(canonical)}
		}
		return scope.Get(canonical, func() (any, error) {
			path.push(canonical)
			defer path.pop()
			inst, err := f.createBean(canonical, mbd, path)
			if err != nil {
				return nil, err
			}
			f.registerScopedDisposal(scope, canonical, inst)
			return inst, nil
		})
	}
}

// ContainsBean 判断本工厂或任一祖先能否解析该名称。
func (f *BeanFactory) ContainsBean(name string) bool {
	if f.ContainsLocalBean(name) {
		return true
	}
	if f.parent != nil {
		return f.parent.ContainsBean(name)
	}
	return false
}

// ContainsLocalBean 仅检查本地注册表（定义或已注册的单例实例）。
func (f *BeanFactory) ContainsLocalBean(name string) bool {
	canonical := f.CanonicalName(name)
	if f.singletons.contains(canonical) {
		return true
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.definitions[canonical]
	return ok
}

// ContainsSingleton 判断名称对应的单例实例是否已存在。
func (f *BeanFactory) ContainsSingleton(name string) bool {
	return f.singletons.contains(f.CanonicalName(name))
}

// SingletonNames 返回已完成单例的名称（按完成顺序）。
func (f *BeanFactory) SingletonNames() []string {
	return f.singletons.names()
}

// RegisterSingleton 把外部构建的完整实例注册为单例。
// 名称冲突返回 BeanDefinitionStoreError；冻结后与定义注册同样被拒绝。
func (f *BeanFactory) RegisterSingleton(name string, instance any) error {
	if f.frozen.Load() {
		return &ConfigurationFrozenError{Op: "RegisterSingleton", Name: name}
	}
	return f.singletons.registerSingleton(f.CanonicalName(name), instance)
}

// RegisterScope 注册自定义作用域。内置作用域名不可占用；
// 重复注册同名作用域视为替换。
func (f *BeanFactory) RegisterScope(name string, scope Scope) error {
	if name == ScopeSingleton || name == ScopePrototype {
		return &BeanDefinitionStoreError{
			Name:    name,
			Message: "不能替换内置作用域 singleton/prototype",
		}
	}
	if scope == nil {
		return &BeanDefinitionStoreError{Name: name, Message: "作用域策略不能为 nil"}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scopes[name] = scope
	return nil
}

// GetRegisteredScope 返回已注册的作用域策略，不存在时为 nil。
func (f *BeanFactory) GetRegisteredScope(name string) Scope {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.scopes[name]
}

// GetRegisteredScopeNames 返回全部自定义作用域名称（不含内置），排序后返回。
func (f *BeanFactory) GetRegisteredScopeNames() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.scopes))
	for name := range f.scopes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddBeanPostProcessor 追加后置处理器。注册顺序即调用顺序。
func (f *BeanFactory) AddBeanPostProcessor(pp BeanPostProcessor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postProcessors = append(f.postProcessors, pp)
}

// BeanPostProcessorCount 返回已注册的后置处理器数量。
func (f *BeanFactory) BeanPostProcessorCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.postProcessors)
}

func (f *BeanFactory) postProcessorsSnapshot() []BeanPostProcessor {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]BeanPostProcessor(nil), f.postProcessors...)
}

// RegisterResolvableDependency 注册按类型直接解析的固定值。
// 解析时绕过 bean 注册表，优先级高于一切候选收集。
func (f *BeanFactory) RegisterResolvableDependency(typ reflect.Type, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolvable[typ] = value
}

// IgnoreDependencyType 自动装配时排除指定类型的候选。
func (f *BeanFactory) IgnoreDependencyType(typ reflect.Type) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ignoredTypes[typ] = struct{}{}
}

// IgnoreDependencyInterface 自动装配时排除实现了指定接口的候选。
func (f *BeanFactory) IgnoreDependencyInterface(iface reflect.Type) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ignoredInterfaces[iface] = struct{}{}
}

// AddEmbeddedValueResolver 追加内嵌值解析器，按注册顺序依次应用。
func (f *BeanFactory) AddEmbeddedValueResolver(resolver StringValueResolver) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.valueResolvers = append(f.valueResolvers, resolver)
}

// ResolveEmbeddedValue 对字符串应用全部解析器；没有解析器时原样返回。
func (f *BeanFactory) ResolveEmbeddedValue(value string) (string, error) {
	f.mu.RLock()
	resolvers := append([]StringValueResolver(nil), f.valueResolvers...)
	f.mu.RUnlock()

	result := value
	for _, resolve := range resolvers {
		out, err := resolve(result)
		if err != nil {
			return "", err
		}
		result = out
	}
	return result, nil
}

// SetSecurityContext 设置不透明的安全上下文。启动前设置一次，此后只读。
func (f *BeanFactory) SetSecurityContext(ctx any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.securityContext = ctx
}

// SecurityContext 返回安全上下文。核心只透传，从不检查其内容。
func (f *BeanFactory) SecurityContext() any {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.securityContext
}

// PreInstantiateSingletons 预先实例化全部非延迟的单例定义。
// 任一 bean 失败即中止并返回错误；已创建的部分不自动回滚，
// 由调用方显式 DestroySingletons。
func (f *BeanFactory) PreInstantiateSingletons() error {
	f.mu.RLock()
	names := append([]string(nil), f.definitionNames...)
	f.mu.RUnlock()

	for _, name := range names {
		mbd, err := f.getMergedLocalDefinition(name, nil)
		if err != nil {
			return err
		}
		if mbd.Abstract || !mbd.IsSingleton() || mbd.LazyInit {
			continue
		}
		if _, err := f.GetBean(name); err != nil {
			return err
		}
	}
	return nil
}

// DestroySingletons 销毁全部单例。依赖者先于被依赖者销毁；
// 单个 bean 的销毁异常被记录后继续，不中断整体清理。
// 不得与进行中的单例构造并发调用。
func (f *BeanFactory) DestroySingletons() {
	f.singletons.destroySingletons()
}

// DestroyScopedBean 从指定作用域移除 bean 并执行其销毁回调。
// 销毁异常按合同捕获并记录。
func (f *BeanFactory) DestroyScopedBean(scopeName, beanName string) error {
	f.mu.RLock()
	scope, ok := f.scopes[scopeName]
	f.mu.RUnlock()
	if !ok {
		return &UnknownScopeError{ScopeName: scopeName, BeanName: beanName}
	}

	inst, found := scope.Remove(f.CanonicalName(beanName))
	if !found {
		return nil
	}
	if disposable, ok := inst.(DisposableBean); ok {
		f.singletons.invokeDisposal(beanName, disposable.Destroy)
	}
	return nil
}

// registerDisposalIfNeeded 为单例登记销毁回调。
func (f *BeanFactory) registerDisposalIfNeeded(name string, mbd *BeanDefinition, instance any) {
	if !mbd.IsSingleton() {
		return
	}
	if disposable, ok := instance.(DisposableBean); ok {
		f.singletons.registerDisposable(name, disposable.Destroy)
	}
}

// registerScopedDisposal 为自定义作用域中的实例登记销毁回调，
// 由作用域在其生命周期单元结束时触发。
func (f *BeanFactory) registerScopedDisposal(scope Scope, name string, instance any) {
	disposable, ok := instance.(DisposableBean)
	if !ok {
		return
	}
	scope.RegisterDestructionCallback(name, func() {
		f.singletons.invokeDisposal(name, disposable.Destroy)
	})
}
