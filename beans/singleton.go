package beans

import (
	"fmt"
	"sync"

	"github.com/gocrud/ioc/logging"
)

// resolutionPath 记录当前解析调用路径上的 bean 名称。
// 每次外部 GetBean 调用持有独立的路径；递归的依赖解析沿路径传递。
// 循环检测基于路径同步完成，不依赖超时。
type resolutionPath struct {
	names []string
}

func newResolutionPath() *resolutionPath {
	return &resolutionPath{}
}

func (p *resolutionPath) contains(name string) bool {
	for _, n := range p.names {
		if n == name {
			return true
		}
	}
	return false
}

func (p *resolutionPath) push(name string) {
	p.names = append(p.names, name)
}

func (p *resolutionPath) pop() {
	p.names = p.names[:len(p.names)-1]
}

// cycleChain 返回从 name 第一次出现到当前位置的完整环路（首尾同名）。
func (p *resolutionPath) cycleChain(name string) []string {
	start := 0
	for i, n := range p.names {
		if n == name {
			start = i
			break
		}
	}
	chain := append([]string(nil), p.names[start:]...)
	return append(chain, name)
}

// singletonRegistry 单例对象缓存。
//
// 三级缓存结构：
//   - singletons: 完整初始化的实例
//   - earlySingletons: 已提前暴露的未完成实例
//   - earlyProducers: 未完成实例的生产者（原始实例化后注册）
//
// 同名并发构造通过每个名称独立的 gate 串行化；不同名称互不阻塞。
// 一个名称在任意时刻至多处于 {未开始, 创建中, 已完成, 已销毁} 之一。
type singletonRegistry struct {
	mu sync.Mutex

	singletons      map[string]any
	earlySingletons map[string]any
	earlyProducers  map[string]func() any

	inCreation map[string]struct{}
	gates      map[string]*sync.Mutex

	// registrationOrder 按完成顺序记录名称，销毁时倒序遍历。
	registrationOrder []string

	disposables map[string]func() error

	// dependentBeans[b] = 依赖 b 的 beans；dependenciesFor[a] = a 依赖的 beans。
	dependentBeans  map[string]map[string]struct{}
	dependenciesFor map[string]map[string]struct{}

	logger logging.Logger
}

func newSingletonRegistry(logger logging.Logger) *singletonRegistry {
	return &singletonRegistry{
		singletons:      make(map[string]any),
		earlySingletons: make(map[string]any),
		earlyProducers:  make(map[string]func() any),
		inCreation:      make(map[string]struct{}),
		gates:           make(map[string]*sync.Mutex),
		disposables:     make(map[string]func() error),
		dependentBeans:  make(map[string]map[string]struct{}),
		dependenciesFor: make(map[string]map[string]struct{}),
		logger:          logger,
	}
}

// getSingleton 返回完整实例；不存在时通过 creator 创建并缓存。
// creator 负责完整的实例化、属性填充和后置处理。
func (s *singletonRegistry) getSingleton(name string, path *resolutionPath, creator ObjectProducer) (any, error) {
	s.mu.Lock()
	if inst, ok := s.singletons[name]; ok {
		s.mu.Unlock()
		return inst, nil
	}

	if path.contains(name) {
		// 当前调用路径上再次请求同名 bean：构造循环。
		// 若已有提前暴露的引用（或其生产者），返回未完成实例打破循环；
		// 否则报告完整环路。
		if inst, ok := s.earlySingletons[name]; ok {
			s.mu.Unlock()
			return inst, nil
		}
		if produce, ok := s.earlyProducers[name]; ok {
			inst := produce()
			s.earlySingletons[name] = inst
			delete(s.earlyProducers, name)
			s.mu.Unlock()
			return inst, nil
		}
		chain := path.cycleChain(name)
		s.mu.Unlock()
		return nil, &CircularReferenceError{Chain: chain}
	}

	gate, ok := s.gates[name]
	if !ok {
		gate = &sync.Mutex{}
		s.gates[name] = gate
	}
	s.mu.Unlock()

	// 同名构造互斥：并发的首次请求只有一个执行构造，其余阻塞等待结果。
	gate.Lock()
	defer gate.Unlock()

	s.mu.Lock()
	if inst, ok := s.singletons[name]; ok {
		s.mu.Unlock()
		return inst, nil
	}
	s.inCreation[name] = struct{}{}
	s.mu.Unlock()

	path.push(name)
	inst, err := creator()
	path.pop()

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inCreation, name)
	delete(s.earlySingletons, name)
	delete(s.earlyProducers, name)
	if err != nil {
		return nil, err
	}

	s.singletons[name] = inst
	s.registrationOrder = append(s.registrationOrder, name)
	return inst, nil
}

// registerSingleton 注册一个外部构建的完整实例。
func (s *singletonRegistry) registerSingleton(name string, instance any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.singletons[name]; exists {
		return &BeanDefinitionStoreError{
			Name:    name,
			Message: "单例已存在，不能重复注册实例",
		}
	}
	s.singletons[name] = instance
	s.registrationOrder = append(s.registrationOrder, name)
	return nil
}

// addEarlyProducer 在原始实例化之后注册未完成实例的生产者。
// 这是打破无构造循环（属性互引）的受控逃生口。
func (s *singletonRegistry) addEarlyProducer(name string, produce func() any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, done := s.singletons[name]; done {
		return
	}
	s.earlyProducers[name] = produce
}

// earlyReference 返回已经暴露出去的早期引用（如果有）。
func (s *singletonRegistry) earlyReference(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.earlySingletons[name]
	return inst, ok
}

// getCached 返回完整实例（不触发创建）。
func (s *singletonRegistry) getCached(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.singletons[name]
	return inst, ok
}

func (s *singletonRegistry) contains(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.singletons[name]
	return ok
}

func (s *singletonRegistry) isInCreation(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inCreation[name]
	return ok
}

// names 返回已完成单例的名称（按完成顺序）。
func (s *singletonRegistry) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.registrationOrder...)
}

// registerDisposable 注册单例销毁回调。
func (s *singletonRegistry) registerDisposable(name string, dispose func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposables[name] = dispose
}

// registerDependentBean 记录 dependentName 依赖 beanName。
func (s *singletonRegistry) registerDependentBean(beanName, dependentName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.dependentBeans[beanName]
	if !ok {
		set = make(map[string]struct{})
		s.dependentBeans[beanName] = set
	}
	set[dependentName] = struct{}{}

	inv, ok := s.dependenciesFor[dependentName]
	if !ok {
		inv = make(map[string]struct{})
		s.dependenciesFor[dependentName] = inv
	}
	inv[beanName] = struct{}{}
}

// isDependent 判断 dependentName 是否（传递地）依赖 beanName。
func (s *singletonRegistry) isDependent(beanName, dependentName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isDependentLocked(beanName, dependentName, make(map[string]struct{}))
}

func (s *singletonRegistry) isDependentLocked(beanName, dependentName string, seen map[string]struct{}) bool {
	if _, dup := seen[beanName]; dup {
		return false
	}
	seen[beanName] = struct{}{}
	dependents, ok := s.dependentBeans[beanName]
	if !ok {
		return false
	}
	if _, direct := dependents[dependentName]; direct {
		return true
	}
	for transitive := range dependents {
		if s.isDependentLocked(transitive, dependentName, seen) {
			return true
		}
	}
	return false
}

// dependentsOf 返回直接依赖 name 的 beans。
func (s *singletonRegistry) dependentsOf(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.dependentBeans[name]
	out := make([]string, 0, len(set))
	for dep := range set {
		out = append(out, dep)
	}
	return out
}

// destroySingletons 销毁全部单例。
// 按注册倒序遍历，依赖者先于被依赖者销毁；
// 单个 bean 的销毁异常被捕获并记录，不影响其余 bean 的清理。
// 调用期间持有注册表互斥，不得与进行中的单例构造并发。
func (s *singletonRegistry) destroySingletons() {
	s.mu.Lock()
	order := append([]string(nil), s.registrationOrder...)
	s.mu.Unlock()

	destroyed := make(map[string]struct{})
	for i := len(order) - 1; i >= 0; i-- {
		s.destroySingleton(order[i], destroyed)
	}

	s.mu.Lock()
	s.singletons = make(map[string]any)
	s.earlySingletons = make(map[string]any)
	s.earlyProducers = make(map[string]func() any)
	s.registrationOrder = nil
	s.disposables = make(map[string]func() error)
	s.dependentBeans = make(map[string]map[string]struct{})
	s.dependenciesFor = make(map[string]map[string]struct{})
	s.gates = make(map[string]*sync.Mutex)
	s.mu.Unlock()
}

// destroySingleton 销毁单个 bean，先递归销毁依赖它的 beans。
func (s *singletonRegistry) destroySingleton(name string, destroyed map[string]struct{}) {
	if _, done := destroyed[name]; done {
		return
	}
	destroyed[name] = struct{}{}

	s.mu.Lock()
	dependents := make([]string, 0, len(s.dependentBeans[name]))
	for dep := range s.dependentBeans[name] {
		dependents = append(dependents, dep)
	}
	delete(s.dependentBeans, name)
	dispose := s.disposables[name]
	delete(s.disposables, name)
	delete(s.singletons, name)
	delete(s.earlySingletons, name)
	delete(s.earlyProducers, name)
	s.mu.Unlock()

	for _, dep := range dependents {
		s.destroySingleton(dep, destroyed)
	}

	if dispose != nil {
		s.invokeDisposal(name, dispose)
	}
}

// invokeDisposal 调用销毁回调，异常只记录不传播。
func (s *singletonRegistry) invokeDisposal(name string, dispose func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("bean 销毁回调 panic",
				logging.Field{Key: "bean", Value: name},
				logging.Field{Key: "panic", Value: fmt.Sprint(r)})
		}
	}()
	if err := dispose(); err != nil {
		s.logger.Error("bean 销毁失败",
			logging.Field{Key: "bean", Value: name},
			logging.Field{Key: "error", Value: err.Error()})
	}
}
