package web

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/ioc/beans"
)

// ScopeRequest 请求作用域名称
const ScopeRequest = "request"

// factoryContextKey 子工厂在 gin.Context 中的键
const factoryContextKey = "ioc.request.factory"

// RequestScope 绑定到单个 HTTP 请求的作用域
// 同名 bean 在一次请求内共享实例，请求结束时触发销毁回调
type RequestScope struct {
	mu        sync.Mutex
	instances map[string]any
	callbacks []func()
	named     map[string]int // 实例名到回调下标的映射
}

// NewRequestScope 创建请求作用域
func NewRequestScope() *RequestScope {
	return &RequestScope{
		instances: make(map[string]any),
		named:     make(map[string]int),
	}
}

// Get 返回请求内名为 name 的实例，不存在时通过 producer 创建
func (s *RequestScope) Get(name string, producer beans.ObjectProducer) (any, error) {
	s.mu.Lock()
	if inst, ok := s.instances[name]; ok {
		s.mu.Unlock()
		return inst, nil
	}
	s.mu.Unlock()

	// 不能持锁调用 producer：工厂会在 producer 内回调
	// RegisterDestructionCallback，持锁会自死锁。
	inst, err := producer()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.instances[name]; ok {
		return existing, nil
	}
	s.instances[name] = inst
	return inst, nil
}

// Remove 从请求作用域移除实例并返回它，其销毁回调不再触发
func (s *RequestScope) Remove(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[name]
	if !ok {
		return nil, false
	}
	delete(s.instances, name)
	if idx, exists := s.named[name]; exists {
		s.callbacks[idx] = nil
		delete(s.named, name)
	}
	return inst, true
}

// RegisterDestructionCallback 注册实例销毁回调，请求结束时倒序执行
func (s *RequestScope) RegisterDestructionCallback(name string, callback func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callbacks = append(s.callbacks, callback)
	s.named[name] = len(s.callbacks) - 1
}

// End 结束请求作用域：倒序执行销毁回调并清空实例
func (s *RequestScope) End() {
	s.mu.Lock()
	callbacks := s.callbacks
	s.callbacks = nil
	s.named = make(map[string]int)
	s.instances = make(map[string]any)
	s.mu.Unlock()

	for i := len(callbacks) - 1; i >= 0; i-- {
		if callbacks[i] != nil {
			callbacks[i]()
		}
	}
}

// scopeMiddleware 为每个请求创建子工厂并绑定请求作用域。
// 请求作用域的定义注册在子工厂上，未命中的名字委托给应用工厂。
func scopeMiddleware(parent *beans.BeanFactory, definitions map[string]*beans.BeanDefinition) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope := NewRequestScope()
		child := beans.NewBeanFactory(beans.WithParent(parent))
		if err := child.RegisterScope(ScopeRequest, scope); err != nil {
			_ = c.AbortWithError(500, err)
			return
		}

		for name, def := range definitions {
			scoped := def.Clone()
			scoped.Scope = ScopeRequest
			if err := child.RegisterBeanDefinition(name, scoped); err != nil {
				_ = c.AbortWithError(500, err)
				return
			}
		}

		c.Set(factoryContextKey, child)
		defer scope.End()
		c.Next()
	}
}

// FactoryFromContext 返回当前请求绑定的子工厂
// 只有注册过请求作用域定义的主机才会安装绑定中间件
func FactoryFromContext(c *gin.Context) (*beans.BeanFactory, bool) {
	val, ok := c.Get(factoryContextKey)
	if !ok {
		return nil, false
	}
	factory, ok := val.(*beans.BeanFactory)
	return factory, ok
}

// RequestBean 从当前请求的子工厂解析名为 name 的 bean
func RequestBean[T any](c *gin.Context, name string) (T, error) {
	var zero T
	factory, ok := FactoryFromContext(c)
	if !ok {
		return zero, fmt.Errorf("no request-scoped factory bound to this request")
	}
	inst, err := factory.GetBean(name)
	if err != nil {
		return zero, err
	}
	typed, ok := inst.(T)
	if !ok {
		return zero, fmt.Errorf("bean %q is %T, not the requested type", name, inst)
	}
	return typed, nil
}
