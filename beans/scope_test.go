package beans_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gocrud/ioc/beans"
)

// mapScope 简单的 map 作用域实现，模拟会话一类的生命周期单元。
type mapScope struct {
	mu        sync.Mutex
	instances map[string]any
	callbacks map[string]func()
}

func newMapScope() *mapScope {
	return &mapScope{
		instances: make(map[string]any),
		callbacks: make(map[string]func()),
	}
}

func (s *mapScope) Get(name string, producer beans.ObjectProducer) (any, error) {
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

func (s *mapScope) Remove(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[name]
	if ok {
		delete(s.instances, name)
		delete(s.callbacks, name)
	}
	return inst, ok
}

func (s *mapScope) RegisterDestructionCallback(name string, callback func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks[name] = callback
}

// end 触发作用域内全部销毁回调并清空实例。
func (s *mapScope) end() {
	s.mu.Lock()
	callbacks := s.callbacks
	s.instances = make(map[string]any)
	s.callbacks = make(map[string]func())
	s.mu.Unlock()
	for _, cb := range callbacks {
		cb()
	}
}

func TestCustomScope(t *testing.T) {
	f := beans.NewBeanFactory()
	session := newMapScope()
	if err := f.RegisterScope("session", session); err != nil {
		t.Fatal(err)
	}

	count := 0
	def := beans.NewBeanDefinition(nil)
	def.Scope = "session"
	def.Factory = func() *Greeter {
		count++
		return &Greeter{}
	}
	if err := f.RegisterBeanDefinition("g", def); err != nil {
		t.Fatal(err)
	}

	a, err := f.GetBean("g")
	if err != nil {
		t.Fatalf("GetBean in custom scope failed: %v", err)
	}
	b, _ := f.GetBean("g")
	if a != b {
		t.Error("scope should cache within its lifetime unit")
	}
	if count != 1 {
		t.Errorf("expected 1 construction, got %d", count)
	}

	// 作用域结束后重新创建
	session.end()
	c, _ := f.GetBean("g")
	if c == a {
		t.Error("expected a fresh instance after scope end")
	}
	if count != 2 {
		t.Errorf("expected 2 constructions, got %d", count)
	}
}

func TestCustomScopeDestructionCallback(t *testing.T) {
	f := beans.NewBeanFactory()
	session := newMapScope()
	if err := f.RegisterScope("session", session); err != nil {
		t.Fatal(err)
	}

	var log []string
	def := beans.NewBeanDefinition(nil)
	def.Scope = "session"
	def.Factory = func() *lifecycleBean {
		return &lifecycleBean{log: &log, name: "scoped"}
	}
	if err := f.RegisterBeanDefinition("scoped", def); err != nil {
		t.Fatal(err)
	}

	if _, err := f.GetBean("scoped"); err != nil {
		t.Fatal(err)
	}
	session.end()
	found := false
	for _, entry := range log {
		if entry == "destroy:scoped" {
			found = true
		}
	}
	if !found {
		t.Errorf("destruction callback not invoked on scope end: %v", log)
	}
}

func TestUnknownScope(t *testing.T) {
	f := beans.NewBeanFactory()

	def := beans.NewBeanDefinition(nil)
	def.Scope = "session"
	def.Factory = NewGreeter
	if err := f.RegisterBeanDefinition("g", def); err != nil {
		t.Fatal(err)
	}

	_, err := f.GetBean("g")
	if err == nil {
		t.Fatal("expected error for unregistered scope")
	}
	var unknown *beans.UnknownScopeError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownScopeError, got %v", err)
	}
	if unknown.ScopeName != "session" || unknown.BeanName != "g" {
		t.Errorf("unexpected error detail: %+v", unknown)
	}
}

func TestBuiltinScopeNotReplaceable(t *testing.T) {
	f := beans.NewBeanFactory()
	if err := f.RegisterScope(beans.ScopeSingleton, newMapScope()); err == nil {
		t.Error("expected error when replacing singleton scope")
	}
	if err := f.RegisterScope(beans.ScopePrototype, newMapScope()); err == nil {
		t.Error("expected error when replacing prototype scope")
	}
	if err := f.RegisterScope("request", nil); err == nil {
		t.Error("expected error for nil scope strategy")
	}
}

func TestDestroyScopedBean(t *testing.T) {
	f := beans.NewBeanFactory()
	session := newMapScope()
	if err := f.RegisterScope("session", session); err != nil {
		t.Fatal(err)
	}

	var log []string
	def := beans.NewBeanDefinition(nil)
	def.Scope = "session"
	def.Factory = func() *lifecycleBean {
		return &lifecycleBean{log: &log, name: "scoped"}
	}
	if err := f.RegisterBeanDefinition("scoped", def); err != nil {
		t.Fatal(err)
	}

	first, err := f.GetBean("scoped")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.DestroyScopedBean("session", "scoped"); err != nil {
		t.Fatal(err)
	}
	if len(log) != 2 || log[1] != "destroy:scoped" {
		t.Errorf("log = %v", log)
	}

	second, _ := f.GetBean("scoped")
	if second == first {
		t.Error("expected a fresh instance after targeted removal")
	}
}

func TestConcurrentSingletonCreation(t *testing.T) {
	f := beans.NewBeanFactory()

	var constructions atomic.Int32
	def := beans.NewBeanDefinition(nil)
	def.Factory = func() *Greeter {
		constructions.Add(1)
		time.Sleep(10 * time.Millisecond)
		return &Greeter{}
	}
	if err := f.RegisterBeanDefinition("g", def); err != nil {
		t.Fatal(err)
	}

	const workers = 16
	results := make([]any, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inst, err := f.GetBean("g")
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			results[i] = inst
		}(i)
	}
	wg.Wait()

	if got := constructions.Load(); got != 1 {
		t.Errorf("expected exactly one construction, got %d", got)
	}
	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Fatal("concurrent callers observed different instances")
		}
	}
}

func TestConcurrentDistinctBeans(t *testing.T) {
	f := beans.NewBeanFactory()

	for _, name := range []string{"a", "b", "c", "d"} {
		def := beans.NewBeanDefinition(nil)
		def.Factory = func() *Greeter {
			time.Sleep(5 * time.Millisecond)
			return &Greeter{}
		}
		if err := f.RegisterBeanDefinition(name, def); err != nil {
			t.Fatal(err)
		}
	}

	var wg sync.WaitGroup
	for _, name := range []string{"a", "b", "c", "d"} {
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				if _, err := f.GetBean(name); err != nil {
					t.Errorf("GetBean %s: %v", name, err)
				}
			}(name)
		}
	}
	wg.Wait()

	if len(f.SingletonNames()) != 4 {
		t.Errorf("expected 4 singletons, got %v", f.SingletonNames())
	}
}
