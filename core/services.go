package core

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gocrud/ioc/beans"
	"github.com/gocrud/ioc/logging"
)

// ServiceCollection 服务集合，ConfigureServices 阶段的注册入口
type ServiceCollection struct {
	factory            *beans.BeanFactory
	logger             logging.Logger
	hostedServiceNames []string
}

// Factory 返回底层的 bean 工厂
func (s *ServiceCollection) Factory() *beans.BeanFactory {
	return s.factory
}

// AddHostedService 添加托管服务（支持实例或构造函数）
// 服务注册为单例 bean，构造函数的参数由工厂按类型注入
func (s *ServiceCollection) AddHostedService(value any) {
	name := fmt.Sprintf("hostedService.%d", len(s.hostedServiceNames)+1)

	if reflect.TypeOf(value).Kind() == reflect.Func {
		def := beans.NewBeanDefinition(nil)
		def.Factory = value
		if err := s.factory.RegisterBeanDefinition(name, def); err != nil {
			panic(fmt.Sprintf("ioc: failed to register hosted service: %v", err))
		}
	} else {
		if err := s.factory.RegisterSingleton(name, value); err != nil {
			panic(fmt.Sprintf("ioc: failed to register hosted service: %v", err))
		}
	}
	s.hostedServiceNames = append(s.hostedServiceNames, name)
}

// AddSingleton 将类型 T 注册为单例
// impl 可以是实例，也可以是构造函数，构造函数参数由工厂按类型注入
//
// 示例:
//
//	core.AddSingleton[IService](services, NewServiceImpl)
func AddSingleton[T any](s *ServiceCollection, impl any) {
	name := serviceName[T]()

	if reflect.TypeOf(impl).Kind() == reflect.Func {
		def := beans.NewBeanDefinition(nil)
		def.Factory = impl
		if err := s.factory.RegisterBeanDefinition(name, def); err != nil {
			panic(fmt.Sprintf("ioc: failed to register singleton %s: %v", name, err))
		}
		return
	}
	if err := s.factory.RegisterSingleton(name, impl); err != nil {
		panic(fmt.Sprintf("ioc: failed to register singleton %s: %v", name, err))
	}
}

// AddTransient 将类型 T 注册为瞬态服务，每次解析创建新实例
// impl 必须是构造函数
//
// 示例:
//
//	core.AddTransient[IWorker](services, NewWorker)
func AddTransient[T any](s *ServiceCollection, impl any) {
	if reflect.TypeOf(impl).Kind() != reflect.Func {
		panic(fmt.Sprintf("ioc: AddTransient requires a constructor function, got %T", impl))
	}

	name := serviceName[T]()
	def := beans.NewBeanDefinition(nil)
	def.Factory = impl
	def.Scope = beans.ScopePrototype
	if err := s.factory.RegisterBeanDefinition(name, def); err != nil {
		panic(fmt.Sprintf("ioc: failed to register transient %s: %v", name, err))
	}
}

// AddScoped 将类型 T 注册到指定的自定义作用域
// 作用域需要事先通过 factory.RegisterScope 注册
//
// 示例:
//
//	core.AddScoped[IRequestScope](services, "request", NewRequestScope)
func AddScoped[T any](s *ServiceCollection, scopeName string, impl any) {
	if reflect.TypeOf(impl).Kind() != reflect.Func {
		panic(fmt.Sprintf("ioc: AddScoped requires a constructor function, got %T", impl))
	}

	name := serviceName[T]()
	def := beans.NewBeanDefinition(nil)
	def.Factory = impl
	def.Scope = scopeName
	if err := s.factory.RegisterBeanDefinition(name, def); err != nil {
		panic(fmt.Sprintf("ioc: failed to register scoped %s: %v", name, err))
	}
}

// serviceName 派生注册名：类型名首字母小写，指针和包路径剥掉
func serviceName[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		name = t.String()
	}
	return strings.ToLower(name[:1]) + name[1:]
}
