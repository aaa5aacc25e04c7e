package core

import (
	"reflect"
	"sync"

	"github.com/gocrud/ioc/beans"
	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/hosting"
	"github.com/gocrud/ioc/logging"
)

// Configurator 配置器函数类型
// 配置器用于扩展应用程序，可以注册 bean、添加托管服务等
type Configurator func(*BuildContext)

// BuildContext 构建上下文
// 提供给配置器的上下文环境，包含 bean 工厂、配置、日志等核心组件
type BuildContext struct {
	factory       *beans.BeanFactory
	configuration config.Configuration
	logger        logging.Logger
	environment   Environment

	hostedServices []hosting.HostedService
	cleanups       map[string]func()

	mu sync.RWMutex
}

// AddHostedService 添加托管服务
func (c *BuildContext) AddHostedService(service hosting.HostedService) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hostedServices = append(c.hostedServices, service)
}

// SetCleanup 设置资源清理函数
func (c *BuildContext) SetCleanup(key string, cleanup func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanups[key] = cleanup
}

// Factory 返回底层的 bean 工厂
// 允许直接注册定义：ctx.Factory().RegisterBeanDefinition(...)
func (c *BuildContext) Factory() *beans.BeanFactory {
	return c.factory
}

// RegisterSingleton 按名注册一个现成的单例实例
func (c *BuildContext) RegisterSingleton(name string, instance any) error {
	return c.factory.RegisterSingleton(name, instance)
}

// RegisterDefinition 按名注册一个 bean 定义
func (c *BuildContext) RegisterDefinition(name string, def *beans.BeanDefinition) error {
	return c.factory.RegisterBeanDefinition(name, def)
}

// ResolveService 按类型从工厂解析服务
// 注意：仅在必要时使用此方法，优先通过构造函数注入依赖
func (c *BuildContext) ResolveService(serviceType reflect.Type) (any, error) {
	return c.factory.ResolveDependency(beans.DependencyDescriptor{
		Type:     serviceType,
		Required: true,
	})
}

// GetLogger 获取日志记录器
func (c *BuildContext) GetLogger() logging.Logger {
	return c.logger
}

// GetConfiguration 获取配置对象
func (c *BuildContext) GetConfiguration() config.Configuration {
	return c.configuration
}

// GetEnvironment 获取环境信息
func (c *BuildContext) GetEnvironment() Environment {
	return c.environment
}

// ConfigureOptions 配置选项模式（支持静态、快照和监听三种模式）
// T: 配置类型
// section: 配置节名称（例如 "app", "database"）
// 使用示例: core.ConfigureOptions[AppSetting](ctx, "app")
func ConfigureOptions[T any](ctx *BuildContext, section string) {
	cache := config.NewOptionsCache[T](ctx.configuration, section)

	// Option[T]：单例，应用生命周期内不变
	ctx.factory.RegisterResolvableDependency(
		reflect.TypeOf((*config.Option[T])(nil)).Elem(),
		config.NewOption(cache.Get()),
	)

	// OptionMonitor[T]：单例，配置重载时实时更新
	ctx.factory.RegisterResolvableDependency(
		reflect.TypeOf((*config.OptionMonitor[T])(nil)).Elem(),
		config.NewOptionMonitor(cache),
	)

	// OptionSnapshot[T]：原型，每次解析时取当前配置的快照
	snapshotDef := beans.NewBeanDefinition(nil)
	snapshotDef.Scope = beans.ScopePrototype
	snapshotDef.Factory = func() config.OptionSnapshot[T] {
		return config.NewOptionSnapshot(cache.Snapshot())
	}
	if err := ctx.factory.RegisterBeanDefinition("optionSnapshot."+section, snapshotDef); err != nil {
		ctx.logger.Error("Failed to register option snapshot",
			logging.Field{Key: "section", Value: section},
			logging.Field{Key: "error", Value: err.Error()})
		return
	}

	typeName := reflect.TypeOf((*T)(nil)).Elem().String()
	ctx.logger.Info("Configured options",
		logging.Field{Key: "type", Value: typeName},
		logging.Field{Key: "section", Value: section})
}
