package core

import (
	"fmt"

	"github.com/gocrud/ioc/beans"
	"github.com/gocrud/ioc/logging"
)

// Runtime 是微内核模式的状态容器，Option 是它唯一的扩展点
type Runtime struct {
	// Features 存放构建时特性 (WebBuilder, DbBuilder 等)
	Features FeatureCollection

	// Container bean 工厂
	Container *beans.BeanFactory

	// Lifecycle 生命周期管理
	Lifecycle *LifecycleEvents

	// Logger 运行时日志
	Logger logging.Logger

	// shutdownCh 用于通知应用退出
	shutdownCh chan struct{}

	// ErrorHandler 用于记录运行时产生的严重错误
	// 外部可以通过设置此字段来接管错误日志
	ErrorHandler func(err error)
}

// NewRuntime 创建一个新的运行时实例
func NewRuntime() *Runtime {
	logger := logging.NewLogger()
	rt := &Runtime{
		Container:  beans.NewBeanFactory(beans.WithLogger(logger.WithCategory("BeanFactory"))),
		Lifecycle:  NewLifecycle(logger),
		Logger:     logger,
		shutdownCh: make(chan struct{}),
	}
	rt.ErrorHandler = func(err error) {
		logger.Error("Runtime error", logging.Field{Key: "error", Value: err.Error()})
	}
	return rt
}

// Shutdown 请求应用退出
// 调用此方法会触发应用关闭流程
func (rt *Runtime) Shutdown() {
	select {
	case <-rt.shutdownCh:
	default:
		close(rt.shutdownCh)
	}
}

// Done 返回一个通道，当应用需要退出时该通道会关闭
func (rt *Runtime) Done() <-chan struct{} {
	return rt.shutdownCh
}

// Provide 按名注册一个由构造函数产生的单例 bean (语法糖)
func (rt *Runtime) Provide(name string, constructor any) error {
	def := beans.NewBeanDefinition(nil)
	def.Factory = constructor
	return rt.Container.RegisterBeanDefinition(name, def)
}

// ProvideValue 按名注册一个现成的单例实例 (语法糖)
func (rt *Runtime) ProvideValue(name string, value any) error {
	return rt.Container.RegisterSingleton(name, value)
}

// Apply 应用多个 Option
func (rt *Runtime) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(rt); err != nil {
			return err
		}
	}
	return nil
}

// MustGet 按名解析 bean，失败时 panic
func (rt *Runtime) MustGet(name string) any {
	instance, err := rt.Container.GetBean(name)
	if err != nil {
		panic(fmt.Sprintf("ioc: failed to resolve bean %q: %v", name, err))
	}
	return instance
}
