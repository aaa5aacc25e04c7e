package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"sync"
	"syscall"
	"time"

	"github.com/gocrud/ioc/beans"
	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/hosting"
	"github.com/gocrud/ioc/logging"
)

// Application 应用程序接口
type Application interface {
	Run() error
	RunAsync(ctx context.Context) error
	Stop(ctx context.Context) error
	Beans() *beans.BeanFactory
	Configuration() config.Configuration
	Logger() logging.Logger
	Environment() Environment
	GetService(ptr any)
}

// ApplicationBuilder 应用程序构建器
type ApplicationBuilder struct {
	environment          string
	configBuilder        *config.ConfigurationBuilder
	loggingBuilder       *logging.LoggingBuilder
	serviceConfigurators []func(*ServiceCollection)
	configurators        []Configurator
	shutdownTimeout      time.Duration
	allowCircularRefs    bool
	mu                   sync.RWMutex
}

// NewApplicationBuilder 创建应用程序构建器
func NewApplicationBuilder() *ApplicationBuilder {
	return &ApplicationBuilder{
		environment:       "development",
		configBuilder:     config.NewConfigurationBuilder(),
		loggingBuilder:    logging.NewLoggingBuilder(),
		shutdownTimeout:   30 * time.Second,
		allowCircularRefs: true,
	}
}

// UseEnvironment 设置环境
func (b *ApplicationBuilder) UseEnvironment(env string) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.environment = env
	return b
}

// ConfigureConfiguration 配置配置系统
func (b *ApplicationBuilder) ConfigureConfiguration(configure func(*config.ConfigurationBuilder)) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if configure != nil {
		configure(b.configBuilder)
	}
	return b
}

// ConfigureLogging 配置日志系统
func (b *ApplicationBuilder) ConfigureLogging(configure func(*logging.LoggingBuilder)) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if configure != nil {
		configure(b.loggingBuilder)
	}
	return b
}

// ConfigureServices 配置服务
func (b *ApplicationBuilder) ConfigureServices(configure func(*ServiceCollection)) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if configure != nil {
		b.serviceConfigurators = append(b.serviceConfigurators, configure)
	}
	return b
}

// Configure 添加配置器（支持链式调用和可变参数）
// 接受任何 func(*BuildContext) 类型的函数
func (b *ApplicationBuilder) Configure(configurators ...interface{}) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range configurators {
		switch fn := c.(type) {
		case Configurator:
			b.configurators = append(b.configurators, fn)
		case func(*BuildContext):
			b.configurators = append(b.configurators, fn)
		default:
			panic(fmt.Sprintf("configurator must be func(*BuildContext), got %T", c))
		}
	}
	return b
}

// AddExtension 添加应用程序扩展
func (b *ApplicationBuilder) AddExtension(ext Extension) *ApplicationBuilder {
	validateExtension(ext)

	b.mu.Lock()
	defer b.mu.Unlock()

	if sc, ok := ext.(ServiceConfigurator); ok {
		b.serviceConfigurators = append(b.serviceConfigurators, sc.ConfigureServices)
	}
	if ac, ok := ext.(AppConfigurator); ok {
		b.configurators = append(b.configurators, ac.ConfigureBuilder)
	}
	return b
}

// AddOptions 注册配置选项（语法糖，简化配置选项注册）
// 使用示例: core.AddOptions[AppSetting](builder, "app")
func AddOptions[T any](b *ApplicationBuilder, section string) *ApplicationBuilder {
	return b.Configure(func(ctx *BuildContext) {
		ConfigureOptions[T](ctx, section)
	})
}

// AddTask 添加一个简单的后台任务
func (b *ApplicationBuilder) AddTask(task func(ctx context.Context) error) *ApplicationBuilder {
	b.Configure(func(ctx *BuildContext) {
		ctx.AddHostedService(&functionalService{task: task})
	})
	return b
}

// functionalService 函数式托管服务
type functionalService struct {
	task func(ctx context.Context) error
}

func (f *functionalService) Start(ctx context.Context) error {
	return f.task(ctx)
}

func (f *functionalService) Stop(ctx context.Context) error {
	return nil
}

// UseShutdownTimeout 设置关闭超时
func (b *ApplicationBuilder) UseShutdownTimeout(timeout time.Duration) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shutdownTimeout = timeout
	return b
}

// DisallowCircularReferences 禁止属性注入形成的循环依赖
func (b *ApplicationBuilder) DisallowCircularReferences() *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allowCircularRefs = false
	return b
}

// Build 构建应用程序
func (b *ApplicationBuilder) Build() Application {
	b.mu.Lock()
	defer b.mu.Unlock()

	// 构建可重载的配置
	reloadableConfig, err := b.configBuilder.BuildReloadable()
	if err != nil {
		panic(fmt.Sprintf("Failed to build configuration: %v", err))
	}

	// 构建日志工厂
	loggerFactory := b.loggingBuilder.Build()
	logger := loggerFactory.CreateLogger("Application")

	logger.Info("Building application",
		logging.Field{Key: "environment", Value: b.environment})

	env := NewEnvironment(b.environment)

	// 创建 bean 工厂
	factory := beans.NewBeanFactory(
		beans.WithLogger(logger.WithCategory("BeanFactory")),
		beans.WithAllowCircularReferences(b.allowCircularRefs),
	)

	// 注册核心服务：既可以按名获取，也参与按类型装配
	factory.RegisterSingleton("configuration", reloadableConfig)
	factory.RegisterSingleton("loggerFactory", loggerFactory)
	factory.RegisterSingleton("logger", logger)
	factory.RegisterSingleton("environment", env)

	factory.RegisterResolvableDependency(reflect.TypeOf((*config.Configuration)(nil)).Elem(), reloadableConfig)
	factory.RegisterResolvableDependency(reflect.TypeOf(reloadableConfig), reloadableConfig)
	factory.RegisterResolvableDependency(reflect.TypeOf((*logging.LoggerFactory)(nil)).Elem(), loggerFactory)
	factory.RegisterResolvableDependency(reflect.TypeOf((*logging.Logger)(nil)).Elem(), logger)
	factory.RegisterResolvableDependency(reflect.TypeOf((*Environment)(nil)).Elem(), env)

	// 配置占位符：属性值和构造参数中的 ${key} 取自配置
	factory.AddEmbeddedValueResolver(config.PlaceholderResolver(reloadableConfig))

	// 创建服务集合
	services := &ServiceCollection{
		factory: factory,
		logger:  logger,
	}

	// 创建 BuildContext
	buildContext := &BuildContext{
		factory:       factory,
		configuration: reloadableConfig,
		logger:        logger,
		environment:   env,
		cleanups:      make(map[string]func()),
	}

	// 执行所有配置器
	for _, configurator := range b.configurators {
		configurator(buildContext)
	}

	// 配置用户服务
	for _, configurator := range b.serviceConfigurators {
		configurator(services)
	}

	// 冻结定义并预实例化全部非延迟单例
	factory.FreezeConfiguration()
	if err := factory.PreInstantiateSingletons(); err != nil {
		logger.Fatal("Failed to pre-instantiate singletons",
			logging.Field{Key: "error", Value: err.Error()})
	}

	logger.Info("Bean factory built successfully",
		logging.Field{Key: "definitions", Value: factory.BeanDefinitionCount()})

	// 合并托管服务：
	// 1. 通过 Configure(ctx.AddHostedService) 直接添加的实例
	// 2. 通过 ServiceCollection.AddHostedService 注册到工厂的 bean
	hostedServices := make([]hosting.HostedService, 0, len(buildContext.hostedServices))
	hostedServices = append(hostedServices, buildContext.hostedServices...)

	for _, name := range services.hostedServiceNames {
		instance, err := factory.GetBean(name)
		if err != nil {
			logger.Fatal("Failed to retrieve hosted service",
				logging.Field{Key: "bean", Value: name},
				logging.Field{Key: "error", Value: err.Error()})
		}
		hs, ok := instance.(hosting.HostedService)
		if !ok {
			logger.Fatal("Bean does not implement HostedService",
				logging.Field{Key: "bean", Value: name},
				logging.Field{Key: "type", Value: fmt.Sprintf("%T", instance)})
		}
		hostedServices = append(hostedServices, hs)
	}

	return &application{
		factory:         factory,
		configuration:   reloadableConfig,
		configBuilder:   b.configBuilder,
		logger:          logger,
		environment:     env,
		hostedServices:  hostedServices,
		cleanups:        buildContext.cleanups,
		shutdownTimeout: b.shutdownTimeout,
		stopCh:          make(chan struct{}),
	}
}

// application 应用程序实现
type application struct {
	factory         *beans.BeanFactory
	configuration   *config.ReloadableConfiguration
	configBuilder   *config.ConfigurationBuilder
	logger          logging.Logger
	environment     Environment
	hostedServices  []hosting.HostedService
	serviceManager  *hosting.HostedServiceManager
	cleanups        map[string]func()
	shutdownTimeout time.Duration
	stopCh          chan struct{}
	running         bool
	runCtx          context.Context
	runCancel       context.CancelFunc
	mu              sync.RWMutex
}

// Run 运行应用程序（阻塞）
func (a *application) Run() error {
	return a.RunAsync(context.Background())
}

// RunAsync 异步运行应用程序
func (a *application) RunAsync(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return errors.New("application is already running")
	}
	a.running = true
	a.runCtx, a.runCancel = context.WithCancel(ctx)
	a.mu.Unlock()

	a.logger.Info("Starting application",
		logging.Field{Key: "environment", Value: a.environment.Name()})

	// 启动可监听配置源的变更监听
	for _, source := range a.configBuilder.GetSources() {
		watchable, ok := source.(config.WatchableSource)
		if !ok {
			continue
		}
		if err := watchable.StartWatch(a.runCtx, func() {
			if err := a.configuration.Reload(); err != nil {
				a.logger.Error("Failed to reload configuration",
					logging.Field{Key: "error", Value: err.Error()})
			} else {
				a.logger.Info("Configuration reloaded")
			}
		}); err != nil {
			a.logger.Warn("Failed to start config watch",
				logging.Field{Key: "source", Value: source.Name()},
				logging.Field{Key: "error", Value: err.Error()})
		}
	}

	// 启动托管服务
	a.serviceManager = hosting.NewHostedServiceManager(a.logger)
	for _, service := range a.hostedServices {
		a.serviceManager.Add(service)
	}
	errCh := a.serviceManager.StartAll(a.runCtx)

	a.logger.Info("Application started")

	// 等待停止信号或错误
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info("Received shutdown signal",
			logging.Field{Key: "signal", Value: sig.String()})
	case <-a.stopCh:
		a.logger.Info("Application stop requested")
	case <-ctx.Done():
		a.logger.Info("Context cancelled")
	case err := <-errCh:
		a.logger.Error("Hosted service failed, stopping application",
			logging.Field{Key: "error", Value: err.Error()})
		runErr = err
	}

	a.shutdown()

	a.mu.Lock()
	a.running = false
	a.mu.Unlock()

	return runErr
}

// shutdown 优雅关闭：停服务、停监听、清理资源、销毁单例
func (a *application) shutdown() {
	a.logger.Info("Shutting down application",
		logging.Field{Key: "timeout", Value: a.shutdownTimeout.String()})

	a.runCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	if err := a.serviceManager.StopAll(shutdownCtx); err != nil {
		a.logger.Error("Failed to stop hosted services",
			logging.Field{Key: "error", Value: err.Error()})
	}
	a.serviceManager.Wait()

	for _, source := range a.configBuilder.GetSources() {
		if watchable, ok := source.(config.WatchableSource); ok {
			watchable.StopWatch()
		}
	}

	if len(a.cleanups) > 0 {
		a.logger.Info("Running cleanup functions",
			logging.Field{Key: "count", Value: len(a.cleanups)})
		for key, cleanup := range a.cleanups {
			a.logger.Debug("Running cleanup", logging.Field{Key: "key", Value: key})
			cleanup()
		}
	}

	// 最后销毁单例，触发 DisposableBean 和销毁回调
	a.factory.DestroySingletons()

	a.logger.Info("Application stopped")
}

// Stop 停止应用程序
func (a *application) Stop(ctx context.Context) error {
	select {
	case <-a.stopCh:
	default:
		close(a.stopCh)
	}
	return nil
}

// Beans 获取 bean 工厂
func (a *application) Beans() *beans.BeanFactory {
	return a.factory
}

// Configuration 获取配置
func (a *application) Configuration() config.Configuration {
	return a.configuration
}

// Logger 获取日志记录器
func (a *application) Logger() logging.Logger {
	return a.logger
}

// Environment 获取环境
func (a *application) Environment() Environment {
	return a.environment
}

// GetService 获取服务实例（通过指针参数）
//
// 使用示例：
//
//	var myService *MyService
//	app.GetService(&myService)
func (a *application) GetService(ptr any) {
	ptrValue := reflect.ValueOf(ptr)
	if ptrValue.Kind() != reflect.Pointer {
		panic(fmt.Sprintf("ioc: GetService argument must be a pointer, got %T", ptr))
	}

	elemValue := ptrValue.Elem()
	if !elemValue.CanSet() {
		panic("ioc: GetService argument must be settable")
	}

	instance, err := a.factory.ResolveDependency(beans.DependencyDescriptor{
		Type:     elemValue.Type(),
		Required: true,
	})
	if err != nil {
		panic(fmt.Sprintf("ioc: failed to get service %s: %v", elemValue.Type(), err))
	}
	elemValue.Set(reflect.ValueOf(instance))
}

// Environment 环境接口
type Environment interface {
	Name() string
	IsDevelopment() bool
	IsProduction() bool
	IsStaging() bool
}

// environment 环境实现
type environment struct {
	name string
}

// NewEnvironment 创建环境
func NewEnvironment(name string) Environment {
	return &environment{name: name}
}

func (e *environment) Name() string {
	return e.name
}

func (e *environment) IsDevelopment() bool {
	return e.name == "development"
}

func (e *environment) IsProduction() bool {
	return e.name == "production"
}

func (e *environment) IsStaging() bool {
	return e.name == "staging"
}
