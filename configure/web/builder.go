package web

import (
	"context"
	"fmt"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/ioc/beans"
	"github.com/gocrud/ioc/logging"
)

// Controller 控制器接口
// 实现该接口的类型可以通过 AddControllers 注册，路由在主机启动时挂载
type Controller interface {
	RegisterRoutes(router gin.IRouter)
}

// Builder Web 主机构建器（基于 Gin）
type Builder struct {
	logger        logging.Logger
	port          int
	engine        *gin.Engine
	controllers   []any // 构造函数或实例指针
	requestScoped map[string]*beans.BeanDefinition
}

// NewBuilder 创建 Web 构建器
func NewBuilder(logger logging.Logger) *Builder {
	// 设置 Gin 为发布模式（默认）
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	// 默认中间件：恢复 panic
	engine.Use(gin.Recovery())

	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Builder{
		logger: logger,
		port:   8080,
		engine: engine,
	}
}

// UsePort 设置端口
func (b *Builder) UsePort(port int) *Builder {
	b.port = port
	return b
}

// Get 注册 GET 路由
func (b *Builder) Get(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.GET(path, handlers...)
	return b
}

// Post 注册 POST 路由
func (b *Builder) Post(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.POST(path, handlers...)
	return b
}

// Put 注册 PUT 路由
func (b *Builder) Put(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.PUT(path, handlers...)
	return b
}

// Delete 注册 DELETE 路由
func (b *Builder) Delete(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.DELETE(path, handlers...)
	return b
}

// Patch 注册 PATCH 路由
func (b *Builder) Patch(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.PATCH(path, handlers...)
	return b
}

// Any 注册任意方法路由
func (b *Builder) Any(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.Any(path, handlers...)
	return b
}

// Group 创建路由组
func (b *Builder) Group(relativePath string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return b.engine.Group(relativePath, handlers...)
}

// Use 使用全局中间件
func (b *Builder) Use(middleware ...gin.HandlerFunc) *Builder {
	b.engine.Use(middleware...)
	return b
}

// AddControllers 注册控制器
// 每个参数可以是构造函数（参数自动从容器解析）或实例指针
// （带 bean 标签的字段会被注入）。路由在主机启动时挂载。
func (b *Builder) AddControllers(controllers ...any) *Builder {
	b.controllers = append(b.controllers, controllers...)
	return b
}

// AddRequestScoped 注册请求作用域的 bean 定义
// 每个请求获得独立实例，请求结束时触发销毁回调。
// 仅对主机启动后挂载的路由（控制器路由）生效。
func (b *Builder) AddRequestScoped(name string, def *beans.BeanDefinition) *Builder {
	if b.requestScoped == nil {
		b.requestScoped = make(map[string]*beans.BeanDefinition)
	}
	b.requestScoped[name] = def
	return b
}

// Static 服务静态文件
func (b *Builder) Static(relativePath, root string) *Builder {
	b.engine.Static(relativePath, root)
	return b
}

// StaticFS 服务静态文件系统
func (b *Builder) StaticFS(relativePath string, fs http.FileSystem) *Builder {
	b.engine.StaticFS(relativePath, fs)
	return b
}

// StaticFile 服务单个静态文件
func (b *Builder) StaticFile(relativePath, filepath string) *Builder {
	b.engine.StaticFile(relativePath, filepath)
	return b
}

// LoadHTMLGlob 加载 HTML 模板（通配符）
func (b *Builder) LoadHTMLGlob(pattern string) *Builder {
	b.engine.LoadHTMLGlob(pattern)
	return b
}

// LoadHTMLFiles 加载 HTML 模板（文件列表）
func (b *Builder) LoadHTMLFiles(files ...string) *Builder {
	b.engine.LoadHTMLFiles(files...)
	return b
}

// NoRoute 处理 404
func (b *Builder) NoRoute(handlers ...gin.HandlerFunc) *Builder {
	b.engine.NoRoute(handlers...)
	return b
}

// NoMethod 处理 405
func (b *Builder) NoMethod(handlers ...gin.HandlerFunc) *Builder {
	b.engine.NoMethod(handlers...)
	return b
}

// SetMode 设置 Gin 模式
func (b *Builder) SetMode(mode string) *Builder {
	gin.SetMode(mode)
	return b
}

// Engine 获取 Gin 引擎（用于高级定制）
func (b *Builder) Engine() *gin.Engine {
	return b.engine
}

// Build 构建 Web 主机
// 控制器以 bean 定义的形式注册到工厂，主机启动时解析并挂载路由
func (b *Builder) Build(factory *beans.BeanFactory) *Host {
	host := &Host{
		port:   b.port,
		engine: b.engine,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", b.port),
			Handler: b.engine, // Gin Engine 实现了 http.Handler
		},
		logger:  b.logger,
		factory: factory,
	}

	if len(b.requestScoped) > 0 {
		b.engine.Use(scopeMiddleware(factory, b.requestScoped))
	}

	for i, controller := range b.controllers {
		name := fmt.Sprintf("web.controller.%d", i)
		def := beans.NewBeanDefinition(nil)

		if reflect.TypeOf(controller).Kind() == reflect.Func {
			// 构造函数，参数由容器解析
			def.Factory = controller
		} else {
			// 实例指针，经由工厂实例化以获得字段注入
			instance := controller
			def.Type = reflect.TypeOf(instance)
			def.Factory = func() any { return instance }
		}

		if err := factory.RegisterBeanDefinition(name, def); err != nil {
			b.logger.Warn("Failed to register controller",
				logging.Field{Key: "name", Value: name},
				logging.Field{Key: "error", Value: err.Error()})
			continue
		}
		host.controllerNames = append(host.controllerNames, name)
	}

	return host
}

// Host Web 主机
type Host struct {
	port            int
	engine          *gin.Engine
	server          *http.Server
	logger          logging.Logger
	factory         *beans.BeanFactory
	controllerNames []string
}

// mapControllers 解析控制器并挂载路由
func (h *Host) mapControllers() error {
	for _, name := range h.controllerNames {
		instance, err := h.factory.GetBean(name)
		if err != nil {
			return fmt.Errorf("failed to resolve controller %q: %w", name, err)
		}

		controller, ok := instance.(Controller)
		if !ok {
			return fmt.Errorf("controller %q (%T) does not implement web.Controller", name, instance)
		}

		controller.RegisterRoutes(h.engine)
	}
	return nil
}

// Start 启动 Web 主机
func (h *Host) Start(ctx context.Context) error {
	if err := h.mapControllers(); err != nil {
		return err
	}

	h.logger.Info("Starting web host",
		logging.Field{Key: "port", Value: h.port})

	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	h.logger.Info("Web host started",
		logging.Field{Key: "address", Value: h.server.Addr})

	// 等待错误或上下文取消
	select {
	case err := <-errCh:
		if err != nil {
			h.logger.Error("Web host error",
				logging.Field{Key: "error", Value: err.Error()})
			return err
		}
		return nil
	case <-ctx.Done():
		// 上下文取消，触发关闭
		return nil // Stop 会负责关闭
	}
}

// Stop 停止 Web 主机
func (h *Host) Stop(ctx context.Context) error {
	h.logger.Info("Stopping web host")

	if err := h.server.Shutdown(ctx); err != nil {
		h.logger.Error("Failed to shutdown web host gracefully",
			logging.Field{Key: "error", Value: err.Error()})
		return err
	}

	h.logger.Info("Web host stopped")
	return nil
}
