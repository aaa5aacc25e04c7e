package web

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/ioc/beans"
	"github.com/gocrud/ioc/logging"
	"github.com/stretchr/testify/assert"
)

// ---------------- Helper ----------------

func newTestLogger() logging.Logger {
	builder := logging.NewLoggingBuilder()
	builder.AddConsole(logging.ConsoleLoggerOptions{
		Output:      os.Stdout,
		ColorOutput: false,
	})
	factory := builder.Build()
	return factory.CreateLogger("test")
}

// ---------------- Mock Controllers ----------------

// SimpleController 普通控制器
type SimpleController struct {
	Check string
}

func (c *SimpleController) RegisterRoutes(router gin.IRouter) {
	router.GET("/simple", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "simple")
	})
}

// DepService 模拟依赖服务
type DepService struct {
	Value string
}

// ControllerWithDep 带依赖的控制器 (构造函数注入)
type ControllerWithDep struct {
	Svc *DepService
}

func NewControllerWithDep(svc *DepService) *ControllerWithDep {
	return &ControllerWithDep{Svc: svc}
}

func (c *ControllerWithDep) RegisterRoutes(router gin.IRouter) {
	router.GET("/dep", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, c.Svc.Value)
	})
}

// ControllerWithTag 带标签的控制器 (字段注入)
type ControllerWithTag struct {
	Svc *DepService `bean:"depService"`
}

func (c *ControllerWithTag) RegisterRoutes(router gin.IRouter) {
	router.GET("/tag", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "tag:"+c.Svc.Value)
	})
}

// ---------------- Tests ----------------

func TestWebBuilder_AddControllers(t *testing.T) {
	// 1. Setup Environment
	logger := newTestLogger()
	factory := beans.NewBeanFactory()

	// 注册依赖服务
	depDef := beans.NewBeanDefinition(nil)
	depDef.Factory = func() *DepService {
		return &DepService{Value: "injected-value"}
	}
	err := factory.RegisterBeanDefinition("depService", depDef)
	assert.NoError(t, err)

	// 2. Create Builder & Add Controllers
	builder := NewBuilder(logger)

	// 方式 A: 构造函数
	builder.AddControllers(NewControllerWithDep)

	// 方式 B: 实例指针 (带标签)
	builder.AddControllers(&ControllerWithTag{})

	// 方式 C: 实例指针 (无依赖)
	builder.AddControllers(&SimpleController{})

	// 3. Build Host（控制器注册为 bean 定义）
	host := builder.Build(factory)
	assert.Len(t, host.controllerNames, 3)

	// 4. Map Controllers (通常在 Start 中调用，这里手动调用以测试)
	err = host.mapControllers()
	assert.NoError(t, err)

	// 5. Verify Routes using httptest
	router := host.engine

	// Case 1: Simple
	w1 := httptest.NewRecorder()
	req1, _ := http.NewRequest("GET", "/simple", nil)
	router.ServeHTTP(w1, req1)
	assert.Equal(t, http.StatusOK, w1.Code)
	assert.Equal(t, "simple", w1.Body.String())

	// Case 2: Dependency Injection (Constructor)
	w2 := httptest.NewRecorder()
	req2, _ := http.NewRequest("GET", "/dep", nil)
	router.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, "injected-value", w2.Body.String())

	// Case 3: Dependency Injection (Tag/Instance)
	w3 := httptest.NewRecorder()
	req3, _ := http.NewRequest("GET", "/tag", nil)
	router.ServeHTTP(w3, req3)
	assert.Equal(t, http.StatusOK, w3.Code)
	assert.Equal(t, "tag:injected-value", w3.Body.String())
}

func TestWebBuilder_DuplicateRegistration(t *testing.T) {
	logger := newTestLogger()
	factory := beans.NewBeanFactory()

	depDef := beans.NewBeanDefinition(nil)
	depDef.Factory = func() *DepService {
		return &DepService{Value: "dup"}
	}
	assert.NoError(t, factory.RegisterBeanDefinition("depService", depDef))

	builder := NewBuilder(logger)

	// 故意添加两次相同的控制器，各占一个 bean 名称，不应报错
	builder.AddControllers(NewControllerWithDep)
	builder.AddControllers(NewControllerWithDep)

	// Build 不应 panic，两个实例各占一个 bean 名称
	host := builder.Build(factory)
	assert.Len(t, host.controllerNames, 2)
}

func TestHost_ControllerWithoutInterface(t *testing.T) {
	logger := newTestLogger()
	factory := beans.NewBeanFactory()

	builder := NewBuilder(logger)
	builder.AddControllers(func() *DepService {
		return &DepService{}
	})

	host := builder.Build(factory)
	err := host.mapControllers()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "does not implement")
}
