package web

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/ioc/beans"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RequestTracker 请求作用域实例，记录创建和销毁次数
type RequestTracker struct {
	ID        int32
	destroyed *atomic.Int32
}

func (t *RequestTracker) Destroy() error {
	t.destroyed.Add(1)
	return nil
}

// ScopedController 在一次请求内两次解析同名 bean
type ScopedController struct{}

func (c *ScopedController) RegisterRoutes(router gin.IRouter) {
	router.GET("/scoped", func(ctx *gin.Context) {
		first, err := RequestBean[*RequestTracker](ctx, "tracker")
		if err != nil {
			ctx.String(http.StatusInternalServerError, err.Error())
			return
		}
		second, err := RequestBean[*RequestTracker](ctx, "tracker")
		if err != nil {
			ctx.String(http.StatusInternalServerError, err.Error())
			return
		}
		if first != second {
			ctx.String(http.StatusInternalServerError, "expected same instance within one request")
			return
		}
		ctx.String(http.StatusOK, fmt.Sprintf("%d", first.ID))
	})
}

func TestRequestScope(t *testing.T) {
	var created atomic.Int32
	var destroyed atomic.Int32

	factory := beans.NewBeanFactory()

	def := beans.NewBeanDefinition(nil)
	def.Factory = func() *RequestTracker {
		return &RequestTracker{ID: created.Add(1), destroyed: &destroyed}
	}

	builder := NewBuilder(newTestLogger())
	builder.AddRequestScoped("tracker", def)
	builder.AddControllers(&ScopedController{})

	host := builder.Build(factory)
	require.NoError(t, host.mapControllers())

	// 同一请求内共享实例，不同请求各自创建
	w1 := httptest.NewRecorder()
	req1, _ := http.NewRequest("GET", "/scoped", nil)
	host.engine.ServeHTTP(w1, req1)
	require.Equal(t, http.StatusOK, w1.Code, w1.Body.String())
	assert.Equal(t, "1", w1.Body.String())

	w2 := httptest.NewRecorder()
	req2, _ := http.NewRequest("GET", "/scoped", nil)
	host.engine.ServeHTTP(w2, req2)
	require.Equal(t, http.StatusOK, w2.Code, w2.Body.String())
	assert.Equal(t, "2", w2.Body.String())

	// 请求结束时触发销毁回调
	assert.Equal(t, int32(2), created.Load())
	assert.Equal(t, int32(2), destroyed.Load())
}

func TestRequestScopeRemove(t *testing.T) {
	scope := NewRequestScope()

	inst, err := scope.Get("a", func() (any, error) { return "value", nil })
	require.NoError(t, err)
	assert.Equal(t, "value", inst)

	var fired bool
	scope.RegisterDestructionCallback("a", func() { fired = true })

	removed, ok := scope.Remove("a")
	assert.True(t, ok)
	assert.Equal(t, "value", removed)

	// 移除后的实例不再触发销毁回调
	scope.End()
	assert.False(t, fired)

	_, ok = scope.Remove("missing")
	assert.False(t, ok)
}

func TestFactoryFromContextMissing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := FactoryFromContext(c)
	assert.False(t, ok)
}
