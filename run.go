package ioc

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gocrud/ioc/core"
)

// Run 启动应用程序
// 这是基于微内核架构的入口：Option 负责注册 bean 和生命周期钩子
func Run(opts ...core.Option) error {
	rt := core.NewRuntime()

	// 1. Bootstrap (应用所有选项)
	// 这一步会配置 Feature、注册 bean、添加生命周期钩子等
	if err := rt.Apply(opts...); err != nil {
		return err
	}

	// 2. 冻结定义并预实例化全部非延迟单例
	rt.Container.FreezeConfiguration()
	if err := rt.Container.PreInstantiateSingletons(); err != nil {
		return err
	}

	// 3. Start Lifecycle (启动生命周期)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rt.Lifecycle.Start(ctx); err != nil {
		return err
	}

	// 4. 阻塞并监听退出信号
	// 支持 OS 信号 (Ctrl+C, kill) 和 Runtime 内部触发的退出 (rt.Shutdown)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case <-rt.Done():
	}

	// 5. Graceful Shutdown (优雅关闭)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	err := rt.Lifecycle.Stop(shutdownCtx)

	// 最后销毁单例，触发 DisposableBean 和销毁回调
	rt.Container.DestroySingletons()

	return err
}
