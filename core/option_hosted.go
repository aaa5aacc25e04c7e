package core

import (
	"context"
	"fmt"

	"github.com/gocrud/ioc/beans"
	"github.com/gocrud/ioc/hosting"
)

// WithHostedService 注册一个托管服务
// 构造函数的返回值必须实现 hosting.HostedService 接口。
// constructor 为 nil 时假定同名 bean 已经注册。
// 框架会在 OnStart 时启动 Goroutine 调用 Start，在 OnStop 时调用 Stop。
func WithHostedService(name string, constructor any) Option {
	return func(rt *Runtime) error {
		if constructor != nil {
			def := beans.NewBeanDefinition(nil)
			def.Factory = constructor
			if err := rt.Container.RegisterBeanDefinition(name, def); err != nil {
				return fmt.Errorf("WithHostedService: failed to register %q: %w", name, err)
			}
		}

		var serviceCtx context.Context
		var serviceCancel context.CancelFunc

		rt.Lifecycle.OnStart(func(ctx context.Context) error {
			val, err := rt.Container.GetBean(name)
			if err != nil {
				return fmt.Errorf("failed to resolve hosted service %q: %w", name, err)
			}
			svc, ok := val.(hosting.HostedService)
			if !ok {
				return fmt.Errorf("bean %q does not implement hosting.HostedService", name)
			}

			// 服务上下文的生命周期伴随应用运行
			serviceCtx, serviceCancel = context.WithCancel(context.Background())

			// 异步调用 Start，允许 Start 方法阻塞
			go func() {
				if err := svc.Start(serviceCtx); err != nil {
					if rt.ErrorHandler != nil {
						rt.ErrorHandler(fmt.Errorf("hosted service %q exited with error: %w", name, err))
					}
					// 触发应用退出 (Fail Fast)
					rt.Shutdown()
				}
			}()
			return nil
		})

		rt.Lifecycle.OnStop(func(ctx context.Context) error {
			if serviceCancel != nil {
				serviceCancel()
			}
			val, err := rt.Container.GetBean(name)
			if err != nil {
				return nil
			}
			if svc, ok := val.(hosting.HostedService); ok {
				return svc.Stop(ctx)
			}
			return nil
		})

		return nil
	}
}

// WorkerFunc 定义简单的后台任务函数
// 这是一个阻塞函数，通过 ctx.Done() 判断退出。
type WorkerFunc func(ctx context.Context) error

// WithWorker 将一个阻塞的函数注册为后台服务
// 框架会自动将其适配为托管服务 (异步启动，Cancel 停止)
func WithWorker(fn WorkerFunc) Option {
	return func(rt *Runtime) error {
		var workerCtx context.Context
		var workerCancel context.CancelFunc

		rt.Lifecycle.OnStart(func(ctx context.Context) error {
			workerCtx, workerCancel = context.WithCancel(context.Background())

			go func() {
				if err := fn(workerCtx); err != nil {
					if rt.ErrorHandler != nil {
						rt.ErrorHandler(fmt.Errorf("worker exited with error: %w", err))
					}
					rt.Shutdown()
				}
			}()
			return nil
		})

		rt.Lifecycle.OnStop(func(ctx context.Context) error {
			if workerCancel != nil {
				workerCancel()
			}
			return nil
		})

		return nil
	}
}
