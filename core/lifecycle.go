package core

import (
	"context"

	"github.com/gocrud/ioc/logging"
)

// LifecycleEvents 管理应用程序的生命周期钩子
type LifecycleEvents struct {
	logger  logging.Logger
	onStart []func(context.Context) error
	onStop  []func(context.Context) error
}

// NewLifecycle 创建新的生命周期管理器
func NewLifecycle(logger logging.Logger) *LifecycleEvents {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &LifecycleEvents{logger: logger}
}

// OnStart 注册启动钩子
func (l *LifecycleEvents) OnStart(fn func(context.Context) error) {
	l.onStart = append(l.onStart, fn)
}

// OnStop 注册停止钩子
func (l *LifecycleEvents) OnStop(fn func(context.Context) error) {
	l.onStop = append(l.onStop, fn)
}

// Start 按注册顺序执行启动钩子，遇错即停
func (l *LifecycleEvents) Start(ctx context.Context) error {
	for _, fn := range l.onStart {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stop 倒序执行停止钩子，记录错误但不中断
func (l *LifecycleEvents) Stop(ctx context.Context) error {
	for i := len(l.onStop) - 1; i >= 0; i-- {
		if err := l.onStop[i](ctx); err != nil {
			l.logger.Error("Lifecycle stop hook failed",
				logging.Field{Key: "error", Value: err.Error()})
		}
	}
	return nil
}
