package cron

import (
	"reflect"

	"github.com/gocrud/ioc/beans"
	croncfg "github.com/gocrud/ioc/configure/cron"
	"github.com/gocrud/ioc/core"
)

// BuilderOption 用于配置 Cron Builder
type BuilderOption func(*croncfg.Builder)

// WithSeconds 启用秒级精度
func WithSeconds() BuilderOption {
	return func(b *croncfg.Builder) {
		b.WithSeconds()
	}
}

// WithLocation 设置时区
func WithLocation(location string) BuilderOption {
	return func(b *croncfg.Builder) {
		b.WithLocation(location)
	}
}

// EnableCronLogger 启用 cron 库的内部调度日志
func EnableCronLogger() BuilderOption {
	return func(b *croncfg.Builder) {
		b.EnableCronLogger()
	}
}

// AddJob 添加任务
// handler 为 func() 时直接注册，否则参数从容器解析
func AddJob(spec, name string, handler any) BuilderOption {
	return func(b *croncfg.Builder) {
		b.AddJobWithDI(spec, name, handler)
	}
}

// containerResolver 把 bean 工厂适配为任务参数解析器
type containerResolver struct {
	factory *beans.BeanFactory
}

func (r containerResolver) ResolveService(serviceType reflect.Type) (any, error) {
	return r.factory.ResolveDependency(beans.DependencyDescriptor{
		Type:     serviceType,
		Required: true,
	})
}

// New 启用 Cron 能力
// 调度器注册为 "cron.service" 并作为托管服务伴随应用生命周期
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		builder := croncfg.NewBuilder()
		for _, opt := range opts {
			opt(builder)
		}

		svc, err := builder.Build(containerResolver{factory: rt.Container}, rt.Logger.WithCategory("Cron"))
		if err != nil {
			return err
		}

		if err := rt.ProvideValue("cron.service", svc); err != nil {
			return err
		}

		return core.WithHostedService("cron.service", nil)(rt)
	}
}
