package web

import (
	webcfg "github.com/gocrud/ioc/configure/web"
	"github.com/gocrud/ioc/core"
)

// BuilderOption 用于配置 Web Builder
type BuilderOption func(*webcfg.Builder)

// WithPort 设置端口
func WithPort(port int) BuilderOption {
	return func(b *webcfg.Builder) {
		b.UsePort(port)
	}
}

// WithControllers 添加控制器
func WithControllers(controllers ...any) BuilderOption {
	return func(b *webcfg.Builder) {
		b.AddControllers(controllers...)
	}
}

// WithConfigure 直接访问底层 Builder（路由、中间件、静态文件等）
func WithConfigure(configure func(*webcfg.Builder)) BuilderOption {
	return BuilderOption(configure)
}

// New 启用 Web 能力
// 引擎注册为 "web.engine"，主机作为托管服务伴随应用生命周期
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		builder := webcfg.NewBuilder(rt.Logger.WithCategory("WebHost"))
		for _, opt := range opts {
			opt(builder)
		}

		// 注册为 Feature，便于其他 Option 继续定制
		rt.Features.Set(builder)

		if err := rt.ProvideValue("web.engine", builder.Engine()); err != nil {
			return err
		}

		// 控制器定义必须在容器冻结前注册，这里立即构建主机
		host := builder.Build(rt.Container)
		if err := rt.ProvideValue("web.host", host); err != nil {
			return err
		}

		return core.WithHostedService("web.host", nil)(rt)
	}
}
