package web

import (
	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/logging"
)

// Configure 返回 Web 配置器
// 使用示例: builder.Configure(web.Configure(func(b *web.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder(ctx.GetLogger().WithCategory("WebHost"))
		if options != nil {
			options(builder)
		}

		// 构建 Web Host，控制器注册到容器以便解析依赖
		webHost := builder.Build(ctx.Factory())

		// 引擎作为命名单例暴露，便于其他配置器追加路由
		if err := ctx.RegisterSingleton("web.engine", builder.Engine()); err != nil {
			ctx.GetLogger().Warn("Failed to register web engine",
				logging.Field{Key: "error", Value: err.Error()})
		}

		// 直接添加到托管服务列表
		ctx.AddHostedService(webHost)

		ctx.GetLogger().Info("Web host configured",
			logging.Field{Key: "port", Value: webHost.port})
	}
}
