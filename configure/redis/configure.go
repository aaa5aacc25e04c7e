package redis

import (
	"reflect"

	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/logging"
)

// Configure 返回 Redis 配置器
// 工厂注册为 "redis.factory"，每个客户端注册为 "redis.<name>"，
// 名为 "default" 的客户端同时按 *redis.Client 类型参与自动装配。
// 使用示例: builder.Configure(redis.Configure(func(b *redis.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder()
		if options != nil {
			options(builder)
		}

		factory, err := builder.Build(ctx.GetLogger())
		if err != nil {
			ctx.GetLogger().Fatal("Failed to build redis clients",
				logging.Field{Key: "error", Value: err.Error()})
		}
		if factory == nil {
			return
		}

		if err := ctx.RegisterSingleton("redis.factory", factory); err != nil {
			ctx.GetLogger().Fatal("Failed to register redis factory",
				logging.Field{Key: "error", Value: err.Error()})
		}

		for _, name := range factory.Names() {
			client, _ := factory.Get(name)
			if err := ctx.RegisterSingleton("redis."+name, client); err != nil {
				ctx.GetLogger().Fatal("Failed to register redis client",
					logging.Field{Key: "name", Value: name},
					logging.Field{Key: "error", Value: err.Error()})
			}
		}

		// 默认客户端按类型装配，避免多客户端时的歧义
		if defaultClient, err := factory.Get("default"); err == nil {
			ctx.Factory().RegisterResolvableDependency(reflect.TypeOf(defaultClient), defaultClient)
			ctx.GetLogger().Info("Default redis client available for autowiring")
		}

		ctx.SetCleanup("redis", func() {
			ctx.GetLogger().Info("Closing redis clients")
			if err := factory.Close(); err != nil {
				ctx.GetLogger().Error("Failed to close redis clients",
					logging.Field{Key: "error", Value: err.Error()})
			}
		})
	}
}
