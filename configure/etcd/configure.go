package etcd

import (
	"reflect"

	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/logging"
)

// Configure 返回 Etcd 配置器
// 工厂注册为 "etcd.factory"，每个客户端注册为 "etcd.<name>"，
// 名为 "default" 的客户端同时按 *clientv3.Client 类型参与自动装配。
// 使用示例: builder.Configure(etcd.Configure(func(b *etcd.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder(ctx)
		if options != nil {
			options(builder)
		}

		factory, err := builder.Build(ctx.GetLogger())
		if err != nil {
			ctx.GetLogger().Fatal("Failed to build etcd clients",
				logging.Field{Key: "error", Value: err.Error()})
		}
		if factory == nil {
			return
		}

		if err := ctx.RegisterSingleton("etcd.factory", factory); err != nil {
			ctx.GetLogger().Fatal("Failed to register etcd factory",
				logging.Field{Key: "error", Value: err.Error()})
		}

		for _, name := range factory.Names() {
			client, _ := factory.Get(name)
			if err := ctx.RegisterSingleton("etcd."+name, client); err != nil {
				ctx.GetLogger().Fatal("Failed to register etcd client",
					logging.Field{Key: "name", Value: name},
					logging.Field{Key: "error", Value: err.Error()})
			}
		}

		if defaultClient, err := factory.Get("default"); err == nil {
			ctx.Factory().RegisterResolvableDependency(reflect.TypeOf(defaultClient), defaultClient)
			ctx.GetLogger().Info("Default etcd client available for autowiring")
		}

		ctx.SetCleanup("etcd", func() {
			ctx.GetLogger().Info("Closing etcd clients")
			if err := factory.Close(); err != nil {
				ctx.GetLogger().Error("Failed to close etcd clients",
					logging.Field{Key: "error", Value: err.Error()})
			}
		})
	}
}
