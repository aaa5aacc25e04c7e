package mongodb

import (
	"reflect"

	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/logging"
	"github.com/gocrud/mgo"
)

// Configure 返回 MongoDB 配置器
// 工厂注册为 "mongo.factory"，每个客户端注册为 "mongo.<name>"，
// 名为 "default" 的客户端同时按 *mgo.Client 类型参与自动装配。
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder(ctx)
		if options != nil {
			options(builder)
		}

		factory, err := builder.Build(ctx.GetLogger())
		if err != nil {
			ctx.GetLogger().Fatal("Failed to build mongodb clients",
				logging.Field{Key: "error", Value: err.Error()})
		}
		if factory == nil {
			return
		}

		if err := ctx.RegisterSingleton("mongo.factory", factory); err != nil {
			ctx.GetLogger().Fatal("Failed to register mongo factory",
				logging.Field{Key: "error", Value: err.Error()})
		}

		factory.Each(func(name string, client *mgo.Client) {
			if err := ctx.RegisterSingleton("mongo."+name, client); err != nil {
				ctx.GetLogger().Fatal("Failed to register mongo client",
					logging.Field{Key: "name", Value: name},
					logging.Field{Key: "error", Value: err.Error()})
			}
			ctx.GetLogger().Info("Mongo client registered",
				logging.Field{Key: "name", Value: name})

			if name == "default" {
				ctx.Factory().RegisterResolvableDependency(reflect.TypeOf(client), client)
				ctx.GetLogger().Info("Default mongo client available for autowiring")
			}
		})

		ctx.SetCleanup("mongodb", func() {
			ctx.GetLogger().Info("Closing mongo clients")
			if err := factory.Close(); err != nil {
				ctx.GetLogger().Error("Failed to close mongo clients",
					logging.Field{Key: "error", Value: err.Error()})
			}
		})
	}
}
