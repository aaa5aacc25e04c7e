package database

import (
	"reflect"

	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/logging"
	"gorm.io/gorm"
)

// Configure 返回数据库配置器
// 工厂注册为 "database.factory"，每个实例注册为 "database.<name>"，
// 名为 "default" 的实例同时按 *gorm.DB 类型参与自动装配。
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder(ctx)
		if options != nil {
			options(builder)
		}

		factory, err := builder.Build(ctx.GetLogger())
		if err != nil {
			ctx.GetLogger().Fatal("Failed to build databases",
				logging.Field{Key: "error", Value: err.Error()})
		}
		if factory == nil {
			return
		}

		if err := ctx.RegisterSingleton("database.factory", factory); err != nil {
			ctx.GetLogger().Fatal("Failed to register database factory",
				logging.Field{Key: "error", Value: err.Error()})
		}

		factory.Each(func(name string, db *gorm.DB) {
			if err := ctx.RegisterSingleton("database."+name, db); err != nil {
				ctx.GetLogger().Fatal("Failed to register database",
					logging.Field{Key: "name", Value: name},
					logging.Field{Key: "error", Value: err.Error()})
			}
			ctx.GetLogger().Info("Database registered",
				logging.Field{Key: "name", Value: name})

			if name == "default" {
				ctx.Factory().RegisterResolvableDependency(reflect.TypeOf(db), db)
				ctx.GetLogger().Info("Default database available for autowiring")
			}
		})

		ctx.SetCleanup("database", func() {
			ctx.GetLogger().Info("Closing database connections")
			if err := factory.Close(); err != nil {
				ctx.GetLogger().Error("Failed to close databases",
					logging.Field{Key: "error", Value: err.Error()})
			}
		})
	}
}
