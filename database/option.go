package database

import (
	"context"
	"fmt"
	"reflect"

	dbcfg "github.com/gocrud/ioc/configure/database"
	"github.com/gocrud/ioc/core"
	"gorm.io/gorm"
)

// BuilderOption 用于配置 Database Builder
type BuilderOption func(*dbcfg.Builder)

// WithDatabase 添加数据库配置
func WithDatabase(name string, dialector gorm.Dialector, opts ...func(*dbcfg.DatabaseOptions)) BuilderOption {
	return func(b *dbcfg.Builder) {
		var configure func(*dbcfg.DatabaseOptions)
		if len(opts) > 0 {
			configure = func(o *dbcfg.DatabaseOptions) {
				for _, opt := range opts {
					opt(o)
				}
			}
		}
		b.Add(name, dialector, configure)
	}
}

// New 启用数据库能力
// 工厂注册为 "database.factory"，各实例注册为 "database.<name>"，
// 名为 "default" 的实例同时参与按类型自动装配
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		builder := dbcfg.NewBuilder(nil)
		for _, opt := range opts {
			opt(builder)
		}

		factory, err := builder.Build(rt.Logger)
		if err != nil {
			return err
		}
		if factory == nil {
			return nil
		}

		if err := rt.ProvideValue("database.factory", factory); err != nil {
			return err
		}

		var regErr error
		factory.Each(func(name string, db *gorm.DB) {
			if err := rt.ProvideValue("database."+name, db); err != nil {
				regErr = fmt.Errorf("database: failed to register instance '%s': %w", name, err)
				return
			}
			if name == "default" {
				rt.Container.RegisterResolvableDependency(reflect.TypeOf(db), db)
			}
		})
		if regErr != nil {
			return regErr
		}

		rt.Lifecycle.OnStop(func(ctx context.Context) error {
			rt.Logger.Info("Closing database connections")
			return factory.Close()
		})

		return nil
	}
}
