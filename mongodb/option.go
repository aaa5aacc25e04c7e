package mongodb

import (
	"context"
	"fmt"
	"reflect"

	mongocfg "github.com/gocrud/ioc/configure/mongodb"
	"github.com/gocrud/ioc/core"
	"github.com/gocrud/mgo"
)

// BuilderOption 用于配置 MongoDB Builder
type BuilderOption func(*mongocfg.Builder)

// WithClient 添加 MongoDB 客户端配置
func WithClient(name string, uri string, opts ...func(*mongocfg.MongoOptions)) BuilderOption {
	return func(b *mongocfg.Builder) {
		var configure func(*mongocfg.MongoOptions)
		if len(opts) > 0 {
			configure = func(o *mongocfg.MongoOptions) {
				for _, opt := range opts {
					opt(o)
				}
			}
		}
		b.Add(name, uri, configure)
	}
}

// New 启用 MongoDB 能力
// 工厂注册为 "mongo.factory"，各客户端注册为 "mongo.<name>"，
// 名为 "default" 的客户端同时参与按类型自动装配
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		builder := mongocfg.NewBuilder(nil)
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

		if err := rt.ProvideValue("mongo.factory", factory); err != nil {
			return err
		}

		var regErr error
		factory.Each(func(name string, client *mgo.Client) {
			if err := rt.ProvideValue("mongo."+name, client); err != nil {
				regErr = fmt.Errorf("mongodb: failed to register instance '%s': %w", name, err)
				return
			}
			if name == "default" {
				rt.Container.RegisterResolvableDependency(reflect.TypeOf(client), client)
			}
		})
		if regErr != nil {
			return regErr
		}

		rt.Lifecycle.OnStop(func(ctx context.Context) error {
			rt.Logger.Info("Closing mongo clients")
			return factory.Close()
		})

		return nil
	}
}
