package redis

import (
	"context"
	"fmt"
	"reflect"

	rediscfg "github.com/gocrud/ioc/configure/redis"
	"github.com/gocrud/ioc/core"
)

// BuilderOption 用于配置 Redis Builder
type BuilderOption func(*rediscfg.Builder)

// WithClient 添加 Redis 客户端配置
func WithClient(name string, opts ...func(*rediscfg.ClientOptions)) BuilderOption {
	return func(b *rediscfg.Builder) {
		var configure func(*rediscfg.ClientOptions)
		if len(opts) > 0 {
			configure = func(o *rediscfg.ClientOptions) {
				for _, opt := range opts {
					opt(o)
				}
			}
		}
		b.AddClient(name, configure)
	}
}

// New 启用 Redis 能力
// 工厂注册为 "redis.factory"，各客户端注册为 "redis.<name>"，
// 名为 "default" 的客户端同时参与按类型自动装配
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		builder := rediscfg.NewBuilder()
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

		if err := rt.ProvideValue("redis.factory", factory); err != nil {
			return err
		}

		for _, name := range factory.Names() {
			client, err := factory.Get(name)
			if err != nil {
				return fmt.Errorf("redis: failed to register instance '%s': %w", name, err)
			}
			if err := rt.ProvideValue("redis."+name, client); err != nil {
				return err
			}
			if name == "default" {
				rt.Container.RegisterResolvableDependency(reflect.TypeOf(client), client)
			}
		}

		rt.Lifecycle.OnStop(func(ctx context.Context) error {
			rt.Logger.Info("Closing redis clients")
			return factory.Close()
		})

		return nil
	}
}
