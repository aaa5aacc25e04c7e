package etcd

import (
	"context"
	"fmt"
	"reflect"

	etcdcfg "github.com/gocrud/ioc/configure/etcd"
	"github.com/gocrud/ioc/core"
)

// BuilderOption 用于配置 Etcd Builder
type BuilderOption func(*etcdcfg.Builder)

// WithClient 添加 Etcd 客户端配置
func WithClient(name string, opts ...func(*etcdcfg.EtcdClientOptions)) BuilderOption {
	return func(b *etcdcfg.Builder) {
		var configure func(*etcdcfg.EtcdClientOptions)
		if len(opts) > 0 {
			configure = func(o *etcdcfg.EtcdClientOptions) {
				for _, opt := range opts {
					opt(o)
				}
			}
		}
		b.AddClient(name, configure)
	}
}

// New 启用 Etcd 能力
// 工厂注册为 "etcd.factory"，各客户端注册为 "etcd.<name>"，
// 名为 "default" 的客户端同时参与按类型自动装配
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		builder := etcdcfg.NewBuilder(nil)
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

		if err := rt.ProvideValue("etcd.factory", factory); err != nil {
			return err
		}

		for _, name := range factory.Names() {
			client, err := factory.Get(name)
			if err != nil {
				return fmt.Errorf("etcd: failed to register instance '%s': %w", name, err)
			}
			if err := rt.ProvideValue("etcd."+name, client); err != nil {
				return err
			}
			if name == "default" {
				rt.Container.RegisterResolvableDependency(reflect.TypeOf(client), client)
			}
		}

		rt.Lifecycle.OnStop(func(ctx context.Context) error {
			rt.Logger.Info("Closing etcd clients")
			return factory.Close()
		})

		return nil
	}
}
