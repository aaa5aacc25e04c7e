package database

import (
	"fmt"

	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/logging"
	"gorm.io/gorm"
)

// Builder 数据库配置构建器
type Builder struct {
	core.BaseBuilder
	configs []DatabaseOptions
}

// NewBuilder 创建数据库构建器
func NewBuilder(ctx *core.BuildContext) *Builder {
	return &Builder{BaseBuilder: core.NewBaseBuilder(ctx)}
}

// Add 添加一个数据库配置，配置校验推迟到 Build
func (b *Builder) Add(name string, dialector gorm.Dialector, configure func(*DatabaseOptions)) *Builder {
	opts := NewDefaultOptions(name, dialector)
	if configure != nil {
		configure(opts)
	}
	b.configs = append(b.configs, *opts)
	return b
}

// Build 打开所有数据库并返回工厂；没有任何配置时返回 nil
func (b *Builder) Build(logger logging.Logger) (*DatabaseFactory, error) {
	if len(b.configs) == 0 {
		return nil, nil
	}

	factory := NewDatabaseFactory()
	for _, opts := range b.configs {
		if err := opts.Validate(); err != nil {
			return nil, fmt.Errorf("invalid database configuration for '%s': %w", opts.Name, err)
		}
		if err := factory.Register(opts); err != nil {
			return nil, err
		}
		logger.Info("database registered",
			logging.Field{Key: "name", Value: opts.Name})
	}
	return factory, nil
}
