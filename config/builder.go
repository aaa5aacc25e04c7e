package config

import (
	"fmt"
	"sync"
	"time"
)

// ConfigurationBuilder 配置构建器。
// 配置源按添加顺序加载，后加入的源覆盖先加入的同名键。
type ConfigurationBuilder struct {
	sources []ConfigurationSource
	mu      sync.RWMutex
}

// NewConfigurationBuilder 创建配置构建器
func NewConfigurationBuilder() *ConfigurationBuilder {
	return &ConfigurationBuilder{
		sources: make([]ConfigurationSource, 0),
	}
}

// Add 添加配置源
func (b *ConfigurationBuilder) Add(source ConfigurationSource) *ConfigurationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources = append(b.sources, source)
	return b
}

// AddJsonFile 添加 JSON 文件配置源
func (b *ConfigurationBuilder) AddJsonFile(path string, optional ...bool) *ConfigurationBuilder {
	isOptional := len(optional) > 0 && optional[0]
	return b.Add(&JsonFileSource{Path: path, Optional: isOptional})
}

// AddYamlFile 添加 YAML 文件配置源
func (b *ConfigurationBuilder) AddYamlFile(path string, optional ...bool) *ConfigurationBuilder {
	isOptional := len(optional) > 0 && optional[0]
	return b.Add(&YamlFileSource{Path: path, Optional: isOptional})
}

// AddEnvironmentVariables 添加环境变量配置源
func (b *ConfigurationBuilder) AddEnvironmentVariables(prefix string) *ConfigurationBuilder {
	return b.Add(&EnvironmentVariableSource{Prefix: prefix})
}

// AddInMemory 添加内存配置源
func (b *ConfigurationBuilder) AddInMemory(data map[string]any) *ConfigurationBuilder {
	return b.Add(&InMemorySource{Data: data})
}

// AddEtcd 添加 etcd 配置源
func (b *ConfigurationBuilder) AddEtcd(opts EtcdOptions) *ConfigurationBuilder {
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return b.Add(&EtcdSource{Options: opts})
}

// GetSources 返回全部配置源（按添加顺序）
func (b *ConfigurationBuilder) GetSources() []ConfigurationSource {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]ConfigurationSource(nil), b.sources...)
}

// loadAll 按顺序加载并合并全部配置源
func (b *ConfigurationBuilder) loadAll() (map[string]any, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data := make(map[string]any)
	for _, source := range b.sources {
		loaded, err := source.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load config source %s: %w", source.Name(), err)
		}
		mergeMaps(data, loaded)
	}
	return data, nil
}

// Build 构建一次性配置快照
func (b *ConfigurationBuilder) Build() (Configuration, error) {
	data, err := b.loadAll()
	if err != nil {
		return nil, err
	}
	return &configuration{data: data}, nil
}

// BuildReloadable 构建可重载配置。配置源变更时调用 Reload
// 重新加载全部源并通知已注册的回调。
func (b *ConfigurationBuilder) BuildReloadable() (*ReloadableConfiguration, error) {
	data, err := b.loadAll()
	if err != nil {
		return nil, err
	}

	rc := &ReloadableConfiguration{
		builder: b,
		store:   NewValueStore(),
	}
	rc.store.Store(data)
	return rc, nil
}
