package config

import (
	"sync"
)

// ReloadableConfiguration 可重载的配置。
// 读取走 ValueStore 的原子快照，无锁；Reload 重新加载
// 全部配置源并整体替换快照，随后按注册顺序通知回调。
type ReloadableConfiguration struct {
	builder *ConfigurationBuilder
	store   *ValueStore

	mu        sync.Mutex
	callbacks []func()
}

// Reload 重新加载全部配置源并替换当前快照
func (c *ReloadableConfiguration) Reload() error {
	data, err := c.builder.loadAll()
	if err != nil {
		return err
	}
	c.store.Store(data)

	c.mu.Lock()
	callbacks := append(([]func())(nil), c.callbacks...)
	c.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
	return nil
}

// OnReload 注册配置重载回调
func (c *ReloadableConfiguration) OnReload(callback func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, callback)
}

func (c *ReloadableConfiguration) Get(key string) string {
	return stringify(lookupPath(c.store.Load(), key))
}

func (c *ReloadableConfiguration) GetWithDefault(key, defaultValue string) string {
	value := c.Get(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func (c *ReloadableConfiguration) GetInt(key string) (int, error) {
	return toInt(key, lookupPath(c.store.Load(), key))
}

func (c *ReloadableConfiguration) GetBool(key string) (bool, error) {
	return toBool(key, lookupPath(c.store.Load(), key))
}

func (c *ReloadableConfiguration) GetSection(key string) Configuration {
	if m, ok := lookupPath(c.store.Load(), key).(map[string]any); ok {
		return &configuration{data: m}
	}
	return &configuration{data: make(map[string]any)}
}

func (c *ReloadableConfiguration) Bind(key string, target any) error {
	return bindValue(c.store.Load(), key, target)
}

func (c *ReloadableConfiguration) GetAll() map[string]any {
	result := make(map[string]any)
	mergeMaps(result, c.store.Load())
	return result
}
