package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"
)

// EtcdOptions etcd 配置选项
type EtcdOptions struct {
	Endpoints   []string      // etcd 服务器地址列表
	Username    string        // 用户名（可选）
	Password    string        // 密码（可选）
	Prefix      string        // 键前缀（可选）
	Timeout     time.Duration // 读取超时时间（默认 5 秒）
	DialTimeout time.Duration // 拨号超时时间（默认 5 秒）
}

// EtcdSource etcd 配置源。键路径的 / 映射为嵌套层级，
// 值按 JSON → YAML → 原始字符串的顺序尝试解析。
type EtcdSource struct {
	Options EtcdOptions

	mu       sync.Mutex
	watchCli *clientv3.Client
	cancel   context.CancelFunc
}

func (s *EtcdSource) Name() string {
	return fmt.Sprintf("Etcd(%v)", s.Options.Endpoints)
}

func (s *EtcdSource) Load() (map[string]any, error) {
	cli, err := s.newClient()
	if err != nil {
		return nil, err
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), s.Options.Timeout)
	defer cancel()

	prefix := s.Options.Prefix
	if prefix == "" {
		prefix = "/"
	}

	resp, err := cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to get config from etcd: %w", err)
	}

	result := make(map[string]any)
	for _, kv := range resp.Kvs {
		key := s.normalizeKey(string(kv.Key))
		if key == "" {
			continue
		}
		setNestedValue(result, key, decodeEtcdValue(kv.Value))
	}
	return result, nil
}

// StartWatch 监听前缀下的键变更，每次变更触发 onChange。
func (s *EtcdSource) StartWatch(ctx context.Context, onChange func()) error {
	cli, err := s.newClient()
	if err != nil {
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.watchCli = cli
	s.cancel = cancel
	s.mu.Unlock()

	prefix := s.Options.Prefix
	if prefix == "" {
		prefix = "/"
	}

	ch := cli.Watch(watchCtx, prefix, clientv3.WithPrefix())
	go func() {
		for resp := range ch {
			if resp.Err() != nil {
				continue
			}
			if len(resp.Events) > 0 {
				onChange()
			}
		}
	}()
	return nil
}

func (s *EtcdSource) StopWatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.watchCli != nil {
		s.watchCli.Close()
		s.watchCli = nil
	}
}

func (s *EtcdSource) newClient() (*clientv3.Client, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   s.Options.Endpoints,
		Username:    s.Options.Username,
		Password:    s.Options.Password,
		DialTimeout: s.Options.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}
	return cli, nil
}

func (s *EtcdSource) normalizeKey(key string) string {
	if s.Options.Prefix != "" {
		key = strings.TrimPrefix(key, s.Options.Prefix)
	}
	key = strings.TrimPrefix(key, "/")
	return strings.ReplaceAll(key, "/", ":")
}

// decodeEtcdValue 尝试把 etcd 值解析为结构化数据
func decodeEtcdValue(raw []byte) any {
	var jsonValue any
	if err := json.Unmarshal(raw, &jsonValue); err == nil {
		return jsonValue
	}
	var yamlValue any
	if err := yaml.Unmarshal(raw, &yamlValue); err == nil {
		return yamlValue
	}
	return string(raw)
}
