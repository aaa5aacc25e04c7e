package config

import (
	"testing"
)

func newTestConfiguration(t *testing.T) Configuration {
	t.Helper()
	builder := NewConfigurationBuilder()
	builder.AddInMemory(map[string]any{
		"server": map[string]any{
			"host": "localhost",
			"port": 8080,
		},
		"app": map[string]any{
			"name": "demo",
		},
	})
	cfg, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return cfg
}

func TestPlaceholderResolver(t *testing.T) {
	resolve := PlaceholderResolver(newTestConfiguration(t))

	got, err := resolve("${server.host}:${server.port}")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got != "localhost:8080" {
		t.Errorf("got %q", got)
	}

	// 普通字符串原样返回
	got, err = resolve("no placeholders here")
	if err != nil || got != "no placeholders here" {
		t.Errorf("got %q err %v", got, err)
	}
}

func TestPlaceholderDefault(t *testing.T) {
	resolve := PlaceholderResolver(newTestConfiguration(t))

	got, err := resolve("${server.scheme:https}")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got != "https" {
		t.Errorf("got %q, want default https", got)
	}

	if _, err := resolve("${server.scheme}"); err == nil {
		t.Error("expected error for missing key without default")
	}
}

func TestBuilderSourcePrecedence(t *testing.T) {
	builder := NewConfigurationBuilder()
	builder.AddInMemory(map[string]any{
		"server": map[string]any{"host": "first", "port": 1},
	})
	builder.AddInMemory(map[string]any{
		"server": map[string]any{"host": "second"},
	})

	cfg, err := builder.Build()
	if err != nil {
		t.Fatal(err)
	}
	// 后加入的源覆盖同名键，未覆盖的键保留
	if got := cfg.Get("server:host"); got != "second" {
		t.Errorf("host = %q", got)
	}
	if port, err := cfg.GetInt("server.port"); err != nil || port != 1 {
		t.Errorf("port = %d err %v", port, err)
	}
}

func TestReloadableConfiguration(t *testing.T) {
	data := map[string]any{"app": map[string]any{"name": "v1"}}
	builder := NewConfigurationBuilder()
	builder.AddInMemory(data)

	cfg, err := builder.BuildReloadable()
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Get("app:name"); got != "v1" {
		t.Fatalf("name = %q", got)
	}

	notified := false
	cfg.OnReload(func() { notified = true })

	// 修改底层数据后重载
	data["app"].(map[string]any)["name"] = "v2"
	if err := cfg.Reload(); err != nil {
		t.Fatal(err)
	}
	if got := cfg.Get("app:name"); got != "v2" {
		t.Errorf("after reload name = %q", got)
	}
	if !notified {
		t.Error("reload callback not invoked")
	}
}

func TestBindSection(t *testing.T) {
	type ServerSettings struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	}

	cfg := newTestConfiguration(t)
	var settings ServerSettings
	if err := cfg.Bind("server", &settings); err != nil {
		t.Fatal(err)
	}
	if settings.Host != "localhost" || settings.Port != 8080 {
		t.Errorf("settings = %+v", settings)
	}

	helper, err := Load[ServerSettings](cfg, "server")
	if err != nil {
		t.Fatal(err)
	}
	if helper.Port != 8080 {
		t.Errorf("helper = %+v", helper)
	}
}

func TestGetSection(t *testing.T) {
	cfg := newTestConfiguration(t)
	section := cfg.GetSection("server")
	if got := section.Get("host"); got != "localhost" {
		t.Errorf("section host = %q", got)
	}
	// 不存在的节返回空配置
	empty := cfg.GetSection("nothing")
	if got := empty.Get("x"); got != "" {
		t.Errorf("empty section returned %q", got)
	}
}
