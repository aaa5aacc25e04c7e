package beans_test

import (
	"testing"

	"github.com/gocrud/ioc/beans"
)

type Connection struct {
	Host    string
	Port    int
	Timeout int
}

func TestMergePropertiesUnion(t *testing.T) {
	f := beans.NewBeanFactory()

	parent := beans.NewBeanDefinitionFor[*Connection]()
	parent.Abstract = true
	parent.Properties.Add("Host", "localhost").Add("Port", 5432)
	if err := f.RegisterBeanDefinition("base", parent); err != nil {
		t.Fatal(err)
	}

	child := beans.NewBeanDefinition(nil)
	child.ParentName = "base"
	child.Properties.Add("Timeout", 10)
	if err := f.RegisterBeanDefinition("conn", child); err != nil {
		t.Fatal(err)
	}

	merged, err := f.GetMergedBeanDefinition("conn")
	if err != nil {
		t.Fatalf("GetMergedBeanDefinition failed: %v", err)
	}
	for _, want := range []struct {
		name  string
		value any
	}{
		{"Host", "localhost"}, {"Port", 5432}, {"Timeout", 10},
	} {
		got, ok := merged.Properties.Get(want.name)
		if !ok || got != want.value {
			t.Errorf("merged property %s = %v (ok=%v), want %v", want.name, got, ok, want.value)
		}
	}
	if merged.Abstract {
		t.Error("Abstract must never be inherited")
	}
	if merged.ParentName != "" {
		t.Error("merged definition must be flattened")
	}

	// 合并后的定义可直接实例化
	c, err := beans.GetBeanOf[*Connection](f, "conn")
	if err != nil {
		t.Fatal(err)
	}
	if c.Host != "localhost" || c.Port != 5432 || c.Timeout != 10 {
		t.Errorf("instance = %+v", c)
	}
}

func TestMergeChildOverridesValue(t *testing.T) {
	f := beans.NewBeanFactory()

	parent := beans.NewBeanDefinitionFor[*Connection]()
	parent.Properties.Add("Host", "localhost")
	if err := f.RegisterBeanDefinition("base", parent); err != nil {
		t.Fatal(err)
	}

	child := beans.NewBeanDefinition(nil)
	child.ParentName = "base"
	child.Properties.Add("Host", "db.internal")
	if err := f.RegisterBeanDefinition("conn", child); err != nil {
		t.Fatal(err)
	}

	merged, err := f.GetMergedBeanDefinition("conn")
	if err != nil {
		t.Fatal(err)
	}
	host, _ := merged.Properties.Get("Host")
	if host != "db.internal" {
		t.Errorf("child property should win, got %v", host)
	}
}

func TestMergeScopeOverrideOnly(t *testing.T) {
	f := beans.NewBeanFactory()

	parent := beans.NewBeanDefinition(nil)
	parent.Factory = NewGreeter
	if err := f.RegisterBeanDefinition("base", parent); err != nil {
		t.Fatal(err)
	}

	child := beans.NewBeanDefinition(nil)
	child.ParentName = "base"
	child.Scope = beans.ScopePrototype
	if err := f.RegisterBeanDefinition("proto", child); err != nil {
		t.Fatal(err)
	}

	merged, err := f.GetMergedBeanDefinition("proto")
	if err != nil {
		t.Fatal(err)
	}
	if merged.Factory == nil {
		t.Error("child should inherit the parent factory")
	}
	if !merged.IsPrototype() {
		t.Error("child scope override lost")
	}

	a, _ := f.GetBean("proto")
	b, _ := f.GetBean("proto")
	if a == b {
		t.Error("merged prototype returned the same instance")
	}
}

func TestMergeGrandparentChain(t *testing.T) {
	f := beans.NewBeanFactory()

	grand := beans.NewBeanDefinitionFor[*Connection]()
	grand.Properties.Add("Host", "localhost")
	if err := f.RegisterBeanDefinition("grand", grand); err != nil {
		t.Fatal(err)
	}

	mid := beans.NewBeanDefinition(nil)
	mid.ParentName = "grand"
	mid.Properties.Add("Port", 5432)
	if err := f.RegisterBeanDefinition("mid", mid); err != nil {
		t.Fatal(err)
	}

	leaf := beans.NewBeanDefinition(nil)
	leaf.ParentName = "mid"
	leaf.Properties.Add("Timeout", 3)
	if err := f.RegisterBeanDefinition("leaf", leaf); err != nil {
		t.Fatal(err)
	}

	merged, err := f.GetMergedBeanDefinition("leaf")
	if err != nil {
		t.Fatal(err)
	}
	if merged.Properties.Len() != 3 {
		t.Errorf("expected 3 merged properties, got %d", merged.Properties.Len())
	}
}

func TestMergeParentChainCycle(t *testing.T) {
	f := beans.NewBeanFactory()

	a := beans.NewBeanDefinition(nil)
	a.ParentName = "b"
	if err := f.RegisterBeanDefinition("a", a); err != nil {
		t.Fatal(err)
	}
	b := beans.NewBeanDefinition(nil)
	b.ParentName = "a"
	if err := f.RegisterBeanDefinition("b", b); err != nil {
		t.Fatal(err)
	}

	if _, err := f.GetMergedBeanDefinition("a"); err == nil {
		t.Error("expected error for definition inheritance cycle")
	}
}

func TestMergeParentInAncestorFactory(t *testing.T) {
	parentFactory := beans.NewBeanFactory()
	childFactory := beans.NewBeanFactory(beans.WithParent(parentFactory))

	base := beans.NewBeanDefinitionFor[*Connection]()
	base.Properties.Add("Host", "ancestor")
	if err := parentFactory.RegisterBeanDefinition("base", base); err != nil {
		t.Fatal(err)
	}

	child := beans.NewBeanDefinition(nil)
	child.ParentName = "base"
	child.Properties.Add("Port", 1)
	if err := childFactory.RegisterBeanDefinition("conn", child); err != nil {
		t.Fatal(err)
	}

	merged, err := childFactory.GetMergedBeanDefinition("conn")
	if err != nil {
		t.Fatalf("parent definition in ancestor factory: %v", err)
	}
	host, _ := merged.Properties.Get("Host")
	if host != "ancestor" {
		t.Errorf("Host = %v", host)
	}
}

func TestMergeMissingParent(t *testing.T) {
	f := beans.NewBeanFactory()

	child := beans.NewBeanDefinition(nil)
	child.ParentName = "nowhere"
	if err := f.RegisterBeanDefinition("orphan", child); err != nil {
		t.Fatal(err)
	}

	if _, err := f.GetMergedBeanDefinition("orphan"); err == nil {
		t.Error("expected error for missing parent definition")
	}
}

func TestMergeCacheInvalidation(t *testing.T) {
	f := beans.NewBeanFactory()

	parent := beans.NewBeanDefinitionFor[*Connection]()
	parent.Properties.Add("Host", "v1")
	if err := f.RegisterBeanDefinition("base", parent); err != nil {
		t.Fatal(err)
	}
	child := beans.NewBeanDefinition(nil)
	child.ParentName = "base"
	if err := f.RegisterBeanDefinition("conn", child); err != nil {
		t.Fatal(err)
	}

	first, err := f.GetMergedBeanDefinition("conn")
	if err != nil {
		t.Fatal(err)
	}
	if host, _ := first.Properties.Get("Host"); host != "v1" {
		t.Fatalf("Host = %v", host)
	}

	// 重新注册父定义后，子定义的合并缓存必须失效
	if err := f.RemoveBeanDefinition("base"); err != nil {
		t.Fatal(err)
	}
	updated := beans.NewBeanDefinitionFor[*Connection]()
	updated.Properties.Add("Host", "v2")
	if err := f.RegisterBeanDefinition("base", updated); err != nil {
		t.Fatal(err)
	}

	second, err := f.GetMergedBeanDefinition("conn")
	if err != nil {
		t.Fatal(err)
	}
	if host, _ := second.Properties.Get("Host"); host != "v2" {
		t.Errorf("stale merged definition served after parent re-registration: Host = %v", host)
	}
}
