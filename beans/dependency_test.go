package beans_test

import (
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/gocrud/ioc/beans"
)

// ---------------- 按类型装配测试结构 ----------------

type Notifier interface {
	Notify(msg string) error
}

type EmailNotifier struct{ Sent int }

func (n *EmailNotifier) Notify(msg string) error { n.Sent++; return nil }

type SMSNotifier struct{ Sent int }

func (n *SMSNotifier) Notify(msg string) error { n.Sent++; return nil }

var notifierType = reflect.TypeOf((*Notifier)(nil)).Elem()

func registerNotifier(t *testing.T, f *beans.BeanFactory, name string, factory any, mutate func(*beans.BeanDefinition)) {
	t.Helper()
	def := beans.NewBeanDefinition(nil)
	def.Factory = factory
	if mutate != nil {
		mutate(def)
	}
	if err := f.RegisterBeanDefinition(name, def); err != nil {
		t.Fatal(err)
	}
}

func TestResolveSingleCandidate(t *testing.T) {
	f := beans.NewBeanFactory()
	registerNotifier(t, f, "email", func() *EmailNotifier { return &EmailNotifier{} }, nil)

	got, err := f.ResolveDependency(beans.DependencyDescriptor{Type: notifierType, Required: true})
	if err != nil {
		t.Fatalf("ResolveDependency failed: %v", err)
	}
	if _, ok := got.(*EmailNotifier); !ok {
		t.Errorf("expected *EmailNotifier, got %T", got)
	}
}

func TestResolveFixedValueWins(t *testing.T) {
	f := beans.NewBeanFactory()
	registerNotifier(t, f, "email", func() *EmailNotifier { return &EmailNotifier{} }, nil)

	fixed := &SMSNotifier{}
	f.RegisterResolvableDependency(notifierType, fixed)

	got, err := f.ResolveDependency(beans.DependencyDescriptor{Type: notifierType, Required: true})
	if err != nil {
		t.Fatal(err)
	}
	if got != Notifier(fixed) {
		t.Error("fixed resolvable value must take precedence over registered beans")
	}
}

func TestResolvableAssignableDeterministic(t *testing.T) {
	f := beans.NewBeanFactory()
	email := &EmailNotifier{}
	sms := &SMSNotifier{}
	f.RegisterResolvableDependency(reflect.TypeOf(email), email)
	f.RegisterResolvableDependency(reflect.TypeOf(sms), sms)

	// 两个注册类型都可赋值给接口，按类型字符串取最小者
	for i := 0; i < 10; i++ {
		got, err := f.ResolveDependency(beans.DependencyDescriptor{Type: notifierType, Required: true})
		if err != nil {
			t.Fatal(err)
		}
		if got != Notifier(email) {
			t.Fatalf("iteration %d resolved %T, want *EmailNotifier", i, got)
		}
	}
}

func TestResolvePrimaryWins(t *testing.T) {
	f := beans.NewBeanFactory()
	registerNotifier(t, f, "email", func() *EmailNotifier { return &EmailNotifier{} }, nil)
	registerNotifier(t, f, "sms", func() *SMSNotifier { return &SMSNotifier{} }, func(d *beans.BeanDefinition) {
		d.Primary = true
	})

	got, err := f.ResolveDependency(beans.DependencyDescriptor{Type: notifierType, Required: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.(*SMSNotifier); !ok {
		t.Errorf("primary candidate should win, got %T", got)
	}
}

func TestResolveQualifier(t *testing.T) {
	f := beans.NewBeanFactory()
	registerNotifier(t, f, "email", func() *EmailNotifier { return &EmailNotifier{} }, nil)
	registerNotifier(t, f, "sms", func() *SMSNotifier { return &SMSNotifier{} }, nil)

	// 限定符匹配 bean 名称
	got, err := f.ResolveDependency(beans.DependencyDescriptor{
		Type: notifierType, Qualifier: "email", Required: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.(*EmailNotifier); !ok {
		t.Errorf("qualifier should select email, got %T", got)
	}
}

func TestResolveQualifierField(t *testing.T) {
	f := beans.NewBeanFactory()
	registerNotifier(t, f, "email", func() *EmailNotifier { return &EmailNotifier{} }, func(d *beans.BeanDefinition) {
		d.Qualifier = "reliable"
	})
	registerNotifier(t, f, "sms", func() *SMSNotifier { return &SMSNotifier{} }, nil)

	got, err := f.ResolveDependency(beans.DependencyDescriptor{
		Type: notifierType, Qualifier: "reliable", Required: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.(*EmailNotifier); !ok {
		t.Errorf("definition qualifier should select email, got %T", got)
	}
}

func TestResolveAmbiguous(t *testing.T) {
	f := beans.NewBeanFactory()
	registerNotifier(t, f, "email", func() *EmailNotifier { return &EmailNotifier{} }, nil)
	registerNotifier(t, f, "sms", func() *SMSNotifier { return &SMSNotifier{} }, nil)

	_, err := f.ResolveDependency(beans.DependencyDescriptor{Type: notifierType, Required: true})
	if err == nil {
		t.Fatal("expected ambiguity error")
	}
	if !beans.IsAmbiguousDependency(err) {
		t.Fatalf("expected AmbiguousDependencyError, got %v", err)
	}
	var ambiguous *beans.AmbiguousDependencyError
	if !errors.As(err, &ambiguous) {
		t.Fatal("AmbiguousDependencyError not in chain")
	}
	want := []string{"email", "sms"}
	got := append([]string(nil), ambiguous.Candidates...)
	sort.Strings(got)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("candidates = %v, want %v", got, want)
	}
}

func TestResolveOptionalMissing(t *testing.T) {
	f := beans.NewBeanFactory()

	got, err := f.ResolveDependency(beans.DependencyDescriptor{Type: notifierType, Required: false})
	if err != nil {
		t.Fatalf("optional miss must not error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %v", got)
	}

	_, err = f.ResolveDependency(beans.DependencyDescriptor{Type: notifierType, Required: true})
	if !beans.IsNoSuchBean(err) {
		t.Errorf("expected NoSuchBeanDefinitionError, got %v", err)
	}
}

func TestNonCandidateExcluded(t *testing.T) {
	f := beans.NewBeanFactory()
	registerNotifier(t, f, "email", func() *EmailNotifier { return &EmailNotifier{} }, nil)
	registerNotifier(t, f, "sms", func() *SMSNotifier { return &SMSNotifier{} }, func(d *beans.BeanDefinition) {
		d.AutowireCandidate = false
	})

	got, err := f.ResolveDependency(beans.DependencyDescriptor{Type: notifierType, Required: true})
	if err != nil {
		t.Fatalf("expected single candidate after exclusion: %v", err)
	}
	if _, ok := got.(*EmailNotifier); !ok {
		t.Errorf("got %T", got)
	}

	// 标记排除不影响按名获取
	if _, err := f.GetBean("sms"); err != nil {
		t.Errorf("non-candidate bean must still resolve by name: %v", err)
	}
}

func TestIgnoredTypeExcluded(t *testing.T) {
	f := beans.NewBeanFactory()
	registerNotifier(t, f, "email", func() *EmailNotifier { return &EmailNotifier{} }, nil)
	registerNotifier(t, f, "sms", func() *SMSNotifier { return &SMSNotifier{} }, nil)
	f.IgnoreDependencyType(reflect.TypeOf(&SMSNotifier{}))

	got, err := f.ResolveDependency(beans.DependencyDescriptor{Type: notifierType, Required: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.(*EmailNotifier); !ok {
		t.Errorf("ignored type should be excluded, got %T", got)
	}
}

func TestResolveFromAncestor(t *testing.T) {
	parent := beans.NewBeanFactory()
	child := beans.NewBeanFactory(beans.WithParent(parent))
	registerNotifier(t, parent, "email", func() *EmailNotifier { return &EmailNotifier{} }, nil)

	got, err := child.ResolveDependency(beans.DependencyDescriptor{Type: notifierType, Required: true})
	if err != nil {
		t.Fatalf("child should see ancestor candidates: %v", err)
	}
	if _, ok := got.(*EmailNotifier); !ok {
		t.Errorf("got %T", got)
	}
}

func TestManualSingletonAsCandidate(t *testing.T) {
	f := beans.NewBeanFactory()
	inst := &EmailNotifier{}
	if err := f.RegisterSingleton("email", inst); err != nil {
		t.Fatal(err)
	}

	got, err := f.ResolveDependency(beans.DependencyDescriptor{Type: notifierType, Required: true})
	if err != nil {
		t.Fatal(err)
	}
	if got != Notifier(inst) {
		t.Error("manual singleton should participate in type resolution")
	}
}

func TestGetBeanNamesForType(t *testing.T) {
	f := beans.NewBeanFactory()
	registerNotifier(t, f, "email", func() *EmailNotifier { return &EmailNotifier{} }, nil)
	registerNotifier(t, f, "sms", func() *SMSNotifier { return &SMSNotifier{} }, func(d *beans.BeanDefinition) {
		d.AutowireCandidate = false // 不影响枚举
	})
	registerNotifier(t, f, "greeter", NewGreeter, nil)

	names := f.GetBeanNamesForType(notifierType)
	sort.Strings(names)
	want := []string{"email", "sms"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("GetBeanNamesForType = %v, want %v", names, want)
	}
}

func TestIsAutowireCandidate(t *testing.T) {
	f := beans.NewBeanFactory()
	registerNotifier(t, f, "email", func() *EmailNotifier { return &EmailNotifier{} }, nil)
	registerNotifier(t, f, "sms", func() *SMSNotifier { return &SMSNotifier{} }, func(d *beans.BeanDefinition) {
		d.AutowireCandidate = false
	})

	ok, err := f.IsAutowireCandidate("email", beans.DependencyDescriptor{Type: notifierType})
	if err != nil || !ok {
		t.Errorf("email should be a candidate: ok=%v err=%v", ok, err)
	}
	ok, err = f.IsAutowireCandidate("sms", beans.DependencyDescriptor{Type: notifierType})
	if err != nil || ok {
		t.Errorf("sms should not be a candidate: ok=%v err=%v", ok, err)
	}
	if _, err := f.IsAutowireCandidate("missing", beans.DependencyDescriptor{Type: notifierType}); !beans.IsNoSuchBean(err) {
		t.Errorf("expected NoSuchBeanDefinitionError, got %v", err)
	}
}

func TestResolveTypeHelper(t *testing.T) {
	f := beans.NewBeanFactory()
	registerNotifier(t, f, "email", func() *EmailNotifier { return &EmailNotifier{} }, nil)

	n, err := beans.ResolveType[Notifier](f)
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Notify("hi"); err != nil {
		t.Fatal(err)
	}
}
