package beans

import (
	"reflect"
)

// 内置作用域名称。内置作用域不通过 RegisterScope 注册。
const (
	// ScopeSingleton 整个工厂生命周期内共享一个实例（默认）。
	ScopeSingleton = "singleton"
	// ScopePrototype 每次请求创建一个新实例，工厂不缓存、不负责销毁。
	ScopePrototype = "prototype"
)

// Role 标识定义在应用中的角色，仅作信息用途，不影响解析行为。
type Role int

const (
	// RoleApplication 应用主体部分的 bean（默认）。
	RoleApplication Role = iota
	// RoleSupport 较大配置单元的支撑性 bean。
	RoleSupport
	// RoleInfrastructure 完全由框架内部使用的 bean。
	RoleInfrastructure
)

// RuntimeBeanReference 表示对另一个 bean 的按名引用。
// 出现在属性值或构造参数中时，解析阶段会替换为目标 bean 实例。
type RuntimeBeanReference struct {
	Name string
}

// RefTo 创建按名引用。
func RefTo(name string) RuntimeBeanReference {
	return RuntimeBeanReference{Name: name}
}

// PropertyValue 单个属性值。
type PropertyValue struct {
	Name  string
	Value any
}

// PropertyValues 有序的属性值集合。按添加顺序保存，同名覆盖。
type PropertyValues struct {
	values []PropertyValue
}

// NewPropertyValues 创建属性值集合。
func NewPropertyValues() *PropertyValues {
	return &PropertyValues{}
}

// Add 添加或覆盖一个属性值，返回自身以支持链式调用。
func (pvs *PropertyValues) Add(name string, value any) *PropertyValues {
	for i := range pvs.values {
		if pvs.values[i].Name == name {
			pvs.values[i].Value = value
			return pvs
		}
	}
	pvs.values = append(pvs.values, PropertyValue{Name: name, Value: value})
	return pvs
}

// Get 获取属性值。
func (pvs *PropertyValues) Get(name string) (any, bool) {
	for i := range pvs.values {
		if pvs.values[i].Name == name {
			return pvs.values[i].Value, true
		}
	}
	return nil, false
}

// Contains 判断是否包含指定属性。
func (pvs *PropertyValues) Contains(name string) bool {
	_, ok := pvs.Get(name)
	return ok
}

// Values 返回属性值切片的副本。
func (pvs *PropertyValues) Values() []PropertyValue {
	out := make([]PropertyValue, len(pvs.values))
	copy(out, pvs.values)
	return out
}

// Len 返回属性数量。
func (pvs *PropertyValues) Len() int {
	return len(pvs.values)
}

// clone 深拷贝集合结构（值本身浅拷贝）。
func (pvs *PropertyValues) clone() *PropertyValues {
	out := &PropertyValues{values: make([]PropertyValue, len(pvs.values))}
	copy(out.values, pvs.values)
	return out
}

// mergeFrom 将 child 的条目并入当前集合，键冲突时 child 优先。
func (pvs *PropertyValues) mergeFrom(child *PropertyValues) {
	if child == nil {
		return
	}
	for _, pv := range child.values {
		pvs.Add(pv.Name, pv.Value)
	}
}

// ValueHolder 构造参数值，可携带期望类型用于转换。
type ValueHolder struct {
	Value any
	Type  reflect.Type
}

// ConstructorArgumentValues 构造参数集合：支持按位置索引和通用（按类型匹配）两种方式。
type ConstructorArgumentValues struct {
	indexed map[int]ValueHolder
	generic []ValueHolder
}

// NewConstructorArgumentValues 创建构造参数集合。
func NewConstructorArgumentValues() *ConstructorArgumentValues {
	return &ConstructorArgumentValues{}
}

// AddIndexed 添加指定位置的构造参数。
func (cas *ConstructorArgumentValues) AddIndexed(index int, value any) *ConstructorArgumentValues {
	if cas.indexed == nil {
		cas.indexed = make(map[int]ValueHolder)
	}
	cas.indexed[index] = ValueHolder{Value: value}
	return cas
}

// AddGeneric 添加一个按类型匹配的构造参数。
func (cas *ConstructorArgumentValues) AddGeneric(value any) *ConstructorArgumentValues {
	cas.generic = append(cas.generic, ValueHolder{Value: value})
	return cas
}

// GetIndexed 获取指定位置的构造参数。
func (cas *ConstructorArgumentValues) GetIndexed(index int) (ValueHolder, bool) {
	vh, ok := cas.indexed[index]
	return vh, ok
}

// GetGeneric 按可赋值类型取出一个通用参数（不消费）。
func (cas *ConstructorArgumentValues) GetGeneric(target reflect.Type) (ValueHolder, bool) {
	for _, vh := range cas.generic {
		if vh.Value == nil {
			continue
		}
		if _, isRef := vh.Value.(RuntimeBeanReference); isRef {
			continue
		}
		if reflect.TypeOf(vh.Value).AssignableTo(target) {
			return vh, true
		}
	}
	return ValueHolder{}, false
}

// Len 返回参数总数。
func (cas *ConstructorArgumentValues) Len() int {
	return len(cas.indexed) + len(cas.generic)
}

func (cas *ConstructorArgumentValues) clone() *ConstructorArgumentValues {
	out := NewConstructorArgumentValues()
	if len(cas.indexed) > 0 {
		out.indexed = make(map[int]ValueHolder, len(cas.indexed))
		for i, vh := range cas.indexed {
			out.indexed[i] = vh
		}
	}
	out.generic = append(out.generic, cas.generic...)
	return out
}

// mergeFrom 将 child 的参数并入，位置冲突时 child 优先。
func (cas *ConstructorArgumentValues) mergeFrom(child *ConstructorArgumentValues) {
	if child == nil {
		return
	}
	for i, vh := range child.indexed {
		if cas.indexed == nil {
			cas.indexed = make(map[int]ValueHolder)
		}
		cas.indexed[i] = vh
	}
	cas.generic = append(cas.generic, child.generic...)
}

// BeanDefinition 描述如何构造和配置一个 bean。
// 名称由注册表持有：同一个定义可以在不同工厂层级下以不同名称注册。
// 定义在工厂冻结前可变，冻结后禁止结构性修改（实例仍可从冻结快照创建）。
type BeanDefinition struct {
	AttributeAccessor

	// ParentName 父定义名称，用于定义继承（可选）。
	ParentName string

	// Type bean 的类型标识。可以为 nil，此时类型从 Factory 的返回值推断。
	Type reflect.Type

	// Factory 构造函数。由实例化策略调用，参数通过构造参数集合
	// 和依赖解析器解析。签名形如 func(deps...) (T, error?)。
	Factory any

	// FactoryBeanName + FactoryMethodName 备选构造路径：
	// 调用另一个 bean 上的指定方法来产生实例。
	FactoryBeanName   string
	FactoryMethodName string

	// Scope 作用域名称，空值等同于 singleton。
	Scope string

	// LazyInit 延迟初始化：PreInstantiateSingletons 跳过此定义。
	LazyInit bool

	// DependsOn 必须先于本 bean 完成初始化的 bean 名称（有序）。
	DependsOn []string

	// AutowireCandidate 是否参与按类型自动装配（默认 true）。
	AutowireCandidate bool

	// Primary 多候选裁决时优先胜出。
	Primary bool

	// Qualifier 显式限定符，用于多候选裁决。
	Qualifier string

	// Role 定义角色，仅作信息用途。
	Role Role

	// Abstract 抽象定义只能作为父模板，不能被实例化。
	Abstract bool

	// ConstructorArgs 构造参数。
	ConstructorArgs *ConstructorArgumentValues

	// Properties 属性值，实例化后填充到实例字段。
	Properties *PropertyValues

	// originating 装饰链的原始定义回指。
	originating *BeanDefinition
}

// NewBeanDefinition 创建一个定义。typ 可以为 nil（由 Factory 推断类型）。
func NewBeanDefinition(typ reflect.Type) *BeanDefinition {
	return &BeanDefinition{
		Type:              typ,
		AutowireCandidate: true,
		ConstructorArgs:   NewConstructorArgumentValues(),
		Properties:        NewPropertyValues(),
	}
}

// NewBeanDefinitionFor 按 T 创建定义的泛型辅助。
func NewBeanDefinitionFor[T any]() *BeanDefinition {
	return NewBeanDefinition(reflect.TypeOf((*T)(nil)).Elem())
}

// ScopeName 返回生效的作用域名称（空值归一为 singleton）。
func (d *BeanDefinition) ScopeName() string {
	if d.Scope == "" {
		return ScopeSingleton
	}
	return d.Scope
}

// IsSingleton 判断是否为单例作用域。
func (d *BeanDefinition) IsSingleton() bool {
	return d.ScopeName() == ScopeSingleton
}

// IsPrototype 判断是否为原型作用域。
func (d *BeanDefinition) IsPrototype() bool {
	return d.ScopeName() == ScopePrototype
}

// SetOriginatingDefinition 设置装饰链中被包装的原始定义。
func (d *BeanDefinition) SetOriginatingDefinition(origin *BeanDefinition) {
	d.originating = origin
}

// OriginatingDefinition 返回装饰链末端的原始定义。
// 链的遍历带有环检测：自引用链在第一次重复时终止。
func (d *BeanDefinition) OriginatingDefinition() *BeanDefinition {
	if d.originating == nil {
		return nil
	}
	seen := map[*BeanDefinition]struct{}{d: {}}
	cur := d.originating
	for cur.originating != nil {
		if _, dup := seen[cur]; dup {
			break
		}
		seen[cur] = struct{}{}
		cur = cur.originating
	}
	return cur
}

// Clone 返回定义的防御性拷贝。集合做结构拷贝，属性值本身浅拷贝。
func (d *BeanDefinition) Clone() *BeanDefinition {
	out := &BeanDefinition{
		ParentName:        d.ParentName,
		Type:              d.Type,
		Factory:           d.Factory,
		FactoryBeanName:   d.FactoryBeanName,
		FactoryMethodName: d.FactoryMethodName,
		Scope:             d.Scope,
		LazyInit:          d.LazyInit,
		AutowireCandidate: d.AutowireCandidate,
		Primary:           d.Primary,
		Qualifier:         d.Qualifier,
		Role:              d.Role,
		Abstract:          d.Abstract,
		originating:       d.originating,
	}
	if len(d.DependsOn) > 0 {
		out.DependsOn = append([]string(nil), d.DependsOn...)
	}
	if d.ConstructorArgs != nil {
		out.ConstructorArgs = d.ConstructorArgs.clone()
	} else {
		out.ConstructorArgs = NewConstructorArgumentValues()
	}
	if d.Properties != nil {
		out.Properties = d.Properties.clone()
	} else {
		out.Properties = NewPropertyValues()
	}
	out.copyAttributesFrom(&d.AttributeAccessor)
	return out
}

// Validate 检查定义自身的结构合法性。
func (d *BeanDefinition) Validate() error {
	if d.FactoryMethodName != "" && d.Factory != nil {
		return &BeanDefinitionStoreError{Message: "不能同时指定 Factory 和 FactoryMethodName"}
	}
	if d.Factory != nil {
		if reflect.TypeOf(d.Factory).Kind() != reflect.Func {
			return &BeanDefinitionStoreError{Message: "Factory 必须是函数"}
		}
	}
	return nil
}
