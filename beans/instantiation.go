package beans

import (
	"fmt"
	"reflect"
)

// InstantiationStrategy 给定合并后的定义和已解析的构造参数，产生一个原始的、
// 未初始化的实例。工厂核心自身不做反射构造，全部委托给策略。
type InstantiationStrategy interface {
	Instantiate(def *BeanDefinition, beanName string, owner *BeanFactory, args []any) (any, error)
}

// reflectiveStrategy 默认实例化策略。
// 支持三种构造路径：构造函数调用、工厂 bean 方法调用、结构体零值分配。
type reflectiveStrategy struct{}

var errType = reflect.TypeOf((*error)(nil)).Elem()

func (reflectiveStrategy) Instantiate(def *BeanDefinition, beanName string, owner *BeanFactory, args []any) (any, error) {
	if def.Factory != nil {
		return invokeConstructor(reflect.ValueOf(def.Factory), args)
	}

	if def.FactoryBeanName != "" && def.FactoryMethodName != "" {
		factoryBean, err := owner.GetBean(def.FactoryBeanName)
		if err != nil {
			return nil, fmt.Errorf("解析工厂 bean %q 失败: %w", def.FactoryBeanName, err)
		}
		method := reflect.ValueOf(factoryBean).MethodByName(def.FactoryMethodName)
		if !method.IsValid() {
			return nil, fmt.Errorf("工厂 bean %q 没有方法 %q", def.FactoryBeanName, def.FactoryMethodName)
		}
		return invokeConstructor(method, args)
	}

	if def.Type != nil {
		return allocate(def.Type)
	}

	return nil, fmt.Errorf("定义既没有 Factory 也没有 Type，无法实例化")
}

// invokeConstructor 调用构造函数/工厂方法。
// 最后一个返回值若为 error 则单独检查；实例取第一个返回值。
func invokeConstructor(fn reflect.Value, args []any) (any, error) {
	fnType := fn.Type()
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(fnType.In(i))
			continue
		}
		in[i] = reflect.ValueOf(arg)
	}

	results := fn.Call(in)
	if len(results) == 0 {
		return nil, fmt.Errorf("构造函数没有返回值")
	}

	if len(results) > 1 {
		last := results[len(results)-1]
		if last.Type().Implements(errType) && !last.IsNil() {
			return nil, last.Interface().(error)
		}
	}

	first := results[0]
	if (first.Kind() == reflect.Ptr || first.Kind() == reflect.Interface) && first.IsNil() {
		return nil, fmt.Errorf("构造函数返回了 nil 实例")
	}
	return first.Interface(), nil
}

// allocate 按类型分配零值实例。
// 注册结构体指针时返回 *Struct，属性填充阶段再注入字段。
func allocate(typ reflect.Type) (any, error) {
	switch typ.Kind() {
	case reflect.Ptr:
		if typ.Elem().Kind() != reflect.Struct {
			return nil, fmt.Errorf("无法分配类型 %v", typ)
		}
		return reflect.New(typ.Elem()).Interface(), nil
	case reflect.Struct:
		return reflect.New(typ).Elem().Interface(), nil
	case reflect.Interface:
		return nil, fmt.Errorf("接口类型 %v 需要 Factory 或工厂方法", typ)
	default:
		return nil, fmt.Errorf("无法分配类型 %v", typ)
	}
}

// constructorParamTypes 返回构造函数的参数类型。
func constructorParamTypes(def *BeanDefinition, owner *BeanFactory) []reflect.Type {
	var fnType reflect.Type
	if def.Factory != nil {
		fnType = reflect.TypeOf(def.Factory)
	} else if def.FactoryBeanName != "" && def.FactoryMethodName != "" {
		factoryType := owner.typeForBean(def.FactoryBeanName)
		if factoryType == nil {
			return nil
		}
		method, ok := factoryType.MethodByName(def.FactoryMethodName)
		if !ok {
			return nil
		}
		// 方法集的第 0 个参数是接收者
		params := make([]reflect.Type, 0, method.Type.NumIn()-1)
		for i := 1; i < method.Type.NumIn(); i++ {
			params = append(params, method.Type.In(i))
		}
		return params
	}
	if fnType == nil || fnType.Kind() != reflect.Func {
		return nil
	}
	params := make([]reflect.Type, fnType.NumIn())
	for i := range params {
		params[i] = fnType.In(i)
	}
	return params
}
