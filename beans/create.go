package beans

import (
	"fmt"
	"reflect"
	"strings"
)

// createBean 完整的创建管线：
// before-instantiation 短路 → 构造参数解析 → 实例化策略 → 提前暴露 →
// after-instantiation 否决 → 属性处理/填充 → 初始化回调 →
// after-initialization 包装 → 早期引用收敛 → 销毁登记。
// 任一阶段的失败包装为 BeanCreationError 并中止该 bean 的创建。
func (f *BeanFactory) createBean(name string, mbd *BeanDefinition, path *resolutionPath) (any, error) {
	processors := f.postProcessorsSnapshot()

	// 阶段 1: before-instantiation，可以提供替身实例短路正常构造
	for _, pp := range processors {
		surrogate, err := pp.BeforeInstantiation(name, mbd)
		if err != nil {
			return nil, newCreationError(name, "before-instantiation 后置处理失败", err)
		}
		if surrogate != nil {
			return f.applyAfterInitialization(name, surrogate, processors)
		}
	}

	// 阶段 2: 解析构造参数
	args, err := f.resolveConstructorArgs(name, mbd, path)
	if err != nil {
		return nil, newCreationError(name, "构造参数解析失败", err)
	}

	// 阶段 3: 原始实例化（委托给策略）
	raw, err := f.strategy.Instantiate(mbd, name, f, args)
	if err != nil {
		return nil, newCreationError(name, "实例化失败", err)
	}

	// 阶段 4: 提前暴露未完成实例，打破属性互引循环
	earlyExposed := false
	if mbd.IsSingleton() && f.allowCircularReferences && f.singletons.isInCreation(name) {
		f.singletons.addEarlyProducer(name, func() any { return raw })
		earlyExposed = true
	}

	// 阶段 5: after-instantiation，可以否决属性填充
	populate := true
	for _, pp := range processors {
		proceed, err := pp.AfterInstantiation(name, raw)
		if err != nil {
			return nil, newCreationError(name, "after-instantiation 后置处理失败", err)
		}
		if !proceed {
			populate = false
			break
		}
	}

	// 阶段 6: 属性处理与填充
	if populate {
		pvs := mbd.Properties
		for _, pp := range processors {
			rewritten, err := pp.ProcessProperties(name, raw, pvs)
			if err != nil {
				return nil, newCreationError(name, "属性后置处理失败", err)
			}
			if rewritten != nil {
				pvs = rewritten
			}
		}
		if err := f.applyPropertyValues(name, raw, pvs, path); err != nil {
			return nil, newCreationError(name, "属性填充失败", err)
		}
		if err := f.autowireTaggedFields(name, raw, path); err != nil {
			return nil, newCreationError(name, "字段自动装配失败", err)
		}
	}

	// 阶段 7: 初始化回调
	if initializing, ok := raw.(InitializingBean); ok {
		if err := initializing.AfterPropertiesSet(); err != nil {
			return nil, newCreationError(name, "AfterPropertiesSet 失败", err)
		}
	}

	// 阶段 8: after-initialization，可以包装/替换实例
	final, err := f.applyAfterInitialization(name, raw, processors)
	if err != nil {
		return nil, err
	}

	// 阶段 9: 早期引用收敛。
	// 已有其它 bean 持有原始引用时，最终实例必须与之一致，
	// 否则环内的两个引用会发散。
	if earlyExposed {
		if early, exposed := f.singletons.earlyReference(name); exposed {
			if !identical(final, early) {
				return nil, newCreationError(name,
					"早期引用已被循环中的其它 bean 持有，after-initialization 不能替换实例", nil)
			}
			final = early
		}
	}

	f.registerDisposalIfNeeded(name, mbd, final)
	return final, nil
}

// applyAfterInitialization 按注册顺序应用 after-initialization 扩展点。
func (f *BeanFactory) applyAfterInitialization(name string, instance any, processors []BeanPostProcessor) (any, error) {
	current := instance
	for _, pp := range processors {
		wrapped, err := pp.AfterInitialization(name, current)
		if err != nil {
			return nil, newCreationError(name, "after-initialization 后置处理失败", err)
		}
		if wrapped != nil {
			current = wrapped
		}
	}
	return current, nil
}

// resolveConstructorArgs 为构造函数的每个参数确定取值：
// 显式的按位参数 → 按类型匹配的通用参数 → 依赖解析器按类型自动装配。
func (f *BeanFactory) resolveConstructorArgs(name string, mbd *BeanDefinition, path *resolutionPath) ([]any, error) {
	params := constructorParamTypes(mbd, f)
	if params == nil {
		if mbd.ConstructorArgs != nil && mbd.ConstructorArgs.Len() > 0 && mbd.Factory == nil && mbd.FactoryMethodName == "" {
			return nil, fmt.Errorf("定义携带构造参数但没有构造函数")
		}
		return nil, nil
	}

	cargs := mbd.ConstructorArgs
	if cargs == nil {
		cargs = NewConstructorArgumentValues()
	}

	args := make([]any, len(params))
	for i, paramType := range params {
		if vh, ok := cargs.GetIndexed(i); ok {
			resolved, err := f.resolveConfiguredValue(name, vh.Value, paramType, path)
			if err != nil {
				return nil, fmt.Errorf("参数 %d: %w", i, err)
			}
			args[i] = resolved
			continue
		}
		if vh, ok := cargs.GetGeneric(paramType); ok {
			resolved, err := f.resolveConfiguredValue(name, vh.Value, paramType, path)
			if err != nil {
				return nil, fmt.Errorf("参数 %d: %w", i, err)
			}
			args[i] = resolved
			continue
		}

		// 未显式提供的参数按类型自动装配
		dep, err := f.resolveDependency(DependencyDescriptor{
			Type:     paramType,
			Required: true,
		}, name, path)
		if err != nil {
			return nil, fmt.Errorf("参数 %d (%v): %w", i, paramType, err)
		}
		args[i] = dep
	}
	return args, nil
}

// resolveConfiguredValue 解析配置值：
// bean 引用替换为目标实例，字符串先走内嵌值解析，最后转换到目标类型。
func (f *BeanFactory) resolveConfiguredValue(owner string, value any, target reflect.Type, path *resolutionPath) (any, error) {
	switch v := value.(type) {
	case RuntimeBeanReference:
		refName := f.CanonicalName(v.Name)
		if owner != "" {
			f.singletons.registerDependentBean(refName, owner)
		}
		inst, err := f.getBean(refName, path)
		if err != nil {
			return nil, err
		}
		if target == nil {
			return inst, nil
		}
		return f.converter.Convert(inst, target)

	case string:
		resolved, err := f.ResolveEmbeddedValue(v)
		if err != nil {
			return nil, err
		}
		if target == nil {
			return resolved, nil
		}
		return f.converter.Convert(resolved, target)

	default:
		if target == nil {
			return value, nil
		}
		return f.converter.Convert(value, target)
	}
}

// applyPropertyValues 把属性集合写入实例字段。
// 实例必须是结构体指针；属性名匹配同名或首字母大写的导出字段。
func (f *BeanFactory) applyPropertyValues(name string, instance any, pvs *PropertyValues, path *resolutionPath) error {
	if pvs == nil || pvs.Len() == 0 {
		return nil
	}

	structVal, err := addressableStruct(instance)
	if err != nil {
		return fmt.Errorf("无法填充属性: %w", err)
	}

	for _, pv := range pvs.Values() {
		field := structVal.FieldByName(exportedFieldName(pv.Name))
		if !field.IsValid() {
			return fmt.Errorf("属性 %q 没有对应字段", pv.Name)
		}
		if !field.CanSet() {
			return fmt.Errorf("属性 %q 对应的字段不可设置", pv.Name)
		}

		resolved, err := f.resolveConfiguredValue(name, pv.Value, field.Type(), path)
		if err != nil {
			return fmt.Errorf("属性 %q: %w", pv.Name, err)
		}
		if resolved == nil {
			field.Set(reflect.Zero(field.Type()))
			continue
		}
		field.Set(reflect.ValueOf(resolved))
	}
	return nil
}

// autowireTaggedFields 注入带有 bean 标签的结构体字段。
// 标签形式: `bean:""`（按类型）、`bean:"name"`（按名）、`bean:",optional"`。
func (f *BeanFactory) autowireTaggedFields(owner string, instance any, path *resolutionPath) error {
	structVal, err := addressableStruct(instance)
	if err != nil {
		// 非结构体指针的实例没有可注入字段
		return nil
	}

	structType := structVal.Type()
	for i := 0; i < structType.NumField(); i++ {
		fieldInfo := structType.Field(i)
		tagValue, hasTag := fieldInfo.Tag.Lookup("bean")
		if !hasTag {
			continue
		}

		refName, optional := parseBeanTag(tagValue)
		field := structVal.Field(i)
		if !field.CanSet() {
			return fmt.Errorf("字段 %s 带有 bean 标签但不可设置", fieldInfo.Name)
		}
		if !field.IsZero() {
			// 构造函数已经赋值的字段不再覆盖
			continue
		}

		var dep any
		if refName != "" {
			// 带名标签按名解析，不做按类型回退
			if !f.ContainsBean(refName) {
				if optional {
					continue
				}
				return &NoSuchBeanDefinitionError{Name: refName}
			}
			canonical := f.CanonicalName(refName)
			f.singletons.registerDependentBean(canonical, owner)
			dep, err = f.getBean(canonical, path)
		} else {
			dep, err = f.resolveDependency(DependencyDescriptor{
				Type:     fieldInfo.Type,
				Required: !optional,
			}, owner, path)
		}
		if err != nil {
			return fmt.Errorf("字段 %s: %w", fieldInfo.Name, err)
		}
		if dep == nil {
			continue
		}
		field.Set(reflect.ValueOf(dep))
	}
	return nil
}

// parseBeanTag 解析 bean 标签: "name,option" 形式。
func parseBeanTag(tag string) (name string, optional bool) {
	parts := strings.Split(tag, ",")
	name = strings.TrimSpace(parts[0])
	if name == "?" || name == "optional" {
		name = ""
		optional = true
	}
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "optional" || part == "?" {
			optional = true
		}
	}
	return name, optional
}

// addressableStruct 返回实例指向的可寻址结构体值。
func addressableStruct(instance any) (reflect.Value, error) {
	val := reflect.ValueOf(instance)
	if val.Kind() != reflect.Ptr || val.IsNil() || val.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("实例 %T 不是结构体指针", instance)
	}
	return val.Elem(), nil
}

// exportedFieldName 把属性名归一为导出字段名（首字母大写）。
func exportedFieldName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// identical 判断两个实例是否为同一对象。
func identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() == reflect.Ptr && vb.Kind() == reflect.Ptr {
		return va.Pointer() == vb.Pointer()
	}
	if va.Type() != vb.Type() || !va.Type().Comparable() {
		return false
	}
	return a == b
}
