package beans

// BeanPostProcessor 在 bean 创建过程的四个扩展点上拦截创建流程。
// 处理器按注册顺序依次调用，本层不做优先级排序。
// 任一扩展点返回错误都会中止该 bean 的创建，
// 并作为 BeanCreationError 传播给请求方。
type BeanPostProcessor interface {
	// BeforeInstantiation 在实例化之前调用。
	// 返回非 nil 实例时短路正常构造流程：跳过实例化和属性填充，
	// 该实例直接进入 AfterInitialization 阶段。
	BeforeInstantiation(beanName string, def *BeanDefinition) (any, error)

	// AfterInstantiation 在原始实例化之后、属性填充之前调用。
	// 返回 false 时否决属性填充（后续处理器不再询问）。
	AfterInstantiation(beanName string, instance any) (bool, error)

	// ProcessProperties 在属性应用前调用，可以改写属性集合。
	// 返回 nil 表示保持传入的集合不变。
	ProcessProperties(beanName string, instance any, pvs *PropertyValues) (*PropertyValues, error)

	// AfterInitialization 在初始化回调完成后调用。
	// 可以返回替换实例（例如代理包装）；返回 nil 表示保持原实例。
	AfterInitialization(beanName string, instance any) (any, error)
}

// NopBeanPostProcessor 所有扩展点的空实现。
// 只关心部分扩展点的处理器可以嵌入它。
type NopBeanPostProcessor struct{}

func (NopBeanPostProcessor) BeforeInstantiation(string, *BeanDefinition) (any, error) {
	return nil, nil
}

func (NopBeanPostProcessor) AfterInstantiation(string, any) (bool, error) {
	return true, nil
}

func (NopBeanPostProcessor) ProcessProperties(string, any, *PropertyValues) (*PropertyValues, error) {
	return nil, nil
}

func (NopBeanPostProcessor) AfterInitialization(string, any) (any, error) {
	return nil, nil
}
