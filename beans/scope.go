package beans

// ObjectProducer 延迟创建一个 bean 实例。
type ObjectProducer func() (any, error)

// Scope 自定义作用域策略。
// 内置的 singleton/prototype 不经过此接口；自定义作用域按名称注册，
// 由策略自身决定"当前作用域实例"绑定到哪个工作单元（会话、请求等）。
type Scope interface {
	// Get 返回当前作用域内名为 name 的实例，不存在时通过 producer 创建。
	Get(name string, producer ObjectProducer) (any, error)

	// Remove 从当前作用域移除实例并返回它。
	// 移除后该实例的销毁回调不再由作用域触发。
	Remove(name string) (any, bool)

	// RegisterDestructionCallback 注册作用域实例销毁时要执行的回调。
	// 作用域在其生命周期单元结束时负责调用。
	RegisterDestructionCallback(name string, callback func())
}

// InitializingBean 实例在属性填充完成后希望收到回调时实现此接口。
type InitializingBean interface {
	AfterPropertiesSet() error
}

// DisposableBean 单例实例在销毁时希望收到回调时实现此接口。
type DisposableBean interface {
	Destroy() error
}
