package beans

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// NoSuchBeanDefinitionError 表示在当前工厂及其所有祖先中都找不到指定的 bean。
type NoSuchBeanDefinitionError struct {
	Name string
	Type reflect.Type
}

func (e *NoSuchBeanDefinitionError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("beans: 未找到名为 %q 的 bean 定义", e.Name)
	}
	return fmt.Sprintf("beans: 未找到类型为 %v 的 bean 定义", e.Type)
}

// BeanDefinitionStoreError 表示注册表结构性错误（重复别名、非法定义等）。
type BeanDefinitionStoreError struct {
	Name    string
	Message string
}

func (e *BeanDefinitionStoreError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("beans: bean %q: %s", e.Name, e.Message)
	}
	return "beans: " + e.Message
}

// ConfigurationFrozenError 表示在配置冻结后尝试进行结构性修改。
type ConfigurationFrozenError struct {
	Op   string
	Name string
}

func (e *ConfigurationFrozenError) Error() string {
	return fmt.Sprintf("beans: 配置已冻结，无法执行 %s (bean=%q)", e.Op, e.Name)
}

// CircularReferenceError 表示一个无法解决的构造循环。
// Chain 按解析顺序记录完整的环路，首尾为同一个名称。
type CircularReferenceError struct {
	Chain []string
}

func (e *CircularReferenceError) Error() string {
	return "beans: 检测到循环依赖: " + strings.Join(e.Chain, " -> ")
}

// AmbiguousDependencyError 表示按类型解析依赖时存在多个无法裁决的候选。
type AmbiguousDependencyError struct {
	Type       reflect.Type
	Candidates []string
}

func (e *AmbiguousDependencyError) Error() string {
	return fmt.Sprintf("beans: 类型 %v 存在多个候选 bean，且没有唯一的 primary 或 qualifier 匹配: [%s]",
		e.Type, strings.Join(e.Candidates, ", "))
}

// UnknownScopeError 表示定义引用了未注册的作用域名称。
type UnknownScopeError struct {
	ScopeName string
	BeanName  string
}

func (e *UnknownScopeError) Error() string {
	return fmt.Sprintf("beans: bean %q 引用了未注册的作用域 %q", e.BeanName, e.ScopeName)
}

// ConversionError 表示配置值无法转换到目标类型。
type ConversionError struct {
	Value  any
	Target reflect.Type
	Cause  error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("beans: 无法将 %T 转换为 %v", e.Value, e.Target)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ConversionError) Unwrap() error { return e.Cause }

// BeanCreationError 包装 bean 创建过程中（实例化、属性填充、后置处理）的任何失败。
type BeanCreationError struct {
	BeanName string
	Message  string
	Cause    error
}

func (e *BeanCreationError) Error() string {
	msg := fmt.Sprintf("beans: 创建 bean %q 失败", e.BeanName)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *BeanCreationError) Unwrap() error { return e.Cause }

func newCreationError(name, message string, cause error) *BeanCreationError {
	return &BeanCreationError{BeanName: name, Message: message, Cause: cause}
}

// IsNoSuchBean 判断错误链中是否包含 NoSuchBeanDefinitionError。
func IsNoSuchBean(err error) bool {
	var e *NoSuchBeanDefinitionError
	return errors.As(err, &e)
}

// IsCircularReference 判断错误链中是否包含 CircularReferenceError。
func IsCircularReference(err error) bool {
	var e *CircularReferenceError
	return errors.As(err, &e)
}

// IsAmbiguousDependency 判断错误链中是否包含 AmbiguousDependencyError。
func IsAmbiguousDependency(err error) bool {
	var e *AmbiguousDependencyError
	return errors.As(err, &e)
}

// IsConfigurationFrozen 判断错误链中是否包含 ConfigurationFrozenError。
func IsConfigurationFrozen(err error) bool {
	var e *ConfigurationFrozenError
	return errors.As(err, &e)
}

// IsBeanCreation 判断错误链中是否包含 BeanCreationError。
func IsBeanCreation(err error) bool {
	var e *BeanCreationError
	return errors.As(err, &e)
}
