package beans

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// TypeConverter 将配置的原始值转换为目标类型。
// 应用属性值和构造参数时使用；无法转换时返回 ConversionError。
type TypeConverter interface {
	Convert(value any, target reflect.Type) (any, error)
}

// simpleTypeConverter 默认转换器：直接赋值、Go 类型转换和常见的字符串解析。
type simpleTypeConverter struct{}

func (simpleTypeConverter) Convert(value any, target reflect.Type) (any, error) {
	if value == nil {
		return reflect.Zero(target).Interface(), nil
	}

	valType := reflect.TypeOf(value)
	if valType.AssignableTo(target) {
		return value, nil
	}

	if str, ok := value.(string); ok {
		converted, err := convertString(str, target)
		if err != nil {
			return nil, &ConversionError{Value: value, Target: target, Cause: err}
		}
		return converted, nil
	}

	if valType.ConvertibleTo(target) {
		return reflect.ValueOf(value).Convert(target).Interface(), nil
	}

	return nil, &ConversionError{Value: value, Target: target}
}

var durationType = reflect.TypeOf(time.Duration(0))

// convertString 解析字符串到常见目标类型。
func convertString(str string, target reflect.Type) (any, error) {
	if target == durationType {
		return time.ParseDuration(str)
	}

	switch target.Kind() {
	case reflect.String:
		return reflect.ValueOf(str).Convert(target).Interface(), nil
	case reflect.Bool:
		b, err := strconv.ParseBool(str)
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(b).Convert(target).Interface(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return nil, err
		}
		v := reflect.New(target).Elem()
		if v.OverflowInt(n) {
			return nil, fmt.Errorf("值 %d 超出 %v 范围", n, target)
		}
		v.SetInt(n)
		return v.Interface(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(str, 10, 64)
		if err != nil {
			return nil, err
		}
		v := reflect.New(target).Elem()
		if v.OverflowUint(n) {
			return nil, fmt.Errorf("值 %d 超出 %v 范围", n, target)
		}
		v.SetUint(n)
		return v.Interface(), nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return nil, err
		}
		v := reflect.New(target).Elem()
		v.SetFloat(f)
		return v.Interface(), nil
	default:
		return nil, fmt.Errorf("不支持从字符串转换到 %v", target)
	}
}
