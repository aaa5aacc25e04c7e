package config

import (
	"fmt"
	"strings"

	"github.com/gocrud/ioc/beans"
)

// PlaceholderResolver 返回一个内嵌值解析器，把字符串中的
// "${key}" 和 "${key:default}" 占位符替换为配置值。
// 占位符内的键使用 "." 作为层级分隔符（":" 保留给默认值语法）。
// 没有默认值且配置缺失时返回错误。
func PlaceholderResolver(cfg Configuration) beans.StringValueResolver {
	return func(value string) (string, error) {
		return resolvePlaceholders(cfg, value)
	}
}

func resolvePlaceholders(cfg Configuration, value string) (string, error) {
	var out strings.Builder
	rest := value

	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		end := strings.Index(rest[start:], "}")
		if end < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		end += start

		out.WriteString(rest[:start])
		expr := rest[start+2 : end]
		rest = rest[end+1:]

		key, fallback, hasFallback := strings.Cut(expr, ":")
		resolved := cfg.Get(key)
		if resolved == "" {
			if !hasFallback {
				return "", fmt.Errorf("config: placeholder %q has no value", key)
			}
			resolved = fallback
		}
		out.WriteString(resolved)
	}
}
