package beans

import "fmt"

// aliasRegistry 维护 alias → canonical name 的映射。
// 别名可以链式指向（alias -> alias -> name），注册时做环检测。
type aliasRegistry struct {
	aliases map[string]string
}

func newAliasRegistry() *aliasRegistry {
	return &aliasRegistry{aliases: make(map[string]string)}
}

// registerAlias 注册别名。重复注册同一目标是幂等的；
// 指向不同目标的已有别名视为结构性错误，不做静默覆盖。
func (r *aliasRegistry) registerAlias(name, alias string) error {
	if alias == name {
		// 自指别名没有意义，按移除处理
		delete(r.aliases, alias)
		return nil
	}
	if existing, ok := r.aliases[alias]; ok {
		if existing == name {
			return nil
		}
		return &BeanDefinitionStoreError{
			Name:    alias,
			Message: fmt.Sprintf("别名 %q 已指向 bean %q，无法再指向 %q", alias, existing, name),
		}
	}
	if r.hasAliasCycle(name, alias) {
		return &BeanDefinitionStoreError{
			Name:    alias,
			Message: fmt.Sprintf("别名 %q -> %q 会构成环路", alias, name),
		}
	}
	r.aliases[alias] = name
	return nil
}

// hasAliasCycle 判断注册 alias -> name 后是否形成环。
func (r *aliasRegistry) hasAliasCycle(name, alias string) bool {
	cur := name
	for {
		next, ok := r.aliases[cur]
		if !ok {
			return false
		}
		if next == alias {
			return true
		}
		cur = next
	}
}

// removeAlias 删除别名。
func (r *aliasRegistry) removeAlias(alias string) bool {
	_, ok := r.aliases[alias]
	delete(r.aliases, alias)
	return ok
}

// isAlias 判断给定名称是否为别名。
func (r *aliasRegistry) isAlias(name string) bool {
	_, ok := r.aliases[name]
	return ok
}

// canonicalName 解析别名链，返回最终的 bean 名称。
func (r *aliasRegistry) canonicalName(name string) string {
	cur := name
	for {
		next, ok := r.aliases[cur]
		if !ok {
			return cur
		}
		cur = next
	}
}

// aliasesFor 返回直接或间接指向 name 的全部别名。
func (r *aliasRegistry) aliasesFor(name string) []string {
	var out []string
	for alias := range r.aliases {
		if alias != name && r.canonicalName(alias) == name {
			out = append(out, alias)
		}
	}
	return out
}
