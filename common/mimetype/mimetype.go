// Package mimetype 提供按文件后缀查找内容类型的注册表。
package mimetype

import (
	"path"
	"strings"
)

var defaultTypes = map[string]string{
	"png":   "image/png",
	"jpeg":  "image/jpeg",
	"jpg":   "image/jpeg",
	"gif":   "image/gif",
	"txt":   "text/plain",
	"html":  "text/html",
	"xhtml": "text/html",
	"shtml": "text/html",
	"htm":   "text/html",
	"css":   "text/css",
	"json":  "application/json",
	"js":    "application/javascript",
}

// Registry 是只读的后缀到内容类型的映射。
//
// 创建后不再修改，可以在多个连接间无锁共享。
type Registry struct {
	types map[string]string
}

// NewRegistry 创建包含默认类型的注册表，extra 中的条目覆盖同名默认值。
//
// 后缀不含点号，大小写不敏感。
func NewRegistry(extra map[string]string) *Registry {
	types := make(map[string]string, len(defaultTypes)+len(extra))
	for k, v := range defaultTypes {
		types[k] = v
	}
	for k, v := range extra {
		types[strings.ToLower(strings.TrimPrefix(k, "."))] = v
	}
	return &Registry{types: types}
}

// Lookup 返回后缀对应的内容类型。
func (r *Registry) Lookup(suffix string) (string, bool) {
	ct, ok := r.types[strings.ToLower(suffix)]
	return ct, ok
}

// ByPath 返回路径最后一个点号之后的后缀对应的内容类型。
func (r *Registry) ByPath(p string) (string, bool) {
	ext := path.Ext(p)
	if ext == "" {
		return "", false
	}
	return r.Lookup(ext[1:])
}

// Len 返回条目数量。
func (r *Registry) Len() int { return len(r.types) }
