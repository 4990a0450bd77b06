package utils

import (
	"path"
	"strings"
)

// CleanPath 返回规范化的请求路径：以 / 开头，合并多余斜线，消除 . 与 .. 段。
//
// 以 / 或 /. 结尾的路径保留尾随斜线。
func CleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	trailing := len(p) > 1 && (strings.HasSuffix(p, "/") || strings.HasSuffix(p, "/."))
	np := path.Clean(p)
	if trailing && np != "/" {
		np += "/"
	}
	return np
}
