package utils

import (
	"reflect"
	"runtime"
	"strings"
)

// CaseInsensitiveCompare 不分大小写，高效比较两者是否相同。
func CaseInsensitiveCompare(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}

	for i, n := 0, len(a); i < n; i++ {
		if a[i]|0x20 != b[i]|0x20 {
			return false
		}
	}
	return true
}

// HasPrefixFold 不分大小写判断 s 是否以 prefix 开头。
func HasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// IndexFold 不分大小写查找 substr 在 s 中首次出现的位置，未找到返回 -1。
func IndexFold(s, substr string) int {
	return strings.Index(strings.ToLower(s), strings.ToLower(substr))
}

// NameOfFunction 获取函数名。
func NameOfFunction(f any) string {
	return runtime.FuncForPC(reflect.ValueOf(f).Pointer()).Name()
}

// FilterContentType 返回去掉参数部分的媒体类型。
func FilterContentType(content string) string {
	for i, char := range content {
		if char == ' ' || char == ';' {
			return content[:i]
		}
	}
	return content
}
