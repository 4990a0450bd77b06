package protocol

import (
	"sort"

	"github.com/favbox/breeze/common/utils"
	"github.com/favbox/breeze/internal/bytesconv"
	"github.com/favbox/breeze/internal/nocopy"
)

// Header 是有序的多值标头表。
//
// 键按原样保存，查找时不区分大小写。并发不安全，禁止直接拷贝。
type Header struct {
	noCopy nocopy.NoCopy

	h []argsKV
}

// Add 追加一个标头，同名标头可以有多个值。
func (h *Header) Add(key, value string) {
	h.h = appendArg(h.h, key, value, false)
}

// Set 设置标头的值，移除其余同名标头。
func (h *Header) Set(key, value string) {
	for i, n := 0, len(h.h); i < n; i++ {
		kv := &h.h[i]
		if utils.CaseInsensitiveCompare(kv.key, bytesconv.S2b(key)) {
			kv.value = append(kv.value[:0], value...)
			h.h = append(h.h[:i+1], delAllFold(h.h[i+1:], key)...)
			return
		}
	}
	h.Add(key, value)
}

// Get 返回第一个同名标头的值，不存在则返回空串。
func (h *Header) Get(key string) string {
	if kv := h.peek(key); kv != nil {
		return string(kv.value)
	}
	return ""
}

// Values 按添加顺序返回全部同名标头的值。
func (h *Header) Values(key string) []string {
	var vs []string
	for i, n := 0, len(h.h); i < n; i++ {
		kv := &h.h[i]
		if utils.CaseInsensitiveCompare(kv.key, bytesconv.S2b(key)) {
			vs = append(vs, string(kv.value))
		}
	}
	return vs
}

// Has 报告是否存在指定的标头。
func (h *Header) Has(key string) bool {
	return h.peek(key) != nil
}

// Del 删除全部同名标头。
func (h *Header) Del(key string) {
	h.h = delAllFold(h.h, key)
}

// Len 返回标头的数量。
func (h *Header) Len() int {
	return len(h.h)
}

// Reset 清空全部标头。
func (h *Header) Reset() {
	h.h = h.h[:0]
}

// VisitAll 按添加顺序对每个标头执行 f。
// f 在返回后不能保留对 key 和 value 的引用。
func (h *Header) VisitAll(f func(key, value []byte)) {
	for i, n := 0, len(h.h); i < n; i++ {
		kv := &h.h[i]
		f(kv.key, kv.value)
	}
}

// 将续行折叠到最后一个标头的值上，以单个空格分隔。
func (h *Header) fold(line string) bool {
	if len(h.h) == 0 {
		return false
	}
	kv := &h.h[len(h.h)-1]
	kv.value = append(kv.value, ' ')
	kv.value = append(kv.value, line...)
	return true
}

// AppendSorted 按键名排序后以 "key: value\r\n" 形式附加到 dst。
func (h *Header) AppendSorted(dst []byte) []byte {
	idx := make([]int, len(h.h))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return string(h.h[idx[a]].key) < string(h.h[idx[b]].key)
	})
	for _, i := range idx {
		dst = appendHeaderLine(dst, h.h[i].key, h.h[i].value)
	}
	return dst
}

func (h *Header) peek(key string) *argsKV {
	for i, n := 0, len(h.h); i < n; i++ {
		kv := &h.h[i]
		if utils.CaseInsensitiveCompare(kv.key, bytesconv.S2b(key)) {
			return kv
		}
	}
	return nil
}

func delAllFold(args []argsKV, key string) []argsKV {
	for i, n := 0, len(args); i < n; i++ {
		kv := &args[i]
		if utils.CaseInsensitiveCompare(kv.key, bytesconv.S2b(key)) {
			tmp := *kv
			copy(args[i:], args[i+1:])
			n--
			i--
			args[n] = tmp
			args = args[:n]
		}
	}
	return args
}

// 附加一个标头行，形如 "key: value\r\n"。
func appendHeaderLine(dst, key, value []byte) []byte {
	dst = append(dst, key...)
	dst = append(dst, ':', ' ')
	dst = append(dst, value...)
	return append(dst, '\r', '\n')
}
