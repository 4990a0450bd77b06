package protocol

import (
	"bytes"

	"github.com/favbox/breeze/internal/bytesconv"
	"github.com/favbox/breeze/internal/nocopy"
)

type argsKV struct {
	key     []byte
	value   []byte
	noValue bool
}

// Args 维护有序的键值对参数，同一个键可以出现多次。
//
// 用于查询字符串、表单编码请求体及多部分表单字段。
type Args struct {
	noCopy nocopy.NoCopy

	args []argsKV
	buf  []byte
}

// Set 设置 'key=value' 参数，已有的同名参数被覆盖。
func (a *Args) Set(key, value string) {
	a.args = setArg(a.args, key, value)
}

// Add 添加键值对参数。
//
// 可以为同一个键添加多个值。
func (a *Args) Add(key, value string) {
	a.args = appendArg(a.args, key, value, false)
}

// Reset 清除全部参数。
func (a *Args) Reset() {
	a.args = a.args[:0]
}

// Del 删除指定键的全部参数。
func (a *Args) Del(key string) {
	a.args = delAllArgs(a.args, key)
}

// Has 返回指定的键是否存在。
func (a *Args) Has(key string) bool {
	return hasArg(a.args, key)
}

// Peek 返回指定键的第一个参数值。
func (a *Args) Peek(key string) []byte {
	return peekArgStr(a.args, key)
}

// PeekExists 返回指定键的第一个参数值及是否存在。
func (a *Args) PeekExists(key string) (string, bool) {
	return peekArgStrExists(a.args, key)
}

// PeekAll 按添加顺序返回指定键的全部参数值。
func (a *Args) PeekAll(key string) []string {
	var vs []string
	for i, n := 0, len(a.args); i < n; i++ {
		kv := &a.args[i]
		if string(kv.key) == key {
			vs = append(vs, string(kv.value))
		}
	}
	return vs
}

// VisitAll 对每个参数执行 f。
// f 在返回后不能保留对 key 和 value 的引用。
func (a *Args) VisitAll(f func(key, value []byte)) {
	for i, n := 0, len(a.args); i < n; i++ {
		kv := &a.args[i]
		f(kv.key, kv.value)
	}
}

// Len 返回参数的数量。
func (a *Args) Len() int {
	return len(a.args)
}

// String 返回参数的查询字符串表示形式。
func (a *Args) String() string {
	return string(a.QueryString())
}

// QueryString 返回参数的查询字符串。
func (a *Args) QueryString() []byte {
	a.buf = a.AppendBytes(a.buf[:0])
	return a.buf
}

// AppendBytes 附加编码后的查询字符串到 dst 并返回。
func (a *Args) AppendBytes(dst []byte) []byte {
	for i, n := 0, len(a.args); i < n; i++ {
		kv := &a.args[i]
		dst = bytesconv.AppendQuotedArg(dst, kv.key)
		if !kv.noValue {
			dst = append(dst, '=')
			if len(kv.value) > 0 {
				dst = bytesconv.AppendQuotedArg(dst, kv.value)
			}
		}
		if i+1 < n {
			dst = append(dst, '&')
		}
	}
	return dst
}

// ParseBytes 解析 "a=1&b=2" 形式的参数。
//
// 键和值会去除首尾空白并做 URL 解码，没有 '=' 的片段视为值为空的键。
func (a *Args) ParseBytes(b []byte) {
	a.Reset()
	a.appendParsed(b)
}

func (a *Args) appendParsed(b []byte) {
	s := argsScanner{b: b}
	var kv *argsKV
	a.args, kv = allocArg(a.args)
	for s.next(kv) {
		if len(kv.key) > 0 || len(kv.value) > 0 {
			a.args, kv = allocArg(a.args)
		}
	}
	a.args = a.args[:len(a.args)-1]
}

type argsScanner struct {
	b []byte
}

func (s *argsScanner) next(kv *argsKV) bool {
	if len(s.b) == 0 {
		return false
	}

	seg := s.b
	if i := bytes.IndexByte(s.b, '&'); i >= 0 {
		seg = s.b[:i]
		s.b = s.b[i+1:]
	} else {
		s.b = s.b[len(s.b):]
	}

	if i := bytes.IndexByte(seg, '='); i >= 0 {
		kv.key = decodeArgAppend(kv.key[:0], bytes.TrimSpace(seg[:i]))
		kv.value = decodeArgAppend(kv.value[:0], bytes.TrimSpace(seg[i+1:]))
		kv.noValue = false
	} else {
		kv.key = decodeArgAppend(kv.key[:0], bytes.TrimSpace(seg))
		kv.value = kv.value[:0]
		kv.noValue = true
	}
	return true
}

func peekArgStrExists(args []argsKV, key string) (string, bool) {
	for i, n := 0, len(args); i < n; i++ {
		kv := &args[i]
		if string(kv.key) == key {
			return string(kv.value), true
		}
	}
	return "", false
}

func peekArgStr(args []argsKV, key string) []byte {
	for i, n := 0, len(args); i < n; i++ {
		kv := &args[i]
		if string(kv.key) == key {
			return kv.value
		}
	}
	return nil
}

// 解码源参数字节切片并附加至目标。
// 源参数可能已编码，其中可能包含 % 或 +。
func decodeArgAppend(dst, src []byte) []byte {
	if bytes.IndexByte(src, '%') < 0 && bytes.IndexByte(src, '+') < 0 {
		// 快速路径：src 不包含编码字符
		return append(dst, src...)
	}

	for i, n := 0, len(src); i < n; i++ {
		c := src[i]
		if c == '%' {
			if i+2 >= len(src) {
				return append(dst, src[i:]...)
			}
			x2 := bytesconv.Hex2intTable[src[i+2]]
			x1 := bytesconv.Hex2intTable[src[i+1]]
			if x1 == 16 || x2 == 16 {
				dst = append(dst, '%')
			} else {
				dst = append(dst, x1<<4|x2)
				i += 2
			}
		} else if c == '+' {
			dst = append(dst, ' ')
		} else {
			dst = append(dst, c)
		}
	}
	return dst
}

func hasArg(args []argsKV, key string) bool {
	for i, n := 0, len(args); i < n; i++ {
		if key == string(args[i].key) {
			return true
		}
	}
	return false
}

// 删除切片中所有与指定键相同的参数。
func delAllArgs(args []argsKV, key string) []argsKV {
	for i, n := 0, len(args); i < n; i++ {
		kv := &args[i]
		if key == string(kv.key) {
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

// 更新或追加参数切片 args 中指定 key 的 value。
func setArg(args []argsKV, key, value string) []argsKV {
	for i, n := 0, len(args); i < n; i++ {
		kv := &args[i]
		if key == string(kv.key) {
			kv.value = append(kv.value[:0], value...)
			kv.noValue = false
			return args
		}
	}
	return appendArg(args, key, value, false)
}

func appendArg(args []argsKV, key, value string, noValue bool) []argsKV {
	var kv *argsKV
	args, kv = allocArg(args)
	kv.key = append(kv.key[:0], key...)
	if noValue {
		kv.value = kv.value[:0]
	} else {
		kv.value = append(kv.value[:0], value...)
	}
	kv.noValue = noValue
	return args
}

// 按需扩容参数切片。
//
// 有容量则扩展1个，容量不足则附加1个（容量可能翻倍）。
//
// 返回扩容后的完整切片及扩容部分的第一个新切片指针。
func allocArg(args []argsKV) ([]argsKV, *argsKV) {
	n := len(args)
	if cap(args) > n {
		args = args[:n+1]
	} else {
		args = append(args, argsKV{})
	}
	return args, &args[n]
}
