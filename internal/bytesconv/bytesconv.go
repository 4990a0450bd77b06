package bytesconv

import (
	"net/http"
	"time"
	"unsafe"
)

const (
	upperHex = "0123456789ABCDEF" // 大写的十六进制字符
	lowerHex = "0123456789abcdef" // 小写的十六进制字符
)

// LowercaseBytes 原地将 b 转为小写。
func LowercaseBytes(b []byte) {
	for i, n := 0, len(b); i < n; i++ {
		p := &b[i]
		*p = ToLowerTable[*p]
	}
}

// B2s 将字节切片转为字符串，且不分配内存。
//
// 注意：转换后不得再修改 b。
func B2s(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// S2b 将字符串转为字节切片，且不分配内存。
//
// 注意：返回的切片只读。
func S2b(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// AppendQuotedArg 向 dst 追加转义后的 src 参数。等效 url.QueryEscape。
func AppendQuotedArg(dst, src []byte) []byte {
	for _, c := range src {
		switch {
		case c == ' ':
			dst = append(dst, '+')
		case QuotedArgShouldEscapeTable[int(c)] != 0:
			dst = append(dst, '%', upperHex[c>>4], upperHex[c&0xf])
		default:
			dst = append(dst, c)
		}
	}
	return dst
}

// AppendUint 向 dst 追加正整数 n 并返回。
func AppendUint(dst []byte, n int) []byte {
	if n < 0 {
		panic("BUG：int 必须为正整数")
	}

	var b [20]byte
	buf := b[:]
	i := len(buf)
	var q int
	for n >= 10 {
		i--
		q = n / 10
		buf[i] = '0' + byte(n-q*10)
		n = q
	}
	i--
	buf[i] = '0' + byte(n)

	dst = append(dst, buf[i:]...)
	return dst
}

// AppendHexUint 向 dst 追加小写十六进制的正整数 n，用于分块长度。
func AppendHexUint(dst []byte, n int) []byte {
	if n < 0 {
		panic("BUG: int 必须为正整数")
	}

	var b [16]byte
	i := len(b) - 1
	for {
		b[i] = lowerHex[n&0xf]
		n >>= 4
		if n == 0 {
			break
		}
		i--
	}
	return append(dst, b[i:]...)
}

// AppendHTTPDate 向 dst 追加 HTTP 兼容时间并返回。
func AppendHTTPDate(dst []byte, date time.Time) []byte {
	return date.UTC().AppendFormat(dst, http.TimeFormat)
}

// ParseUintBuf 解析 b 中的整数。
func ParseUintBuf(b []byte) (v, n int, err error) {
	n = len(b)
	if n == 0 {
		return -1, 0, errEmptyInt
	}
	for i := 0; i < n; i++ {
		c := b[i]
		k := c - '0'
		if k > 9 {
			if i == 0 {
				return -1, i, errUnexpectedFirstChar
			}
			return v, i, nil
		}
		vNew := 10*v + int(k)
		// 测试溢出
		if vNew < v {
			return -1, i, errTooLongInt
		}
		v = vNew
	}
	return
}

// ParseUint 解析 b 中的整数。
func ParseUint(b []byte) (int, error) {
	v, n, err := ParseUintBuf(b)
	if n != len(b) {
		return -1, errUnexpectedTrailingChar
	}
	return v, err
}
