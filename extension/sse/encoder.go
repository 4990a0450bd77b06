package sse

import (
	"io"
	"strconv"
	"strings"

	"github.com/favbox/breeze/internal/bytesconv"
)

// 字段值中的换行会提前结束字段，转义后原样保留。
var fieldReplacer = strings.NewReplacer(
	"\n", "\\n",
	"\r", "\\r")

// 数据中的每个换行都开启新的 data 行。
var dataReplacer = strings.NewReplacer(
	"\n", "\ndata:",
	"\r", "\\r")

// AppendEvent 将 e 按事件流格式编码后附加到 dst 并返回。
func AppendEvent(dst []byte, e *Event) []byte {
	if e.ID != "" {
		dst = append(dst, "id:"...)
		dst = append(dst, fieldReplacer.Replace(e.ID)...)
		dst = append(dst, '\n')
	}
	if e.Event != "" {
		dst = append(dst, "event:"...)
		dst = append(dst, fieldReplacer.Replace(e.Event)...)
		dst = append(dst, '\n')
	}
	if e.Retry > 0 {
		dst = append(dst, "retry:"...)
		dst = strconv.AppendUint(dst, e.Retry, 10)
		dst = append(dst, '\n')
	}
	dst = append(dst, "data:"...)
	dst = append(dst, dataReplacer.Replace(bytesconv.B2s(e.Data))...)
	return append(dst, '\n', '\n')
}

// Encode 将 e 编码写入 w。
func Encode(w io.Writer, e *Event) error {
	_, err := w.Write(AppendEvent(nil, e))
	return err
}
