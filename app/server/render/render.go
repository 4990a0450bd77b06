// Package render 将常见格式的数据渲染为响应正文。
package render

import (
	"github.com/favbox/breeze/protocol"
)

// Render 渲染接口由 JSON、HTML、纯文本等实现。
type Render interface {
	// Render 写入数据和内容类型。
	Render(resp *protocol.Response) error
	// WriteContentType 写入内容类型。
	WriteContentType(resp *protocol.Response)
}

var (
	_ Render = Data{}
	_ Render = String{}
	_ Render = JSONRender{}
	_ Render = IndentedJSON{}
	_ Render = HTML{}
)

// Write 以状态码 code 渲染 r 并刷新响应。渲染失败时回复 500。
func Write(resp *protocol.Response, code int, r Render) error {
	resp.SetStatusCode(code)
	if err := r.Render(resp); err != nil {
		resp.SetStatusCode(500)
		resp.SetContentType(plainContentType)
		_, _ = resp.WriteString(err.Error())
		resp.Flush()
		return err
	}
	resp.Flush()
	return nil
}

// JSON 以 code 回复 obj 的 JSON 编码。
func JSON(resp *protocol.Response, code int, obj any) error {
	return Write(resp, code, JSONRender{Data: obj})
}

// Text 以 code 回复格式化后的纯文本。
func Text(resp *protocol.Response, code int, format string, values ...any) error {
	return Write(resp, code, String{Format: format, Data: values})
}

func writeContentType(resp *protocol.Response, value string) {
	resp.SetContentType(value)
}
