package app

import (
	"fmt"

	"github.com/favbox/breeze/common/utils"
	"github.com/favbox/breeze/protocol"
)

// Handler 是请求处理器。
type Handler = protocol.Handler

// HandlerFunc 是请求处理器函数。
type HandlerFunc = protocol.HandlerFunc

// HandlerName 返回处理器的名称，函数取其全限定名，其余取类型名。
func HandlerName(h Handler) string {
	if h == nil {
		return ""
	}
	if f, ok := h.(HandlerFunc); ok {
		return utils.NameOfFunction(f)
	}
	return fmt.Sprintf("%T", h)
}

// NotFound 回复 404。
func NotFound(req *protocol.Request, resp *protocol.Response) {
	resp.SetStatusCode(404)
	resp.SetContentType("text/plain")
	_, _ = resp.WriteString("404 Not found")
	resp.Flush()
}

// Error 以纯文本回复给定的状态码和消息。
func Error(resp *protocol.Response, code int, msg string) {
	resp.SetStatusCode(code)
	resp.SetContentType("text/plain")
	_, _ = resp.WriteString(msg)
	resp.Flush()
}
