package ut

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/favbox/breeze/protocol"
	"github.com/favbox/breeze/protocol/consts"
)

// Header 表明一个 http 标头的键值对。
type Header struct {
	Key   string
	Value string
}

// Body 用于设置请求正文。
type Body struct {
	Body io.Reader
	Len  int
}

// PerformRequest 发送一个构造好的请求至给定处理器（无需网络传输）。
//
// 请求按线上格式构造后由 protocol.Request 解析，处理器的全部响应经由记录器排空，
// 随后解析为状态码、标头和正文。未设置 Content-Length 标头时按正文长度补齐。
//
// 查看 ./request_test.go 了解更多示例。
func PerformRequest(h protocol.Handler, method, url string, body *Body, headers ...Header) *ResponseRecorder {
	req := CreateRequest(method, url, body, headers...)
	w := NewRecorder(req)
	resp := w.NewResponse()
	h.Service(req, resp)
	w.Drain()
	w.parse()
	return w
}

// CreateRequest 创建一个已解析完成的请求，用于测试。
func CreateRequest(method, url string, body *Body, headers ...Header) *protocol.Request {
	var payload []byte
	if body != nil && body.Body != nil {
		var err error
		if body.Len >= 0 {
			payload, err = io.ReadAll(io.LimitReader(body.Body, int64(body.Len)))
		} else {
			payload, err = io.ReadAll(body.Body)
		}
		if err != nil {
			panic(err)
		}
	}

	var b bytes.Buffer
	b.WriteString(method + " " + url + " HTTP/1.1\r\n")
	hasLength := false
	for _, v := range headers {
		if strings.EqualFold(v.Key, consts.HeaderContentLength) {
			hasLength = true
		}
		b.WriteString(v.Key + ": " + v.Value + "\r\n")
	}
	if !hasLength && len(payload) > 0 {
		b.WriteString(consts.HeaderContentLength + ": " + strconv.Itoa(len(payload)) + "\r\n")
	}
	b.WriteString("\r\n")
	b.Write(payload)

	limits := protocol.DefaultLimits()
	limits.MaxRequestSize = b.Len() + 1
	limits.TempDir = os.TempDir()
	req := protocol.NewRequest(limits)
	req.Feed(b.Bytes())
	return req
}
