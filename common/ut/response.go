package ut

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/favbox/breeze/protocol"
	"github.com/favbox/breeze/protocol/consts"
)

var _ protocol.Link = (*ResponseRecorder)(nil)

// ResponseRecorder 记录处理器的响应以供稍后测试。
//
// 它实现 protocol.Link，发送的字节全部记录在内存中，
// Post 立即执行，因此只适用于同步处理器。
type ResponseRecorder struct {
	Code         int // 解析记录的字节后填入
	Body         *bytes.Buffer
	Disconnected bool

	req       *protocol.Request
	raw       bytes.Buffer
	header    protocol.Header
	responses []*protocol.Response
	parsed    bool
}

// NewRecorder 返回一个绑定到请求 req 的响应记录器。
func NewRecorder(req *protocol.Request) *ResponseRecorder {
	return &ResponseRecorder{
		Code: consts.StatusOK,
		Body: new(bytes.Buffer),
		req:  req,
	}
}

func (r *ResponseRecorder) Send(b []byte) (int, error) {
	r.parsed = false
	return r.raw.Write(b)
}

func (r *ResponseRecorder) ScheduleDrain() {}

func (r *ResponseRecorder) WaitFlushed(time.Duration) error { return nil }

func (r *ResponseRecorder) Disconnect() { r.Disconnected = true }

func (r *ResponseRecorder) Abort() { r.Disconnected = true }

func (r *ResponseRecorder) Connected() bool { return !r.Disconnected }

func (r *ResponseRecorder) NewResponse() *protocol.Response {
	resp := protocol.NewResponse(r, r.req, 0)
	r.responses = append(r.responses, resp)
	return resp
}

func (r *ResponseRecorder) Post(fn func()) bool {
	fn()
	r.Drain()
	return true
}

// Drain 排空全部已安排发送的响应。
func (r *ResponseRecorder) Drain() {
	for _, resp := range r.responses {
		resp.Drain()
	}
}

// Raw 返回记录的原始字节。
func (r *ResponseRecorder) Raw() string {
	return r.raw.String()
}

// Header 返回第一个响应的标头。
func (r *ResponseRecorder) Header() *protocol.Header {
	r.parse()
	return &r.header
}

// Result 解析记录的字节并返回状态码、标头和正文，分块编码的正文会被还原。
func (r *ResponseRecorder) Result() (int, *protocol.Header, []byte) {
	r.parse()
	return r.Code, &r.header, r.Body.Bytes()
}

func (r *ResponseRecorder) parse() {
	if r.parsed {
		return
	}
	r.parsed = true
	r.header.Reset()
	r.Body.Reset()

	raw := r.raw.String()
	end := strings.Index(raw, "\r\n\r\n")
	if end < 0 {
		return
	}
	lines := strings.Split(raw[:end], "\r\n")
	if parts := strings.SplitN(lines[0], " ", 3); len(parts) >= 2 {
		if code, err := strconv.Atoi(parts[1]); err == nil {
			r.Code = code
		}
	}
	for _, line := range lines[1:] {
		if i := strings.IndexByte(line, ':'); i > 0 {
			r.header.Add(line[:i], strings.TrimSpace(line[i+1:]))
		}
	}

	body := raw[end+4:]
	if !strings.EqualFold(r.header.Get(consts.HeaderTransferEncoding), consts.ValueChunked) {
		r.Body.WriteString(body)
		return
	}
	for {
		i := strings.Index(body, "\r\n")
		if i < 0 {
			return
		}
		size, err := strconv.ParseInt(body[:i], 16, 64)
		if err != nil || size == 0 || int(size) > len(body)-i-2 {
			return
		}
		r.Body.WriteString(body[i+2 : i+2+int(size)])
		body = strings.TrimPrefix(body[i+2+int(size):], "\r\n")
	}
}
