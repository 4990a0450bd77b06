package protocol

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/favbox/breeze/common/compress"
	errs "github.com/favbox/breeze/common/errors"
	"github.com/favbox/breeze/common/hlog"
	"github.com/favbox/breeze/internal/bytesconv"
	"github.com/favbox/breeze/internal/nocopy"
	"github.com/favbox/breeze/protocol/consts"
)

// Link 是响应对所属连接的非拥有引用。
//
// 除 Post 外，所有方法只能在连接的事件循环中调用。
type Link interface {
	// Send 将 b 的前缀放入发送队列，返回放入的字节数，队列已满时返回 0。
	Send(b []byte) (int, error)
	// ScheduleDrain 请求连接在事件循环中排空待发送的响应。
	ScheduleDrain()
	// WaitFlushed 阻塞至发送队列清空或超时。
	WaitFlushed(timeout time.Duration) error
	// Disconnect 在发送队列清空后断开连接。
	Disconnect()
	// Abort 丢弃未发送的数据并立即断开连接。
	Abort()
	// Connected 报告连接是否仍然可用。
	Connected() bool
	// NewResponse 为当前请求签发一个新的响应。
	NewResponse() *Response
	// Post 将 fn 投递到连接的事件循环中执行，连接已销毁时返回 false。
	//
	// 处理器之外的协程必须借此操作响应。
	Post(fn func()) bool
}

// ResponseState 是响应的生命周期状态。
type ResponseState int

const (
	StateHeadersPending ResponseState = iota
	StateHeadersSent
	StateBodyStreaming
	StateClosed
	StateDetached
)

func (s ResponseState) String() string {
	switch s {
	case StateHeadersPending:
		return "headers-pending"
	case StateHeadersSent:
		return "headers-sent"
	case StateBodyStreaming:
		return "body-streaming"
	case StateClosed:
		return "closed"
	case StateDetached:
		return "detached"
	}
	return "unknown"
}

// DrainState 是发送状态机的状态，每次可写事件都会重新进入。
type DrainState int

const (
	DrainHeadersPending DrainState = iota
	DrainBodyPending
	DrainDraining
	DrainDone
)

var lastChunk = []byte("0\r\n\r\n")

// Response 表示一个待发送的 HTTP 响应。
//
// 非分块响应先缓存全部正文，刷新时一次性计算 Content-Length 并按需压缩；
// 分块响应每次 Write 即生成一个分块并安排发送。
// 由所属连接独占，禁止拷贝，只能在连接的事件循环中使用。
type Response struct {
	noCopy nocopy.NoCopy

	link Link
	req  *Request

	statusCode int
	statusText string
	header     Header
	cookies    map[string]*Cookie

	headerBuf []byte
	body      []byte
	headerOff int
	bodyOff   int

	headersSent bool
	flushed     bool
	scheduled   bool
	terminated  bool
	closeAfter  bool
	deleteAfter bool

	state ResponseState
	drain DrainState

	flushTimeout time.Duration
}

// NewResponse 创建绑定到连接 link 的响应，req 用于协商压缩，可以为空。
//
// flushTimeout 是 Close 同步刷新的最长等待，不大于 0 时使用默认值。
func NewResponse(link Link, req *Request, flushTimeout time.Duration) *Response {
	if flushTimeout <= 0 {
		flushTimeout = consts.DefaultCloseFlushTimeout
	}
	return &Response{
		link:         link,
		req:          req,
		statusCode:   consts.StatusOK,
		statusText:   consts.StatusMessage(consts.StatusOK),
		flushTimeout: flushTimeout,
	}
}

// Link 返回所属连接。
func (r *Response) Link() Link { return r.link }

// Request 返回响应对应的请求。
func (r *Response) Request() *Request { return r.req }

// State 返回响应的生命周期状态。
func (r *Response) State() ResponseState { return r.state }

// DrainState 返回发送状态机的当前状态。
func (r *Response) DrainState() DrainState { return r.drain }

// IsConnected 报告所属连接是否仍然可用。
func (r *Response) IsConnected() bool { return r.link.Connected() }

// StatusCode 返回状态码。
func (r *Response) StatusCode() int { return r.statusCode }

// SetStatus 设置状态码及原因短语。
func (r *Response) SetStatus(code int, text string) {
	r.statusCode = code
	r.statusText = text
}

// SetStatusCode 设置状态码，原因短语取标准值。
func (r *Response) SetStatusCode(code int) {
	r.SetStatus(code, consts.StatusMessage(code))
}

// Header 返回响应标头。标头发送后的修改不再生效。
func (r *Response) Header() *Header { return &r.header }

// SetHeader 设置响应标头，标头已发送时忽略。
func (r *Response) SetHeader(key, value string) {
	if r.headersSent {
		return
	}
	r.header.Set(key, value)
}

// SetContentType 设置 Content-Type 标头。
func (r *Response) SetContentType(ct string) {
	r.SetHeader(consts.HeaderContentType, ct)
}

// SetChunked 启用分块传输编码，禁止发送标头的后续响应也可以启用。
func (r *Response) SetChunked() {
	if r.state != StateHeadersPending {
		return
	}
	r.header.Set(consts.HeaderTransferEncoding, consts.ValueChunked)
}

// Chunked 报告是否使用分块传输编码。
func (r *Response) Chunked() bool {
	return strings.EqualFold(r.header.Get(consts.HeaderTransferEncoding), consts.ValueChunked)
}

// SetCookie 设置待下发的 cookie，同名 cookie 被替换，名称为空时忽略。
func (r *Response) SetCookie(c *Cookie) {
	if c == nil || c.Name == "" {
		return
	}
	if r.cookies == nil {
		r.cookies = make(map[string]*Cookie)
	}
	r.cookies[c.Name] = c
}

// Cookie 返回待下发的同名 cookie，不存在返回 nil。
func (r *Response) Cookie(name string) *Cookie { return r.cookies[name] }

// SetSendHeaders 设置是否发送标头。
//
// 同一请求上的后续响应传入 false，以免重复发送标头。
func (r *Response) SetSendHeaders(send bool) {
	r.headersSent = !send
}

// HeadersSent 报告标头是否已生成或已被禁止发送。
func (r *Response) HeadersSent() bool { return r.headersSent }

// Write 写入正文。
//
// 分块模式下每次调用生成一个分块并安排发送；否则追加到正文缓冲，刷新后的写入被忽略。
func (r *Response) Write(p []byte) (int, error) {
	if r.state == StateClosed || r.state == StateDetached {
		return 0, errs.ErrConnectionClosed
	}

	if r.Chunked() {
		if len(p) == 0 {
			return 0, nil
		}
		r.WriteHeaders()
		r.body = bytesconv.AppendHexUint(r.body, len(p))
		r.body = append(r.body, '\r', '\n')
		r.body = append(r.body, p...)
		r.body = append(r.body, '\r', '\n')
		r.state = StateBodyStreaming
		r.schedule()
		return len(p), nil
	}

	if r.flushed {
		hlog.SystemLogger().Debugf("响应已刷新，忽略写入：字节=%d", len(p))
		return 0, errs.ErrResponseFlushed
	}
	r.body = append(r.body, p...)
	return len(p), nil
}

// WriteString 写入字符串形式的正文。
func (r *Response) WriteString(s string) (int, error) {
	return r.Write(bytesconv.S2b(s))
}

// WriteHeaders 生成标头字节，重复调用无效。
//
// 非分块响应在此决定是否压缩并重新计算 Content-Length：
// 内容类型可压缩、客户端接受 gzip 且状态码为 200 时压缩正文。
// 分块响应不发送 Content-Length，处理器设置的也会被去掉。
func (r *Response) WriteHeaders() {
	if r.headersSent {
		return
	}
	r.headersSent = true

	if r.Chunked() {
		r.header.Del(consts.HeaderContentLength)
	} else {
		if r.statusCode == consts.StatusOK && r.compressible() && r.req != nil && r.req.AcceptsGzip() {
			r.header.Set(consts.HeaderContentEncoding, consts.ValueGzip)
		}
		if strings.EqualFold(r.header.Get(consts.HeaderContentEncoding), consts.ValueGzip) {
			r.body = compress.Compress(r.body)
		}
		r.header.Set(consts.HeaderContentLength, strconv.Itoa(len(r.body)))
	}

	b := r.headerBuf[:0]
	if r.statusText == consts.StatusMessage(r.statusCode) {
		b = append(b, consts.StatusLine(r.statusCode)...)
	} else {
		b = append(b, "HTTP/1.1 "...)
		b = bytesconv.AppendUint(b, r.statusCode)
		b = append(b, ' ')
		b = append(b, r.statusText...)
		b = append(b, '\r', '\n')
	}
	b = r.header.AppendSorted(b)

	names := make([]string, 0, len(r.cookies))
	for name := range r.cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b = append(b, consts.HeaderSetCookie...)
		b = append(b, ':', ' ')
		b = r.cookies[name].AppendBytes(b)
		b = append(b, '\r', '\n')
	}
	r.headerBuf = append(b, '\r', '\n')
	r.state = StateHeadersSent
}

func (r *Response) compressible() bool {
	ct := strings.ToLower(r.header.Get(consts.HeaderContentType))
	for _, prefix := range consts.GzipContentTypes {
		if strings.HasPrefix(ct, prefix) {
			return true
		}
	}
	return false
}

// Flush 生成标头并安排异步发送。非分块响应刷新后即为完整响应。
func (r *Response) Flush() {
	if r.state == StateClosed || r.state == StateDetached {
		return
	}
	if !r.Chunked() {
		r.flushed = true
	}
	if !r.link.Connected() {
		return
	}
	r.WriteHeaders()
	r.schedule()
}

// FlushAndClose 刷新响应，全部发送后断开连接。
func (r *Response) FlushAndClose() {
	r.closeAfter = true
	r.Flush()
}

// FlushAndDelete 刷新响应，全部发送后将其从连接中移除。
func (r *Response) FlushAndDelete() {
	r.deleteAfter = true
	r.Flush()
}

// Close 同步刷新响应并断开连接，最多等待 flushTimeout。
//
// 分块响应会先发送结束分块。这是核心中唯一的阻塞点。
func (r *Response) Close() {
	if !r.link.Connected() {
		return
	}
	if r.drain == DrainDone {
		r.link.Disconnect()
		return
	}
	r.closeAfter = true
	r.flushed = true
	r.WriteHeaders()
	r.scheduled = true

	deadline := time.Now().Add(r.flushTimeout)
	for {
		r.Drain()
		if r.drain == DrainDone {
			return
		}
		remaining := time.Until(deadline)
		if remaining <= 0 || r.link.WaitFlushed(remaining) != nil {
			hlog.SystemLogger().Warnf("响应刷新超时，强制断开连接：等待=%s", r.flushTimeout)
			r.link.Abort()
			r.drain = DrainDone
			r.state = StateClosed
			return
		}
	}
}

func (r *Response) schedule() {
	r.scheduled = true
	if r.drain == DrainDraining {
		r.drain = DrainBodyPending
	}
	r.link.ScheduleDrain()
}

// Pending 报告响应是否还有已安排但未放入发送队列的字节。
func (r *Response) Pending() bool {
	return r.scheduled && r.drain != DrainDone &&
		(r.headerOff < len(r.headerBuf) || r.bodyOff < len(r.body))
}

// Done 报告响应是否已结束。
func (r *Response) Done() bool { return r.drain == DrainDone }

// Drain 推进发送状态机：依次发送剩余的标头字节与正文字节，
// 两者各自记录已发送偏移，队列已满时返回，等待下一次可写事件。
//
// 全部发送后，分块响应在有关闭或移除意图时追加结束分块，随后执行该意图。
func (r *Response) Drain() {
	if !r.scheduled || r.drain == DrainDone || !r.link.Connected() {
		return
	}

	for {
		switch r.drain {
		case DrainHeadersPending:
			if !r.sendPart(r.headerBuf, &r.headerOff) {
				return
			}
			r.drain = DrainBodyPending

		case DrainBodyPending:
			if r.bodyOff < len(r.body) && r.state == StateHeadersSent {
				r.state = StateBodyStreaming
			}
			if !r.sendPart(r.body, &r.bodyOff) {
				return
			}
			if r.Chunked() {
				r.body = r.body[:0]
				r.bodyOff = 0
			}
			r.drain = DrainDraining

		case DrainDraining:
			if !r.closeAfter && !r.deleteAfter {
				if !r.Chunked() {
					r.finish()
				}
				return
			}
			if r.Chunked() && !r.terminated {
				r.terminated = true
				r.body = append(r.body, lastChunk...)
				r.drain = DrainBodyPending
				continue
			}
			r.finish()
			return

		default:
			return
		}
	}
}

func (r *Response) sendPart(b []byte, off *int) bool {
	for *off < len(b) {
		n, err := r.link.Send(b[*off:])
		*off += n
		if err != nil || n == 0 {
			return false
		}
	}
	return true
}

func (r *Response) finish() {
	r.drain = DrainDone
	if r.deleteAfter {
		r.state = StateDetached
	} else {
		r.state = StateClosed
	}
	if r.closeAfter {
		r.link.Disconnect()
	}
}
