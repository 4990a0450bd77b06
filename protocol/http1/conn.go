package http1

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	errs "github.com/favbox/breeze/common/errors"
	"github.com/favbox/breeze/common/hlog"
	"github.com/favbox/breeze/common/tracer"
	"github.com/favbox/breeze/network"
	"github.com/favbox/breeze/protocol"
	"github.com/favbox/breeze/protocol/consts"
)

const maxRequestLog = 100

var (
	entityTooLarge = []byte("HTTP/1.1 413 entity too large\r\nConnection: close\r\n\r\n413 entity too large\r\n")
	requestTimeout = []byte("HTTP/1.1 408 request timeout\r\nConnection: close\r\n\r\n408 request timeout\r\n")
)

var (
	_ network.Handler = (*Conn)(nil)
	_ protocol.Link   = (*Conn)(nil)
)

// Option 表示 HTTP/1.1 连接选项。
type Option struct {
	Timeout           time.Duration     // 闲置超时，0 代表永不超时
	GraceWindow       time.Duration     // 处理中断开时延迟销毁的时长
	CloseFlushTimeout time.Duration     // Response.Close 的最长等待
	Limits            protocol.Limits   // 请求大小限制
	Tracer            tracer.Controller // 跟踪控制器，可以为空
}

// RequestStatus 是连接请求日志中的一条记录。
type RequestStatus struct {
	Object     string    `json:"object"`
	Path       string    `json:"path"`
	Time       time.Time `json:"time"`
	Method     string    `json:"method"`
	Status     string    `json:"status"`
	Connection string    `json:"connection"`
}

type logEntry struct {
	req    *protocol.Request
	path   string
	method string
	time   time.Time
	status protocol.ParseStatus
}

// Conn 是一个 HTTP/1.1 服务端连接。
//
// 它接收传输层事件，增量解析请求，将完整的请求交给处理器，
// 并在连接可写时推进响应的发送。除 OnReadable、OnWritten、OnDisconnected、
// Post、WebStatus 和证书相关方法外，其余方法只能在连接的事件循环中调用。
type Conn struct {
	sock    network.Socket
	handler protocol.Handler
	loop    *Loop
	ownLoop bool
	opt     Option
	object  string

	input     []byte
	req       *protocol.Request
	last      *protocol.Request
	finished  []*protocol.Request
	responses []*protocol.Response

	inService   bool
	closing     bool
	drainQueued bool

	timer    *time.Timer
	timerGen uint64
	kill     *time.Timer

	disconnected atomic.Bool
	destroyed    atomic.Bool

	mu  sync.Mutex
	log []*logEntry

	onDestroy func(c *Conn)
}

// NewConn 创建绑定到 sock 的连接。
//
// loop 为空时连接独占一个新的事件循环，并在销毁时关闭它。
// onDestroy 在连接销毁后于事件循环中调用，可以为空。
func NewConn(sock network.Socket, handler protocol.Handler, loop *Loop, opt Option, onDestroy func(c *Conn)) *Conn {
	c := &Conn{
		sock:      sock,
		handler:   handler,
		loop:      loop,
		opt:       opt,
		onDestroy: onDestroy,
	}
	if c.loop == nil {
		c.loop = NewLoop()
		c.ownLoop = true
	}
	c.object = fmt.Sprintf("0x%016x", uintptr(unsafe.Pointer(c)))
	c.loop.Post(c.restartTimer)
	return c
}

// OnReadable 实现 network.Handler，等待数据处理完毕后返回。
func (c *Conn) OnReadable(data []byte) {
	if c.destroyed.Load() {
		return
	}
	c.loop.Call(func() { c.handleReadable(data) })
}

// OnWritten 实现 network.Handler。
func (c *Conn) OnWritten(int) {
	if c.destroyed.Load() {
		return
	}
	c.loop.Post(c.drainResponses)
}

// OnDisconnected 实现 network.Handler。
func (c *Conn) OnDisconnected() {
	c.disconnected.Store(true)
	if !c.loop.Post(c.handleDisconnected) {
		<-c.loop.Done()
		c.teardown()
	}
}

func (c *Conn) handleReadable(data []byte) {
	if c.destroyed.Load() || c.closing || !c.Connected() {
		return
	}
	c.restartTimer()
	c.input = append(c.input, data...)
	c.process()
}

// 在剩余字节上持续解析，一个请求完成后继续解析下一个。
func (c *Conn) process() {
	for len(c.input) > 0 && !c.closing && c.Connected() {
		if c.req == nil {
			c.beginRequest()
		}
		n := c.req.Feed(c.input)
		c.input = c.input[:copy(c.input, c.input[n:])]
		c.updateLog(c.req)

		switch c.req.Status() {
		case protocol.Aborted:
			c.reject()
			return
		case protocol.Complete:
			c.dispatch()
		default:
			return
		}
	}
}

func (c *Conn) beginRequest() {
	for _, req := range c.finished {
		req.Cleanup()
	}
	clear(c.finished)
	c.finished = c.finished[:0]

	c.req = protocol.NewRequest(c.opt.Limits)
	c.mu.Lock()
	if len(c.log) >= maxRequestLog {
		copy(c.log, c.log[1:])
		c.log = c.log[:len(c.log)-1]
	}
	c.log = append(c.log, &logEntry{req: c.req, time: c.req.Created()})
	c.mu.Unlock()
}

func (c *Conn) updateLog(req *protocol.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.log) - 1; i >= 0; i-- {
		if e := c.log[i]; e.req == req {
			e.path = req.Path()
			e.method = req.Method()
			e.status = req.Status()
			if req.Done() {
				e.req = nil
			}
			return
		}
	}
}

// 请求被中止：请求行格式错误时直接关闭，否则回复 413 后关闭。
func (c *Conn) reject() {
	req := c.req
	c.req = nil
	c.finished = append(c.finished, req)
	c.stopTimer()

	if errors.Is(req.Err(), errs.ErrBadRequestLine) {
		hlog.SystemLogger().Debugf("请求行格式错误，关闭连接：远端=%s", c.sock.RemoteAddr())
	} else {
		hlog.SystemLogger().Errorf(hlog.EngineErrorFormat, req.Err(), c.sock.RemoteAddr())
		_, _ = c.sock.Send(entityTooLarge)
	}
	c.closeWhenDrained()
}

func (c *Conn) dispatch() {
	req := c.req
	c.req = nil
	c.last = req
	c.finished = append(c.finished, req)
	c.stopTimer()

	resp := c.newResponse(req)
	trace := c.opt.Tracer != nil && c.opt.Tracer.HasTracer()
	start := time.Now()
	if trace {
		c.opt.Tracer.DoStart(req)
	}
	c.serve(req, resp)
	if trace {
		c.opt.Tracer.DoFinish(req, resp, time.Since(start))
	}

	c.drainResponses()
	if !c.Connected() {
		c.teardown()
		return
	}
	if req.ConnectionClose() {
		c.closeWhenDrained()
		return
	}
	c.restartTimer()
}

func (c *Conn) serve(req *protocol.Request, resp *protocol.Response) {
	c.inService = true
	defer func() {
		c.inService = false
		if r := recover(); r != nil {
			hlog.SystemLogger().Errorf("处理器出现恐慌：路径=%s 错误=%v\n%s", req.Path(), r, debug.Stack())
			_ = c.sock.Abort()
		}
	}()
	c.handler.Service(req, resp)
}

func (c *Conn) newResponse(req *protocol.Request) *protocol.Response {
	resp := protocol.NewResponse(c, req, c.opt.CloseFlushTimeout)
	c.responses = append(c.responses, resp)
	return resp
}

// 依次推进全部响应的发送，移除已结束的响应。
func (c *Conn) drainResponses() {
	c.drainQueued = false
	if c.destroyed.Load() {
		return
	}
	live := c.responses[:0]
	for _, r := range c.responses {
		r.Drain()
		if !r.Done() {
			live = append(live, r)
		}
	}
	clear(c.responses[len(live):])
	c.responses = live

	if c.closing && !c.pending() {
		_ = c.sock.Close()
	}
}

func (c *Conn) pending() bool {
	for _, r := range c.responses {
		if r.Pending() {
			return true
		}
	}
	return false
}

// 不再读取新请求，待已安排的响应全部放入发送队列后关闭连接。
func (c *Conn) closeWhenDrained() {
	c.closing = true
	c.input = c.input[:0]
	if !c.pending() {
		_ = c.sock.Close()
	}
}

func (c *Conn) handleDisconnected() {
	if c.destroyed.Load() {
		return
	}
	c.stopTimer()
	if c.req != nil {
		c.finished = append(c.finished, c.req)
		c.req = nil
	}
	if c.inService || len(c.responses) > 0 {
		hlog.SystemLogger().Debugf("连接断开，延迟销毁：远端=%s 等待=%s", c.sock.RemoteAddr(), c.opt.GraceWindow)
		time.AfterFunc(c.opt.GraceWindow, func() {
			if !c.loop.Post(c.teardown) {
				<-c.loop.Done()
				c.teardown()
			}
		})
		return
	}
	c.teardown()
}

func (c *Conn) teardown() {
	if !c.destroyed.CompareAndSwap(false, true) {
		return
	}
	c.stopTimer()
	if c.kill != nil {
		c.kill.Stop()
	}
	_ = c.sock.Close()

	if c.req != nil {
		c.finished = append(c.finished, c.req)
		c.req = nil
	}
	for _, req := range c.finished {
		req.Cleanup()
	}
	c.finished = nil
	c.responses = nil
	c.input = nil

	if c.ownLoop {
		c.loop.Close()
	}
	if c.onDestroy != nil {
		c.onDestroy(c)
	}
}

func (c *Conn) restartTimer() {
	c.stopTimer()
	if c.opt.Timeout <= 0 || c.destroyed.Load() {
		return
	}
	gen := c.timerGen
	c.timer = time.AfterFunc(c.opt.Timeout, func() {
		c.loop.Post(func() { c.onTimeout(gen) })
	})
}

func (c *Conn) stopTimer() {
	c.timerGen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// 闲置超时：尽力回复 408 后断开，发送队列迟迟不能清空则强制关闭。
func (c *Conn) onTimeout(gen uint64) {
	if gen != c.timerGen || c.destroyed.Load() || !c.Connected() {
		return
	}
	hlog.SystemLogger().Debugf("连接闲置超时：远端=%s 超时=%s", c.sock.RemoteAddr(), c.opt.Timeout)
	_, _ = c.sock.Send(requestTimeout)
	c.closing = true
	_ = c.sock.Close()

	wait := c.opt.CloseFlushTimeout
	if wait <= 0 {
		wait = consts.DefaultCloseFlushTimeout
	}
	sock := c.sock
	c.kill = time.AfterFunc(wait, func() { _ = sock.Abort() })
}

// Send 实现 protocol.Link。
func (c *Conn) Send(b []byte) (int, error) {
	return c.sock.Send(b)
}

// ScheduleDrain 实现 protocol.Link。
func (c *Conn) ScheduleDrain() {
	if c.drainQueued || c.destroyed.Load() {
		return
	}
	c.drainQueued = c.loop.Post(c.drainResponses)
}

// WaitFlushed 实现 protocol.Link。
func (c *Conn) WaitFlushed(timeout time.Duration) error {
	return c.sock.WaitFlushed(timeout)
}

// Disconnect 实现 protocol.Link，发送队列清空后断开。
func (c *Conn) Disconnect() {
	c.closing = true
	c.stopTimer()
	_ = c.sock.Close()
}

// Abort 实现 protocol.Link。
func (c *Conn) Abort() {
	c.closing = true
	_ = c.sock.Abort()
}

// Connected 实现 protocol.Link。
func (c *Conn) Connected() bool {
	return !c.disconnected.Load() && !c.destroyed.Load() && c.sock.IsActive()
}

// NewResponse 实现 protocol.Link，为最近的请求签发新的响应并重新计时。
func (c *Conn) NewResponse() *protocol.Response {
	if !c.inService {
		c.restartTimer()
	}
	return c.newResponse(c.last)
}

// Post 实现 protocol.Link。
func (c *Conn) Post(fn func()) bool {
	if c.destroyed.Load() {
		return false
	}
	return c.loop.Post(func() {
		if !c.destroyed.Load() {
			fn()
		}
	})
}

// Destroyed 报告连接是否已销毁。
func (c *Conn) Destroyed() bool {
	return c.destroyed.Load()
}

// Object 返回连接的标识。
func (c *Conn) Object() string {
	return c.object
}

// RemoteAddr 返回对端地址。
func (c *Conn) RemoteAddr() net.Addr {
	return c.sock.RemoteAddr()
}

// PeerCertificate 返回对端证书，明文连接或对端未出示证书时返回 nil。
func (c *Conn) PeerCertificate() *x509.Certificate {
	if st := c.sock.TLSState(); st != nil {
		return st.PeerCertificate
	}
	return nil
}

// Verified 报告对端证书是否通过校验。
func (c *Conn) Verified() bool {
	st := c.sock.TLSState()
	return st != nil && st.Verified
}

// CommonName 返回对端证书的通用名称，证书缺失、尚未生效或已过期时返回空。
func (c *Conn) CommonName() string {
	cert := c.PeerCertificate()
	if cert == nil {
		return ""
	}
	now := time.Now()
	if now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
		return ""
	}
	return cert.Subject.CommonName
}

// WebStatus 返回连接请求日志的快照。
func (c *Conn) WebStatus() []RequestStatus {
	connection := "connected"
	if !c.Connected() {
		connection = "disconnected"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	list := make([]RequestStatus, 0, len(c.log))
	for _, e := range c.log {
		list = append(list, RequestStatus{
			Object:     c.object,
			Path:       e.path,
			Time:       e.time,
			Method:     e.method,
			Status:     e.status.String(),
			Connection: connection,
		})
	}
	return list
}
