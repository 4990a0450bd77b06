package mock

import (
	"bytes"
	"net"
	"sync"
	"time"

	errs "github.com/favbox/breeze/common/errors"
	"github.com/favbox/breeze/common/utils"
	"github.com/favbox/breeze/network"
)

var _ network.Socket = (*Socket)(nil)

// Socket 是内存中的 network.Socket 实现，用于连接相关的单元测试。
//
// 发送的数据记录在内存里，容量耗尽后 Send 返回 0，
// 直到调用 Flush 模拟内核写出并回调 OnWritten。
type Socket struct {
	mu       sync.Mutex
	out      bytes.Buffer
	capacity int
	pending  int
	closing  bool
	aborted  bool
	tls      *network.TLSState
	handler  network.Handler
	done     chan struct{}

	// AutoFlush 为 true 时 WaitFlushed 立即清空队列。
	AutoFlush bool

	local  net.Addr
	remote net.Addr
}

// NewSocket 创建发送队列容量为 capacity 的模拟连接，不大于 0 则不限容量。
func NewSocket(capacity int) *Socket {
	return &Socket{
		capacity:  capacity,
		done:      make(chan struct{}),
		AutoFlush: true,
		local:     utils.NewNetAddr("tcp", "127.0.0.1:8080"),
		remote:    utils.NewNetAddr("tcp", "127.0.0.1:50000"),
	}
}

// SetHandler 设置接收 OnWritten 回调的事件接收者。
func (s *Socket) SetHandler(h network.Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// SetTLSState 设置 TLS 握手结果。
func (s *Socket) SetTLSState(st *network.TLSState) {
	s.tls = st
}

func (s *Socket) Send(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing || s.aborted {
		return 0, errs.ErrConnectionClosed
	}
	n := len(b)
	if s.capacity > 0 {
		n = min(n, s.capacity-s.pending)
	}
	if n <= 0 {
		return 0, nil
	}
	s.out.Write(b[:n])
	s.pending += n
	return n, nil
}

func (s *Socket) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Flush 模拟发送队列写出，并回调 OnWritten。
func (s *Socket) Flush() {
	s.mu.Lock()
	n := s.pending
	s.pending = 0
	h := s.handler
	s.mu.Unlock()
	if n > 0 && h != nil {
		h.OnWritten(n)
	}
}

func (s *Socket) WaitFlushed(timeout time.Duration) error {
	if s.AutoFlush {
		s.Flush()
		return nil
	}
	if s.Buffered() == 0 {
		return nil
	}
	time.Sleep(timeout)
	return errs.ErrTimeout
}

func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closing && !s.aborted {
		s.closing = true
		close(s.done)
	}
	return nil
}

func (s *Socket) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closing && !s.aborted {
		close(s.done)
	}
	s.aborted = true
	return nil
}

func (s *Socket) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closing && !s.aborted
}

func (s *Socket) LocalAddr() net.Addr  { return s.local }
func (s *Socket) RemoteAddr() net.Addr { return s.remote }

func (s *Socket) TLSState() *network.TLSState { return s.tls }

// Output 返回迄今发送的全部数据。
func (s *Socket) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.String()
}

// Closed 报告连接是否已被优雅关闭。
func (s *Socket) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing && !s.aborted
}

// Aborted 报告连接是否被强制关闭。
func (s *Socket) Aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

// Done 在连接首次关闭时关闭。
func (s *Socket) Done() <-chan struct{} {
	return s.done
}
