package netpoll

import (
	"net"
	"time"

	"github.com/cloudwego/netpoll"
	"github.com/favbox/breeze/network"
)

// socket 是基于 netpoll 连接的 network.Socket 实现。
type socket struct {
	conn    netpoll.Connection
	outbox  *network.Outbox
	handler network.Handler
}

func newSocket(conn netpoll.Connection, outboxSize int) *socket {
	s := &socket{conn: conn}
	s.outbox = network.NewOutbox(conn, conn.Close, outboxSize)
	return s
}

func (s *socket) Send(b []byte) (int, error) {
	return s.outbox.Send(b)
}

func (s *socket) Buffered() int {
	return s.outbox.Buffered()
}

func (s *socket) WaitFlushed(timeout time.Duration) error {
	return s.outbox.WaitFlushed(timeout)
}

func (s *socket) Close() error {
	return s.outbox.Close()
}

func (s *socket) Abort() error {
	return s.outbox.Abort()
}

func (s *socket) IsActive() bool {
	return s.conn.IsActive() && !s.outbox.Closed()
}

func (s *socket) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *socket) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// TLSState 始终返回 nil，netpoll 传输器仅支持明文。
func (s *socket) TLSState() *network.TLSState {
	return nil
}
