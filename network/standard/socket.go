package standard

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/favbox/breeze/network"
)

// socket 是基于标准库连接的 network.Socket 实现。
type socket struct {
	conn   net.Conn
	outbox *network.Outbox
	tls    *network.TLSState
	active atomic.Bool
}

func newSocket(conn net.Conn, outboxSize int, st *network.TLSState) *socket {
	s := &socket{conn: conn, tls: st}
	s.outbox = network.NewOutbox(conn, s.closeConn, outboxSize)
	s.active.Store(true)
	return s
}

func (s *socket) closeConn() error {
	s.active.Store(false)
	return s.conn.Close()
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
	return s.active.Load() && !s.outbox.Closed()
}

func (s *socket) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *socket) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

func (s *socket) TLSState() *network.TLSState {
	return s.tls
}
