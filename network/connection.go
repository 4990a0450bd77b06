package network

import (
	"crypto/x509"
	"net"
	"time"
)

// Socket 表示一个已接受的服务端连接。
//
// 所有写入都不会阻塞：Send 只接受发送队列剩余容量内的数据，
// 写入完成后通过 Handler.OnWritten 通知调用方继续发送。
type Socket interface {
	// Send 将 b 的前缀放入发送队列并返回放入的字节数，队列已满时返回 0。
	Send(b []byte) (int, error)

	// Buffered 返回尚未写入内核的字节数。
	Buffered() int

	// WaitFlushed 阻塞至发送队列清空或超时。
	WaitFlushed(timeout time.Duration) error

	// Close 在发送队列清空后关闭连接。
	Close() error

	// Abort 丢弃未发送的数据并立即关闭连接。
	Abort() error

	// IsActive 报告连接是否仍可读写。
	IsActive() bool

	LocalAddr() net.Addr
	RemoteAddr() net.Addr

	// TLSState 返回 TLS 握手结果，明文连接返回 nil。
	TLSState() *TLSState
}

// TLSState 记录一次握手的对端证书与校验结果。
type TLSState struct {
	// PeerCertificate 是对端出示的叶子证书，可能为空。
	PeerCertificate *x509.Certificate
	// Verified 为 false 表示存在未被忽略的校验错误。
	Verified bool
	// Errors 是握手时出现的全部校验错误，包括已忽略的。
	Errors []TLSVerifyError
}

// Handler 接收单个连接的事件。
//
// 同一连接的事件由传输器串行投递；OnDisconnected 至多投递一次，且在最后。
type Handler interface {
	// OnReadable 投递新到达的数据，返回前 data 不会被复用。
	OnReadable(data []byte)
	// OnWritten 报告已写入内核的字节数。
	OnWritten(n int)
	// OnDisconnected 报告连接已断开。
	OnDisconnected()
}
