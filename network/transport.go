package network

import (
	"context"
	"net"
)

// Transporter 表示网络传输层接口。
type Transporter interface {
	// ListenAndServe 监听并为每个接受的连接调用 onConnect。
	ListenAndServe(onConnect OnConnect) error

	// ListenAddr 返回实际监听的地址，未监听时返回 nil。
	ListenAddr() net.Addr

	// Close 立即关闭传输器及全部连接。
	Close() error

	// Shutdown 停止接受新连接，并等待已有连接关闭，直至 ctx 结束。
	Shutdown(ctx context.Context) error
}

// OnConnect 在连接建立（含 TLS 握手）后调用，返回该连接的事件接收者。
type OnConnect func(sock Socket) Handler
