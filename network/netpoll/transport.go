package netpoll

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/cloudwego/netpoll"
	"github.com/favbox/breeze/common/config"
	errs "github.com/favbox/breeze/common/errors"
	"github.com/favbox/breeze/common/hlog"
	"github.com/favbox/breeze/network"
)

var _ network.Transporter = (*transport)(nil)

func init() {
	// 禁用 netpoll 的日志
	netpoll.SetLoggerOutput(io.Discard)
}

type ctxSocketKey struct{}

type transport struct {
	sync.RWMutex
	network      string
	addr         string
	outboxSize   int
	useTLS       bool
	listener     net.Listener
	eventLoop    netpoll.EventLoop
	listenConfig *net.ListenConfig
}

// ListenAndServe 绑定监听地址并持续服务，除非出现错误或传输器关闭。
// 配置了 TLS 时不会以明文监听，而是返回 ErrorTypeTLS 类型的错误。
func (t *transport) ListenAndServe(onConnect network.OnConnect) (err error) {
	if t.useTLS {
		return errs.New(errs.ErrTLSUnsupported, errs.ErrorTypeTLS, t.addr)
	}
	_ = network.UnlinkUdsFile(t.network, t.addr)
	ln, err := t.listenConfig.Listen(context.Background(), t.network, t.addr)
	if err != nil {
		return err
	}

	opts := []netpoll.Option{
		netpoll.WithOnPrepare(func(conn netpoll.Connection) context.Context {
			s := newSocket(conn, t.outboxSize)
			s.handler = onConnect(s)
			s.outbox.Start(s.handler.OnWritten)
			_ = conn.AddCloseCallback(func(netpoll.Connection) error {
				_ = s.outbox.Abort()
				<-s.outbox.Done()
				s.handler.OnDisconnected()
				return nil
			})
			return context.WithValue(context.Background(), ctxSocketKey{}, s)
		}),
	}

	t.Lock()
	t.listener = ln
	t.eventLoop, err = netpoll.NewEventLoop(onRequest, opts...)
	t.Unlock()
	if err != nil {
		_ = ln.Close()
		return err
	}

	hlog.SystemLogger().Infof("HTTP服务器监听地址=%s 网络库=netpoll", ln.Addr().String())
	t.RLock()
	el := t.eventLoop
	t.RUnlock()
	return el.Serve(ln)
}

// 将可读数据整体投递给连接的事件接收者。
func onRequest(ctx context.Context, conn netpoll.Connection) error {
	s, ok := ctx.Value(ctxSocketKey{}).(*socket)
	if !ok {
		return conn.Close()
	}
	r := conn.Reader()
	n := r.Len()
	if n == 0 {
		return nil
	}
	data, err := r.Next(n)
	if err != nil {
		return err
	}
	s.handler.OnReadable(data)
	return r.Release()
}

func (t *transport) ListenAddr() net.Addr {
	t.RLock()
	defer t.RUnlock()
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

// Close 强制传输器立即关闭（无超时等待）。
func (t *transport) Close() error {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return t.Shutdown(ctx)
}

// Shutdown 停止监听器并优雅关闭。 将等待所有连接关闭，直到触达截止时间。
func (t *transport) Shutdown(ctx context.Context) error {
	defer func() {
		_ = network.UnlinkUdsFile(t.network, t.addr)
	}()
	t.RLock()
	el := t.eventLoop
	t.RUnlock()
	if el == nil {
		return nil
	}
	return el.Shutdown(ctx)
}

// NewTransporter 创建 netpoll 网络传输器。不支持 TLS，需要 TLS 时请使用标准库传输器。
func NewTransporter(options *config.Options) network.Transporter {
	listenConfig := options.ListenConfig
	if listenConfig == nil {
		listenConfig = &net.ListenConfig{Control: network.ListenControl}
	}
	return &transport{
		network:      options.Network,
		addr:         options.Addr,
		outboxSize:   options.OutboxSize,
		useTLS:       options.UseTLS,
		listenConfig: listenConfig,
	}
}
