package standard

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/favbox/breeze/common/config"
	"github.com/favbox/breeze/common/hlog"
	"github.com/favbox/breeze/common/utils"
	"github.com/favbox/breeze/network"
)

const handshakeTimeout = 10 * time.Second

var _ network.Transporter = (*transport)(nil)

type transport struct {
	// 每次读取的缓冲区大小，未设置则使用默认值。
	readBufferSize int
	outboxSize     int
	network        string
	addr           string
	onConnect      network.OnConnect
	ln             net.Listener
	listenConfig   *net.ListenConfig
	lock           sync.Mutex

	useTLS     bool
	keyFile    string
	certFile   string
	caFile     string
	tls        *tls.Config
	roots      *x509.CertPool
	policy     network.TLSPolicy
	handshakes sync.WaitGroup

	conns   map[*socket]struct{}
	connsWg sync.WaitGroup
	closed  bool
}

func (t *transport) ListenAndServe(onConnect network.OnConnect) error {
	t.onConnect = onConnect
	return t.serve()
}

func (t *transport) ListenAddr() net.Addr {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.ln == nil {
		return nil
	}
	return t.ln.Addr()
}

func (t *transport) Close() error {
	t.lock.Lock()
	t.closed = true
	if t.ln != nil {
		_ = t.ln.Close()
	}
	for s := range t.conns {
		_ = s.Abort()
	}
	t.lock.Unlock()
	_ = network.UnlinkUdsFile(t.network, t.addr)
	return nil
}

func (t *transport) Shutdown(ctx context.Context) error {
	defer func() {
		_ = network.UnlinkUdsFile(t.network, t.addr)
	}()

	t.lock.Lock()
	if t.ln != nil {
		_ = t.ln.Close()
	}
	t.lock.Unlock()

	done := make(chan struct{})
	go func() {
		t.handshakes.Wait()
		t.connsWg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *transport) serve() (err error) {
	if t.useTLS {
		t.tls, t.roots, err = LoadTLSConfig(t.keyFile, t.certFile, t.caFile)
		if err != nil {
			return err
		}
	}

	_ = network.UnlinkUdsFile(t.network, t.addr)
	t.lock.Lock()
	if t.closed {
		t.lock.Unlock()
		return nil
	}
	t.ln, err = t.listenConfig.Listen(context.Background(), t.network, t.addr)
	t.lock.Unlock()
	if err != nil {
		return err
	}
	hlog.SystemLogger().Infof("HTTP服务器监听地址=%s TLS=%t", t.ln.Addr().String(), t.useTLS)

	for {
		conn, err := t.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			hlog.SystemLogger().Errorf("接受连接出错：错误=%s", err.Error())
			return err
		}

		if t.tls == nil {
			t.start(conn, nil)
			continue
		}
		t.handshakes.Add(1)
		go t.handshake(conn)
	}
}

// 完成 TLS 握手并记录对端证书及校验结果，握手失败则丢弃连接。
func (t *transport) handshake(conn net.Conn) {
	defer t.handshakes.Done()

	tc := tls.Server(conn, t.tls)
	_ = tc.SetDeadline(time.Now().Add(handshakeTimeout))
	if err := tc.Handshake(); err != nil {
		var re tls.RecordHeaderError
		if errors.As(err, &re) && re.Conn != nil && utils.TLSRecordHeaderLooksLikeHTTP(re.RecordHeader) {
			hlog.SystemLogger().Infof("客户端向 TLS 端口发送了明文 HTTP 请求：远端=%s", conn.RemoteAddr())
		}
		hlog.SystemLogger().Debugf("TLS 握手失败：远端=%s 错误=%v", conn.RemoteAddr(), err)
		_ = tc.Close()
		return
	}
	_ = tc.SetDeadline(time.Time{})

	cs := tc.ConnectionState()
	st := t.policy.Evaluate(cs.PeerCertificates, t.roots, time.Now())
	for _, e := range st.Errors {
		if t.policy.Ignores(e) {
			hlog.SystemLogger().Debugf("忽略对端证书错误：远端=%s 错误=%s", conn.RemoteAddr(), e)
		} else {
			hlog.SystemLogger().Infof("对端证书未通过校验：远端=%s 错误=%s", conn.RemoteAddr(), e)
		}
	}
	t.start(tc, st)
}

func (t *transport) start(conn net.Conn, st *network.TLSState) {
	s := newSocket(conn, t.outboxSize, st)

	t.lock.Lock()
	if t.closed {
		t.lock.Unlock()
		_ = conn.Close()
		return
	}
	t.conns[s] = struct{}{}
	t.connsWg.Add(1)
	t.lock.Unlock()

	h := t.onConnect(s)
	s.outbox.Start(h.OnWritten)
	go t.readLoop(s, h)
}

// 持续读取并投递数据，直至连接断开。
func (t *transport) readLoop(s *socket, h network.Handler) {
	defer func() {
		t.lock.Lock()
		delete(t.conns, s)
		t.lock.Unlock()
		t.connsWg.Done()
	}()

	buf := make([]byte, t.readBufferSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			h.OnReadable(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				// 对端半关闭时仍发送已排队的数据
				_ = s.outbox.Close()
			} else {
				_ = s.outbox.Abort()
			}
			break
		}
	}
	<-s.outbox.Done()
	h.OnDisconnected()
}

// NewTransporter 创建标准库网络传输器。
func NewTransporter(options *config.Options) network.Transporter {
	readBufferSize := options.ReadBufferSize
	if readBufferSize <= 0 {
		readBufferSize = 4096
	}
	listenConfig := options.ListenConfig
	if listenConfig == nil {
		listenConfig = &net.ListenConfig{Control: network.ListenControl}
	}
	return &transport{
		readBufferSize: readBufferSize,
		outboxSize:     options.OutboxSize,
		network:        options.Network,
		addr:           options.Addr,
		listenConfig:   listenConfig,
		useTLS:         options.UseTLS,
		keyFile:        options.TLSKey,
		certFile:       options.TLSCert,
		caFile:         options.TLSCACert,
		policy:         options.TLSPolicy(),
		conns:          make(map[*socket]struct{}),
	}
}
