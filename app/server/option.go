package server

import (
	"net"
	"time"

	"github.com/favbox/breeze/common/config"
	"github.com/favbox/breeze/common/tracer"
	"github.com/favbox/breeze/network"
)

// WithHostPorts 指定监听的地址和端口。默认值：":8080"。
func WithHostPorts(addr string) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.Addr = addr
	}}
}

// WithNetwork 设置网络协议，可选：tcp，udp，unix（unix socket）。默认值：tcp。
func WithNetwork(nw string) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.Network = nw
	}}
}

// WithTimeout 设置连接的闲置超时。默认值：10 分钟。
//
// 超时则回复 408 并断开连接，0 代表永不超时。
func WithTimeout(t time.Duration) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.Timeout = t
	}}
}

// WithDocRoot 设置静态文件与 SSI 页面的根目录。默认值："."。
func WithDocRoot(root string) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.DocRoot = root
	}}
}

// WithIndexFile 设置访问目录时打开的文件。默认值："index.html"。
func WithIndexFile(name string) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.IndexFile = name
	}}
}

// WithMaxAge 设置静态文件的客户端缓存时长。默认值：1 小时。
func WithMaxAge(t time.Duration) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.MaxAge = t
	}}
}

// WithEncoding 设置文本响应的字符集。默认值："UTF-8"。
func WithEncoding(enc string) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.Encoding = enc
	}}
}

// WithMaxRequestSize 设置单个请求（多部分正文除外）的字节上限。默认值：16KB。
//
// 超出则回复 413 并断开连接。
func WithMaxRequestSize(bs int) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.MaxRequestSize = bs
	}}
}

// WithMaxMultipartSize 设置多部分正文的字节上限。默认值：约 16MB。
func WithMaxMultipartSize(bs int) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.MaxMultipartSize = bs
	}}
}

// WithTempDir 设置多部分正文的暂存目录。默认值：os.TempDir()。
func WithTempDir(dir string) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.TempDir = dir
	}}
}

// WithSession 设置会话 cookie 名称、闲置过期时长与清理周期。
func WithSession(cookieName string, expiration, sweepInterval time.Duration) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.SessionCookieName = cookieName
		o.SessionExpiration = expiration
		o.SessionSweepInterval = sweepInterval
	}}
}

// WithTLS 启用 TLS，参数均为 PEM 文件路径，caCert 可以为空。
func WithTLS(key, cert, caCert string) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.UseTLS = true
		o.TLSKey = key
		o.TLSCert = cert
		o.TLSCACert = caCert
	}}
}

// WithIgnoreTLSErrors 设置单独忽略的对端证书校验错误，同时关闭“忽略全部”。
func WithIgnoreTLSErrors(codes ...network.TLSVerifyError) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.IgnoreAllTLSErrors = false
		for _, c := range codes {
			o.IgnoreTLSErrors[c] = true
		}
	}}
}

// WithIgnoreAllTLSErrors 设置是否忽略全部对端证书校验错误。默认值：true。
func WithIgnoreAllTLSErrors(b bool) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.IgnoreAllTLSErrors = b
	}}
}

// WithThreads 为每个连接分配独立的事件循环。默认值：false，即共享一个事件循环。
func WithThreads(b bool) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.Threads = b
	}}
}

// WithGraceWindow 设置处理器执行中断开时延迟销毁连接的时长。默认值：3 秒。
func WithGraceWindow(t time.Duration) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.GraceWindow = t
	}}
}

// WithCloseFlushTimeout 设置 Response.Close 同步刷新的最长等待。默认值：10 秒。
func WithCloseFlushTimeout(t time.Duration) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.CloseFlushTimeout = t
	}}
}

// WithExitWaitTime 设置优雅退出的等待时间。默认值：5 秒。
//
// 服务器在等待该时长后，若仍有连接未关闭，则强制退出。
func WithExitWaitTime(t time.Duration) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.ExitWaitTimeout = t
	}}
}

// WithReadBufferSize 设置每次读取的缓冲大小。默认值：4KB。
func WithReadBufferSize(size int) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.ReadBufferSize = size
	}}
}

// WithOutboxSize 设置每个连接待发送队列的容量。默认值：64KB。
func WithOutboxSize(size int) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.OutboxSize = size
	}}
}

// WithListenConfig 设置监听器的配置。
func WithListenConfig(l *net.ListenConfig) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.ListenConfig = l
	}}
}

// WithTransport 设置网络传输器。默认值：standard.NewTransporter。
func WithTransport(transporter func(opts *config.Options) network.Transporter) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.TransporterNewer = transporter
	}}
}

// WithTracer 追加请求跟踪器。
func WithTracer(t tracer.Tracer) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.Tracers = append(o.Tracers, t)
	}}
}

// WithAdminAccounts 为状态与指标页面启用基本认证，键为用户名，值为密码。
func WithAdminAccounts(accounts map[string]string) config.Option {
	return config.Option{F: func(o *config.Options) {
		o.AdminAccounts = accounts
	}}
}
