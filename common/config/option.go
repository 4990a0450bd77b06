package config

import (
	"net"
	"time"

	"github.com/favbox/breeze/network"
)

const (
	defaultNetwork              = "tcp"
	defaultAddr                 = ":8080"
	defaultTimeout              = 600 * time.Second
	defaultDocRoot              = "."
	defaultIndexFile            = "index.html"
	defaultMaxAge               = 3600 * time.Second
	defaultEncoding             = "UTF-8"
	defaultMaxRequestSize       = 16384
	defaultMaxMultipartSize     = 16728064
	defaultSessionCookieName    = "sessionid"
	defaultSessionExpiration    = 3600 * time.Second
	defaultSessionSweepInterval = 30 * time.Second
	defaultGraceWindow          = 3 * time.Second
	defaultCloseFlushTimeout    = 10 * time.Second
	defaultWaitExitTimeout      = 5 * time.Second
	defaultReadBufferSize       = 4 * 1024
	defaultOutboxSize           = 64 * 1024
)

// Option 是用于配置 Options 唯一结构体。
type Option struct {
	F func(o *Options)
}

// Options 是配置项的结构体。
type Options struct {
	Network string // 网络协议，可选 "tcp", "unix"，默认 "tcp"
	Addr    string // 监听地址，默认 ":8080"

	// Timeout 是连接的闲置超时，超时则回复 408 并断开。0 代表永不超时。
	// 每次收到数据都会重新计时，因此持续缓慢的上传不会超时。
	Timeout time.Duration

	DocRoot   string        // 静态文件根目录，默认 "."
	IndexFile string        // 目录的默认文件，默认 "index.html"
	MaxAge    time.Duration // 静态文件的缓存时长，默认 1 小时
	Encoding  string        // 文本文件的字符集，默认 "UTF-8"

	MaxRequestSize   int    // 单个请求的最大字节数（多部分正文除外），默认 16KB
	MaxMultipartSize int    // 多部分正文的最大字节数，默认约 16MB
	TempDir          string // 多部分正文暂存目录，默认 os.TempDir()

	SessionCookieName    string        // 会话 cookie 名称，默认 "sessionid"
	SessionExpiration    time.Duration // 会话闲置过期时长，默认 1 小时
	SessionSweepInterval time.Duration // 会话清理周期，默认 30 秒

	UseTLS    bool   // 是否启用 TLS
	TLSKey    string // 私钥文件路径（PEM）
	TLSCert   string // 证书文件路径（PEM）
	TLSCACert string // CA 证书链文件路径（PEM）

	// IgnoreAllTLSErrors 忽略所有对端证书校验错误，默认开启。
	IgnoreAllTLSErrors bool
	// IgnoreTLSErrors 是单独忽略的对端证书校验错误。
	IgnoreTLSErrors map[network.TLSVerifyError]bool

	// Threads 为每个连接分配独立的事件循环，否则所有连接共享同一个事件循环。
	Threads bool

	GraceWindow       time.Duration // 处理器执行中断开时，延迟销毁连接的时长，默认 3 秒
	CloseFlushTimeout time.Duration // Response.Close 同步刷新的最长等待，默认 10 秒
	ExitWaitTimeout   time.Duration // 优雅退出的等待时间，默认 5 秒

	ReadBufferSize int // 每次读取的缓冲大小，默认 4KB
	OutboxSize     int // 每个连接待发送队列的容量，默认 64KB

	ListenConfig *net.ListenConfig

	// AdminAccounts 非空时，状态与指标页面需要基本认证，键为用户名，值为密码。
	AdminAccounts map[string]string

	// Tracers 是请求跟踪器，元素须实现 tracer.Tracer。
	Tracers []any

	// TransporterNewer 是传输器的自定义创建函数。
	TransporterNewer func(opt *Options) network.Transporter
}

// Apply 将指定的一组配置方法 opts 应用到配置项上。
func (o *Options) Apply(opts []Option) {
	for _, opt := range opts {
		opt.F(o)
	}
}

// NewOptions 创建基于给定配置函数的配置项。
func NewOptions(opts []Option) *Options {
	options := &Options{
		Network:              defaultNetwork,
		Addr:                 defaultAddr,
		Timeout:              defaultTimeout,
		DocRoot:              defaultDocRoot,
		IndexFile:            defaultIndexFile,
		MaxAge:               defaultMaxAge,
		Encoding:             defaultEncoding,
		MaxRequestSize:       defaultMaxRequestSize,
		MaxMultipartSize:     defaultMaxMultipartSize,
		SessionCookieName:    defaultSessionCookieName,
		SessionExpiration:    defaultSessionExpiration,
		SessionSweepInterval: defaultSessionSweepInterval,
		IgnoreAllTLSErrors:   true,
		IgnoreTLSErrors:      map[network.TLSVerifyError]bool{},
		GraceWindow:          defaultGraceWindow,
		CloseFlushTimeout:    defaultCloseFlushTimeout,
		ExitWaitTimeout:      defaultWaitExitTimeout,
		ReadBufferSize:       defaultReadBufferSize,
		OutboxSize:           defaultOutboxSize,
	}
	options.Apply(opts)
	return options
}

// TLSPolicy 返回由配置派生的对端证书校验错误忽略策略。
func (o *Options) TLSPolicy() network.TLSPolicy {
	p := network.TLSPolicy{IgnoreAll: o.IgnoreAllTLSErrors}
	for code, ignore := range o.IgnoreTLSErrors {
		if ignore {
			p.Ignore = p.Ignore.With(code)
		}
	}
	return p
}
