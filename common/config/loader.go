package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/go-tagexpr/v2/validator"
	"github.com/favbox/breeze/network"
	"github.com/spf13/viper"
)

// EnvPrefix 是环境变量的前缀，例如 BREEZE_PORT 覆盖配置文件中的 port。
const EnvPrefix = "BREEZE"

// FileConfig 是配置文件的结构，支持 viper 可读取的全部格式（YAML、TOML、JSON 等）。
type FileConfig struct {
	Network string `mapstructure:"network" vd:"$=='tcp'||$=='tcp4'||$=='tcp6'||$=='unix'"`
	// Addr 是监听的主机，Port 大于 0 时与其组合为监听地址，否则 Addr 本身即为监听地址。
	Addr      string        `mapstructure:"addr"`
	Port      int           `mapstructure:"port" vd:"$>=0&&$<=65535"`
	Timeout   time.Duration `mapstructure:"timeout" vd:"$>=0"`
	Transport string        `mapstructure:"transport" vd:"$==''||$=='standard'||$=='netpoll'"`

	DocRoot   string        `mapstructure:"docroot" vd:"len($)>0"`
	IndexFile string        `mapstructure:"indexfile"`
	MaxAge    time.Duration `mapstructure:"maxage" vd:"$>=0"`
	Encoding  string        `mapstructure:"encoding"`

	MaxRequestSize   int    `mapstructure:"maxrequestsize" vd:"$>0"`
	MaxMultipartSize int    `mapstructure:"maxmultipartsize" vd:"$>0"`
	TempDir          string `mapstructure:"tempdir"`

	Session SessionConfig `mapstructure:"session"`
	TLS     TLSConfig     `mapstructure:"tls"`

	Threads           bool          `mapstructure:"threads"`
	GraceWindow       time.Duration `mapstructure:"gracewindow" vd:"$>=0"`
	CloseFlushTimeout time.Duration `mapstructure:"closeflushtimeout" vd:"$>0"`
	ExitWaitTimeout   time.Duration `mapstructure:"exitwaittimeout" vd:"$>=0"`
	ReadBufferSize    int           `mapstructure:"readbuffersize" vd:"$>0"`
	OutboxSize        int           `mapstructure:"outboxsize" vd:"$>0"`

	// Admin 是状态与指标页面的基本认证账号，键为用户名。
	Admin map[string]string `mapstructure:"admin"`

	// Tracing 为 "stdout" 时把每个请求的跨度写到标准错误。
	Tracing string `mapstructure:"tracing" vd:"$==''||$=='stdout'"`
}

// SessionConfig 是会话相关的配置。
type SessionConfig struct {
	CookieName    string        `mapstructure:"cookiename" vd:"len($)>0"`
	Expiration    time.Duration `mapstructure:"expiration" vd:"$>0"`
	SweepInterval time.Duration `mapstructure:"sweepinterval"`
}

// TLSConfig 是 TLS 相关的配置。Key 与 Cert 同时设置时启用 TLS。
type TLSConfig struct {
	Key       string   `mapstructure:"key"`
	Cert      string   `mapstructure:"cert"`
	CACert    string   `mapstructure:"cacert"`
	IgnoreAll bool     `mapstructure:"ignoreall"`
	Ignore    []string `mapstructure:"ignore"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("network", defaultNetwork)
	v.SetDefault("addr", defaultAddr)
	v.SetDefault("port", 0)
	v.SetDefault("timeout", defaultTimeout)
	v.SetDefault("transport", "")
	v.SetDefault("docroot", defaultDocRoot)
	v.SetDefault("indexfile", defaultIndexFile)
	v.SetDefault("maxage", defaultMaxAge)
	v.SetDefault("encoding", defaultEncoding)
	v.SetDefault("maxrequestsize", defaultMaxRequestSize)
	v.SetDefault("maxmultipartsize", defaultMaxMultipartSize)
	v.SetDefault("tempdir", "")
	v.SetDefault("tracing", "")
	v.SetDefault("session.cookiename", defaultSessionCookieName)
	v.SetDefault("session.expiration", defaultSessionExpiration)
	v.SetDefault("session.sweepinterval", defaultSessionSweepInterval)
	v.SetDefault("tls.key", "")
	v.SetDefault("tls.cert", "")
	v.SetDefault("tls.cacert", "")
	v.SetDefault("tls.ignoreall", true)
	v.SetDefault("tls.ignore", []string{})
	v.SetDefault("threads", false)
	v.SetDefault("gracewindow", defaultGraceWindow)
	v.SetDefault("closeflushtimeout", defaultCloseFlushTimeout)
	v.SetDefault("exitwaittimeout", defaultWaitExitTimeout)
	v.SetDefault("readbuffersize", defaultReadBufferSize)
	v.SetDefault("outboxsize", defaultOutboxSize)
}

// Load 读取配置文件 path 并以 BREEZE_ 前缀的环境变量覆盖，校验后返回。
//
// path 为空时只使用默认值与环境变量。嵌套键以下划线连接，例如 BREEZE_SESSION_EXPIRATION。
func Load(path string) (*FileConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败：%w", err)
		}
	}

	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("解析配置失败：%w", err)
	}
	if err := fc.Validate(); err != nil {
		return nil, err
	}
	return &fc, nil
}

// Validate 按 vd 标签校验配置，并检查 TLS 错误名称。
func (fc *FileConfig) Validate() error {
	if err := validator.Validate(fc); err != nil {
		return fmt.Errorf("配置校验失败：%w", err)
	}
	if (fc.TLS.Key == "") != (fc.TLS.Cert == "") {
		return errors.New("配置校验失败：tls.key 与 tls.cert 必须同时设置")
	}
	for _, name := range fc.TLS.Ignore {
		if _, ok := network.ParseTLSVerifyError(name); !ok {
			return fmt.Errorf("配置校验失败：未知的 TLS 错误名称 %q", name)
		}
	}
	return nil
}

// ListenAddr 返回组合后的监听地址。
func (fc *FileConfig) ListenAddr() string {
	if fc.Port <= 0 {
		return fc.Addr
	}
	host := fc.Addr
	if h, _, err := net.SplitHostPort(fc.Addr); err == nil {
		host = h
	}
	return net.JoinHostPort(host, strconv.Itoa(fc.Port))
}

// Options 将配置转换为配置函数，传输器的选择由调用方根据 Transport 决定。
func (fc *FileConfig) Options() []Option {
	return []Option{{F: func(o *Options) {
		o.Network = fc.Network
		o.Addr = fc.ListenAddr()
		o.Timeout = fc.Timeout
		o.DocRoot = fc.DocRoot
		o.IndexFile = fc.IndexFile
		o.MaxAge = fc.MaxAge
		o.Encoding = fc.Encoding
		o.MaxRequestSize = fc.MaxRequestSize
		o.MaxMultipartSize = fc.MaxMultipartSize
		o.TempDir = fc.TempDir
		o.SessionCookieName = fc.Session.CookieName
		o.SessionExpiration = fc.Session.Expiration
		o.SessionSweepInterval = fc.Session.SweepInterval
		o.UseTLS = fc.TLS.Key != "" && fc.TLS.Cert != ""
		o.TLSKey = fc.TLS.Key
		o.TLSCert = fc.TLS.Cert
		o.TLSCACert = fc.TLS.CACert
		o.IgnoreAllTLSErrors = fc.TLS.IgnoreAll
		o.IgnoreTLSErrors = make(map[network.TLSVerifyError]bool, len(fc.TLS.Ignore))
		for _, name := range fc.TLS.Ignore {
			if code, ok := network.ParseTLSVerifyError(name); ok {
				o.IgnoreTLSErrors[code] = true
			}
		}
		o.Threads = fc.Threads
		o.GraceWindow = fc.GraceWindow
		o.CloseFlushTimeout = fc.CloseFlushTimeout
		o.ExitWaitTimeout = fc.ExitWaitTimeout
		o.ReadBufferSize = fc.ReadBufferSize
		o.OutboxSize = fc.OutboxSize
		o.AdminAccounts = fc.Admin
	}}}
}
