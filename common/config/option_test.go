package config

import (
	"testing"
	"time"

	"github.com/favbox/breeze/network"
	"github.com/stretchr/testify/assert"
)

// TestDefaultOptions 使用默认值测试配置项
func TestDefaultOptions(t *testing.T) {
	options := NewOptions([]Option{})

	assert.Equal(t, defaultNetwork, options.Network)
	assert.Equal(t, defaultAddr, options.Addr)
	assert.Equal(t, 600*time.Second, options.Timeout)
	assert.Equal(t, ".", options.DocRoot)
	assert.Equal(t, "index.html", options.IndexFile)
	assert.Equal(t, time.Hour, options.MaxAge)
	assert.Equal(t, "UTF-8", options.Encoding)
	assert.Equal(t, 16384, options.MaxRequestSize)
	assert.Equal(t, 16728064, options.MaxMultipartSize)
	assert.Equal(t, "sessionid", options.SessionCookieName)
	assert.Equal(t, time.Hour, options.SessionExpiration)
	assert.Equal(t, 30*time.Second, options.SessionSweepInterval)
	assert.False(t, options.UseTLS)
	assert.True(t, options.IgnoreAllTLSErrors)
	assert.Empty(t, options.IgnoreTLSErrors)
	assert.False(t, options.Threads)
	assert.Equal(t, 3*time.Second, options.GraceWindow)
	assert.Equal(t, 10*time.Second, options.CloseFlushTimeout)
	assert.Equal(t, defaultWaitExitTimeout, options.ExitWaitTimeout)
	assert.Equal(t, defaultReadBufferSize, options.ReadBufferSize)
	assert.Equal(t, defaultOutboxSize, options.OutboxSize)
	assert.Nil(t, options.TransporterNewer)
}

// TestApplyCustomOptions 初始化后使用自定义值测试配置项应用函数
func TestApplyCustomOptions(t *testing.T) {
	options := NewOptions([]Option{})
	options.Apply([]Option{
		{F: func(o *Options) {
			o.Network = "unix"
		}},
	})
	assert.Equal(t, "unix", options.Network)
}

func TestOptionsTLSPolicy(t *testing.T) {
	options := NewOptions([]Option{{F: func(o *Options) {
		o.IgnoreAllTLSErrors = false
		o.IgnoreTLSErrors[network.TLSCertificateExpired] = true
		o.IgnoreTLSErrors[network.TLSSelfSignedCertificate] = false
	}}})

	p := options.TLSPolicy()
	assert.False(t, p.IgnoreAll)
	assert.True(t, p.Ignores(network.TLSCertificateExpired))
	assert.False(t, p.Ignores(network.TLSSelfSignedCertificate))
}
