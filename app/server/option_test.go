package server

import (
	"net"
	"testing"
	"time"

	"github.com/favbox/breeze/common/config"
	"github.com/favbox/breeze/network"
	"github.com/favbox/breeze/network/standard"
	"github.com/favbox/breeze/protocol"
	"github.com/stretchr/testify/assert"
)

type nopTracer struct{}

func (nopTracer) Start(*protocol.Request)                                     {}
func (nopTracer) Finish(*protocol.Request, *protocol.Response, time.Duration) {}

func TestOptions(t *testing.T) {
	lc := &net.ListenConfig{}
	opt := config.NewOptions([]config.Option{
		WithHostPorts(":8888"),
		WithNetwork("unix"),
		WithTimeout(time.Second),
		WithDocRoot("/srv"),
		WithIndexFile("home.html"),
		WithMaxAge(time.Minute),
		WithEncoding("GBK"),
		WithMaxRequestSize(2),
		WithMaxMultipartSize(3),
		WithTempDir("/tmp/x"),
		WithSession("sid", time.Minute, time.Second),
		WithTLS("k.pem", "c.pem", "ca.pem"),
		WithIgnoreTLSErrors(network.TLSCertificateExpired, network.TLSHostNameMismatch),
		WithThreads(true),
		WithGraceWindow(time.Millisecond),
		WithCloseFlushTimeout(2 * time.Second),
		WithExitWaitTime(time.Second),
		WithReadBufferSize(100),
		WithOutboxSize(200),
		WithListenConfig(lc),
		WithTransport(standard.NewTransporter),
		WithTracer(nopTracer{}),
	})

	assert.Equal(t, ":8888", opt.Addr)
	assert.Equal(t, "unix", opt.Network)
	assert.Equal(t, time.Second, opt.Timeout)
	assert.Equal(t, "/srv", opt.DocRoot)
	assert.Equal(t, "home.html", opt.IndexFile)
	assert.Equal(t, time.Minute, opt.MaxAge)
	assert.Equal(t, "GBK", opt.Encoding)
	assert.Equal(t, 2, opt.MaxRequestSize)
	assert.Equal(t, 3, opt.MaxMultipartSize)
	assert.Equal(t, "/tmp/x", opt.TempDir)
	assert.Equal(t, "sid", opt.SessionCookieName)
	assert.Equal(t, time.Minute, opt.SessionExpiration)
	assert.Equal(t, time.Second, opt.SessionSweepInterval)
	assert.True(t, opt.UseTLS)
	assert.Equal(t, "ca.pem", opt.TLSCACert)
	assert.False(t, opt.IgnoreAllTLSErrors)
	assert.True(t, opt.TLSPolicy().Ignores(network.TLSCertificateExpired))
	assert.False(t, opt.TLSPolicy().Ignores(network.TLSSelfSignedCertificate))
	assert.True(t, opt.Threads)
	assert.Equal(t, time.Millisecond, opt.GraceWindow)
	assert.Equal(t, 2*time.Second, opt.CloseFlushTimeout)
	assert.Equal(t, time.Second, opt.ExitWaitTimeout)
	assert.Equal(t, 100, opt.ReadBufferSize)
	assert.Equal(t, 200, opt.OutboxSize)
	assert.Same(t, lc, opt.ListenConfig)
	assert.NotNil(t, opt.TransporterNewer)
	assert.Len(t, opt.Tracers, 1)
}

func TestDefaultOptions(t *testing.T) {
	opt := config.NewOptions([]config.Option{})
	assert.Equal(t, ":8080", opt.Addr)
	assert.Equal(t, 600*time.Second, opt.Timeout)
	assert.True(t, opt.IgnoreAllTLSErrors)
	assert.Nil(t, opt.TransporterNewer)
}
