package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/favbox/breeze/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	p := filepath.Join(t.TempDir(), name)
	require.Nil(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadDefaults(t *testing.T) {
	fc, err := Load("")
	require.Nil(t, err)
	assert.Equal(t, "tcp", fc.Network)
	assert.Equal(t, ":8080", fc.ListenAddr())
	assert.Equal(t, 600*time.Second, fc.Timeout)
	assert.Equal(t, "sessionid", fc.Session.CookieName)
	assert.True(t, fc.TLS.IgnoreAll)
	assert.Empty(t, fc.Tracing)

	o := NewOptions(fc.Options())
	d := NewOptions(nil)
	assert.Equal(t, d.Addr, o.Addr)
	assert.Equal(t, d.Timeout, o.Timeout)
	assert.Equal(t, d.MaxMultipartSize, o.MaxMultipartSize)
	assert.Equal(t, d.SessionSweepInterval, o.SessionSweepInterval)
	assert.False(t, o.UseTLS)
}

func TestLoadYAML(t *testing.T) {
	p := writeConfig(t, "breeze.yaml", `
addr: 127.0.0.1
port: 9090
timeout: 30s
docroot: /srv/www
maxrequestsize: 1024
threads: true
session:
  cookiename: sid
  expiration: 10m
tls:
  key: k.pem
  cert: c.pem
  ignoreall: false
  ignore:
    - IgnoreCertificateExpired
    - SelfSignedCertificate
admin:
  ops: secret
`)
	fc, err := Load(p)
	require.Nil(t, err)
	assert.Equal(t, "127.0.0.1:9090", fc.ListenAddr())

	o := NewOptions(fc.Options())
	assert.Equal(t, "127.0.0.1:9090", o.Addr)
	assert.Equal(t, 30*time.Second, o.Timeout)
	assert.Equal(t, "/srv/www", o.DocRoot)
	assert.Equal(t, 1024, o.MaxRequestSize)
	assert.True(t, o.Threads)
	assert.Equal(t, "sid", o.SessionCookieName)
	assert.Equal(t, 10*time.Minute, o.SessionExpiration)
	assert.True(t, o.UseTLS)
	assert.False(t, o.IgnoreAllTLSErrors)
	p2 := o.TLSPolicy()
	assert.True(t, p2.Ignores(network.TLSCertificateExpired))
	assert.True(t, p2.Ignores(network.TLSSelfSignedCertificate))
	assert.False(t, p2.Ignores(network.TLSHostNameMismatch))
	assert.Equal(t, map[string]string{"ops": "secret"}, o.AdminAccounts)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BREEZE_PORT", "7070")
	t.Setenv("BREEZE_SESSION_EXPIRATION", "2m")
	p := writeConfig(t, "breeze.json", `{"addr": "0.0.0.0", "port": 9090}`)

	fc, err := Load(p)
	require.Nil(t, err)
	assert.Equal(t, "0.0.0.0:7070", fc.ListenAddr())
	assert.Equal(t, 2*time.Minute, fc.Session.Expiration)
}

func TestLoadInvalid(t *testing.T) {
	cases := map[string]string{
		"network":   "network: udp\n",
		"port":      "port: 70000\n",
		"size":      "maxrequestsize: 0\n",
		"tls pair":  "tls:\n  key: k.pem\n",
		"tls name":  "tls:\n  ignore: [NoSuchError]\n",
		"transport": "transport: epoll\n",
		"tracing":   "tracing: jaeger\n",
	}
	for name, content := range cases {
		_, err := Load(writeConfig(t, "breeze.yaml", content))
		assert.NotNil(t, err, name)
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NotNil(t, err)
}

func TestListenAddr(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ":8080", (&FileConfig{Addr: ":8080"}).ListenAddr())
	assert.Equal(t, ":81", (&FileConfig{Addr: "", Port: 81}).ListenAddr())
	assert.Equal(t, "host:81", (&FileConfig{Addr: "host:80", Port: 81}).ListenAddr())
	assert.Equal(t, "/tmp/b.sock", (&FileConfig{Addr: "/tmp/b.sock"}).ListenAddr())
}
