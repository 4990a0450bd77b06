package route

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/favbox/breeze/app"
	"github.com/favbox/breeze/common/config"
	errs "github.com/favbox/breeze/common/errors"
	"github.com/favbox/breeze/network"
	"github.com/favbox/breeze/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestEngine(opts ...config.Option) *Engine {
	opts = append([]config.Option{{F: func(o *config.Options) {
		o.Addr = "127.0.0.1:0"
		o.GraceWindow = 10 * time.Millisecond
	}}}, opts...)
	return NewEngine(config.NewOptions(opts))
}

func startEngine(t *testing.T, e *Engine) chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- e.Run() }()
	require.Eventually(t, func() bool { return e.ListenAddr() != nil }, time.Second, 5*time.Millisecond)
	return errCh
}

func stopEngine(t *testing.T, e *Engine, errCh chan error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Nil(t, e.Shutdown(ctx))
	assert.Nil(t, <-errCh)
}

func get(t *testing.T, conn net.Conn, r *bufio.Reader, path string) (*http.Response, string) {
	_, err := io.WriteString(conn, "GET "+path+" HTTP/1.1\r\nHost: test\r\n\r\n")
	require.Nil(t, err)
	resp, err := http.ReadResponse(r, nil)
	require.Nil(t, err)
	body, err := io.ReadAll(resp.Body)
	require.Nil(t, err)
	return resp, string(body)
}

func echoHandler() app.HandlerFunc {
	return func(req *protocol.Request, resp *protocol.Response) {
		_, _ = resp.WriteString("path=" + req.Path())
		resp.Flush()
	}
}

func TestEngineServe(t *testing.T) {
	e := newTestEngine()
	e.SetHandler(echoHandler())
	errCh := startEngine(t, e)
	assert.True(t, e.IsRunning())
	assert.Equal(t, "standard", e.GetTransporterName())

	conn, err := net.Dial("tcp", e.ListenAddr().String())
	require.Nil(t, err)
	r := bufio.NewReader(conn)

	resp, body := get(t, conn, r, "/a")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "path=/a", body)
	_, body = get(t, conn, r, "/b")
	assert.Equal(t, "path=/b", body)

	status := e.WebStatus()
	require.Len(t, status, 2)
	assert.Equal(t, "/a", status[0].Path)
	assert.Equal(t, "/b", status[1].Path)
	assert.Equal(t, "connected", status[1].Connection)
	assert.Equal(t, int64(1), e.Accepted())

	require.Nil(t, conn.Close())
	stopEngine(t, e, errCh)
	assert.False(t, e.IsRunning())
}

func TestEngineDefaultHandler(t *testing.T) {
	e := newTestEngine(config.Option{F: func(o *config.Options) { o.Threads = true }})
	errCh := startEngine(t, e)

	conn, err := net.Dial("tcp", e.ListenAddr().String())
	require.Nil(t, err)
	resp, body := get(t, conn, bufio.NewReader(conn), "/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "404 Not found", body)

	require.Nil(t, conn.Close())
	stopEngine(t, e, errCh)
}

func TestEnginePrune(t *testing.T) {
	e := newTestEngine()
	e.SetHandler(echoHandler())
	errCh := startEngine(t, e)

	first, err := net.Dial("tcp", e.ListenAddr().String())
	require.Nil(t, err)
	_, _ = get(t, first, bufio.NewReader(first), "/first")
	require.Nil(t, first.Close())
	require.Eventually(t, func() bool {
		st := e.WebStatus()
		return len(st) == 1 && st[0].Connection == "disconnected"
	}, time.Second, 5*time.Millisecond)

	second, err := net.Dial("tcp", e.ListenAddr().String())
	require.Nil(t, err)
	_, _ = get(t, second, bufio.NewReader(second), "/second")
	assert.Equal(t, 1, e.Prune())
	status := e.WebStatus()
	require.Len(t, status, 1)
	assert.Equal(t, "/second", status[0].Path)

	require.Nil(t, second.Close())
	stopEngine(t, e, errCh)
}

type countTracer struct {
	start, finish chan string
}

func (c *countTracer) Start(req *protocol.Request) { c.start <- req.Path() }

func (c *countTracer) Finish(req *protocol.Request, resp *protocol.Response, cost time.Duration) {
	c.finish <- req.Path()
}

func TestEngineTracer(t *testing.T) {
	e := newTestEngine()
	tr := &countTracer{start: make(chan string, 1), finish: make(chan string, 1)}
	e.AddTracer(tr)
	assert.True(t, e.GetTracer().HasTracer())
	errCh := startEngine(t, e)

	conn, err := net.Dial("tcp", e.ListenAddr().String())
	require.Nil(t, err)
	_, _ = get(t, conn, bufio.NewReader(conn), "/t")
	assert.Equal(t, "/t", <-tr.start)
	assert.Equal(t, "/t", <-tr.finish)

	require.Nil(t, conn.Close())
	stopEngine(t, e, errCh)
}

func TestEngineLifecycle(t *testing.T) {
	e := newTestEngine()
	assert.Equal(t, errs.ErrNotRunning, e.Shutdown(context.Background()))
	assert.NotNil(t, e.Sessions())
	assert.Nil(t, e.ListenAddr())

	errCh := startEngine(t, e)
	assert.NotNil(t, e.Init())
	assert.NotNil(t, e.MarkAsRunning())

	assert.Nil(t, e.Close())
	assert.Nil(t, <-errCh)
	assert.Nil(t, e.Close())
}

func TestEngineOnRunError(t *testing.T) {
	e := newTestEngine()
	hookErr := errs.NewPublic("hook")
	e.OnRun = append(e.OnRun, func(ctx context.Context) error { return hookErr })
	assert.Equal(t, hookErr, e.Run())
	assert.Nil(t, e.Close())
}

func TestEngineShutdownHooks(t *testing.T) {
	e := newTestEngine()
	called := make(chan struct{})
	e.OnShutdown = append(e.OnShutdown, func(ctx context.Context) { close(called) })
	errCh := startEngine(t, e)
	stopEngine(t, e, errCh)
	<-called
}

func TestTransporterNewer(t *testing.T) {
	var got *config.Options
	opts := config.NewOptions([]config.Option{{F: func(o *config.Options) {
		o.TransporterNewer = func(opt *config.Options) network.Transporter {
			got = opt
			return defaultTransporter(opt)
		}
	}}})
	e := NewEngine(opts)
	assert.Same(t, opts, got)
	assert.Nil(t, e.Close())
}
