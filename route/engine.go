package route

import (
	"context"
	"net"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/favbox/breeze/app"
	"github.com/favbox/breeze/app/session"
	"github.com/favbox/breeze/common/config"
	errs "github.com/favbox/breeze/common/errors"
	"github.com/favbox/breeze/common/hlog"
	"github.com/favbox/breeze/common/tracer"
	"github.com/favbox/breeze/common/utils"
	"github.com/favbox/breeze/internal/nocopy"
	internalStats "github.com/favbox/breeze/internal/stats"
	"github.com/favbox/breeze/network"
	"github.com/favbox/breeze/network/standard"
	"github.com/favbox/breeze/protocol"
	"github.com/favbox/breeze/protocol/http1"
)

const unknownTransporterName = "unknown"

const (
	_ uint32 = iota
	statusInitialized
	statusRunning
	statusShutdown
	statusClosed
)

var (
	// 默认网络传输器（基于标准库实现，另外可选 netpoll.NewTransporter）
	defaultTransporter = standard.NewTransporter

	errInitFailed     = errs.NewPrivate("引擎已经初始化")
	errAlreadyRunning = errs.NewPrivate("引擎已在运行中")
)

// CtxCallback 引擎关闭时，同时触发的钩子函数
type CtxCallback func(ctx context.Context)

// CtxErrCallback 引擎启动时，依次触发的钩子函数
type CtxErrCallback func(ctx context.Context) error

// Deprecated: 仅用于获取全局默认传输器 - 可能并非引擎真正使用的。
// 使用 *Engine.GetTransporterName 获取真实使用的传输器。
func GetTransporterName() (tName string) {
	defer func() {
		err := recover()
		if err != nil || tName == "" {
			tName = unknownTransporterName
		}
	}()
	fName := runtime.FuncForPC(reflect.ValueOf(defaultTransporter).Pointer()).Name()
	fSlice := strings.Split(fName, "/")
	name := fSlice[len(fSlice)-1]
	fSlice = strings.Split(name, ".")
	tName = fSlice[0]
	return
}

// SetTransporter 设置全局默认的网络传输器。
func SetTransporter(transporter func(options *config.Options) network.Transporter) {
	defaultTransporter = transporter
}

// NewEngine 创建给定选项的引擎。
//
// 会话存储随引擎创建，以便处理器在启动前取得它；引擎关闭时一并关闭。
func NewEngine(opts *config.Options) *Engine {
	engine := &Engine{
		options:   opts,
		transport: defaultTransporter(opts),
		handler:   app.NewRouter(nil),
		tracerCtl: &internalStats.Controller{},
		sessions: session.NewStore(session.Options{
			CookieName:    opts.SessionCookieName,
			Expiration:    opts.SessionExpiration,
			SweepInterval: opts.SessionSweepInterval,
		}),
	}
	if opts.TransporterNewer != nil {
		engine.transport = opts.TransporterNewer(opts)
	}
	for _, t := range opts.Tracers {
		if col, ok := t.(tracer.Tracer); ok {
			engine.tracerCtl.Append(col)
		}
	}
	return engine
}

// Engine 是服务器引擎：接受连接，为每个连接创建 http1.Conn 并分发请求。
type Engine struct {
	noCopy nocopy.NoCopy

	// 引擎名称
	Name string

	options *config.Options

	// 底层传输的网络库，现有 go net 和 netpoll 两个选择
	transport network.Transporter

	handler   protocol.Handler
	tracerCtl *internalStats.Controller
	sessions  *session.Store

	// 所有连接共享的事件循环，Options.Threads 为真时为空
	loop *http1.Loop

	// 已接受的连接，已销毁的连接在下次接受时清理
	mu       sync.Mutex
	conns    []*http1.Conn
	released bool

	// 用于表示引擎状态（Init/Running/Shutdown/Closed）。
	status       uint32
	acceptedConn atomic.Int64

	// OnRun 是引擎启动时，依次触发的一组钩子函数。
	OnRun []CtxErrCallback

	// OnShutdown 是引擎关闭时，并行触发的一组钩子函数。
	OnShutdown []CtxCallback
}

// SetHandler 设置请求处理器，须在 Run 之前调用。为空时回复 404。
func (engine *Engine) SetHandler(h protocol.Handler) {
	if h == nil {
		h = app.NewRouter(nil)
	}
	engine.handler = h
}

// Handler 返回请求处理器。
func (engine *Engine) Handler() protocol.Handler {
	return engine.handler
}

// AddTracer 追加请求跟踪器，须在 Run 之前调用。
func (engine *Engine) AddTracer(t tracer.Tracer) {
	engine.tracerCtl.Append(t)
}

// GetTracer 获取链路跟踪控制器。
func (engine *Engine) GetTracer() tracer.Controller {
	return engine.tracerCtl
}

// Sessions 返回引擎的会话存储。
func (engine *Engine) Sessions() *session.Store {
	return engine.sessions
}

// GetOptions 返回引擎的配置项。
func (engine *Engine) GetOptions() *config.Options {
	return engine.options
}

// Run 初始化并由传输器监听连接，直至传输器关闭或出错。
func (engine *Engine) Run() (err error) {
	if err = engine.Init(); err != nil {
		return err
	}

	if err = engine.MarkAsRunning(); err != nil {
		return err
	}

	// 返回监听服务出错后，切换引擎状态至已关闭
	defer atomic.StoreUint32(&engine.status, statusClosed)

	// 依次触发可能存在的启动钩子
	ctx := context.Background()
	for i := range engine.OnRun {
		if err = engine.OnRun[i](ctx); err != nil {
			return err
		}
	}

	return engine.listenAndServe()
}

func (engine *Engine) listenAndServe() error {
	hlog.SystemLogger().Infof("使用网络库=%s 独立事件循环=%t 本机IP=%s", engine.GetTransporterName(), engine.options.Threads, utils.LocalIP())
	return engine.transport.ListenAndServe(engine.onConnect)
}

// Init 创建共享事件循环。引擎关闭后不能再初始化。
func (engine *Engine) Init() error {
	if !atomic.CompareAndSwapUint32(&engine.status, 0, statusInitialized) {
		return errInitFailed
	}
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.released {
		return errs.ErrNotRunning
	}
	if !engine.options.Threads {
		engine.loop = http1.NewLoop()
	}
	return nil
}

// MarkAsRunning 将引擎状态设为“运行中”。
// 警告：除非你知道自己在做什么，否则勿用此法。
func (engine *Engine) MarkAsRunning() error {
	if !atomic.CompareAndSwapUint32(&engine.status, statusInitialized, statusRunning) {
		return errAlreadyRunning
	}
	return nil
}

// IsRunning 报告引擎是否正在运行。
func (engine *Engine) IsRunning() bool {
	return atomic.LoadUint32(&engine.status) == statusRunning
}

func (engine *Engine) onConnect(sock network.Socket) network.Handler {
	engine.Prune()
	c := http1.NewConn(sock, engine.handler, engine.loop, engine.connOption(), engine.onDestroy)

	engine.mu.Lock()
	engine.conns = append(engine.conns, c)
	engine.mu.Unlock()
	engine.acceptedConn.Add(1)

	hlog.SystemLogger().Debugf("新连接：远端=%s 对象=%s", sock.RemoteAddr(), c.Object())
	return c
}

func (engine *Engine) onDestroy(c *http1.Conn) {
	hlog.SystemLogger().Debugf("连接已销毁：远端=%s 对象=%s", c.RemoteAddr(), c.Object())
}

func (engine *Engine) connOption() http1.Option {
	o := engine.options
	return http1.Option{
		Timeout:           o.Timeout,
		GraceWindow:       o.GraceWindow,
		CloseFlushTimeout: o.CloseFlushTimeout,
		Limits: protocol.Limits{
			MaxRequestSize:   o.MaxRequestSize,
			MaxMultipartSize: o.MaxMultipartSize,
			TempDir:          o.TempDir,
		},
		Tracer: engine.tracerCtl,
	}
}

// Prune 从连接列表中移除已销毁的连接，返回剩余数量。
func (engine *Engine) Prune() int {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	live := engine.conns[:0]
	for _, c := range engine.conns {
		if !c.Destroyed() {
			live = append(live, c)
		}
	}
	for i := len(live); i < len(engine.conns); i++ {
		engine.conns[i] = nil
	}
	engine.conns = live
	return len(live)
}

// Accepted 返回累计接受的连接数。
func (engine *Engine) Accepted() int64 {
	return engine.acceptedConn.Load()
}

// WebStatus 汇总所有连接的请求日志，包括尚未清理的已断开连接。
func (engine *Engine) WebStatus() []http1.RequestStatus {
	engine.mu.Lock()
	conns := make([]*http1.Conn, len(engine.conns))
	copy(conns, engine.conns)
	engine.mu.Unlock()

	var list []http1.RequestStatus
	for _, c := range conns {
		list = append(list, c.WebStatus()...)
	}
	return list
}

// Shutdown 优雅退出服务器，步骤如下：
//
//  1. 并行触发 Engine.OnShutdown 钩子函数，直至完成或超时；
//  2. 关闭网络监听器，不再接受新连接；
//  3. 等待所有连接关闭，直至 ctx 结束；
//  4. 关闭事件循环与会话存储。
func (engine *Engine) Shutdown(ctx context.Context) (err error) {
	if atomic.LoadUint32(&engine.status) != statusRunning {
		return errs.ErrNotRunning
	}
	if !atomic.CompareAndSwapUint32(&engine.status, statusRunning, statusShutdown) {
		return
	}

	ch := make(chan struct{})
	go engine.executeOnShutdownHooks(ctx, ch)
	defer func() {
		// 确保钩子执行完成或超时
		select {
		case <-ctx.Done():
			hlog.SystemLogger().Infof("执行 OnShutdownHooks 超时：错误=%v", ctx.Err())
		case <-ch:
			hlog.SystemLogger().Info("执行 OnShutdownHooks 完成")
		}
		engine.release()
	}()

	if err := engine.transport.Shutdown(ctx); err != ctx.Err() {
		return err
	}
	return
}

// Close 立即关闭传输器及全部连接，并释放事件循环与会话存储。可重复调用。
func (engine *Engine) Close() error {
	err := engine.transport.Close()
	engine.release()
	return err
}

func (engine *Engine) release() {
	engine.mu.Lock()
	if engine.released {
		engine.mu.Unlock()
		return
	}
	engine.released = true
	loop := engine.loop
	engine.mu.Unlock()

	if loop != nil {
		loop.Close()
	}
	engine.sessions.Close()
}

// ListenAddr 返回实际监听的地址，未监听时返回 nil。
func (engine *Engine) ListenAddr() net.Addr {
	return engine.transport.ListenAddr()
}

// GetTransporterName 获取底层网络传输器的名称。
func (engine *Engine) GetTransporterName() string {
	return getTransporterName(engine.transport)
}

// 执行引擎退出的回调钩子。
func (engine *Engine) executeOnShutdownHooks(ctx context.Context, ch chan struct{}) {
	wg := sync.WaitGroup{}
	for i := range engine.OnShutdown {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			engine.OnShutdown[index](ctx)
		}(i)
	}
	wg.Wait()
	close(ch)
}

func getTransporterName(transporter network.Transporter) (tName string) {
	defer func() {
		err := recover()
		if err != nil || tName == "" {
			tName = unknownTransporterName
		}
	}()
	t := reflect.ValueOf(transporter).Type().String()
	tName = strings.Split(strings.TrimPrefix(t, "*"), ".")[0]
	return tName
}
