package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/favbox/breeze/app"
	"github.com/favbox/breeze/app/metrics"
	"github.com/favbox/breeze/app/middlewares/server/basic_auth"
	"github.com/favbox/breeze/app/middlewares/server/recovery"
	"github.com/favbox/breeze/app/shtml"
	"github.com/favbox/breeze/app/status"
	"github.com/favbox/breeze/common/config"
	"github.com/favbox/breeze/common/errors"
	"github.com/favbox/breeze/common/hlog"
	"github.com/favbox/breeze/common/mimetype"
	"github.com/favbox/breeze/route"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// StatusPath 是连接状态快照的默认路径。
	StatusPath = "/_status"
	// MetricsPath 是 Prometheus 指标的默认路径。
	MetricsPath = "/metrics"
)

// New 创建一个无默认路由的 breeze 实例，未设置处理器时一律回复 404。
func New(opts ...config.Option) *Breeze {
	options := config.NewOptions(opts)
	return &Breeze{
		Engine: route.NewEngine(options),
	}
}

// Default 创建带有默认路由的 breeze 实例：
//
//   - ".shtml" 后缀交给 SSI 处理器；
//   - StatusPath 回复连接状态快照；
//   - MetricsPath 回复 Prometheus 指标；
//   - 其余路径交给静态文件服务。
//
// 设置了管理账号时，状态与指标页面需要基本认证。处理器的恐慌被恢复为 500。
// 指标注册到 reg，为空时使用新建的注册表。
func Default(reg *prometheus.Registry, opts ...config.Option) (*Breeze, error) {
	b := New(opts...)
	o := b.GetOptions()

	ssi, err := shtml.New(shtml.Options{DocRoot: o.DocRoot, Encoding: o.Encoding, Cache: true})
	if err != nil {
		_ = b.Engine.Close()
		return nil, err
	}
	b.ssi = ssi
	b.OnShutdown = append(b.OnShutdown, func(ctx context.Context) {
		b.releaseResources()
	})

	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := metrics.New(reg)
	m.WatchSessions(b.Sessions())
	b.AddTracer(m)

	fs := &app.FS{
		Root:      o.DocRoot,
		IndexName: o.IndexFile,
		MaxAge:    o.MaxAge,
		MIME:      mimetype.NewRegistry(nil),
	}
	statusHandler := app.Handler(status.New(b.Engine))
	metricsHandler := app.Handler(metrics.Handler(reg))
	if len(o.AdminAccounts) > 0 {
		statusHandler = basic_auth.BasicAuthForRealm(o.AdminAccounts, "breeze", statusHandler)
		metricsHandler = basic_auth.BasicAuthForRealm(o.AdminAccounts, "breeze", metricsHandler)
	}

	router := app.NewRouter(fs.NewRequestHandler()).
		Suffix(".shtml", ssi).
		Exact(StatusPath, statusHandler).
		Exact(MetricsPath, metricsHandler)
	b.SetHandler(recovery.Recovery(router))
	b.router = router
	return b, nil
}

// Breeze 是 breeze 的核心结构。
//
// 组合了引擎 route.Engine 和 优雅退出函数。
type Breeze struct {
	*route.Engine
	router *app.Router
	ssi    *shtml.Handler
	// 用于接收信息实现优雅退出
	signalWaiter func(err chan error) error
}

// Router 返回 Default 创建的路由器，可继续注册规则；New 创建的实例返回空。
func (b *Breeze) Router() *app.Router {
	return b.router
}

// Close 立即关闭引擎，并释放默认路由持有的文件监视器。可重复调用。
func (b *Breeze) Close() error {
	err := b.Engine.Close()
	b.releaseResources()
	return err
}

func (b *Breeze) releaseResources() {
	if b.ssi == nil {
		return
	}
	if err := b.ssi.Close(); err != nil {
		hlog.SystemLogger().Warnf("关闭 SSI 文件监视器出错：%v", err)
	}
}

// Spin 运行服务器直至捕获 os.Signal 或 b.Run 返回错误。
// 支持优雅退出。
func (b *Breeze) Spin() {
	errCh := make(chan error, 1)
	go func() {
		errCh <- b.Run()
	}()

	signalWaiter := defaultSignalWaiter
	if b.signalWaiter != nil {
		signalWaiter = b.signalWaiter
	}

	if err := signalWaiter(errCh); err != nil {
		hlog.SystemLogger().Errorf("收到退出信号：错误=%v", err)
		if err = b.Close(); err != nil {
			hlog.SystemLogger().Errorf("退出错误：%v", err)
		}
		return
	}

	hlog.SystemLogger().Infof("开始优雅退出，最多等待 %d 秒...", b.GetOptions().ExitWaitTimeout/time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), b.GetOptions().ExitWaitTimeout)
	defer cancel()

	if err := b.Shutdown(ctx); err != nil {
		hlog.SystemLogger().Errorf("退出错误：%v", err)
	}
}

// SetCustomSignalWaiter 设置自定义的信号等待者。
// 若默认的信号等待实现不符要求，则可以自定义。
// Breeze 在 f 返回错误后会立即退出，否则它将优雅退出。
func (b *Breeze) SetCustomSignalWaiter(f func(err chan error) error) {
	b.signalWaiter = f
}

// 信号等待者的默认实现。
// SIGTERM 立即退出。
// SIGHUP|SIGINT 触发优雅退出。
func defaultSignalWaiter(errCh chan error) error {
	signalToNotify := []os.Signal{
		syscall.SIGINT,
		syscall.SIGHUP,
		syscall.SIGTERM,
	}
	if signal.Ignored(syscall.SIGHUP) {
		signalToNotify = []os.Signal{
			syscall.SIGINT,
			syscall.SIGTERM,
		}
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, signalToNotify...)
	defer signal.Stop(signals)

	select {
	case sig := <-signals:
		switch sig {
		case syscall.SIGTERM:
			// 强制退出
			return errors.NewPublic(sig.String())
		case syscall.SIGHUP, syscall.SIGINT:
			hlog.SystemLogger().Infof("收到退出信号：%s\n", sig)
			// 优雅退出
			return nil
		}
	case err := <-errCh:
		// 出现错误，立即退出
		return err
	}

	return nil
}
