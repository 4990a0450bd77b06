package stats

import (
	"runtime/debug"
	"time"

	"github.com/favbox/breeze/common/hlog"
	"github.com/favbox/breeze/common/tracer"
	"github.com/favbox/breeze/protocol"
)

var _ tracer.Controller = (*Controller)(nil)

// Controller 用于控制跟踪器。
type Controller struct {
	tracers []tracer.Tracer
}

// Append 追加一个新的跟踪器到控制器。
func (ctl *Controller) Append(col tracer.Tracer) {
	ctl.tracers = append(ctl.tracers, col)
}

// DoStart 启动跟踪器。
func (ctl *Controller) DoStart(req *protocol.Request) {
	defer ctl.tryRecover()
	for _, col := range ctl.tracers {
		col.Start(req)
	}
}

// DoFinish 以相反的顺序调用跟踪器。
func (ctl *Controller) DoFinish(req *protocol.Request, resp *protocol.Response, cost time.Duration) {
	defer ctl.tryRecover()
	// 倒序执行
	for i := len(ctl.tracers) - 1; i >= 0; i-- {
		ctl.tracers[i].Finish(req, resp, cost)
	}
}

// HasTracer 是否有跟踪器？
func (ctl *Controller) HasTracer() bool {
	return ctl != nil && len(ctl.tracers) > 0
}

func (ctl *Controller) tryRecover() {
	if err := recover(); err != nil {
		hlog.SystemLogger().Warnf("在调用跟踪器时出现恐慌。这不影响 http 调用，但可能丢失度量指标和日志等监控数据：%s, %s", err, string(debug.Stack()))
	}
}
