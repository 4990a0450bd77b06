package recovery

import (
	"github.com/favbox/breeze/app"
	"github.com/favbox/breeze/common/hlog"
	"github.com/favbox/breeze/protocol"
	"github.com/favbox/breeze/protocol/consts"
)

// 恐慌恢复的自定义选项。
type options struct {
	recoveryHandler func(req *protocol.Request, resp *protocol.Response, err any, stack []byte)
}

// Option 自定义选项的应用函数。
type Option func(o *options)

func defaultRecoveryHandler(req *protocol.Request, resp *protocol.Response, err any, stack []byte) {
	hlog.SystemLogger().Errorf("[恐慌恢复] 路径=%s 恐慌=%v\n堆栈=%s", req.Path(), err, stack)
	if resp.HeadersSent() {
		// 标头已发出，无法再更改状态码
		resp.FlushAndClose()
		return
	}
	app.Error(resp, consts.StatusInternalServerError, "500 Internal Server Error")
}

func newOptions(opts ...Option) *options {
	cfg := &options{recoveryHandler: defaultRecoveryHandler}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithRecoveryHandler 自定义恐慌恢复处理器。
func WithRecoveryHandler(f func(req *protocol.Request, resp *protocol.Response, err any, stack []byte)) Option {
	return func(o *options) {
		o.recoveryHandler = f
	}
}
