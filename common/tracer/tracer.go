package tracer

import (
	"time"

	"github.com/favbox/breeze/protocol"
)

// Tracer 在请求分发前后执行。
type Tracer interface {
	// Start 在请求交给处理器之前调用。
	Start(req *protocol.Request)
	// Finish 在处理器返回之后调用，cost 为处理器耗时。
	Finish(req *protocol.Request, resp *protocol.Response, cost time.Duration)
}

// Controller 跟踪控制器
type Controller interface {
	// Append 追加一个追踪器。
	Append(col Tracer)
	// DoStart 启动跟踪器。
	DoStart(req *protocol.Request)
	// DoFinish 以相反的顺序调用跟踪器。
	DoFinish(req *protocol.Request, resp *protocol.Response, cost time.Duration)
	// HasTracer 是否有跟踪器？
	HasTracer() bool
}
