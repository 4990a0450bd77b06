package protocol

// Handler 是请求处理器的能力接口。
//
// Service 在连接的事件循环中同步执行，不得无限期阻塞。
// 处理器须最终调用 resp 的某个刷新方法，否则缓冲的输出不会发出。
type Handler interface {
	Service(req *Request, resp *Response)
}

// HandlerFunc 使普通函数实现 Handler。
type HandlerFunc func(req *Request, resp *Response)

// Service 调用 f(req, resp)。
func (f HandlerFunc) Service(req *Request, resp *Response) {
	f(req, resp)
}
