// Package sse 在分块响应之上推送服务器事件流。
package sse

import (
	errs "github.com/favbox/breeze/common/errors"
	"github.com/favbox/breeze/common/hlog"
	"github.com/favbox/breeze/protocol"
	"github.com/favbox/breeze/protocol/consts"
)

const (
	ContentType = consts.MIMETextEventStream
	LastEventID = "Last-Event-ID"
	noCache     = "no-cache"
)

// Event 是一条服务器事件。
type Event struct {
	Event string
	ID    string
	Retry uint64
	Data  []byte
}

// GetLastEventID 获取请求头中可能存在的 Last-Event-ID 值。
func GetLastEventID(req *protocol.Request) string {
	return req.Header().Get(LastEventID)
}

// Stream 是绑定到单个响应的事件流。
//
// Publish 与 Close 可以在任意协程中调用，实际写入投递到连接的事件循环中执行。
type Stream struct {
	resp *protocol.Response
}

// NewStream 将 resp 切换为分块的事件流并立即发送标头。
//
// 只能在处理器中调用。
func NewStream(resp *protocol.Response) *Stream {
	resp.SetContentType(ContentType)
	if !resp.Header().Has(consts.HeaderCacheControl) {
		resp.SetHeader(consts.HeaderCacheControl, noCache)
	}
	resp.SetChunked()
	resp.Flush()
	return &Stream{resp: resp}
}

// Publish 发布事件至客户端。连接已销毁时返回 ErrConnectionClosed。
func (s *Stream) Publish(event *Event) error {
	b := AppendEvent(nil, event)
	ok := s.resp.Link().Post(func() {
		if _, err := s.resp.Write(b); err != nil {
			hlog.SystemLogger().Debugf("事件流写入失败：错误=%v", err)
		}
	})
	if !ok {
		return errs.ErrConnectionClosed
	}
	return nil
}

// Close 发送结束分块并将响应从连接中移除，连接本身保持可用。
func (s *Stream) Close() error {
	if !s.resp.Link().Post(s.resp.FlushAndDelete) {
		return errs.ErrConnectionClosed
	}
	return nil
}
