// Package status 以 JSON 形式提供各连接的请求日志快照。
package status

import (
	"github.com/favbox/breeze/app/server/render"
	"github.com/favbox/breeze/common/hlog"
	"github.com/favbox/breeze/protocol"
	"github.com/favbox/breeze/protocol/consts"
	"github.com/favbox/breeze/protocol/http1"
)

// Source 提供请求日志快照，通常是 route.Engine。
type Source interface {
	WebStatus() []http1.RequestStatus
}

// Handler 回复 Source 的快照。
type Handler struct {
	src Source
}

var _ protocol.Handler = (*Handler)(nil)

// New 创建状态处理器。
func New(src Source) *Handler {
	return &Handler{src: src}
}

func (h *Handler) Service(req *protocol.Request, resp *protocol.Response) {
	list := h.src.WebStatus()
	if list == nil {
		list = []http1.RequestStatus{}
	}
	if err := render.JSON(resp, consts.StatusOK, list); err != nil {
		hlog.SystemLogger().Errorf("编码连接状态失败：%v", err)
	}
}
