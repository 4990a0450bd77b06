package adaptor

import (
	"net/http"

	"github.com/favbox/breeze/protocol"
	"github.com/favbox/breeze/protocol/consts"
)

type compatResponse struct {
	resp        *protocol.Response
	header      http.Header
	wroteHeader bool
}

func (c *compatResponse) Header() http.Header {
	return c.header
}

func (c *compatResponse) Write(p []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(consts.StatusOK)
	}
	return c.resp.Write(p)
}

func (c *compatResponse) WriteHeader(statusCode int) {
	if c.wroteHeader {
		return
	}
	c.wroteHeader = true
	for k, v := range c.header {
		// 长度与分块由 protocol.Response 自行决定
		if k == consts.HeaderContentLength || k == consts.HeaderTransferEncoding {
			continue
		}
		for _, vv := range v {
			c.resp.Header().Add(k, vv)
		}
	}
	c.resp.SetStatusCode(statusCode)
}

// GetCompatResponseWriter 获取基础函数兼容的标准库响应写入器，非全部函数。
//
// 写入的正文缓存在 resp 中，调用方负责刷新。
func GetCompatResponseWriter(resp *protocol.Response) http.ResponseWriter {
	h := make(http.Header)
	resp.Header().VisitAll(func(k, v []byte) {
		h.Add(string(k), string(v))
	})
	resp.Header().Reset()
	return &compatResponse{resp: resp, header: h}
}

// HTTPHandler 将标准库处理器包装为 protocol.Handler。
//
// 标准库处理器同步执行，返回后响应即被刷新。
func HTTPHandler(h http.Handler) protocol.HandlerFunc {
	return func(req *protocol.Request, resp *protocol.Response) {
		r, err := GetCompatRequest(req)
		if err != nil {
			resp.SetStatusCode(consts.StatusBadRequest)
			resp.Flush()
			return
		}
		// 压缩交给 protocol.Response
		r.Header.Del(consts.HeaderAcceptEncoding)
		w := GetCompatResponseWriter(resp)
		h.ServeHTTP(w, r)
		if c := w.(*compatResponse); !c.wroteHeader {
			c.WriteHeader(consts.StatusOK)
		}
		resp.Flush()
	}
}
