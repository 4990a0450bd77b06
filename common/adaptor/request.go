package adaptor

import (
	"bytes"
	"net/http"

	"github.com/favbox/breeze/protocol"
	"github.com/favbox/breeze/protocol/consts"
)

// GetCompatRequest 获取基础函数兼容的标准库请求，非全部函数。
func GetCompatRequest(req *protocol.Request) (*http.Request, error) {
	r, err := http.NewRequest(req.Method(), req.URI(), bytes.NewReader(req.Body()))
	if err != nil {
		return nil, err
	}

	h := make(http.Header)
	req.Header().VisitAll(func(key, value []byte) {
		h.Add(string(key), string(value))
	})
	r.Header = h
	r.Host = req.Header().Get(consts.HeaderHost)
	r.RequestURI = req.URI()

	return r, nil
}
