package consts

import (
	"net/http"
	"strconv"
	"sync"
)

// 引擎与内置处理器用到的 HTTP 状态码，其余状态码可直接使用数字。
const (
	StatusContinue = 100

	StatusOK             = 200
	StatusCreated        = 201
	StatusAccepted       = 202
	StatusNoContent      = 204
	StatusPartialContent = 206

	StatusMovedPermanently  = 301
	StatusFound             = 302
	StatusSeeOther          = 303
	StatusNotModified       = 304
	StatusTemporaryRedirect = 307
	StatusPermanentRedirect = 308

	StatusBadRequest                   = 400
	StatusUnauthorized                 = 401
	StatusForbidden                    = 403
	StatusNotFound                     = 404
	StatusMethodNotAllowed             = 405
	StatusRequestTimeout               = 408
	StatusRequestEntityTooLarge        = 413
	StatusRequestedRangeNotSatisfiable = 416
	StatusExpectationFailed            = 417

	StatusInternalServerError = 500
	StatusNotImplemented      = 501
)

const unknownStatusMessage = "Unknown Status"

// 状态码到完整状态行的缓存。
var statusLines sync.Map

// StatusMessage 返回状态码的标准原因短语，未注册的状态码返回 "Unknown Status"。
func StatusMessage(statusCode int) string {
	if s := http.StatusText(statusCode); s != "" {
		return s
	}
	return unknownStatusMessage
}

// StatusLine 返回状态码对应的状态行，如 "HTTP/1.1 200 OK\r\n"。可并发调用。
func StatusLine(statusCode int) []byte {
	if v, ok := statusLines.Load(statusCode); ok {
		return v.([]byte)
	}
	b := make([]byte, 0, 32)
	b = append(b, "HTTP/1.1 "...)
	b = strconv.AppendInt(b, int64(statusCode), 10)
	b = append(b, ' ')
	b = append(b, StatusMessage(statusCode)...)
	b = append(b, '\r', '\n')
	v, _ := statusLines.LoadOrStore(statusCode, b)
	return v.([]byte)
}
