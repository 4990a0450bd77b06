package errors

import (
	"errors"
	"fmt"
)

var (
	ErrTimeout          = errors.New("timeout")
	ErrIdleTimeout      = errors.New("idle timeout")
	ErrConnectionClosed = errors.New("连接已关闭")
	ErrBadRequestLine   = errors.New("请求行格式错误")
	ErrBodyTooLarge     = errors.New("正文大小超过给定限制")
	ErrNoMultipartForm  = errors.New("请求的内容类型没有多部分表单数据")
	ErrSpoolFailed      = errors.New("多部分正文暂存失败")
	ErrHandshake        = errors.New("TLS 握手失败")
	ErrTLSUnsupported   = errors.New("网络传输器不支持 TLS")
	ErrNotRunning       = errors.New("服务未在运行中")
	ErrSessionNotFound  = errors.New("会话不存在或已过期")
	ErrResponseFlushed  = errors.New("响应已刷新，后续写入被忽略")
)

type ErrorType uint64

// Error 表示一个带有错误类型和元信息的错误规范。
type Error struct {
	Err  error
	Type ErrorType
	Meta any
}

// 返回错误的消息字符串。
func (msg *Error) Error() string {
	return msg.Err.Error()
}

func (msg *Error) Unwrap() error {
	return msg.Err
}

func (msg *Error) IsType(flags ErrorType) bool {
	return (msg.Type & flags) > 0
}

func (msg *Error) SetType(flags ErrorType) *Error {
	msg.Type = flags
	return msg
}

func (msg *Error) SetMeta(data any) *Error {
	msg.Meta = data
	return msg
}

const (
	// ErrorTypeProtocol 用于请求报文解析失败。
	ErrorTypeProtocol ErrorType = 1 << iota
	// ErrorTypeTLS 用于证书加载或校验失败。
	ErrorTypeTLS
	// ErrorTypePrivate 表示一个私有的错误。
	ErrorTypePrivate
	// ErrorTypePublic 表示一个公开的错误。
	ErrorTypePublic
	// ErrorTypeAny 表示任何其他错误。
	ErrorTypeAny
)

var _ error = (*Error)(nil)

// New 新建一个指定错误和错误类型及元数据的自定义错误。
func New(err error, t ErrorType, meta any) *Error {
	return &Error{
		Err:  err,
		Type: t,
		Meta: meta,
	}
}

func NewPublic(err string) *Error {
	return New(errors.New(err), ErrorTypePublic, nil)
}

func NewPrivate(err string) *Error {
	return New(errors.New(err), ErrorTypePrivate, nil)
}

func Newf(t ErrorType, meta any, format string, v ...any) *Error {
	return New(fmt.Errorf(format, v...), t, meta)
}

func NewPublicf(format string, v ...any) *Error {
	return New(fmt.Errorf(format, v...), ErrorTypePublic, nil)
}

func NewPrivatef(format string, v ...any) *Error {
	return New(fmt.Errorf(format, v...), ErrorTypePrivate, nil)
}
