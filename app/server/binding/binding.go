// Package binding 将请求参数绑定到结构体并按 "vd" 标签验证。
//
// 字段通过标签声明参数来源：
//
//	query   原始查询串中的参数
//	form    合并后的请求参数，正文参数优先于查询参数
//	header  请求标头
//	cookie  请求 cookie
//	default 参数缺失时使用的默认值
//
// 内容类型为 application/json 的正文先按 json 标签解码，再由上述标签覆盖。
package binding

import (
	"fmt"
	"reflect"

	"github.com/favbox/breeze/common/json"
	"github.com/favbox/breeze/common/utils"
	"github.com/favbox/breeze/internal/bytesconv"
	"github.com/favbox/breeze/protocol"
	"github.com/favbox/breeze/protocol/consts"
)

// BindError 是单个字段的绑定错误。
type BindError struct {
	Source string
	Name   string
	Err    error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("绑定参数失败：来源=%s 名称=%s 错误=%v", e.Source, e.Name, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// Bind 将 req 的数据绑定到 obj，obj 须为指向结构体的非空指针。
func Bind(req *protocol.Request, obj any) error {
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("绑定目标须为结构体指针，实际为 %T", obj)
	}

	if body := req.Body(); len(body) > 0 && isJSON(req) {
		if err := json.Unmarshal(body, obj); err != nil {
			return &BindError{Source: "json", Err: err}
		}
	}

	src := newSource(req)
	for _, f := range cachedFields(rv.Elem().Type()) {
		vals := src.values(f.source, f.name)
		if len(vals) == 0 {
			if !f.hasDefault {
				continue
			}
			vals = []string{f.defaultValue}
		}
		if err := setValue(fieldByIndex(rv.Elem(), f.index), vals); err != nil {
			return &BindError{Source: f.source, Name: f.name, Err: err}
		}
	}
	return nil
}

// Validate 使用 "vd" 标签验证 obj。
func Validate(obj any) error {
	return DefaultValidator().ValidateStruct(obj)
}

// BindAndValidate 绑定后验证。
func BindAndValidate(req *protocol.Request, obj any) error {
	if err := Bind(req, obj); err != nil {
		return err
	}
	return Validate(obj)
}

func isJSON(req *protocol.Request) bool {
	ct := utils.FilterContentType(req.Header().Get(consts.HeaderContentType))
	return ct == consts.MIMEApplicationJSON
}

// 请求各处参数的统一读取入口，查询串按需解析一次。
type source struct {
	req   *protocol.Request
	query *protocol.Args
}

func newSource(req *protocol.Request) *source {
	return &source{req: req}
}

func (s *source) values(from, name string) []string {
	switch from {
	case queryTag:
		if s.query == nil {
			s.query = &protocol.Args{}
			s.query.ParseBytes(bytesconv.S2b(s.req.Query()))
		}
		return s.query.PeekAll(name)
	case formTag:
		return s.req.ParamValues(name)
	case headerTag:
		return s.req.Header().Values(name)
	case cookieTag:
		if v := s.req.Cookie(name); v != "" {
			return []string{v}
		}
	}
	return nil
}
