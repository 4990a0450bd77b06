package app

import (
	"strings"

	"github.com/favbox/breeze/common/hlog"
	"github.com/favbox/breeze/protocol"
)

// MatchKind 是路由规则的匹配方式。
type MatchKind int

const (
	MatchPrefix MatchKind = iota
	MatchSuffix
	MatchExact
)

func (k MatchKind) String() string {
	switch k {
	case MatchPrefix:
		return "prefix"
	case MatchSuffix:
		return "suffix"
	case MatchExact:
		return "exact"
	}
	return "unknown"
}

// Route 表示一条路由规则的信息。
type Route struct {
	Kind    MatchKind
	Pattern string
	Handler string // 处理器名称
}

// Routes 定义了一组路由信息。
type Routes []Route

type rule struct {
	kind    MatchKind
	pattern string
	handler Handler
}

// Router 按注册顺序匹配请求路径，选择第一条命中的规则。
//
// 规则可以匹配路径前缀、路径后缀或完整路径，均未命中时交给默认处理器。
// 路由在开始服务前配置完成，之后只读。
type Router struct {
	rules []rule
	def   Handler
}

var _ protocol.Handler = (*Router)(nil)

// NewRouter 创建以 def 为默认处理器的路由器，def 为空时回复 404。
func NewRouter(def Handler) *Router {
	if def == nil {
		def = HandlerFunc(NotFound)
	}
	return &Router{def: def}
}

// Prefix 注册路径前缀规则。
func (r *Router) Prefix(prefix string, h Handler) *Router {
	return r.add(MatchPrefix, prefix, h)
}

// Suffix 注册路径后缀规则，例如 ".shtml"。
func (r *Router) Suffix(suffix string, h Handler) *Router {
	return r.add(MatchSuffix, suffix, h)
}

// Exact 注册完整路径规则。
func (r *Router) Exact(path string, h Handler) *Router {
	return r.add(MatchExact, path, h)
}

// Default 替换默认处理器。
func (r *Router) Default(h Handler) *Router {
	if h != nil {
		r.def = h
	}
	return r
}

func (r *Router) add(kind MatchKind, pattern string, h Handler) *Router {
	if pattern == "" || h == nil {
		panic("路由规则的模式和处理器均不能为空")
	}
	r.rules = append(r.rules, rule{kind: kind, pattern: pattern, handler: h})
	hlog.SystemLogger().Debugf("注册路由：方式=%s 模式=%s 处理器=%s", kind, pattern, HandlerName(h))
	return r
}

// Match 返回路径对应的处理器。
func (r *Router) Match(path string) Handler {
	for _, ru := range r.rules {
		switch ru.kind {
		case MatchPrefix:
			if strings.HasPrefix(path, ru.pattern) {
				return ru.handler
			}
		case MatchSuffix:
			if strings.HasSuffix(path, ru.pattern) {
				return ru.handler
			}
		case MatchExact:
			if path == ru.pattern {
				return ru.handler
			}
		}
	}
	return r.def
}

// Service 实现 protocol.Handler。
func (r *Router) Service(req *protocol.Request, resp *protocol.Response) {
	r.Match(req.Path()).Service(req, resp)
}

// Routes 返回已注册的路由规则，默认处理器不在其中。
func (r *Router) Routes() Routes {
	routes := make(Routes, 0, len(r.rules))
	for _, ru := range r.rules {
		routes = append(routes, Route{Kind: ru.kind, Pattern: ru.pattern, Handler: HandlerName(ru.handler)})
	}
	return routes
}
