package protocol

import (
	"strings"
	"time"

	"github.com/favbox/breeze/internal/bytesconv"
)

const (
	// CookieSameSiteDisabled 移除 SameSite 标识符
	CookieSameSiteDisabled CookieSameSite = iota
	// CookieSameSiteLaxMode 设置带有 "Lax" 参数的 SameSite 标识符。
	CookieSameSiteLaxMode
	// CookieSameSiteStrictMode 设置带有 "Strict" 参数的 SameSite 标识符。
	CookieSameSiteStrictMode
	// CookieSameSiteNoneMode 设置带有 "None" 参数的 SameSite 标识符。
	CookieSameSiteNoneMode
)

// CookieSameSite 指定 Cookie 设置相同网站标记的枚举模式。
type CookieSameSite int

// Cookie 表示响应中待下发的 cookie。
type Cookie struct {
	Name  string
	Value string

	// MaxAge 是存活秒数，优先级高于 Expires，0 代表不设置。
	MaxAge  int
	Expires time.Time

	Domain string
	Path   string

	HTTPOnly bool
	Secure   bool
	SameSite CookieSameSite
}

// AppendBytes 以 Set-Cookie 值的形式附加到 dst 并返回。
func (c *Cookie) AppendBytes(dst []byte) []byte {
	dst = append(dst, c.Name...)
	dst = append(dst, '=')
	dst = append(dst, c.Value...)

	if c.MaxAge > 0 {
		dst = append(dst, "; Max-Age="...)
		dst = bytesconv.AppendUint(dst, c.MaxAge)
	} else if !c.Expires.IsZero() {
		dst = append(dst, "; Expires="...)
		dst = bytesconv.AppendHTTPDate(dst, c.Expires)
	}
	if c.Domain != "" {
		dst = appendCookiePart(dst, "Domain", c.Domain)
	}
	if c.Path != "" {
		dst = appendCookiePart(dst, "Path", c.Path)
	}
	if c.HTTPOnly {
		dst = append(dst, "; HttpOnly"...)
	}
	if c.Secure {
		dst = append(dst, "; Secure"...)
	}
	switch c.SameSite {
	case CookieSameSiteLaxMode:
		dst = appendCookiePart(dst, "SameSite", "Lax")
	case CookieSameSiteStrictMode:
		dst = appendCookiePart(dst, "SameSite", "Strict")
	case CookieSameSiteNoneMode:
		dst = appendCookiePart(dst, "SameSite", "None")
	}
	return dst
}

// String 返回 Set-Cookie 值的字符串形式。
func (c *Cookie) String() string {
	return string(c.AppendBytes(nil))
}

func appendCookiePart(dst []byte, key, value string) []byte {
	dst = append(dst, ';', ' ')
	dst = append(dst, key...)
	dst = append(dst, '=')
	return append(dst, value...)
}

// 解析请求 Cookie 标头的值到 dst。
//
// 以分号分隔的 name=value 片段去除首尾空白后存入；
// 以 $ 开头的名称是 RFC 2965 的旧式属性，跳过；没有 '=' 的片段视为值为空。
func parseRequestCookies(dst map[string]string, src string) {
	for _, part := range strings.Split(src, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value := part, ""
		if i := strings.IndexByte(part, '='); i >= 0 {
			name = strings.TrimSpace(part[:i])
			value = strings.TrimSpace(part[i+1:])
		}
		if name == "" || strings.HasPrefix(name, "$") {
			continue
		}
		dst[name] = value
	}
}
