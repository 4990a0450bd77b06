// Package basic_auth 为处理器加上 HTTP 基本认证。
package basic_auth

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/alexedwards/argon2id"
	"github.com/favbox/breeze/app"
	"github.com/favbox/breeze/common/hlog"
	"github.com/favbox/breeze/internal/bytesconv"
	"github.com/favbox/breeze/protocol"
	"github.com/favbox/breeze/protocol/consts"
)

const defaultRealm = "Authorization Required"

// Accounts 用于构建用户名:密码映射。
//
// 以 "$argon2id$" 开头的密码视为 Argon2id 哈希，可由 HashPassword 生成。
type Accounts map[string]string

const argon2idPrefix = "$argon2id$"

// HashPassword 返回密码的 Argon2id 哈希，可直接作为 Accounts 中的密码使用。
func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, argon2id.DefaultParams)
}

// 用于构建标头值:用户名的反向映射。
type pairs map[string]string

func (p pairs) findValue(needle string) (v string, ok bool) {
	v, ok = p[needle]
	return
}

func constructPairs(accounts Accounts) pairs {
	p := make(pairs, len(accounts))
	for user, password := range accounts {
		if strings.HasPrefix(password, argon2idPrefix) {
			continue
		}
		p[authValue(user, password)] = user
	}
	return p
}

// 校验哈希账户，通过校验的标头值会被缓存，避免每次请求都计算哈希。
type hashedAccounts struct {
	hashes   map[string]string
	verified sync.Map
}

func constructHashed(accounts Accounts) *hashedAccounts {
	h := &hashedAccounts{hashes: make(map[string]string)}
	for user, password := range accounts {
		if strings.HasPrefix(password, argon2idPrefix) {
			h.hashes[user] = password
		}
	}
	return h
}

func (h *hashedAccounts) check(header string) bool {
	if len(h.hashes) == 0 || header == "" {
		return false
	}
	if _, ok := h.verified.Load(header); ok {
		return true
	}
	user, password, ok := parseCredentials(header)
	if !ok {
		return false
	}
	hash, ok := h.hashes[user]
	if !ok {
		return false
	}
	match, err := compareHash(password, hash)
	if err != nil {
		hlog.SystemLogger().Warnf("账户密码哈希无效：用户=%s 错误=%v", user, err)
		return false
	}
	if match {
		h.verified.Store(header, user)
	}
	return match
}

// 格式错误的哈希参数会让 argon2 恐慌。
func compareHash(password, hash string) (match bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			match, err = false, fmt.Errorf("哈希参数无效：%v", r)
		}
	}()
	return argon2id.ComparePasswordAndHash(password, hash)
}

func authValue(user, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString(bytesconv.S2b(user+":"+password))
}

// BasicAuthForRealm 返回需要基本认证的处理器，认证通过后交给 next。
// accounts 的键是用户名，值是密码。
// realm 是资源所在的领域名称，为空时使用 "Authorization Required"。
// 详见 http://tools.ietf.org/html/rfc2617#section-1.2
func BasicAuthForRealm(accounts Accounts, realm string, next app.Handler) app.Handler {
	if realm == "" {
		realm = defaultRealm
	}
	challenge := "Basic realm=" + strconv.Quote(realm)
	p := constructPairs(accounts)
	hashed := constructHashed(accounts)
	return app.HandlerFunc(func(req *protocol.Request, resp *protocol.Response) {
		v := req.Header().Get(consts.HeaderAuthorization)
		if _, found := p.findValue(v); !found && !hashed.check(v) {
			// 凭据不匹配，回复 401 且不再交给 next
			resp.SetHeader(consts.HeaderWWWAuthenticate, challenge)
			app.Error(resp, consts.StatusUnauthorized, "401 Unauthorized")
			return
		}
		next.Service(req, resp)
	})
}

// BasicAuth 返回默认领域的基本认证处理器。
func BasicAuth(accounts Accounts, next app.Handler) app.Handler {
	return BasicAuthForRealm(accounts, defaultRealm, next)
}

// User 返回请求所携带凭据中的用户名，未携带基本认证凭据时返回空串。
//
// 只解析标头，不校验密码。
func User(req *protocol.Request) string {
	user, _, _ := parseCredentials(req.Header().Get(consts.HeaderAuthorization))
	return user
}

func parseCredentials(v string) (user, password string, ok bool) {
	if !strings.HasPrefix(v, "Basic ") {
		return "", "", false
	}
	raw, err := base64.StdEncoding.DecodeString(v[len("Basic "):])
	if err != nil {
		return "", "", false
	}
	return strings.Cut(string(raw), ":")
}
