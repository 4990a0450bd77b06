package basic_auth

import (
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/favbox/breeze/common/ut"
	"github.com/favbox/breeze/protocol"
	"github.com/favbox/breeze/protocol/consts"
	"github.com/stretchr/testify/assert"
)

func TestPairs(t *testing.T) {
	t.Parallel()
	p1 := constructPairs(Accounts{"test1": "value1"})
	p2 := constructPairs(Accounts{"test2": "value2"})

	u1, ok1 := p1.findValue("Basic dGVzdDE6dmFsdWUx")
	u2, ok2 := p2.findValue("Basic dGVzdDI6dmFsdWUy")
	_, ok3 := p1.findValue("bad header")
	assert.True(t, ok1)
	assert.Equal(t, "test1", u1)
	assert.True(t, ok2)
	assert.Equal(t, "test2", u2)
	assert.False(t, ok3)
}

func TestBasicAuth(t *testing.T) {
	t.Parallel()
	var user string
	h := BasicAuth(Accounts{"user1": "value1"}, protocol.HandlerFunc(func(req *protocol.Request, resp *protocol.Response) {
		user = User(req)
		_, _ = resp.WriteString("ok")
		resp.Flush()
	}))

	w := ut.PerformRequest(h, "GET", "/", nil,
		ut.Header{Key: consts.HeaderAuthorization, Value: authValue("user1", "value1")})
	code, _, body := w.Result()
	assert.Equal(t, consts.StatusOK, code)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, "user1", user)

	w = ut.PerformRequest(h, "GET", "/", nil,
		ut.Header{Key: consts.HeaderAuthorization, Value: authValue("user1", "wrong")})
	code, header, _ := w.Result()
	assert.Equal(t, consts.StatusUnauthorized, code)
	assert.Equal(t, `Basic realm="Authorization Required"`, header.Get(consts.HeaderWWWAuthenticate))
}

func TestBasicAuthForRealm(t *testing.T) {
	t.Parallel()
	h := BasicAuthForRealm(Accounts{"a": "b"}, "admin", protocol.HandlerFunc(func(req *protocol.Request, resp *protocol.Response) {
		t.Fatal("未认证的请求不应到达处理器")
	}))
	w := ut.PerformRequest(h, "GET", "/", nil)
	assert.Equal(t, `Basic realm="admin"`, w.Header().Get(consts.HeaderWWWAuthenticate))
	assert.Equal(t, consts.StatusUnauthorized, w.Code)
}

func TestUser(t *testing.T) {
	t.Parallel()
	tests := []struct {
		auth string
		want string
	}{
		{authValue("alice", "pw"), "alice"},
		{"Bearer abc", ""},
		{"Basic !!!", ""},
		{"", ""},
	}
	for _, tt := range tests {
		req := protocol.NewRequest(protocol.DefaultLimits())
		if tt.auth != "" {
			req.Header().Set(consts.HeaderAuthorization, tt.auth)
		}
		assert.Equal(t, tt.want, User(req), tt.auth)
	}
}

// 测试用的低成本参数，哈希中自带参数，校验时无需指定。
var cheapParams = &argon2id.Params{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestBasicAuthHashedPassword(t *testing.T) {
	t.Parallel()
	hash, err := argon2id.CreateHash("s3cret", cheapParams)
	assert.Nil(t, err)

	calls := 0
	h := BasicAuth(Accounts{"ops": hash, "dev": "plain"}, protocol.HandlerFunc(func(req *protocol.Request, resp *protocol.Response) {
		calls++
		resp.Flush()
	}))

	for i := 0; i < 2; i++ {
		w := ut.PerformRequest(h, "GET", "/", nil,
			ut.Header{Key: consts.HeaderAuthorization, Value: authValue("ops", "s3cret")})
		assert.Equal(t, consts.StatusOK, statusOf(w))
	}
	w := ut.PerformRequest(h, "GET", "/", nil,
		ut.Header{Key: consts.HeaderAuthorization, Value: authValue("dev", "plain")})
	assert.Equal(t, consts.StatusOK, statusOf(w))
	assert.Equal(t, 3, calls)

	// 哈希本身不能当作密码使用
	w = ut.PerformRequest(h, "GET", "/", nil,
		ut.Header{Key: consts.HeaderAuthorization, Value: authValue("ops", hash)})
	assert.Equal(t, consts.StatusUnauthorized, statusOf(w))
	w = ut.PerformRequest(h, "GET", "/", nil,
		ut.Header{Key: consts.HeaderAuthorization, Value: authValue("ops", "wrong")})
	assert.Equal(t, consts.StatusUnauthorized, statusOf(w))
}

func TestMalformedHash(t *testing.T) {
	t.Parallel()
	hashed := constructHashed(Accounts{"ops": "$argon2id$v=19$m=0,t=0,p=0$bad$bad"})
	assert.False(t, hashed.check(authValue("ops", "x")))
	assert.False(t, hashed.check("Basic !!!"))
	assert.False(t, hashed.check(authValue("nobody", "x")))
}

func TestHashPassword(t *testing.T) {
	t.Parallel()
	hash, err := HashPassword("pw")
	assert.Nil(t, err)
	assert.Contains(t, hash, argon2idPrefix)
	ok, err := compareHash("pw", hash)
	assert.Nil(t, err)
	assert.True(t, ok)
}

func statusOf(w *ut.ResponseRecorder) int {
	code, _, _ := w.Result()
	return code
}
