package recovery

import (
	"strings"
	"testing"

	"github.com/favbox/breeze/common/ut"
	"github.com/favbox/breeze/protocol"
	"github.com/favbox/breeze/protocol/consts"
	"github.com/stretchr/testify/assert"
)

var panicking = protocol.HandlerFunc(func(req *protocol.Request, resp *protocol.Response) {
	panic("测试")
})

func TestRecovery(t *testing.T) {
	t.Parallel()
	w := ut.PerformRequest(Recovery(panicking), "GET", "/", nil)
	code, _, body := w.Result()
	assert.Equal(t, consts.StatusInternalServerError, code)
	assert.Equal(t, "500 Internal Server Error", string(body))
	assert.False(t, w.Disconnected)
}

func TestRecoveryAfterHeaders(t *testing.T) {
	t.Parallel()
	h := Recovery(protocol.HandlerFunc(func(req *protocol.Request, resp *protocol.Response) {
		resp.SetChunked()
		_, _ = resp.WriteString("part")
		panic("中途")
	}))
	w := ut.PerformRequest(h, "GET", "/", nil)
	code, _, body := w.Result()
	assert.Equal(t, consts.StatusOK, code)
	assert.Equal(t, "part", string(body))
	assert.True(t, w.Disconnected)
}

func TestWithRecoveryHandler(t *testing.T) {
	t.Parallel()
	w := ut.PerformRequest(Recovery(panicking, WithRecoveryHandler(myRecoveryHandler)), "GET", "/", nil)
	code, _, body := w.Result()
	assert.Equal(t, consts.StatusNotImplemented, code)
	assert.Equal(t, `{"msg":"测试"}`, string(body))
}

func TestStack(t *testing.T) {
	t.Parallel()
	s := string(stack(0))
	assert.True(t, strings.Contains(s, "TestStack"))
	assert.Equal(t, dunno, function(""))
	assert.Equal(t, "(*T).m", string(function("github.com/a/b.(*T).m")))
	assert.Equal(t, dunno, source(nil, 1))
}
