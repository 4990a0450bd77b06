package stats

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/favbox/breeze/protocol"
)

type mockTracer struct {
	order         int
	stack         *[]int
	panicAtStart  bool
	panicAtFinish bool
}

func (mt *mockTracer) Start(*protocol.Request) {
	if mt.panicAtStart {
		panic(fmt.Sprintf("启动时出现恐慌： Tracer(%d)", mt.order))
	}
	*mt.stack = append(*mt.stack, mt.order)
}

func (mt *mockTracer) Finish(*protocol.Request, *protocol.Response, time.Duration) {
	if mt.panicAtFinish {
		panic(fmt.Sprintf("panicked at finish: Tracer(%d)", mt.order))
	}
	*mt.stack = append(*mt.stack, -mt.order)
}

func TestOrder(t *testing.T) {
	var c Controller
	var stack []int
	c.Append(&mockTracer{order: 1, stack: &stack})
	c.Append(&mockTracer{order: 2, stack: &stack})
	assert.True(t, c.HasTracer())

	req := protocol.NewRequest(protocol.DefaultLimits())
	c.DoStart(req)
	assert.Equal(t, []int{1, 2}, stack)

	c.DoFinish(req, nil, time.Millisecond)
	assert.Equal(t, []int{1, 2, -2, -1}, stack)
}

func TestPanic(t *testing.T) {
	var c Controller
	var stack []int
	c.Append(&mockTracer{order: 1, stack: &stack, panicAtStart: true, panicAtFinish: true})
	c.Append(&mockTracer{order: 2, stack: &stack})

	req := protocol.NewRequest(protocol.DefaultLimits())
	c.DoStart(req)
	assert.Empty(t, stack)

	// 倒序执行，第二个追踪器先完成
	c.DoFinish(req, nil, 0)
	assert.Equal(t, []int{-2}, stack)
}

func TestNilController(t *testing.T) {
	var c *Controller
	assert.False(t, c.HasTracer())
}
