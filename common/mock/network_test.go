package mock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingHandler struct{ written int }

func (h *countingHandler) OnReadable([]byte) {}
func (h *countingHandler) OnWritten(n int)   { h.written += n }
func (h *countingHandler) OnDisconnected()   {}

func TestSocketCapacity(t *testing.T) {
	t.Parallel()
	s := NewSocket(4)
	h := &countingHandler{}
	s.SetHandler(h)

	n, err := s.Send([]byte("abcdef"))
	assert.Nil(t, err)
	assert.Equal(t, 4, n)
	n, _ = s.Send([]byte("ef"))
	assert.Equal(t, 0, n)
	assert.Equal(t, 4, s.Buffered())

	s.Flush()
	assert.Equal(t, 4, h.written)
	n, _ = s.Send([]byte("ef"))
	assert.Equal(t, 2, n)
	assert.Equal(t, "abcdef", s.Output())
}

func TestSocketClose(t *testing.T) {
	t.Parallel()
	s := NewSocket(0)
	assert.True(t, s.IsActive())
	assert.Nil(t, s.Close())
	assert.True(t, s.Closed())
	assert.False(t, s.IsActive())
	<-s.Done()

	_, err := s.Send([]byte("x"))
	assert.NotNil(t, err)

	assert.Nil(t, s.Abort())
	assert.True(t, s.Aborted())
}
