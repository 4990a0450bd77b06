package bytebufferpool

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
)

func TestReadFrom(t *testing.T) {
	t.Parallel()

	var b ByteBuffer
	_, _ = b.WriteString("头部:")
	body := strings.Repeat("正文", 700)
	n, err := b.ReadFrom(iotest.OneByteReader(strings.NewReader(body)))
	assert.Nil(t, err)
	assert.Equal(t, int64(len(body)), n)
	assert.Equal(t, "头部:"+body, b.String())
}

func TestReadFromError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var b ByteBuffer
	n, err := b.ReadFrom(iotest.DataErrReader(iotest.ErrReader(boom)))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(0), n)
	assert.Equal(t, 0, b.Len())
}

func TestWriteAndReset(t *testing.T) {
	t.Parallel()

	var b ByteBuffer
	n, _ := b.Write([]byte("abc"))
	assert.Equal(t, 3, n)
	_, _ = b.WriteString("de")
	assert.Equal(t, []byte("abcde"), b.Bytes())

	c := cap(b.B)
	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, c, cap(b.B))
}
