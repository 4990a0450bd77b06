package compress

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"hash/crc32"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompressRoundTrip(t *testing.T) {
	t.Parallel()

	random := make([]byte, 4096)
	for i := range random {
		random[i] = byte(i*7 + i/13)
	}
	for _, data := range [][]byte{
		nil,
		[]byte("a"),
		[]byte("hello, breeze"),
		[]byte(strings.Repeat("<p>breeze</p>", 1000)),
		random,
	} {
		out := Compress(data)

		zr, err := gzip.NewReader(bytes.NewReader(out))
		assert.Nil(t, err)
		got, err := io.ReadAll(zr)
		assert.Nil(t, err)
		assert.Equal(t, len(data), len(got))
		assert.True(t, bytes.Equal(data, got))

		got, err = AppendGunzipBytes(nil, out)
		assert.Nil(t, err)
		assert.True(t, bytes.Equal(data, got))
	}
}

func TestCompressContainer(t *testing.T) {
	t.Parallel()

	data := []byte("The quick brown fox jumps over the lazy dog")
	out := Compress(data)

	assert.Equal(t, gzipHeader[:], out[:10])
	footer := out[len(out)-8:]
	assert.Equal(t, crc32.ChecksumIEEE(data), binary.LittleEndian.Uint32(footer[:4]))
	assert.Equal(t, uint32(len(data)), binary.LittleEndian.Uint32(footer[4:]))
}

func TestCRC32(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint32(0), CRC32(nil))
	assert.Equal(t, uint32(0x414fa339), CRC32([]byte("The quick brown fox jumps over the lazy dog")))
}

func TestAppendGzipBytesLevel(t *testing.T) {
	t.Parallel()

	data := []byte(strings.Repeat("breeze", 100))
	for _, level := range []int{-2, 0, 1, 9, 42} {
		out := AppendGzipBytesLevel([]byte("prefix"), data, level)
		assert.Equal(t, "prefix", string(out[:6]))
		got, err := AppendGunzipBytes(nil, out[6:])
		assert.Nil(t, err)
		assert.Equal(t, data, got)
	}
}
