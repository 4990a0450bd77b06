package bytebufferpool

import (
	"io"
)

// 读取时首次分配的容量。
const minReadSize = 512

// ByteBuffer 是可复用的字节缓冲区，由 Pool.Get 取得。
type ByteBuffer struct {
	// B 是缓冲区内容，可直接追加。
	B []byte
}

// ReadFrom 将 r 中剩余的数据全部追加到缓冲区，io.EOF 不视为错误。
func (b *ByteBuffer) ReadFrom(r io.Reader) (int64, error) {
	start := len(b.B)
	for {
		if len(b.B) == cap(b.B) {
			b.B = append(b.B, make([]byte, max(minReadSize, cap(b.B)))...)[:len(b.B)]
		}
		n, err := r.Read(b.B[len(b.B):cap(b.B)])
		b.B = b.B[:len(b.B)+n]
		if err != nil {
			if err == io.EOF {
				err = nil
			}
			return int64(len(b.B) - start), err
		}
	}
}

// Write 实现 io.Writer。
func (b *ByteBuffer) Write(p []byte) (int, error) {
	b.B = append(b.B, p...)
	return len(p), nil
}

// WriteString 追加字符串。
func (b *ByteBuffer) WriteString(s string) (int, error) {
	b.B = append(b.B, s...)
	return len(s), nil
}

func (b *ByteBuffer) Len() int       { return len(b.B) }
func (b *ByteBuffer) Bytes() []byte  { return b.B }
func (b *ByteBuffer) String() string { return string(b.B) }

// Reset 清空内容，保留容量。
func (b *ByteBuffer) Reset() { b.B = b.B[:0] }
