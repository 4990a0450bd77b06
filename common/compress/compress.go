// Package compress 提供响应正文使用的最小 gzip 容器编码。
//
// 容器由固定的 10 字节头部、原始 DEFLATE 数据和 CRC32 加长度的尾部组成。
package compress

import (
	"compress/flate"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"sync"
)

// CompressDefaultCompression 默认压缩率
const CompressDefaultCompression = 6

// 固定头部：ID1 ID2 CM=deflate FLG=0 MTIME=0 XFL=0 OS=0x0b
var gzipHeader = [10]byte{0x1f, 0x8b, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x0b}

var (
	flateWriterPoolMap = newCompressWriterPoolMap()
	gzipReaderPool     sync.Pool
)

// Compress 返回 data 的 gzip 编码。空输入同样产生合法的 gzip 数据。
func Compress(data []byte) []byte {
	return AppendGzipBytes(make([]byte, 0, len(data)/2+len(gzipHeader)+8), data)
}

// AppendGzipBytes 压缩 src 并附加到 dst，然后返回。
func AppendGzipBytes(dst, src []byte) []byte {
	return AppendGzipBytesLevel(dst, src, CompressDefaultCompression)
}

// AppendGzipBytesLevel 附加压缩后的 src 到 dst 并返回（使用指定的压缩级别）。
func AppendGzipBytesLevel(dst, src []byte, level int) []byte {
	w := &byteSliceWriter{append(dst, gzipHeader[:]...)}

	zw := acquireFlateWriter(w, level)
	if _, err := zw.Write(src); err != nil {
		panic(fmt.Sprintf("BUG: flate.Writer.Write for len(p)=%d returned unexpected error: %s", len(src), err))
	}
	releaseFlateWriter(zw, level)

	var footer [8]byte
	binary.LittleEndian.PutUint32(footer[:4], CRC32(src))
	binary.LittleEndian.PutUint32(footer[4:], uint32(len(src)))
	return append(w.b, footer[:]...)
}

// CRC32 计算 gzip 尾部使用的校验和。
//
// 反射的 IEEE 多项式查表，初值 0xFFFFFFFF，结果取反。
func CRC32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// AppendGunzipBytes 解压 src 到 dst 并返回。
func AppendGunzipBytes(dst, src []byte) ([]byte, error) {
	zr, err := AcquireGzipReader(&byteSliceReader{src})
	if err != nil {
		return dst, err
	}
	defer ReleaseGzipReader(zr)

	w := &byteSliceWriter{dst}
	_, err = io.Copy(w, zr)
	return w.b, err
}

// AcquireGzipReader 获取压缩数据的 gzip 读取器，如果没有则新建一个。
//
// 记得用完调用 ReleaseGzipReader 释放并放回池中以减少内存开销。
func AcquireGzipReader(r io.Reader) (*gzip.Reader, error) {
	v := gzipReaderPool.Get()
	if v == nil {
		return gzip.NewReader(r)
	}
	zr := v.(*gzip.Reader)
	if err := zr.Reset(r); err != nil {
		return nil, err
	}
	return zr, nil
}

// ReleaseGzipReader 将不用的 zr 放回池中，以减少内存开销。
func ReleaseGzipReader(zr *gzip.Reader) {
	_ = zr.Close()
	gzipReaderPool.Put(zr)
}

// 返回基于标准库压缩级别的字典。
func newCompressWriterPoolMap() []*sync.Pool {
	// 按 https://pkg.go.dev/compress/flate#pkg-constants 的定义
	// 初始化 12 个压缩级别。
	var m []*sync.Pool
	for i := 0; i < 12; i++ {
		m = append(m, &sync.Pool{})
	}
	return m
}

// 标准化压缩级别为 [0..11]，以用作 *PoolMap 的索引。
func normalizeCompressLevel(level int) int {
	// -2 是最低压缩级别，仅哈夫曼 - CompressHuffmanOnly
	// 9 是最高压缩级别 - CompressBestCompression
	if level < -2 || level > 9 {
		level = CompressDefaultCompression
	}
	return level + 2
}

func acquireFlateWriter(w io.Writer, level int) *flate.Writer {
	nLevel := normalizeCompressLevel(level)
	p := flateWriterPoolMap[nLevel]
	v := p.Get()
	if v == nil {
		zw, err := flate.NewWriter(w, nLevel-2)
		if err != nil {
			panic(fmt.Sprintf("BUG: 来自 flate.NewWriter(%d) 的意外错误：%s", level, err))
		}
		return zw
	}
	zw := v.(*flate.Writer)
	zw.Reset(w)
	return zw
}

func releaseFlateWriter(zw *flate.Writer, level int) {
	_ = zw.Close()
	p := flateWriterPoolMap[normalizeCompressLevel(level)]
	p.Put(zw)
}

type byteSliceWriter struct {
	b []byte
}

func (w *byteSliceWriter) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}

type byteSliceReader struct {
	b []byte
}

func (r *byteSliceReader) Read(p []byte) (int, error) {
	if len(r.b) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.b)
	r.b = r.b[n:]
	return n, nil
}
