package consts

import "time"

const (
	// DefaultSpoolChunkSize 是多部分正文每次写入暂存文件的最大字节数。
	DefaultSpoolChunkSize = 64 * 1024

	// DefaultMaxRequestSize 是单个请求（多部分正文除外）的默认字节上限。
	DefaultMaxRequestSize = 16384

	// DefaultMaxMultipartSize 是多部分正文的默认字节上限。
	DefaultMaxMultipartSize = 16728064

	// DefaultEncoding 是文本响应的默认字符集。
	DefaultEncoding = "UTF-8"

	// DefaultCloseFlushTimeout 是 Response.Close 同步刷新的默认最长等待。
	DefaultCloseFlushTimeout = 10 * time.Second
)
