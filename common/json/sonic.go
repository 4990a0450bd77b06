//go:build (linux || windows || darwin) && amd64 && !stdjson

// Package json 在支持的平台上使用 sonic 编解码 JSON，其余平台或加上 stdjson 构建标签时使用标准库。
package json

import "github.com/bytedance/sonic"

// Name 是实际使用的 JSON 实现。
const Name = "sonic"

// 与 encoding/json 行为一致的配置，保证两种构建下的输出相同。
var api = sonic.ConfigStd

var (
	Marshal       = api.Marshal
	Unmarshal     = api.Unmarshal
	MarshalIndent = api.MarshalIndent
)
