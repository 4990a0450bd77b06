// Package bytebufferpool 提供按使用情况自动校准容量的字节缓冲区池，
// 用于请求正文和表单字段这类大小相近、反复分配的缓冲区。
package bytebufferpool

import (
	"math/bits"
	"slices"
	"sync"
	"sync/atomic"
)

const (
	minBitSize = 6 // 64 字节起步
	steps      = 20

	minSize = 1 << minBitSize
	maxSize = 1 << (minBitSize + steps - 1)

	calibrateCallsThreshold = 42000
	maxPercentile           = 0.95
)

// Pool 是字节缓冲区池。
//
// 每归还一定次数后按容量分布重新校准：新缓冲区的初始容量取最常见的大小，
// 覆盖 95% 归还次数的大小作为回池上限，更大的缓冲区直接丢弃。
type Pool struct {
	calls       [steps]atomic.Uint64
	calibrating atomic.Bool

	defaultSize atomic.Uint64
	maxSize     atomic.Uint64

	// 硬上限，容量超过它的缓冲区永不回池，0 表示不限。
	limit int

	pool sync.Pool
}

// NewPool 创建缓冲区池，容量超过 limit 的缓冲区不回池，limit 为 0 表示不限。
func NewPool(limit int) *Pool {
	return &Pool{limit: limit}
}

var defaultPool Pool

// Get 从默认池中取一个空缓冲区。
func Get() *ByteBuffer { return defaultPool.Get() }

// Put 将缓冲区归还到默认池，归还后勿再使用。
func Put(b *ByteBuffer) { defaultPool.Put(b) }

// Get 从池中取一个空缓冲区，用完调用 Put 归还。
func (p *Pool) Get() *ByteBuffer {
	if v := p.pool.Get(); v != nil {
		return v.(*ByteBuffer)
	}
	return &ByteBuffer{B: make([]byte, 0, p.defaultSize.Load())}
}

// Put 将缓冲区归还到池中，归还后勿再使用。
func (p *Pool) Put(b *ByteBuffer) {
	if p.calls[index(len(b.B))].Add(1) > calibrateCallsThreshold {
		p.calibrate()
	}

	if p.limit > 0 && cap(b.B) > p.limit {
		return
	}
	if ms := int(p.maxSize.Load()); ms == 0 || cap(b.B) <= ms {
		b.Reset()
		p.pool.Put(b)
	}
}

type sizeCalls struct {
	size  uint64
	calls uint64
}

func (p *Pool) calibrate() {
	if !p.calibrating.CompareAndSwap(false, true) {
		return
	}
	defer p.calibrating.Store(false)

	dist := make([]sizeCalls, steps)
	var total uint64
	for i := range dist {
		c := p.calls[i].Swap(0)
		total += c
		dist[i] = sizeCalls{size: minSize << i, calls: c}
	}
	slices.SortFunc(dist, func(a, b sizeCalls) int {
		switch {
		case a.calls > b.calls:
			return -1
		case a.calls < b.calls:
			return 1
		}
		return 0
	})

	defaultSize := dist[0].size
	largest := defaultSize
	bound := uint64(float64(total) * maxPercentile)
	var sum uint64
	for _, d := range dist {
		if sum > bound {
			break
		}
		sum += d.calls
		largest = max(largest, d.size)
	}

	p.defaultSize.Store(defaultSize)
	p.maxSize.Store(largest)
}

// 长度 n 所在的容量档位：档位 i 覆盖 (minSize<<(i-1), minSize<<i]。
func index(n int) int {
	if n <= minSize {
		return 0
	}
	return min(bits.Len(uint(n-1)>>minBitSize), steps-1)
}
