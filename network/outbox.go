package network

import (
	"io"
	"sync"
	"time"

	"github.com/bytedance/gopkg/lang/mcache"
	"github.com/bytedance/gopkg/util/gopool"
	errs "github.com/favbox/breeze/common/errors"
)

// 表示发送队列中的一段数据，内存来自 mcache。
type node struct {
	data []byte
}

var nodePool = sync.Pool{New: func() any {
	return &node{}
}}

// Outbox 是容量受限的发送队列。
//
// Send 从不阻塞，数据由独立的写协程按序写入底层连接，
// 每次写入完成后回调 onWritten。
type Outbox struct {
	mu       sync.Mutex
	w        io.Writer
	closer   func() error
	capacity int
	pending  int
	queue    []*node

	wake    chan struct{}
	drained chan struct{} // 队列清空时关闭，仅在有人等待时创建
	done    chan struct{}

	closing bool
	closed  bool

	onWritten func(n int)
}

// NewOutbox 创建写入 w 的发送队列，closer 用于关闭底层连接。
func NewOutbox(w io.Writer, closer func() error, capacity int) *Outbox {
	if capacity <= 0 {
		capacity = 64 * 1024
	}
	return &Outbox{
		w:        w,
		closer:   closer,
		capacity: capacity,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start 启动写协程。
func (o *Outbox) Start(onWritten func(n int)) {
	o.onWritten = onWritten
	gopool.Go(o.run)
}

// Send 将 b 中不超过剩余容量的前缀放入队列。
func (o *Outbox) Send(b []byte) (int, error) {
	o.mu.Lock()
	if o.closed || o.closing {
		o.mu.Unlock()
		return 0, errs.ErrConnectionClosed
	}
	n := o.capacity - o.pending
	if n > len(b) {
		n = len(b)
	}
	if n <= 0 {
		o.mu.Unlock()
		return 0, nil
	}
	nd := nodePool.Get().(*node)
	nd.data = mcache.Malloc(n)
	copy(nd.data, b[:n])
	o.queue = append(o.queue, nd)
	o.pending += n
	o.mu.Unlock()

	o.signal()
	return n, nil
}

// Buffered 返回队列中尚未写出的字节数。
func (o *Outbox) Buffered() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending
}

// WaitFlushed 阻塞至队列清空，超时返回 errors.ErrTimeout。
func (o *Outbox) WaitFlushed(timeout time.Duration) error {
	o.mu.Lock()
	if o.pending == 0 {
		o.mu.Unlock()
		return nil
	}
	if o.closed {
		o.mu.Unlock()
		return errs.ErrConnectionClosed
	}
	if o.drained == nil {
		o.drained = make(chan struct{})
	}
	ch := o.drained
	o.mu.Unlock()

	t := acquireTimer(timeout)
	defer releaseTimer(t)
	select {
	case <-ch:
		if o.Buffered() > 0 {
			return errs.ErrConnectionClosed
		}
		return nil
	case <-t.C:
		return errs.ErrTimeout
	}
}

// Close 在队列清空后关闭底层连接。
func (o *Outbox) Close() error {
	o.mu.Lock()
	if o.closed || o.closing {
		o.mu.Unlock()
		return nil
	}
	o.closing = true
	o.mu.Unlock()

	o.signal()
	return nil
}

// Abort 丢弃队列并立即关闭底层连接。
func (o *Outbox) Abort() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.releaseQueue()
	o.mu.Unlock()

	o.signal()
	return o.closer()
}

// Closed 报告队列是否已关闭。
func (o *Outbox) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed || o.closing
}

// Done 在写协程退出后关闭。
func (o *Outbox) Done() <-chan struct{} {
	return o.done
}

func (o *Outbox) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *Outbox) run() {
	defer close(o.done)
	for {
		o.mu.Lock()
		if o.closed {
			o.mu.Unlock()
			return
		}
		if len(o.queue) == 0 {
			if o.closing {
				o.closed = true
				o.mu.Unlock()
				_ = o.closer()
				return
			}
			o.mu.Unlock()
			<-o.wake
			continue
		}
		nd := o.queue[0]
		o.queue[0] = nil
		o.queue = o.queue[1:]
		o.mu.Unlock()

		n, err := o.w.Write(nd.data)
		size := len(nd.data)
		mcache.Free(nd.data)
		nd.data = nil
		nodePool.Put(nd)

		o.mu.Lock()
		if o.closed {
			o.mu.Unlock()
			return
		}
		o.pending -= size
		o.notifyDrained()
		if err != nil {
			o.closed = true
			o.releaseQueue()
			o.mu.Unlock()
			_ = o.closer()
			return
		}
		o.mu.Unlock()

		if n > 0 && o.onWritten != nil {
			o.onWritten(n)
		}
	}
}

// 需持有锁。
func (o *Outbox) releaseQueue() {
	for i, nd := range o.queue {
		mcache.Free(nd.data)
		nd.data = nil
		nodePool.Put(nd)
		o.queue[i] = nil
	}
	o.queue = o.queue[:0]
	o.pending = 0
	o.notifyDrained()
}

// 需持有锁。
func (o *Outbox) notifyDrained() {
	if (o.pending == 0 || o.closed) && o.drained != nil {
		close(o.drained)
		o.drained = nil
	}
}

// WaitFlushed 使用的计时器池。
var timerPool sync.Pool

func acquireTimer(d time.Duration) *time.Timer {
	if v := timerPool.Get(); v != nil {
		t := v.(*time.Timer)
		t.Reset(d)
		return t
	}
	return time.NewTimer(d)
}

// 停止并排空通道后再回池，保证下次 Reset 时通道为空。
func releaseTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	timerPool.Put(t)
}
