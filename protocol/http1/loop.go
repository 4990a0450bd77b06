package http1

import (
	"runtime/debug"
	"sync"

	"github.com/bytedance/gopkg/util/gopool"
	"github.com/favbox/breeze/common/hlog"
)

// Loop 是串行执行事件的循环。
//
// 事件是投递到无界先进先出队列中的闭包，由单个协程依次执行。
// 所有连接可以共享一个循环，也可以每个连接独占一个循环。
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
	done   chan struct{}
}

// NewLoop 创建并启动事件循环。
func NewLoop() *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	gopool.Go(l.run)
	return l
}

// Post 投递事件，不等待执行。循环已关闭时返回 false。
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Call 投递事件并等待其执行完毕。循环已关闭时返回 false。
//
// 不能在循环自身的协程中调用。
func (l *Loop) Call(fn func()) bool {
	ch := make(chan struct{})
	if !l.Post(func() {
		defer close(ch)
		fn()
	}) {
		return false
	}
	<-ch
	return true
}

// Close 停止接收新事件，已投递的事件仍会执行完毕。
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Done 在循环协程退出后关闭。
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			if l.closed {
				l.mu.Unlock()
				return
			}
			l.mu.Unlock()
			<-l.wake
			continue
		}
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for i, fn := range batch {
			exec(fn)
			batch[i] = nil
		}
	}
}

func exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			hlog.SystemLogger().Errorf("事件执行时出现恐慌：%v\n%s", r, debug.Stack())
		}
	}()
	fn()
}
