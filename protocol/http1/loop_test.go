package http1

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLoopOrder(t *testing.T) {
	t.Parallel()
	l := NewLoop()
	defer func() {
		l.Close()
		<-l.Done()
	}()

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		assert.True(t, l.Post(func() { got = append(got, i) }))
	}
	assert.True(t, l.Call(func() {}))
	assert.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestLoopConcurrentPost(t *testing.T) {
	t.Parallel()
	l := NewLoop()
	var (
		wg    sync.WaitGroup
		count int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Call(func() { count++ })
			}
		}()
	}
	wg.Wait()
	l.Close()
	<-l.Done()
	assert.Equal(t, 800, count)
}

func TestLoopClose(t *testing.T) {
	t.Parallel()
	l := NewLoop()
	ran := make(chan struct{})
	l.Post(func() { close(ran) })
	l.Close()
	l.Close()
	<-l.Done()
	<-ran

	assert.False(t, l.Post(func() {}))
	assert.False(t, l.Call(func() {}))
}

func TestLoopPanicRecovered(t *testing.T) {
	t.Parallel()
	l := NewLoop()
	defer func() {
		l.Close()
		<-l.Done()
	}()

	assert.True(t, l.Call(func() { panic("boom") }))
	done := false
	assert.True(t, l.Call(func() { done = true }))
	assert.True(t, done)
}
