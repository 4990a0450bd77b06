package bytebufferpool

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndex(t *testing.T) {
	t.Parallel()

	cases := map[int]int{
		0:               0,
		1:               0,
		minSize:         0,
		minSize + 1:     1,
		2 * minSize:     1,
		2*minSize + 1:   2,
		maxSize - 1:     steps - 1,
		maxSize:         steps - 1,
		maxSize + 1:     steps - 1,
		4 * maxSize:     steps - 1,
		3 * minSize / 2: 1,
	}
	for n, want := range cases {
		assert.Equal(t, want, index(n), "n=%d", n)
	}
}

func TestPoolCalibrate(t *testing.T) {
	t.Parallel()

	p := NewPool(0)
	for i := 0; i < 2*calibrateCallsThreshold; i++ {
		n := 1000
		if i%20 == 0 {
			n = rand.Intn(15000)
		}
		b := p.Get()
		assert.Equal(t, 0, b.Len())
		b.B = append(b.B, make([]byte, n)...)
		p.Put(b)
	}
	assert.Equal(t, uint64(1024), p.defaultSize.Load())
	assert.GreaterOrEqual(t, p.maxSize.Load(), uint64(1024))
}

func TestPoolLimit(t *testing.T) {
	t.Parallel()

	p := NewPool(128)
	big := &ByteBuffer{B: make([]byte, 256)}
	p.Put(big)
	for i := 0; i < 10; i++ {
		got := p.Get()
		assert.NotSame(t, big, got)
	}
}

func TestDefaultPoolConcurrent(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b := Get()
				assert.Equal(t, 0, b.Len())
				_, _ = b.WriteString("缓冲")
				assert.Equal(t, "缓冲", b.String())
				Put(b)
			}
		}(i)
	}
	wg.Wait()
}
