package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	errs "github.com/favbox/breeze/common/errors"
	"github.com/favbox/breeze/protocol"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(clock *fakeClock) *Store {
	return NewStore(Options{
		Expiration:    time.Minute,
		SweepInterval: -1,
		Now:           clock.Now,
	})
}

func requestWithCookie(t *testing.T, cookie string) *protocol.Request {
	t.Helper()
	raw := "GET / HTTP/1.1\r\n"
	if cookie != "" {
		raw += "Cookie: " + cookie + "\r\n"
	}
	req := protocol.NewRequest(protocol.DefaultLimits())
	req.Feed([]byte(raw + "\r\n"))
	require.True(t, req.Done())
	return req
}

func TestStoreMintsSession(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	s := newTestStore(clock)

	resp := protocol.NewResponse(nil, nil, 0)
	sess := s.Session(requestWithCookie(t, ""), resp)
	assert.Len(t, sess.ID(), 32)
	assert.NotContains(t, sess.ID(), "-")
	assert.False(t, sess.IsNull())
	assert.Equal(t, 1, s.Len())

	c := resp.Cookie("sessionid")
	require.NotNil(t, c)
	assert.Equal(t, sess.ID(), c.Value)
	assert.Equal(t, 60, c.MaxAge)
	assert.Equal(t, "/", c.Path)

	// 同一响应上的再次查找取响应中待下发的 cookie
	again := s.Session(requestWithCookie(t, ""), resp)
	assert.Equal(t, sess.ID(), again.ID())
	assert.Equal(t, 1, s.Len())
}

func TestStoreLookupByCookie(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	s := newTestStore(clock)
	first := s.Session(nil, protocol.NewResponse(nil, nil, 0))
	first.Set("user", "alice")

	clock.Add(30 * time.Second)
	resp := protocol.NewResponse(nil, nil, 0)
	sess := s.Session(requestWithCookie(t, "sessionid="+first.ID()), resp)
	assert.Equal(t, first.ID(), sess.ID())
	assert.Equal(t, "alice", sess.Value("user"))
	assert.Equal(t, clock.Now(), sess.LastAccess())
	assert.Nil(t, resp.Cookie("sessionid"))

	// 未知 id 透明地创建新会话
	other := s.Session(requestWithCookie(t, "sessionid=unknown"), resp)
	assert.NotEqual(t, "unknown", other.ID())
	assert.Equal(t, 2, s.Len())
}

func TestStoreSessionByID(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	s := newTestStore(clock)
	sess := s.Session(nil, nil)

	clock.Add(10 * time.Second)
	got, err := s.SessionByID(sess.ID())
	assert.Nil(t, err)
	assert.Equal(t, clock.Now(), got.LastAccess())

	_, err = s.SessionByID("missing")
	assert.ErrorIs(t, err, errs.ErrSessionNotFound)
}

func TestStoreSweep(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	s := newTestStore(clock)

	var removed []string
	s.OnRemove(func(sess Session) {
		// 通知发生在移除之前，数据仍可读
		assert.Equal(t, "v", sess.Value("k"))
		removed = append(removed, sess.ID())
	})

	idle := s.Session(nil, nil)
	idle.Set("k", "v")
	active := s.Session(nil, nil)

	clock.Add(45 * time.Second)
	active.Touch()
	clock.Add(30 * time.Second)

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, []string{idle.ID()}, removed)
	assert.True(t, idle.IsNull())
	assert.False(t, active.IsNull())
	assert.Nil(t, idle.Value("k"))

	// 已移除的句柄写入无效
	idle.Set("k", "again")
	assert.Equal(t, 1, s.Len())
}

func TestStoreRemove(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	s := newTestStore(clock)
	var notified int
	s.OnRemove(func(Session) { notified++ })

	sess := s.Session(nil, nil)
	sess.Set("a", 1)
	s.Remove(sess)
	s.Remove(sess)
	assert.Equal(t, 1, notified)
	assert.Equal(t, 0, s.Len())
	assert.True(t, sess.IsNull())
}

func TestSessionValues(t *testing.T) {
	t.Parallel()
	s := newTestStore(&fakeClock{now: time.Unix(1000, 0)})
	sess := s.Session(nil, nil)
	sess.Set("b", 2)
	sess.Set("a", 1)
	assert.True(t, sess.Has("a"))
	assert.Equal(t, []string{"a", "b"}, sess.Keys())
	sess.Delete("a")
	assert.False(t, sess.Has("a"))

	var null Session
	assert.True(t, null.IsNull())
	null.Set("x", 1)
	assert.Nil(t, null.Value("x"))
	assert.Nil(t, null.Keys())
}

func TestStoreConcurrentAccess(t *testing.T) {
	t.Parallel()
	s := newTestStore(&fakeClock{now: time.Unix(1000, 0)})
	sess := s.Session(nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				other := s.Session(nil, nil)
				other.Set("n", j)
				sess.Set("last", i)
				_, _ = s.SessionByID(sess.ID())
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 801, s.Len())
}

func TestStoreSweepWhileTouched(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	s := newTestStore(clock)
	sess := s.Session(nil, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			sess.Touch()
			_, _ = s.SessionByID(sess.ID())
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			assert.Equal(t, 0, s.Sweep())
		}
	}()
	wg.Wait()
	assert.False(t, sess.IsNull())

	clock.Add(2 * time.Minute)
	assert.Equal(t, 1, s.Sweep())
	assert.True(t, sess.IsNull())
}

func TestStoreSweeperStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	s := NewStore(Options{Expiration: time.Millisecond, SweepInterval: 5 * time.Millisecond})
	sess := s.Session(nil, nil)
	require.Eventually(t, sess.IsNull, 2*time.Second, 5*time.Millisecond)
	s.Close()
	s.Close()
}
