package session

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/bytedance/gopkg/util/gopool"
	"github.com/google/uuid"

	errs "github.com/favbox/breeze/common/errors"
	"github.com/favbox/breeze/common/hlog"
	"github.com/favbox/breeze/protocol"
)

const (
	defaultCookieName    = "sessionid"
	defaultExpiration    = time.Hour
	defaultSweepInterval = 30 * time.Second
)

// Options 是会话存储的配置项。
type Options struct {
	CookieName    string        // 会话 cookie 名称，默认 "sessionid"
	Expiration    time.Duration // 闲置过期时长，也是 cookie 的 Max-Age，默认 1 小时
	SweepInterval time.Duration // 清理周期，默认 30 秒；小于 0 时不启动清理协程
	Now           func() time.Time
}

// 会话数据，只由 Store 持有。
type entry struct {
	id         string
	mu         sync.Mutex
	lastAccess time.Time
	values     map[string]any
}

// 报告条目在 now 时是否已闲置超过 ttl，从未访问的条目视为过期。
func (e *entry) expired(now time.Time, ttl time.Duration) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastAccess.IsZero() || now.Sub(e.lastAccess) > ttl
}

// Store 持有全部会话，是唯一可以销毁会话的地方。
//
// 存储映射由读写锁保护，每个会话另有独立的互斥锁，
// 因此不同会话的读写互不阻塞。
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry

	cookieName string
	expiration time.Duration
	now        func() time.Time

	hookMu   sync.RWMutex
	onRemove []func(s Session)

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewStore 创建会话存储并启动定期清理。
func NewStore(opts Options) *Store {
	if opts.CookieName == "" {
		opts.CookieName = defaultCookieName
	}
	if opts.Expiration <= 0 {
		opts.Expiration = defaultExpiration
	}
	if opts.SweepInterval == 0 {
		opts.SweepInterval = defaultSweepInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Store{
		entries:    make(map[string]*entry),
		cookieName: opts.CookieName,
		expiration: opts.Expiration,
		now:        opts.Now,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	if opts.SweepInterval > 0 {
		interval := opts.SweepInterval
		gopool.Go(func() { s.sweeper(interval) })
	} else {
		close(s.done)
	}
	return s
}

// CookieName 返回会话 cookie 名称。
func (s *Store) CookieName() string { return s.cookieName }

// Expiration 返回会话闲置过期时长。
func (s *Store) Expiration() time.Duration { return s.expiration }

// OnRemove 注册会话移除前的通知，清理和显式移除都会触发。
func (s *Store) OnRemove(fn func(s Session)) {
	s.hookMu.Lock()
	s.onRemove = append(s.onRemove, fn)
	s.hookMu.Unlock()
}

// Session 返回请求所属的会话。
//
// 会话 id 优先取响应中待下发的 cookie，其次取请求的 cookie。
// id 缺失或未知时创建新会话，并在响应中设置会话 cookie；否则刷新其访问时间。
func (s *Store) Session(req *protocol.Request, resp *protocol.Response) Session {
	if id := s.sessionID(req, resp); id != "" {
		if sess, err := s.SessionByID(id); err == nil {
			return sess
		}
	}

	e := &entry{
		id:         newID(),
		lastAccess: s.now(),
		values:     make(map[string]any),
	}
	s.mu.Lock()
	s.entries[e.id] = e
	s.mu.Unlock()

	if resp != nil {
		resp.SetCookie(&protocol.Cookie{
			Name:   s.cookieName,
			Value:  e.id,
			MaxAge: int(s.expiration / time.Second),
			Path:   "/",
		})
	}
	hlog.SystemLogger().Debugf("创建会话：id=%s", e.id)
	return Session{id: e.id, store: s}
}

func (s *Store) sessionID(req *protocol.Request, resp *protocol.Response) string {
	if resp != nil {
		if c := resp.Cookie(s.cookieName); c != nil && c.Value != "" {
			return c.Value
		}
	}
	if req != nil {
		return req.Cookie(s.cookieName)
	}
	return ""
}

// SessionByID 直接按 id 查找会话并刷新其访问时间，不存在返回 errors.ErrSessionNotFound。
func (s *Store) SessionByID(id string) (Session, error) {
	e := s.lookup(id)
	if e == nil {
		return Session{}, errs.ErrSessionNotFound
	}
	e.mu.Lock()
	e.lastAccess = s.now()
	e.mu.Unlock()
	return Session{id: id, store: s}, nil
}

func (s *Store) lookup(id string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[id]
}

// Remove 立即移除会话：先发出通知，再从存储中删除并释放数据。
func (s *Store) Remove(sess Session) {
	if sess.store != s || s.lookup(sess.id) == nil {
		return
	}
	s.notify(sess)
	s.mu.Lock()
	e := s.entries[sess.id]
	delete(s.entries, sess.id)
	s.mu.Unlock()
	if e != nil {
		e.mu.Lock()
		e.values = nil
		e.mu.Unlock()
	}
}

// Sweep 移除闲置超过过期时长的会话，返回移除的数量。
func (s *Store) Sweep() int {
	now := s.now()
	var expired []*entry
	s.mu.RLock()
	for _, e := range s.entries {
		if e.expired(now, s.expiration) {
			expired = append(expired, e)
		}
	}
	s.mu.RUnlock()

	removed := 0
	for _, e := range expired {
		// 通知期间可能被再次访问
		if !e.expired(now, s.expiration) {
			continue
		}
		s.notify(Session{id: e.id, store: s})
		s.mu.Lock()
		if s.entries[e.id] == e {
			delete(s.entries, e.id)
			removed++
		}
		s.mu.Unlock()
		e.mu.Lock()
		e.values = nil
		e.mu.Unlock()
	}
	if removed > 0 {
		hlog.SystemLogger().Debugf("清理过期会话：数量=%d", removed)
	}
	return removed
}

func (s *Store) notify(sess Session) {
	s.hookMu.RLock()
	hooks := s.onRemove
	s.hookMu.RUnlock()
	for _, fn := range hooks {
		fn(sess)
	}
}

// Len 返回会话数量。
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close 停止定期清理，会话数据保留。
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
}

func (s *Store) sweeper(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stop:
			return
		}
	}
}

// 生成 128 位随机 id 的十六进制表示。
func newID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}
