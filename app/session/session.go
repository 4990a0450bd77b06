package session

import (
	"sort"
	"time"
)

// Session 是会话的句柄，由 id 和所属存储组成，不持有会话数据。
//
// 零值表示空会话，其读取返回零值，写入被忽略。
// 会话被移除后，通过旧句柄的操作同样无效。
type Session struct {
	id    string
	store *Store
}

// ID 返回会话 id。
func (s Session) ID() string { return s.id }

// IsNull 报告句柄是否指向不存在的会话。
func (s Session) IsNull() bool {
	return s.store == nil || s.store.lookup(s.id) == nil
}

func (s Session) entry() *entry {
	if s.store == nil {
		return nil
	}
	return s.store.lookup(s.id)
}

// Get 返回键对应的值。
func (s Session) Get(key string) (any, bool) {
	e := s.entry()
	if e == nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.values[key]
	return v, ok
}

// Value 返回键对应的值，不存在返回 nil。
func (s Session) Value(key string) any {
	v, _ := s.Get(key)
	return v
}

// Set 设置键值。
func (s Session) Set(key string, value any) {
	e := s.entry()
	if e == nil {
		return
	}
	e.mu.Lock()
	if e.values != nil {
		e.values[key] = value
	}
	e.mu.Unlock()
}

// Delete 删除键。
func (s Session) Delete(key string) {
	e := s.entry()
	if e == nil {
		return
	}
	e.mu.Lock()
	delete(e.values, key)
	e.mu.Unlock()
}

// Has 报告键是否存在。
func (s Session) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Keys 返回排序后的全部键。
func (s Session) Keys() []string {
	e := s.entry()
	if e == nil {
		return nil
	}
	e.mu.Lock()
	keys := make([]string, 0, len(e.values))
	for k := range e.values {
		keys = append(keys, k)
	}
	e.mu.Unlock()
	sort.Strings(keys)
	return keys
}

// LastAccess 返回最近访问时间。
func (s Session) LastAccess() time.Time {
	e := s.entry()
	if e == nil {
		return time.Time{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastAccess
}

// Touch 刷新访问时间。
func (s Session) Touch() {
	e := s.entry()
	if e == nil {
		return
	}
	e.mu.Lock()
	e.lastAccess = s.store.now()
	e.mu.Unlock()
}
