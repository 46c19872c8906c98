package undo

import (
	"sort"
	"sync"
	"time"
)

const (
	// DefaultMaxEntries 内存工作集条目上限
	DefaultMaxEntries = 50
	// DefaultMaxAge 内存工作集条目的最大驻留时间
	DefaultMaxAge = time.Hour
	// expiryGrace 撤销窗口过期后条目在内存中的宽限时间
	expiryGrace = time.Minute
)

// WorkingSet 撤销日志的内存工作集
// 保存近期操作的副本，供同步的可撤销查询使用。
// 超过容量时按创建时间淘汰最旧条目；过期与超龄条目在访问时顺带清理。
type WorkingSet struct {
	mu         sync.Mutex
	entries    map[string]*Action
	maxEntries int
	maxAge     time.Duration
	now        func() time.Time
}

// NewWorkingSet 创建内存工作集，非正参数取默认值
func NewWorkingSet(maxEntries int, maxAge time.Duration) *WorkingSet {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &WorkingSet{
		entries:    make(map[string]*Action),
		maxEntries: maxEntries,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SetClock 注入时钟，仅测试使用
func (w *WorkingSet) SetClock(now func() time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.now = now
}

// Put 写入条目并触发淘汰
func (w *WorkingSet) Put(a *Action) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries[a.ID] = a
	w.prune()
}

// Get 按 ID 查找条目
func (w *WorkingSet) Get(id string) (*Action, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune()
	a, ok := w.entries[id]
	return a, ok
}

// MarkUndone 将条目标记为已撤销
func (w *WorkingSet) MarkUndone(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if a, ok := w.entries[id]; ok {
		a.CanUndo = false
	}
}

// RemoveOwner 移除指定用户的全部条目
func (w *WorkingSet) RemoveOwner(userID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, a := range w.entries {
		if a.UserID == userID {
			delete(w.entries, id)
		}
	}
}

// Len 当前条目数
func (w *WorkingSet) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

// prune 清理超龄与过期条目，超容时淘汰最旧者；调用方需持锁
func (w *WorkingSet) prune() {
	now := w.now()
	for id, a := range w.entries {
		if now.Sub(a.CreatedAt) > w.maxAge || now.After(a.ExpiresAt.Add(expiryGrace)) {
			delete(w.entries, id)
		}
	}
	if len(w.entries) <= w.maxEntries {
		return
	}
	rest := make([]*Action, 0, len(w.entries))
	for _, a := range w.entries {
		rest = append(rest, a)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].CreatedAt.Before(rest[j].CreatedAt) })
	for _, a := range rest[:len(rest)-w.maxEntries] {
		delete(w.entries, a.ID)
	}
}
