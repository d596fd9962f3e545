package session

import (
	"cmp"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/lk2023060901/roomchat-go/pkg/metrics"
	"github.com/lk2023060901/roomchat-go/pkg/util/merr"
)

// DefaultCapacity 为注册表的默认容量。
const DefaultCapacity = 50

// ClientRegistry 提供了基于内存 map 的 SessionManager 实现。
//
// 特性：
//   - 使用读写锁保证并发安全，ID 计数器与 map 受同一把锁保护；
//   - 会话数量即 map 长度，不单独维护计数；
//   - Range/Snapshot 在读锁内复制会话切片，避免在持锁情况下执行用户回调。
type ClientRegistry struct {
	mu       sync.RWMutex
	sessions map[uint64]Session
	nextID   uint64
	capacity int
}

// 确保 ClientRegistry 实现了 SessionManager 接口。
var _ SessionManager = (*ClientRegistry)(nil)

// NewClientRegistry 创建一个容量为 capacity 的注册表，capacity <= 0 时使用 DefaultCapacity。
func NewClientRegistry(capacity int) *ClientRegistry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ClientRegistry{
		sessions: make(map[uint64]Session, capacity),
		nextID:   FirstID,
		capacity: capacity,
	}
}

// Register 实现 SessionManager.Register。
func (m *ClientRegistry) Register(build func(id uint64) Session) (Session, error) {
	if build == nil {
		return nil, merr.WrapErrServiceInternal("session builder is nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.capacity {
		return nil, merr.WrapErrCapacityExceeded(len(m.sessions), m.capacity)
	}

	id := m.nextID
	sess := build(id)
	if sess == nil {
		return nil, merr.WrapErrServiceInternal("session builder returned nil")
	}
	m.nextID++
	m.sessions[id] = sess
	metrics.SessionsActive.Set(float64(len(m.sessions)))
	return sess, nil
}

// Get 实现 SessionManager.Get。
func (m *ClientRegistry) Get(id uint64) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	return sess, ok
}

// Unregister 实现 SessionManager.Unregister。
func (m *ClientRegistry) Unregister(id uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; !exists {
		return false
	}
	delete(m.sessions, id)
	metrics.SessionsActive.Set(float64(len(m.sessions)))
	return true
}

// Range 实现 SessionManager.Range。
func (m *ClientRegistry) Range(fn func(sess Session) bool) {
	if fn == nil {
		return
	}

	for _, sess := range m.Snapshot() {
		if !fn(sess) {
			return
		}
	}
}

// Snapshot 实现 SessionManager.Snapshot。
func (m *ClientRegistry) Snapshot() []Session {
	m.mu.RLock()
	snapshot := lo.Values(m.sessions)
	m.mu.RUnlock()

	slices.SortFunc(snapshot, func(a, b Session) int {
		return cmp.Compare(a.ID(), b.ID())
	})
	return snapshot
}

// Count 实现 SessionManager.Count。
func (m *ClientRegistry) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *ClientRegistry) Cap() int {
	return m.capacity
}
