package session

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMaxSessions bounds the in-memory store.
const DefaultMaxSessions = 10000

// MemoryStore keeps sessions in an expiring LRU cache. An entry's TTL restarts on
// every Save, so it expires after idle of inactivity.
type MemoryStore struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, Session]
	idle  time.Duration
	now   func() time.Time
}

// NewMemoryStore creates a store holding at most size sessions.
func NewMemoryStore(size int, idle time.Duration) *MemoryStore {
	if size <= 0 {
		size = DefaultMaxSessions
	}
	return &MemoryStore{
		cache: expirable.NewLRU[string, Session](size, nil, idle),
		idle:  idle,
		now:   time.Now,
	}
}

func (m *MemoryStore) Load(_ context.Context, userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.cache.Get(userID)
	if !ok || m.expired(s) {
		m.cache.Remove(userID)
		return New(userID), nil
	}
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	cp.UpdatedAt = m.now()
	s.UpdatedAt = cp.UpdatedAt
	m.cache.Add(cp.UserID, cp)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Remove(userID)
	return nil
}

// Sweep removes sessions last saved before cutoff. The cache also expires entries on
// its own; Sweep makes the cutoff explicit.
func (m *MemoryStore) Sweep(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, key := range m.cache.Keys() {
		s, ok := m.cache.Peek(key)
		if ok && s.UpdatedAt.Before(cutoff) {
			m.cache.Remove(key)
			n++
		}
	}
	return n, nil
}

// Len returns the number of cached sessions.
func (m *MemoryStore) Len() int {
	return m.cache.Len()
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Purge()
	return nil
}

func (m *MemoryStore) expired(s Session) bool {
	return m.idle > 0 && m.now().Sub(s.UpdatedAt) > m.idle
}
