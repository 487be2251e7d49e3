package middleware

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int64
	expires time.Time
}

// MemoryRateStore is the single-replica counter used when Redis is not
// configured. Counters expire with their window.
type MemoryRateStore struct {
	mu      sync.Mutex
	windows map[string]window
	now     func() time.Time
}

func NewMemoryRateStore() *MemoryRateStore {
	return &MemoryRateStore{windows: map[string]window{}, now: time.Now}
}

func (m *MemoryRateStore) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.expires) {
		w = window{expires: now.Add(ttl)}
	}
	w.count++
	m.windows[key] = w
	if len(m.windows) > 4096 {
		for k, v := range m.windows {
			if !now.Before(v.expires) {
				delete(m.windows, k)
			}
		}
	}
	return w.count, nil
}
