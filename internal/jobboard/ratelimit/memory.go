package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCapacity is returned when the memory limiter tracks too many keys.
var ErrCapacity = errors.New("rate limiter capacity exceeded")

type bucket struct {
	count     int
	windowEnd time.Time
}

// MemoryLimiter keeps counters in process memory. Suitable for a single
// instance or for tests.
type MemoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	data    map[string]*bucket
	maxKeys int
}

func NewMemoryLimiter(maxKeys int, now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	return &MemoryLimiter{
		now:     now,
		data:    make(map[string]*bucket),
		maxKeys: maxKeys,
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 {
		return Decision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.data[key]
	if !ok || !now.Before(b.windowEnd) {
		if !ok && len(m.data) >= m.maxKeys {
			m.gc(now)
			if len(m.data) >= m.maxKeys {
				return Decision{}, ErrCapacity
			}
		}
		b = &bucket{windowEnd: now.Add(window)}
		m.data[key] = b
	}

	if b.count < limit {
		b.count++
		return Decision{Allowed: true, Limit: limit, Remaining: limit - b.count, ResetAt: b.windowEnd}, nil
	}
	return Decision{Allowed: false, Limit: limit, ResetAt: b.windowEnd}, nil
}

func (m *MemoryLimiter) gc(now time.Time) {
	for key, b := range m.data {
		if !now.Before(b.windowEnd) {
			delete(m.data, key)
		}
	}
}
