package utils

import (
	"sync"
	"time"
)

// Clock abstracts the wall clock for cache freshness and the "today" marker.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// MockClock is a manually driven clock for tests. It is safe for concurrent use.
type MockClock struct {
	mu       sync.Mutex
	FixedNow time.Time
}

func NewMockClock(now time.Time) *MockClock {
	return &MockClock{FixedNow: now}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.FixedNow
}

func (m *MockClock) SetNow(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FixedNow = now
}

// Advance moves the clock forward by d.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FixedNow = m.FixedNow.Add(d)
}
