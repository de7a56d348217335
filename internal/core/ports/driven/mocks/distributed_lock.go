package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.DistributedLock = (*MockDistributedLock)(nil)

// MockDistributedLock is an in-process DistributedLock with expiring holds.
// Holds taken through SetLockHeld belong to another instance and cannot be
// released or extended by this one.
type MockDistributedLock struct {
	mu    sync.Mutex
	holds map[string]hold
	err   error

	acquired []string
	released []string
}

type hold struct {
	external bool
	until    time.Time
}

func (h hold) live(now time.Time) bool {
	return now.Before(h.until)
}

// NewMockDistributedLock creates an empty lock table
func NewMockDistributedLock() *MockDistributedLock {
	return &MockDistributedLock{holds: make(map[string]hold)}
}

func (m *MockDistributedLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return false, m.err
	}
	now := time.Now()
	if h, ok := m.holds[name]; ok && h.live(now) {
		return false, nil
	}
	m.holds[name] = hold{until: now.Add(ttl)}
	m.acquired = append(m.acquired, name)
	return true, nil
}

func (m *MockDistributedLock) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.released = append(m.released, name)
	if h, ok := m.holds[name]; ok && !h.external {
		delete(m.holds, name)
	}
	return nil
}

func (m *MockDistributedLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.holds[name]
	if !ok || h.external || !h.live(time.Now()) {
		return fmt.Errorf("lock %s not held by this instance", name)
	}
	h.until = time.Now().Add(ttl)
	m.holds[name] = h
	return nil
}

func (m *MockDistributedLock) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// FailWith makes every call report err until cleared with nil
func (m *MockDistributedLock) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetLockHeld simulates another worker holding name for ttl
func (m *MockDistributedLock) SetLockHeld(name string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holds[name] = hold{external: true, until: time.Now().Add(ttl)}
}

// IsHeld reports whether anyone holds name right now
func (m *MockDistributedLock) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[name]
	return ok && h.live(time.Now())
}

// Acquired lists successful acquisitions in order
func (m *MockDistributedLock) Acquired() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.acquired...)
}

// Released lists Release calls in order
func (m *MockDistributedLock) Released() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.released...)
}
