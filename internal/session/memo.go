// Package session holds per-client caches: generated datasets, loaded
// tables and trained models. Nothing here is shared between sessions.
package session

import (
	"sync"
)

// Memo caches computed values by key. Each key is computed once; when the
// memo is full the oldest entry is evicted.
type Memo[K comparable, V any] struct {
	mu    sync.Mutex
	max   int
	order []K
	m     map[K]V
}

func NewMemo[K comparable, V any](max int) *Memo[K, V] {
	if max <= 0 {
		max = 1
	}
	return &Memo[K, V]{max: max, m: make(map[K]V)}
}

// Get returns the cached value for key or computes and stores it. Errors
// are not cached.
func (m *Memo[K, V]) Get(key K, compute func() (V, error)) (V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.m[key]; ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}
	if len(m.order) >= m.max {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.m, oldest)
	}
	m.order = append(m.order, key)
	m.m[key] = v
	return v, nil
}

// SetMax changes the capacity, evicting the oldest entries beyond it.
func (m *Memo[K, V]) SetMax(max int) {
	if max <= 0 {
		max = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.max = max
	for len(m.order) > m.max {
		delete(m.m, m.order[0])
		m.order = m.order[1:]
	}
}

// Peek returns a cached value without computing it.
func (m *Memo[K, V]) Peek(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.m[key]
	return v, ok
}

func (m *Memo[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.m)
}

// Slot holds one value and the key it was computed for. It recomputes only
// when asked for a different key.
type Slot[K comparable, V any] struct {
	mu    sync.Mutex
	key   K
	value V
	ok    bool
}

// Get returns the held value when key matches, otherwise computes a new one
// and replaces it. The second result reports whether compute ran.
func (s *Slot[K, V]) Get(key K, compute func() (V, error)) (V, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ok && s.key == key {
		return s.value, false, nil
	}
	v, err := compute()
	if err != nil {
		var zero V
		return zero, true, err
	}
	s.key, s.value, s.ok = key, v, true
	return v, true, nil
}

func (s *Slot[K, V]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero V
	s.value, s.ok = zero, false
}
