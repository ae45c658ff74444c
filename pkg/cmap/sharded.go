package cmap

import (
	"sync"

	"github.com/spaolacci/murmur3"
)

// DefaultShardCount is the default number of shards.
const DefaultShardCount = 32

// Map is a concurrent-safe map split into independently locked shards.
type Map[K ~string, V any] struct {
	shards []*shard[K, V]
	mask   uint32
}

type shard[K ~string, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

// New creates a map with DefaultShardCount shards.
func New[K ~string, V any]() *Map[K, V] {
	return NewWithShards[K, V](DefaultShardCount)
}

// NewWithShards creates a map with n shards. n is rounded to the default
// when it is not a positive power of two.
func NewWithShards[K ~string, V any](n int) *Map[K, V] {
	if n <= 0 || n&(n-1) != 0 {
		n = DefaultShardCount
	}

	m := &Map[K, V]{
		shards: make([]*shard[K, V], n),
		mask:   uint32(n - 1),
	}
	for i := range m.shards {
		m.shards[i] = &shard[K, V]{items: make(map[K]V)}
	}
	return m
}

// ShardIndex returns the shard a key is placed in.
func (m *Map[K, V]) ShardIndex(key K) int {
	return int(murmur3.Sum32([]byte(key)) & m.mask)
}

func (m *Map[K, V]) shardFor(key K) *shard[K, V] {
	return m.shards[m.ShardIndex(key)]
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Map[K, V]) Has(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Set stores value under key, replacing any previous value.
func (m *Map[K, V]) Set(key K, value V) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

// SetIfAbsent stores value only when key is not present.
// It reports whether the value was stored.
func (m *Map[K, V]) SetIfAbsent(key K, value V) bool {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[key]; exists {
		return false
	}
	s.items[key] = value
	return true
}

// Delete removes key.
func (m *Map[K, V]) Delete(key K) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// Compute atomically replaces the value under key with the result of fn.
//
// fn receives the current value and whether it exists. When fn returns
// keep=false the key is removed. Compute returns the value fn produced
// and the keep flag. The shard's write lock is held for the duration of fn.
func (m *Map[K, V]) Compute(key K, fn func(current V, exists bool) (next V, keep bool)) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.items[key]
	next, keep := fn(cur, ok)
	if keep {
		s.items[key] = next
	} else if ok {
		delete(s.items, key)
	}
	return next, keep
}

// Count returns the number of entries across all shards.
func (m *Map[K, V]) Count() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}
