package memory

import (
	"sync"

	"github.com/yndnr/streamgate-go/pkg/cmap"
)

// HashSet is a concurrent-safe set of secret hashes.
type HashSet struct {
	mu    sync.RWMutex
	items map[string]struct{}
}

// NewHashSet creates an empty set.
func NewHashSet() *HashSet {
	return &HashSet{items: make(map[string]struct{})}
}

// Add adds a hash to the set.
func (s *HashSet) Add(h string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[h] = struct{}{}
}

// Remove removes a hash from the set.
func (s *HashSet) Remove(h string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, h)
}

// Len returns the number of items in the set.
func (s *HashSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Items returns a copy of all hashes.
func (s *HashSet) Items() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]string, 0, len(s.items))
	for h := range s.items {
		items = append(items, h)
	}
	return items
}

// OwnerIndex maps an owner id to the hashes of their tokens.
type OwnerIndex struct {
	index *cmap.Map[string, *HashSet]
}

// NewOwnerIndex creates an empty index.
func NewOwnerIndex() *OwnerIndex {
	return &OwnerIndex{index: cmap.New[string, *HashSet]()}
}

// Add records hash under owner.
func (i *OwnerIndex) Add(owner, hash string) {
	set, _ := i.index.Compute(owner, func(cur *HashSet, ok bool) (*HashSet, bool) {
		if ok {
			return cur, true
		}
		return NewHashSet(), true
	})
	set.Add(hash)
}

// Remove drops hash from owner, removing the owner once empty.
func (i *OwnerIndex) Remove(owner, hash string) {
	i.index.Compute(owner, func(cur *HashSet, ok bool) (*HashSet, bool) {
		if !ok {
			return nil, false
		}
		cur.Remove(hash)
		return cur, cur.Len() > 0
	})
}

// Get returns the owner's hashes.
func (i *OwnerIndex) Get(owner string) []string {
	set, ok := i.index.Get(owner)
	if !ok {
		return nil
	}
	return set.Items()
}

// Count returns how many hashes the owner has.
func (i *OwnerIndex) Count(owner string) int {
	set, ok := i.index.Get(owner)
	if !ok {
		return 0
	}
	return set.Len()
}

// Owners returns the number of indexed owners.
func (i *OwnerIndex) Owners() int {
	return i.index.Count()
}
