// Package cmap provides a concurrent map sharded by key hash.
//
// Keys are hashed with murmur3 so shard placement is stable across
// processes, which keeps shard-level metrics comparable between nodes.
//
// Usage:
//
//	m := cmap.New[string, *Record]()
//	m.Set("key", rec)
//	m.Compute("key", func(cur *Record, ok bool) (*Record, bool) {
//		if !ok || cur.Used {
//			return cur, ok
//		}
//		next := *cur
//		next.Used = true
//		return &next, true
//	})
//
// Compute runs its callback while holding the shard's write lock, so it
// is the building block for compare-and-swap style conditional updates.
// Callbacks must not perform I/O or touch the same map.
package cmap
