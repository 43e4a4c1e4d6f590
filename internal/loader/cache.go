package loader

import "sync"

// Ref is the cache's view of a stored weak handle.
type Ref interface {
	Alive() bool
	Release()
}

// PathCache maps dedup keys to weak handles so repeat loads of a path reuse
// the existing slot instead of importing again. The cache owns the weak
// references it stores and releases them when entries are replaced or
// pruned.
type PathCache struct {
	mu      sync.Mutex
	entries map[string]Ref
}

func NewPathCache() *PathCache {
	return &PathCache{entries: make(map[string]Ref, 64)}
}

// Insert stores ref under key and returns the replaced entry, if any.
func (c *PathCache) Insert(key string, ref Ref) (Ref, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, had := c.entries[key]
	c.entries[key] = ref
	return prev, had
}

// Lookup returns the stored reference. Upgrading is the caller's business;
// a hit on a dead entry behaves as a miss upstream.
func (c *PathCache) Lookup(key string) (Ref, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref, ok := c.entries[key]
	return ref, ok
}

// ClearDead prunes entries whose slot no longer upgrades. O(n), called
// periodically rather than per lookup to bound cost.
func (c *PathCache) ClearDead() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, ref := range c.entries {
		if !ref.Alive() {
			ref.Release()
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *PathCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
