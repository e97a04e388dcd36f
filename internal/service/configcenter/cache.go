package configcenter

import (
	"sync"
	"sync/atomic"
)

// snapshot is immutable once published.
type snapshot struct {
	version uint64
	enabled map[string]bool
}

// enabledCache is a copy-on-write map of enablement answers. Invalidate publishes a new,
// empty snapshot with a higher version; a loader that started against an older version
// cannot publish into the new one.
type enabledCache struct {
	cur atomic.Pointer[snapshot]
	mu  sync.Mutex // serializes writers only
}

func newEnabledCache() *enabledCache {
	c := &enabledCache{}
	c.cur.Store(&snapshot{enabled: map[string]bool{}})
	return c
}

// Lookup returns the cached answer and the version it was read from.
func (c *enabledCache) Lookup(key string) (value, ok bool, version uint64) {
	s := c.cur.Load()
	value, ok = s.enabled[key]
	return value, ok, s.version
}

// Store publishes key=value only if the snapshot is still at version.
func (c *enabledCache) Store(key string, value bool, version uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.cur.Load()
	if s.version != version {
		return false
	}
	next := make(map[string]bool, len(s.enabled)+1)
	for k, v := range s.enabled {
		next[k] = v
	}
	next[key] = value
	c.cur.Store(&snapshot{version: s.version, enabled: next})
	return true
}

func (c *enabledCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.cur.Load()
	c.cur.Store(&snapshot{version: s.version + 1, enabled: map[string]bool{}})
}

func (c *enabledCache) Version() uint64 { return c.cur.Load().version }

func (c *enabledCache) Len() int { return len(c.cur.Load().enabled) }
