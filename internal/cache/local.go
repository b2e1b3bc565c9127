package cache

import (
	"sync"
	"time"
)

type localEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e localEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// Local is the in-process cache tier. Entries expire by TTL and the map is
// capped; eviction of an absent key is a no-op.
type Local struct {
	mu         sync.Mutex
	entries    map[string]localEntry
	maxEntries int
}

func NewLocal(maxEntries int) *Local {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &Local{
		entries:    make(map[string]localEntry),
		maxEntries: maxEntries,
	}
}

// Get returns the value and true on a live hit. Expired entries are removed
// on the way out.
func (l *Local) Get(key string) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(time.Now()) {
		delete(l.entries, key)
		return nil, false
	}

	return e.value, true
}

// Set stores value under key with ttl. When the cap is reached, expired
// entries are dropped first, then an arbitrary live one.
func (l *Local) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.entries[key]; !exists && len(l.entries) >= l.maxEntries {
		l.evictOneLocked()
	}
	l.entries[key] = localEntry{value: value, expiresAt: time.Now().Add(ttl)}
}

// Delete removes a key; absent keys are a no-op.
func (l *Local) Delete(keys ...string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for _, key := range keys {
		if _, ok := l.entries[key]; ok {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// DeletePattern removes every key matching a '*' glob.
func (l *Local) DeletePattern(pattern string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key := range l.entries {
		if matchGlob(pattern, key) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the live entry count (expired entries may still be counted
// until touched).
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Local) evictOneLocked() {
	now := time.Now()
	for key, e := range l.entries {
		if e.expired(now) {
			delete(l.entries, key)
			return
		}
	}
	for key := range l.entries {
		delete(l.entries, key)
		return
	}
}
