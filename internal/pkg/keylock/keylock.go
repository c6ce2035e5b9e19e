// Package keylock provides per-key advisory locking. Two concurrent check-in
// attempts that resolve to the same registration serialize on its key, so the
// second attempt observes the first attempt's completed state before its own
// preconditions are evaluated. Different keys never block each other.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex is a set of named mutexes. Entries are reference-counted and
// removed when the last holder releases, so the map does not grow with the
// number of distinct keys ever seen.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*entry)}
}

// WithLock runs fn while holding the lock for key. The lock is released
// unconditionally, including when fn panics.
func (k *KeyedMutex) WithLock(key string, fn func() error) error {
	e := k.acquire(key)
	e.mu.Lock()
	defer func() {
		e.mu.Unlock()
		k.release(key, e)
	}()
	return fn()
}

func (k *KeyedMutex) acquire(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	return e
}

func (k *KeyedMutex) release(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}
