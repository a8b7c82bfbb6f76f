// Package keylock provides per-key mutual exclusion. The engine uses it
// to serialize read-modify-write sequences per agent: access-stat
// updates and eviction passes for one agent must not interleave.
package keylock

import "sync"

// KeyedMutex hands out one mutex per key. Mutexes are never released;
// the key space (agent ids) is small and long-lived.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a KeyedMutex.
func New() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
