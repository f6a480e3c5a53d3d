package manuscript

import "sync"

// LockManager hands out one mutex per manuscript id so concurrent operations
// against the same manuscript serialize while different manuscripts proceed
// independently.
type LockManager struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLockManager creates an empty LockManager.
func NewLockManager() *LockManager {
	return &LockManager{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for the given manuscript id, creating it on first
// use, and returns the unlock function.
func (lm *LockManager) Lock(id string) func() {
	lm.mu.Lock()
	lock, ok := lm.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		lm.locks[id] = lock
	}
	lm.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
