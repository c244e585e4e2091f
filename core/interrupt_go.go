//go:build !tinygo

package core

import "sync"

// State is a placeholder for interrupt state on regular Go
type State uintptr

// cellLock uses a mutex on regular Go so host tests get real exclusion
// between goroutines.
type cellLock struct {
	mu sync.Mutex
}

func (l *cellLock) lock() State {
	l.mu.Lock()
	return 0
}

func (l *cellLock) unlock(State) {
	l.mu.Unlock()
}
