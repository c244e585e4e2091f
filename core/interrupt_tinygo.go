//go:build tinygo && !(rp2040 && scheduler.cores)

package core

import "runtime/interrupt"

// cellLock guards a registry cell by masking interrupts. On the single-core
// scheduler this is enough for both goroutines and interrupt handlers.
type cellLock struct{}

func (cellLock) lock() interrupt.State {
	return interrupt.Disable()
}

func (cellLock) unlock(state interrupt.State) {
	interrupt.Restore(state)
}
