//go:build tinygo && rp2040 && scheduler.cores

package core

import (
	"device/rp"
	"runtime/interrupt"
)

// With both cores running goroutines, masking interrupts only locks out the
// local core. Every cell therefore also takes SIO hardware spinlock 28. A
// core may nest cells; the spinlock is held until its outermost unlock.
const noOwner = 0xff

var (
	lockOwner uint32 = noOwner
	lockDepth uint32
)

type cellLock struct{}

func (cellLock) lock() interrupt.State {
	state := interrupt.Disable()
	cpu := rp.SIO.CPUID.Get()
	if lockOwner == cpu {
		lockDepth++
		return state
	}
	// Reading the spinlock claims it; zero means the other core holds it
	for rp.SIO.SPINLOCK28.Get() == 0 {
	}
	lockOwner = cpu
	lockDepth = 1
	return state
}

func (cellLock) unlock(state interrupt.State) {
	lockDepth--
	if lockDepth == 0 {
		lockOwner = noOwner
		rp.SIO.SPINLOCK28.Set(1)
	}
	interrupt.Restore(state)
}
