package core

// Global is a process-wide resource cell holding one hardware handle or piece
// of long-lived state. Every access happens inside the cell's critical
// section, which is valid from both interrupt handlers and goroutines.
//
// Cells are populated once during startup and treated as present afterwards.
// Take and Replace exist for cells whose contents legitimately come and go,
// such as a transmission handoff slot.
type Global[T any] struct {
	name  string
	lock  cellLock
	value T
	set   bool
}

// NewGlobal creates an empty cell. The name only appears in panic messages.
func NewGlobal[T any](name string) *Global[T] {
	return &Global[T]{name: name}
}

// NewGlobalWith creates a cell that is already populated with v.
func NewGlobalWith[T any](name string, v T) *Global[T] {
	return &Global[T]{name: name, value: v, set: true}
}

// Name returns the cell name
func (g *Global[T]) Name() string {
	return g.name
}

// InitOnce populates an empty cell. Populating a cell twice is a startup
// sequencing bug and panics.
func (g *Global[T]) InitOnce(v T) {
	state := g.lock.lock()
	already := g.set
	if !already {
		g.value = v
		g.set = true
	}
	g.lock.unlock(state)

	if already {
		panic("core: " + g.name + " initialized twice")
	}
}

// With runs fn with exclusive access to the cell contents. fn must be short
// and must not re-enter the same cell. Accessing a cell before InitOnce
// panics.
func (g *Global[T]) With(fn func(v *T)) {
	state := g.lock.lock()
	if !g.set {
		g.lock.unlock(state)
		panic("core: " + g.name + " used before init")
	}
	defer g.lock.unlock(state)
	fn(&g.value)
}

// IsSet reports whether the cell currently holds a value.
func (g *Global[T]) IsSet() bool {
	state := g.lock.lock()
	set := g.set
	g.lock.unlock(state)
	return set
}

// Take atomically reads and empties the cell.
func (g *Global[T]) Take() (T, bool) {
	var zero T
	state := g.lock.lock()
	v, ok := g.value, g.set
	g.value = zero
	g.set = false
	g.lock.unlock(state)
	return v, ok
}

// Replace stores v and returns the previous contents, if any.
func (g *Global[T]) Replace(v T) (T, bool) {
	state := g.lock.lock()
	old, ok := g.value, g.set
	g.value = v
	g.set = true
	g.lock.unlock(state)
	return old, ok
}

// PutIfEmpty stores v only when the cell is empty and reports whether it did.
func (g *Global[T]) PutIfEmpty(v T) bool {
	state := g.lock.lock()
	defer g.lock.unlock(state)
	if g.set {
		return false
	}
	g.value = v
	g.set = true
	return true
}

var critical cellLock

// CriticalSection runs fn with interrupts masked (a process-wide mutex on
// regular Go). It is for small bookkeeping that has no cell of its own.
func CriticalSection(fn func()) {
	state := critical.lock()
	defer critical.unlock(state)
	fn()
}
