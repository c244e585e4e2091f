package transmit

import (
	"context"
	"errors"
	"sync"

	"dccstation/core"
)

var (
	// ErrStarted is returned by Spawn and Start once the scheduler is running
	ErrStarted = errors.New("transmit: scheduler already started")
	// ErrTaskExited is the fatal cause for a task that returned nil while its
	// context was still live
	ErrTaskExited = errors.New("transmit: task exited")
)

// Priority selects the pool a task runs in
type Priority uint8

const (
	Normal Priority = iota
	Elevated
)

func (p Priority) String() string {
	if p == Elevated {
		return "elevated"
	}
	return "normal"
}

// Task is a long running loop. It returns only when ctx is cancelled.
type Task func(ctx context.Context) error

type namedTask struct {
	name string
	run  Task
}

// Scheduler runs two pools of tasks. Transmission tasks go in the Elevated
// pool, which is started first; UI, input and display work goes in Normal.
// A task that fails or returns while its context is live is fatal.
//
// Goroutines are not preempted, so the Elevated pool relies on its pulse
// channels to outrun Normal work: a channel only queues pulses, and the
// hardware is fed from interrupt context out of that queue. A Normal task
// holding the CPU delays what is queued next, never what reaches the track.
type Scheduler struct {
	mu      sync.Mutex
	pools   [2][]namedTask
	started bool
	wg      sync.WaitGroup
}

// NewScheduler creates an empty scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Spawn registers a task. Tasks cannot be added after Start.
func (s *Scheduler) Spawn(p Priority, name string, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrStarted
	}
	s.pools[p] = append(s.pools[p], namedTask{name: name, run: task})
	return nil
}

// Tasks lists the task names registered in a pool
func (s *Scheduler) Tasks(p Priority) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.pools[p]))
	for _, t := range s.pools[p] {
		names = append(names, t.name)
	}
	return names
}

// Start launches the elevated pool, then the normal pool
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrStarted
	}
	s.started = true
	pools := s.pools
	s.mu.Unlock()

	for _, p := range []Priority{Elevated, Normal} {
		for _, t := range pools[p] {
			s.wg.Add(1)
			go s.run(ctx, p, t)
		}
	}
	core.DebugPrintln("[sched] started " + core.Itoa(len(pools[Elevated])) + " elevated, " +
		core.Itoa(len(pools[Normal])) + " normal")
	return nil
}

func (s *Scheduler) run(ctx context.Context, p Priority, t namedTask) {
	defer s.wg.Done()

	err := t.run(ctx)
	if ctx.Err() != nil {
		return
	}
	if err == nil {
		err = ErrTaskExited
	}
	core.Fatal(p.String()+" task "+t.name, err)
}

// Wait blocks until every task has returned
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
