package ui

import (
	"context"
	"time"

	"dccstation/core"
	"dccstation/input"
)

// DefaultRefreshRate is the redraw rate in Hz
const DefaultRefreshRate = 60

// Task drains input events into the throttle and redraws at a fixed rate
type Task struct {
	throttle *Throttle
	events   *core.Global[input.EventBuffer]
	view     *View
	period   time.Duration

	pending [input.EventBufferSize]input.Event
}

// NewTask creates the UI task
func NewTask(throttle *Throttle, events *core.Global[input.EventBuffer], view *View, period time.Duration) *Task {
	if period <= 0 {
		period = time.Second / DefaultRefreshRate
	}
	return &Task{throttle: throttle, events: events, view: view, period: period}
}

// Step applies pending events and renders one frame
func (t *Task) Step() error {
	n := 0
	t.events.With(func(b *input.EventBuffer) {
		b.Drain(func(e input.Event) {
			t.pending[n] = e
			n++
		})
	})
	for _, e := range t.pending[:n] {
		t.throttle.Apply(e)
	}

	return t.view.Render(t.throttle.Snapshot(), t.throttle.Cursor())
}

// Run refreshes until ctx is cancelled or the display fails. Events queued
// before the first frame are discarded.
func (t *Task) Run(ctx context.Context) error {
	t.events.With(func(b *input.EventBuffer) { b.Clear() })

	ticker := time.NewTicker(t.period)
	defer ticker.Stop()

	for {
		if err := t.Step(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
