package input

import (
	"context"
	"time"

	"dccstation/core"
)

// DefaultPollRate is the sampling rate of the front panel
const DefaultPollRate = 900

// Poller samples the front panel and posts events. Left and right move the
// cursor, the function button clicks or holds, the encoder rotates.
type Poller struct {
	events *core.Global[EventBuffer]
	left   *Button
	right  *Button
	fn     *Button
	rotary *Rotary
	period time.Duration

	pending [4]Event
}

// NewPoller creates a poller. Any input may be nil when not fitted.
func NewPoller(events *core.Global[EventBuffer], left, right, fn *Button, rotary *Rotary, period time.Duration) *Poller {
	if period <= 0 {
		period = time.Second / DefaultPollRate
	}
	return &Poller{
		events: events,
		left:   left,
		right:  right,
		fn:     fn,
		rotary: rotary,
		period: period,
	}
}

// Step samples every input once and returns the number of events posted
func (p *Poller) Step(now time.Duration) int {
	n := 0
	if p.left != nil && p.left.Update(now) == Clicked {
		p.pending[n] = CursorLeft
		n++
	}
	if p.right != nil && p.right.Update(now) == Clicked {
		p.pending[n] = CursorRight
		n++
	}
	if p.fn != nil {
		switch p.fn.Update(now) {
		case Clicked:
			p.pending[n] = Event{Kind: Click}
			n++
		case Held:
			p.pending[n] = Event{Kind: Hold}
			n++
		}
	}
	if p.rotary != nil {
		if delta, ok := p.rotary.Update(); ok {
			p.pending[n] = Event{Kind: Rotate, Value: delta}
			n++
		}
	}

	if n > 0 {
		p.events.With(func(b *EventBuffer) {
			for _, e := range p.pending[:n] {
				b.Push(e)
			}
		})
	}
	return n
}

// Run polls until ctx is cancelled
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.period)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Step(time.Since(start))
		}
	}
}
