// Package input turns front panel buttons and the rotary encoder into
// throttle events.
package input

import "dccstation/core"

// EventBufferSize is the number of events kept between UI refreshes
const EventBufferSize = 8

// EventKind identifies an input gesture
type EventKind uint8

const (
	MoveCursor EventKind = iota // Value is -1 (left) or +1 (right)
	Rotate                      // Value is the signed encoder delta
	Click
	Hold
)

func (k EventKind) String() string {
	switch k {
	case MoveCursor:
		return "move"
	case Rotate:
		return "rotate"
	case Click:
		return "click"
	case Hold:
		return "hold"
	default:
		return "unknown"
	}
}

// Event is one input gesture
type Event struct {
	Kind  EventKind
	Value int
}

// CursorLeft and CursorRight are the two MoveCursor events
var (
	CursorLeft  = Event{Kind: MoveCursor, Value: -1}
	CursorRight = Event{Kind: MoveCursor, Value: 1}
)

// EventBuffer is a fixed ring of events. Pushing into a full ring drops the
// oldest event.
type EventBuffer struct {
	events [EventBufferSize]Event
	head   int
	count  int
}

// Push appends an event, overwriting the oldest when full
func (b *EventBuffer) Push(e Event) {
	tail := (b.head + b.count) % EventBufferSize
	b.events[tail] = e
	if b.count == EventBufferSize {
		b.head = (b.head + 1) % EventBufferSize
		return
	}
	b.count++
}

// Drain calls fn for every buffered event, oldest first, and empties the ring
func (b *EventBuffer) Drain(fn func(Event)) {
	for b.count > 0 {
		e := b.events[b.head]
		b.head = (b.head + 1) % EventBufferSize
		b.count--
		fn(e)
	}
}

// Len returns the number of buffered events
func (b *EventBuffer) Len() int { return b.count }

// Clear drops every buffered event
func (b *EventBuffer) Clear() {
	b.head = 0
	b.count = 0
}

// NewEventCell returns the registry cell shared by the poller and the UI
func NewEventCell() *core.Global[EventBuffer] {
	return core.NewGlobalWith("input events", EventBuffer{})
}
