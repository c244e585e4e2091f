package input

import "time"

// DefaultDebounce and DefaultHoldAfter are the front panel button timings
const (
	DefaultDebounce  = 20 * time.Millisecond
	DefaultHoldAfter = time.Second
)

// ButtonEvent is what one Update observed
type ButtonEvent uint8

const (
	NoEvent ButtonEvent = iota
	Clicked
	Held
)

// Button debounces a level reader. A press released before HoldAfter is a
// click; a press kept for HoldAfter reports Held once and no click.
type Button struct {
	read      func() bool
	invert    bool
	debounce  time.Duration
	holdAfter time.Duration

	stable         bool
	candidate      bool
	candidateSince time.Duration
	pressedAt      time.Duration
	held           bool
}

// NewButton creates a button. Set invert when the pin reads low while pressed.
func NewButton(read func() bool, invert bool) *Button {
	return &Button{
		read:      read,
		invert:    invert,
		debounce:  DefaultDebounce,
		holdAfter: DefaultHoldAfter,
	}
}

// SetTiming overrides the debounce and hold durations
func (b *Button) SetTiming(debounce, holdAfter time.Duration) {
	b.debounce = debounce
	b.holdAfter = holdAfter
}

// Pressed returns the debounced state
func (b *Button) Pressed() bool { return b.stable }

// Update samples the pin. now is a monotonic timestamp.
func (b *Button) Update(now time.Duration) ButtonEvent {
	level := b.read()
	if b.invert {
		level = !level
	}

	if level != b.candidate {
		b.candidate = level
		b.candidateSince = now
	}

	if b.candidate != b.stable && now-b.candidateSince >= b.debounce {
		b.stable = b.candidate
		if b.stable {
			b.pressedAt = now
			b.held = false
			return NoEvent
		}
		if !b.held {
			return Clicked
		}
		return NoEvent
	}

	if b.stable && !b.held && now-b.pressedAt >= b.holdAfter {
		b.held = true
		return Held
	}
	return NoEvent
}
