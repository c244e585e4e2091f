// Package bridge mirrors the controller's command state onto MQTT, so home
// automation can read and drive the throttle.
//
// Topics, relative to the node prefix "dcc/<node>/":
//
//	state           retained JSON of the current state
//	set/address     integer payload
//	set/speed       signed integer payload
//	stop            any payload
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"dccstation/host/throttle"
)

// Topic suffixes
const (
	TopicState      = "state"
	TopicSetAddress = "set/address"
	TopicSetSpeed   = "set/speed"
	TopicStop       = "stop"
)

// ErrUnknownTopic is returned for messages on topics the bridge does not serve
var ErrUnknownTopic = errors.New("unknown topic")

// Throttle is the controller link. *throttle.Client satisfies it.
type Throttle interface {
	State(ctx context.Context) (throttle.State, error)
	SetAddress(ctx context.Context, address int) (throttle.State, error)
	SetSpeed(ctx context.Context, speed int) (throttle.State, error)
	Stop(ctx context.Context) (throttle.State, error)
}

// Publisher sends one message. *Queue satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, retain bool) error
}

// StatePayload is the JSON published on the state topic
type StatePayload struct {
	Address   uint8  `json:"address"`
	Speed     int8   `json:"speed"`
	Direction string `json:"direction"`
	Drained   uint32 `json:"drained"`
	Idles     uint32 `json:"idles"`
}

func payloadOf(s throttle.State) StatePayload {
	dir := "reverse"
	if s.Speed > 0 {
		dir = "forward"
	}
	return StatePayload{
		Address:   s.Address,
		Speed:     s.Speed,
		Direction: dir,
		Drained:   s.Drained,
		Idles:     s.Idles,
	}
}

// Bridge forwards MQTT commands to the throttle and publishes its state
type Bridge struct {
	throttle Throttle
	pub      Publisher
	prefix   string
	timeout  time.Duration

	// MQTT callbacks and Run publish concurrently
	mu        sync.Mutex
	last      throttle.State
	published bool
}

// New creates a bridge for node. Topics are rooted at "dcc/<node>/".
func New(t Throttle, pub Publisher, node string) *Bridge {
	return &Bridge{
		throttle: t,
		pub:      pub,
		prefix:   "dcc/" + node + "/",
		timeout:  throttle.DefaultTimeout,
	}
}

// Topic returns the full topic for a suffix
func (b *Bridge) Topic(suffix string) string {
	return b.prefix + suffix
}

// Subscriptions lists the command topics to subscribe to
func (b *Bridge) Subscriptions() []string {
	return []string{b.Topic(TopicSetAddress), b.Topic(TopicSetSpeed), b.Topic(TopicStop)}
}

// HandleMessage applies one command message and publishes the new state
func (b *Bridge) HandleMessage(topic string, payload []byte) error {
	suffix, ok := strings.CutPrefix(topic, b.prefix)
	if !ok {
		return fmt.Errorf("%s: %w", topic, ErrUnknownTopic)
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	var (
		state throttle.State
		err   error
	)
	switch suffix {
	case TopicSetAddress:
		var v int
		if v, err = parseInt(payload); err == nil {
			state, err = b.throttle.SetAddress(ctx, v)
		}
	case TopicSetSpeed:
		var v int
		if v, err = parseInt(payload); err == nil {
			state, err = b.throttle.SetSpeed(ctx, v)
		}
	case TopicStop:
		state, err = b.throttle.Stop(ctx)
	default:
		return fmt.Errorf("%s: %w", topic, ErrUnknownTopic)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", suffix, err)
	}
	return b.publish(state)
}

func parseInt(payload []byte) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(string(payload)))
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", payload)
	}
	return v, nil
}

// Refresh reads the state and publishes it when it changed, which picks up
// changes made on the front panel
func (b *Bridge) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	state, err := b.throttle.State(ctx)
	if err != nil {
		return fmt.Errorf("read state: %w", err)
	}
	b.mu.Lock()
	unchanged := b.published && sameCommand(state, b.last)
	b.mu.Unlock()
	if unchanged {
		return nil
	}
	return b.publish(state)
}

// sameCommand ignores the counters, which change on every packet
func sameCommand(a, b throttle.State) bool {
	return a.Address == b.Address && a.Speed == b.Speed
}

func (b *Bridge) publish(state throttle.State) error {
	data, err := json.Marshal(payloadOf(state))
	if err != nil {
		return err
	}
	if err := b.pub.Publish(b.Topic(TopicState), data, true); err != nil {
		return fmt.Errorf("publish state: %w", err)
	}
	b.mu.Lock()
	b.last = state
	b.published = true
	b.mu.Unlock()
	glog.V(1).Infof("state address=%d speed=%d", state.Address, state.Speed)
	return nil
}

// Run refreshes the state every period until ctx is cancelled. Refresh
// failures are logged and retried on the next tick.
func (b *Bridge) Run(ctx context.Context, period time.Duration) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		if err := b.Refresh(ctx); err != nil {
			glog.Warningf("refresh: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
