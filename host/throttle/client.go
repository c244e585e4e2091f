// Package throttle drives the controller's command state from a PC over the
// serial link.
package throttle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/golang/glog"

	"dccstation/host/serial"
	"dccstation/protocol"
)

// identifyChunk keeps identify responses within one frame
const identifyChunk = 40

// State is the controller's command state and transmission counters
type State struct {
	Address uint8
	Speed   int8
	Drained uint32
	Idles   uint32
}

// Client is a connection to one controller
type Client struct {
	transport *protocol.HostTransport
	dict      *Dictionary

	// One request and its response at a time
	mu sync.Mutex
}

// Dial opens device and retrieves the dictionary
func Dial(ctx context.Context, device string) (*Client, error) {
	port, err := serial.Open(serial.DefaultConfig(device))
	if err != nil {
		return nil, err
	}
	c := NewClient(port)
	if err := c.Connect(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// NewClient wraps an open port. Call Connect before sending commands.
func NewClient(port io.ReadWriteCloser) *Client {
	return &Client{transport: protocol.NewHostTransport(port)}
}

// Close closes the link
func (c *Client) Close() error {
	return c.transport.Close()
}

// Dictionary returns the retrieved message table, nil before Connect
func (c *Client) Dictionary() *Dictionary {
	return c.dict
}

// Connect retrieves and parses the controller's dictionary
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var buf bytes.Buffer
	for offset := uint32(0); ; {
		chunk, err := c.identify(ctx, offset)
		if err != nil {
			return fmt.Errorf("identify at offset %d: %w", offset, err)
		}
		buf.Write(chunk)
		offset += uint32(len(chunk))
		if len(chunk) < identifyChunk {
			break
		}
	}

	dict, err := ParseDictionary(buf.Bytes())
	if err != nil {
		return err
	}
	c.dict = dict
	glog.V(1).Infof("dictionary %s: %d bytes, %d commands, %d responses",
		dict.Version, buf.Len(), len(dict.Commands), len(dict.Responses))
	return nil
}

func (c *Client) identify(ctx context.Context, offset uint32) ([]byte, error) {
	err := c.transport.SendCommand(ctx, identifyID, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQUint(output, identifyChunk)
	})
	if err != nil {
		return nil, err
	}

	args, err := c.await(ctx, identifyResponseID)
	if err != nil {
		return nil, err
	}
	respOffset, err := protocol.DecodeVLQUint(&args)
	if err != nil {
		return nil, err
	}
	if respOffset != offset {
		return nil, fmt.Errorf("offset mismatch: asked %d, got %d", offset, respOffset)
	}
	return protocol.DecodeVLQBytes(&args)
}

// await returns the arguments of the next response with ID want, skipping
// any other message
func (c *Client) await(ctx context.Context, want uint16) ([]byte, error) {
	for {
		msg, err := c.transport.ReceiveResponse(ctx)
		if err != nil {
			return nil, err
		}
		payload := msg.Payload
		id, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			return nil, err
		}
		if uint16(id) == want {
			return payload, nil
		}
		glog.V(2).Infof("skipping message %d while waiting for %d", id, want)
	}
}

// call sends a named command and decodes the state response it produces
func (c *Client) call(ctx context.Context, name string, args func(output protocol.OutputBuffer)) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dict == nil {
		return State{}, fmt.Errorf("%s: not connected", name)
	}
	cmdID, err := c.dict.CommandID(name)
	if err != nil {
		return State{}, err
	}
	stateID, err := c.dict.ResponseID("state")
	if err != nil {
		return State{}, err
	}

	if err := c.transport.SendCommand(ctx, cmdID, args); err != nil {
		return State{}, fmt.Errorf("%s: %w", name, err)
	}
	payload, err := c.await(ctx, stateID)
	if err != nil {
		return State{}, fmt.Errorf("%s: %w", name, err)
	}
	return decodeState(payload)
}

func decodeState(payload []byte) (State, error) {
	address, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return State{}, err
	}
	speed, err := protocol.DecodeVLQInt(&payload)
	if err != nil {
		return State{}, err
	}
	drained, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return State{}, err
	}
	idles, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return State{}, err
	}
	return State{Address: uint8(address), Speed: int8(speed), Drained: drained, Idles: idles}, nil
}

// State reads the command state
func (c *Client) State(ctx context.Context) (State, error) {
	return c.call(ctx, "get_state", nil)
}

// SetAddress sets the locomotive address. The controller clamps it to
// 0..127 and returns the result.
func (c *Client) SetAddress(ctx context.Context, address int) (State, error) {
	return c.call(ctx, "set_address", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQInt(output, saturate32(address))
	})
}

// SetSpeed sets the signed speed. The controller clamps it to -28..28.
func (c *Client) SetSpeed(ctx context.Context, speed int) (State, error) {
	return c.call(ctx, "set_speed", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQInt(output, saturate32(speed))
	})
}

// saturate32 narrows v to the wire's int32 without wrapping, so the
// controller clamps out of range values to the nearest end
func saturate32(v int) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}

// Stop sets speed 0
func (c *Client) Stop(ctx context.Context) (State, error) {
	return c.call(ctx, "stop", nil)
}

// DefaultTimeout bounds one request
const DefaultTimeout = 2 * time.Second
