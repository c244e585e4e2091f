package core

import (
	"sort"
	"sync"
)

// Dictionary describes the device to the host: firmware version, constants
// and the ID of every registered message. It is served in chunks by the
// identify command as plain JSON.
type Dictionary struct {
	mu         sync.RWMutex
	constants  map[string]interface{}
	commandReg *CommandRegistry
	version    string
	cached     []byte
}

var globalDictionary = NewDictionary(globalRegistry)

// NewDictionary creates a dictionary over a command registry
func NewDictionary(cmdReg *CommandRegistry) *Dictionary {
	return &Dictionary{
		constants:  make(map[string]interface{}),
		commandReg: cmdReg,
		version:    "dccstation-0.1.0",
	}
}

// RegisterConstant registers a constant in the global dictionary
func RegisterConstant(name string, value interface{}) {
	globalDictionary.AddConstant(name, value)
}

// AddConstant adds a constant and invalidates the cached encoding
func (d *Dictionary) AddConstant(name string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.constants[name] = value
	d.cached = nil
}

// SetVersion sets the firmware version string
func (d *Dictionary) SetVersion(version string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.version = version
	d.cached = nil
}

// Build encodes and caches the dictionary. Call after all messages are
// registered; later registrations are not seen until the next Build.
func (d *Dictionary) Build() {
	// Fetch from the registry before taking our own lock
	messages := d.commandReg.Ordered()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.cached = d.encodeLocked(messages)
	DebugPrintln("[dict] built " + itoa(len(d.cached)) + " bytes, " + itoa(len(messages)) + " messages")
}

// Generate returns the encoded dictionary, building it on first use
func (d *Dictionary) Generate() []byte {
	d.mu.RLock()
	data := d.cached
	d.mu.RUnlock()
	if data != nil {
		return data
	}
	d.Build()
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cached
}

func (d *Dictionary) encodeLocked(messages []*Command) []byte {
	result := make([]byte, 0, 512)
	result = append(result, `{"version":"`...)
	result = append(result, d.version...)
	result = append(result, `","config":{`...)

	names := make([]string, 0, len(d.constants))
	for name := range d.constants {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		if i > 0 {
			result = append(result, ',')
		}
		result = append(result, '"')
		result = append(result, name...)
		result = append(result, `":"`...)
		result = append(result, valueToString(d.constants[name])...)
		result = append(result, '"')
	}

	result = append(result, `},"commands":{`...)
	result = appendMessages(result, messages, true)
	result = append(result, `},"responses":{`...)
	result = appendMessages(result, messages, false)
	result = append(result, `}}`...)
	return result
}

func appendMessages(result []byte, messages []*Command, commands bool) []byte {
	first := true
	for _, cmd := range messages {
		if (cmd.Handler != nil) != commands {
			continue
		}
		if !first {
			result = append(result, ',')
		}
		first = false
		result = append(result, '"')
		result = append(result, cmd.Signature()...)
		result = append(result, `":`...)
		result = append(result, itoa(int(cmd.ID))...)
	}
	return result
}

// GetChunk returns a copy of count bytes starting at offset. Reads past the
// end return an empty chunk, which tells the host it has everything.
func (d *Dictionary) GetChunk(offset uint32, count uint8) []byte {
	data := d.Generate()
	if offset >= uint32(len(data)) {
		return []byte{}
	}
	end := offset + uint32(count)
	if end > uint32(len(data)) {
		end = uint32(len(data))
	}
	chunk := make([]byte, end-offset)
	copy(chunk, data[offset:end])
	return chunk
}

// GetGlobalDictionary returns the global dictionary instance
func GetGlobalDictionary() *Dictionary {
	return globalDictionary
}
