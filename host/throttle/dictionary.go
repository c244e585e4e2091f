package throttle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Bootstrap message IDs, fixed before the dictionary is known
const (
	identifyResponseID = 0
	identifyID         = 1
)

// Dictionary is the controller's message table
type Dictionary struct {
	Version   string            `json:"version"`
	Config    map[string]string `json:"config"`
	Commands  map[string]int    `json:"commands"`
	Responses map[string]int    `json:"responses"`

	commandIDs  map[string]uint16
	responseIDs map[string]uint16
}

// ParseDictionary decodes the JSON served by identify and indexes messages
// by name
func ParseDictionary(data []byte) (*Dictionary, error) {
	d := &Dictionary{}
	if err := json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("unmarshal dictionary: %w", err)
	}
	d.commandIDs = indexByName(d.Commands)
	d.responseIDs = indexByName(d.Responses)
	return d, nil
}

// indexByName keys "name arg=%x ..." signatures by name alone
func indexByName(signatures map[string]int) map[string]uint16 {
	ids := make(map[string]uint16, len(signatures))
	for sig, id := range signatures {
		name, _, _ := strings.Cut(sig, " ")
		ids[name] = uint16(id)
	}
	return ids
}

// CommandID looks up a command by name
func (d *Dictionary) CommandID(name string) (uint16, error) {
	id, ok := d.commandIDs[name]
	if !ok {
		return 0, fmt.Errorf("unknown command %q", name)
	}
	return id, nil
}

// ResponseID looks up a response by name
func (d *Dictionary) ResponseID(name string) (uint16, error) {
	id, ok := d.responseIDs[name]
	if !ok {
		return 0, fmt.Errorf("unknown response %q", name)
	}
	return id, nil
}
