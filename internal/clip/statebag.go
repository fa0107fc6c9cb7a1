package clip

import (
	"encoding/json"
	"fmt"
)

// Reserved statebag keys carrying orchestration metadata.
const (
	// KeyOrchestrationStep holds the current orchestration step number as
	// a numeric string.
	KeyOrchestrationStep = "ORCH_CS"

	// KeyMachineState holds the state-machine label for the current step.
	KeyMachineState = "MACHSTATE"

	// KeyComplexClaims is the claims namespace. Its entry carries a nested
	// claim map and is the ONLY statebag content that persists across
	// orchestration steps.
	KeyComplexClaims = "Complex-CLMS"

	// KeyCurrentTechnicalProfile records the most recently selected or
	// triggered technical profile, suffixed with its originating step
	// number ("ProfileId:3").
	KeyCurrentTechnicalProfile = "CTP"
)

// Statebag is the flat key-value payload attached to a HandlerResult.
// Every entry except the claims namespace is step-scoped.
type Statebag map[string]Entry

// Entry is one statebag slot. Value holds scalar entries; Claims holds the
// nested claim map of the claims-namespace entry. Exactly one of the two
// is populated.
type Entry struct {
	Created   string            `json:"c,omitempty"`
	Key       string            `json:"k,omitempty"`
	Value     string            `json:"-"`
	Claims    map[string]string `json:"-"`
	Persisted bool              `json:"p"`
}

// entryWire mirrors the log format: "v" is either a string or, for the
// claims namespace, a nested object; "p" is either a bool or "True"/"False".
type entryWire struct {
	Created   string          `json:"c,omitempty"`
	Key       string          `json:"k,omitempty"`
	Value     json.RawMessage `json:"v,omitempty"`
	Persisted json.RawMessage `json:"p,omitempty"`
}

// UnmarshalJSON decodes a statebag entry, tolerating both scalar and
// nested values. Values of unexpected shape decode to an empty entry
// rather than failing the batch.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var wire entryWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("statebag entry: %w", err)
	}

	e.Created = wire.Created
	e.Key = wire.Key
	e.Value = ""
	e.Claims = nil
	e.Persisted = parseWireBool(wire.Persisted)

	if len(wire.Value) == 0 {
		return nil
	}
	switch wire.Value[0] {
	case '"':
		var s string
		if err := json.Unmarshal(wire.Value, &s); err == nil {
			e.Value = s
		}
	case '{':
		var m map[string]string
		if err := json.Unmarshal(wire.Value, &m); err == nil {
			e.Claims = m
		}
	}
	return nil
}

// MarshalJSON encodes an entry back to the wire shape.
func (e Entry) MarshalJSON() ([]byte, error) {
	wire := struct {
		Created   string `json:"c,omitempty"`
		Key       string `json:"k,omitempty"`
		Value     any    `json:"v,omitempty"`
		Persisted bool   `json:"p"`
	}{
		Created:   e.Created,
		Key:       e.Key,
		Persisted: e.Persisted,
	}
	if e.Claims != nil {
		wire.Value = e.Claims
	} else if e.Value != "" {
		wire.Value = e.Value
	}
	return json.Marshal(wire)
}

// parseWireBool accepts the boolean encodings seen in the wild:
// true/false, "True"/"False", and absent (false).
func parseWireBool(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s == "True" || s == "true"
	}
	return false
}
