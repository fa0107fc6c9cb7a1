package clip

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Kind tags the four fragment types emitted by the orchestration runtime.
type Kind string

const (
	KindHeaders       Kind = "Headers"
	KindAction        Kind = "Action"
	KindPredicate     Kind = "Predicate"
	KindHandlerResult Kind = "HandlerResult"
)

// Clip is one tagged fragment of a log line. Exactly one payload field is
// populated, selected by Kind. Unknown kinds round-trip with no payload so
// that runtime additions do not break parsing.
type Clip struct {
	Kind Kind

	// Headers is set when Kind == KindHeaders.
	Headers *Headers

	// Statement is the handler statement text for Action and Predicate
	// clips, e.g. "Web.TPEngine.StateMachineHandlers.HomeRealmDiscoveryHandler".
	Statement string

	// HandlerResult is set when Kind == KindHandlerResult.
	HandlerResult *HandlerResult
}

// clipWire is the on-the-wire shape: a Kind tag plus a Content payload
// whose JSON type depends on the tag.
type clipWire struct {
	Kind    Kind            `json:"Kind"`
	Content json.RawMessage `json:"Content,omitempty"`
}

// UnmarshalJSON decodes a clip, selecting the payload type by Kind.
// Malformed payloads leave the payload field nil rather than failing the
// whole batch.
func (c *Clip) UnmarshalJSON(data []byte) error {
	var wire clipWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("clip: %w", err)
	}

	c.Kind = wire.Kind
	c.Headers = nil
	c.Statement = ""
	c.HandlerResult = nil

	if len(wire.Content) == 0 {
		return nil
	}

	switch wire.Kind {
	case KindHeaders:
		var h Headers
		if err := json.Unmarshal(wire.Content, &h); err == nil {
			c.Headers = &h
		}
	case KindAction, KindPredicate:
		var s string
		if err := json.Unmarshal(wire.Content, &s); err == nil {
			c.Statement = s
		}
	case KindHandlerResult:
		var hr HandlerResult
		if err := json.Unmarshal(wire.Content, &hr); err == nil {
			c.HandlerResult = &hr
		}
	}
	return nil
}

// MarshalJSON encodes a clip back to the wire shape.
func (c Clip) MarshalJSON() ([]byte, error) {
	wire := clipWire{Kind: c.Kind}

	var payload any
	switch c.Kind {
	case KindHeaders:
		if c.Headers != nil {
			payload = c.Headers
		}
	case KindAction, KindPredicate:
		payload = c.Statement
	case KindHandlerResult:
		if c.HandlerResult != nil {
			payload = c.HandlerResult
		}
	}

	if payload != nil {
		content, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("clip content: %w", err)
		}
		wire.Content = content
	}
	return json.Marshal(wire)
}

// eventInstancePrefix precedes the event type in the Headers EventInstance
// field, e.g. "Event:AUTH".
const eventInstancePrefix = "Event:"

// Headers carries the batch-level metadata emitted at the start of each
// recorder event.
type Headers struct {
	UserJourneyRecorderEndpoint string `json:"UserJourneyRecorderEndpoint,omitempty"`
	CorrelationID               string `json:"CorrelationId,omitempty"`
	EventInstance               string `json:"EventInstance,omitempty"`
	TenantID                    string `json:"TenantId,omitempty"`
	PolicyID                    string `json:"PolicyId,omitempty"`
}

// EventType returns the event type with the "Event:" prefix stripped.
// "Event:AUTH" and bare "AUTH" both yield "AUTH".
func (h *Headers) EventType() string {
	return strings.TrimPrefix(h.EventInstance, eventInstancePrefix)
}

// HandlerResult is the payload of a HandlerResult clip: the outcome of the
// most recently named Action or Predicate statement.
type HandlerResult struct {
	Result          bool       `json:"Result"`
	PredicateResult string     `json:"PredicateResult,omitempty"` // "True" | "False"
	RecorderRecord  *Record    `json:"RecorderRecord,omitempty"`
	Statebag        Statebag   `json:"Statebag,omitempty"`
	Exception       *Exception `json:"Exception,omitempty"`
}

// PredicateTrue reports whether the predicate outcome is affirmative,
// accepting either the string PredicateResult or the boolean Result.
func (hr *HandlerResult) PredicateTrue() bool {
	if hr.PredicateResult != "" {
		return hr.PredicateResult == "True"
	}
	return hr.Result
}

// Exception describes a handler failure surfaced in the log stream.
type Exception struct {
	Kind    string `json:"Kind,omitempty"`
	Message string `json:"Message"`
	HResult string `json:"HResult,omitempty"`
}

// TraceLogInput is one physical log line: a timestamped batch of clips for
// a single policy run. Multiple inputs sharing a correlation id form one
// logical trace and are merged by timestamp before interpretation.
type TraceLogInput struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	PolicyID      string    `json:"policy_id"`
	CorrelationID string    `json:"correlation_id"`
	Clips         []Clip    `json:"clips"`
}
