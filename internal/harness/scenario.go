package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a declarative reconstruction test: a synthetic journey
// expressed as batches of clips, plus assertions on the reconstructed
// trace.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the golden file
	// name for snapshot comparison.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// PolicyID is the policy the synthetic journey runs under.
	PolicyID string `yaml:"policy_id"`

	// CorrelationID ties the batches into one logical trace.
	CorrelationID string `yaml:"correlation_id"`

	// ReverseInput feeds the batches to the parser in reverse arrival
	// order, exercising timestamp stitching.
	ReverseInput bool `yaml:"reverse_input,omitempty"`

	// Batches are the log batches of the journey, in logical order.
	Batches []BatchSpec `yaml:"batches"`

	// Assertions validate the reconstructed trace.
	Assertions []Assertion `yaml:"assertions"`
}

// BatchSpec describes one log batch.
type BatchSpec struct {
	// OffsetMS is the batch timestamp as milliseconds after the fixture
	// base time.
	OffsetMS int `yaml:"offset_ms"`

	// Event is the recorder event type ("AUTH", "SELFASSERTED", ...).
	// Empty means a headerless continuation batch.
	Event string `yaml:"event,omitempty"`

	// Clips are the batch's fragments in emission order.
	Clips []ClipSpec `yaml:"clips"`
}

// ClipSpec describes one clip. Exactly one of Boundary, Action,
// Predicate, or Result must be set. Claims and Statebag accompany
// Boundary only.
type ClipSpec struct {
	// Boundary emits the coordinator Action plus a HandlerResult opening
	// the given orchestration step.
	Boundary *int `yaml:"boundary,omitempty"`

	// Claims are claim values carried on the boundary statebag.
	Claims map[string]string `yaml:"claims,omitempty"`

	// Statebag are extra scalar statebag entries on the boundary.
	Statebag map[string]string `yaml:"statebag,omitempty"`

	// Action emits an Action clip naming a handler statement.
	Action string `yaml:"action,omitempty"`

	// Predicate emits a Predicate clip naming a handler statement.
	Predicate string `yaml:"predicate,omitempty"`

	// Result emits a HandlerResult clip for the preceding handler.
	Result *ResultSpec `yaml:"result,omitempty"`
}

// ResultSpec describes a HandlerResult payload.
type ResultSpec struct {
	// Predicate is "True" or "False". Empty means a plain successful
	// result.
	Predicate string `yaml:"predicate,omitempty"`

	// Claims are claim values carried on the result statebag.
	Claims map[string]string `yaml:"claims,omitempty"`

	// Statebag are scalar statebag entries on the result.
	Statebag map[string]string `yaml:"statebag,omitempty"`

	// Error attaches a handler exception.
	Error *ErrorSpec `yaml:"error,omitempty"`
}

// ErrorSpec describes a handler exception.
type ErrorSpec struct {
	Message string `yaml:"message"`
	HResult string `yaml:"hresult,omitempty"`
}

// Assertion validates one aspect of the reconstructed trace.
type Assertion struct {
	// Type selects the assertion:
	//   - "step_count": the trace has exactly Count steps
	//   - "step_result": step Step sealed with Result
	//   - "step_profiles": step Step triggered exactly Profiles
	//   - "claims_contain": step Step's snapshot contains Claims
	//   - "node_execution": Node has Visits visits and Status
	//   - "final_claims": the last step's snapshot contains Claims
	//   - "diagnostic_contains": some diagnostic contains Message
	Type string `yaml:"type"`

	Count    int               `yaml:"count,omitempty"`
	Step     int               `yaml:"step,omitempty"`
	Result   string            `yaml:"result,omitempty"`
	Profiles []string          `yaml:"profiles,omitempty"`
	Claims   map[string]string `yaml:"claims,omitempty"`
	Node     string            `yaml:"node,omitempty"`
	Visits   int               `yaml:"visits,omitempty"`
	Status   string            `yaml:"status,omitempty"`
	Message  string            `yaml:"message,omitempty"`
}

// Assertion type constants.
const (
	AssertStepCount          = "step_count"
	AssertStepResult         = "step_result"
	AssertStepProfiles       = "step_profiles"
	AssertClaimsContain      = "claims_contain"
	AssertNodeExecution      = "node_execution"
	AssertFinalClaims        = "final_claims"
	AssertDiagnosticContains = "diagnostic_contains"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos surface as load errors instead of silently-skipped
// assertions.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.CorrelationID == "" {
		return fmt.Errorf("correlation_id is required")
	}
	if len(s.Batches) == 0 {
		return fmt.Errorf("batches list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, batch := range s.Batches {
		if len(batch.Clips) == 0 {
			return fmt.Errorf("batches[%d]: clips list must be non-empty", i)
		}
		for j, c := range batch.Clips {
			if err := validateClip(&c); err != nil {
				return fmt.Errorf("batches[%d].clips[%d]: %w", i, j, err)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateClip enforces the one-payload-per-clip rule.
func validateClip(c *ClipSpec) error {
	set := 0
	if c.Boundary != nil {
		set++
	}
	if c.Action != "" {
		set++
	}
	if c.Predicate != "" {
		set++
	}
	if c.Result != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("exactly one of boundary, action, predicate, result must be set")
	}
	if c.Boundary == nil && (len(c.Claims) > 0 || len(c.Statebag) > 0) {
		return fmt.Errorf("claims and statebag belong to boundary clips (use result.claims for handler results)")
	}
	if c.Boundary != nil && *c.Boundary < 0 {
		return fmt.Errorf("boundary step must be non-negative")
	}
	if c.Result != nil && c.Result.Predicate != "" &&
		c.Result.Predicate != "True" && c.Result.Predicate != "False" {
		return fmt.Errorf("result.predicate must be \"True\" or \"False\"")
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertStepCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for step_count", index)
		}
	case AssertStepResult:
		if a.Result == "" {
			return fmt.Errorf("assertions[%d]: result is required for step_result", index)
		}
	case AssertStepProfiles:
		// An empty profiles list is a valid assertion: the step must
		// have triggered nothing.
	case AssertClaimsContain, AssertFinalClaims:
		if len(a.Claims) == 0 {
			return fmt.Errorf("assertions[%d]: claims is required for %s", index, a.Type)
		}
	case AssertNodeExecution:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for node_execution", index)
		}
	case AssertDiagnosticContains:
		if a.Message == "" {
			return fmt.Errorf("assertions[%d]: message is required for diagnostic_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
