package trace

import (
	"fmt"
	"time"
)

// StepResult classifies a sealed orchestration step.
type StepResult string

const (
	ResultSuccess      StepResult = "Success"
	ResultError        StepResult = "Error"
	ResultSkipped      StepResult = "Skipped"
	ResultPendingInput StepResult = "PendingInput"
)

// TechnicalProfileDetail carries the richer per-profile facts consumed by
// the detail UI.
type TechnicalProfileDetail struct {
	ID           string   `json:"id"`
	ProviderType string   `json:"provider_type,omitempty"`
	Protocol     string   `json:"protocol,omitempty"`
	InputClaims  []string `json:"input_claims,omitempty"`
	OutputClaims []string `json:"output_claims,omitempty"`
}

// ClaimsTransformationDetail carries per-transformation claim lists.
type ClaimsTransformationDetail struct {
	ID           string   `json:"id"`
	InputClaims  []string `json:"input_claims,omitempty"`
	OutputClaims []string `json:"output_claims,omitempty"`
}

// TraceStep is the unit of output: one numbered orchestration stage with
// everything observed between its opening and sealing boundary. Steps are
// immutable once sealed.
type TraceStep struct {
	SequenceNumber   int        `json:"sequence_number"`
	StepOrder        int        `json:"step_order"`
	GraphNodeID      string     `json:"graph_node_id"`
	JourneyContextID string     `json:"journey_context_id"`
	JourneyDepth     int        `json:"journey_depth"`
	Timestamp        time.Time  `json:"timestamp"`
	Result           StepResult `json:"result"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	ErrorHResult     string     `json:"error_hresult,omitempty"`

	TechnicalProfiles     []string `json:"technical_profiles"`
	ClaimsTransformations []string `json:"claims_transformations"`
	DisplayControls       []string `json:"display_controls,omitempty"`
	DisplayControlActions []string `json:"display_control_actions,omitempty"`

	SelectableOptions []string `json:"selectable_options,omitempty"`
	SelectedOption    string   `json:"selected_option,omitempty"`
	IsInteractiveStep bool     `json:"is_interactive_step"`
	IsFinalStep       bool     `json:"is_final_step"`

	ClaimsSnapshot   map[string]string `json:"claims_snapshot"`
	StatebagSnapshot map[string]string `json:"statebag_snapshot"`

	TechnicalProfileDetails     []TechnicalProfileDetail     `json:"technical_profile_details,omitempty"`
	ClaimsTransformationDetails []ClaimsTransformationDetail `json:"claims_transformation_details,omitempty"`
}

// GraphNodeID derives the designer graph node id for a step of a policy.
func GraphNodeID(policyID string, stepOrder int) string {
	return fmt.Sprintf("%s-Step%d", policyID, stepOrder)
}

// orderedSet is an insertion-ordered string set. Used for every
// deduplicated list on a step so repeated recorder restatements collapse
// while first-seen order is preserved.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(item string) {
	if item == "" {
		return
	}
	if _, ok := s.seen[item]; ok {
		return
	}
	s.seen[item] = struct{}{}
	s.items = append(s.items, item)
}

func (s *orderedSet) list() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// StepBuilder accumulates facts for the step currently under
// construction. Interpreters mutate it through the methods below; the
// parser seals it into an immutable TraceStep at the next boundary.
type StepBuilder struct {
	stepOrder    int
	policyID     string
	journeyID    string
	journeyDepth int
	timestamp    time.Time

	profiles        *orderedSet
	transformations *orderedSet
	displayControls *orderedSet
	displayActions  *orderedSet
	options         *orderedSet
	selectedOption  string

	interactive   bool
	final         bool
	skipped       bool
	awaitingInput bool

	failed       bool
	errorMessage string
	errorHResult string

	profileDetails        []TechnicalProfileDetail
	profileDetailIDs      map[string]struct{}
	transformationDetails []ClaimsTransformationDetail
	transformationIDs     map[string]struct{}
}

// NewStepBuilder opens a step with its boundary facts.
func NewStepBuilder(stepOrder int, policyID string, journey JourneyEntry, timestamp time.Time) *StepBuilder {
	return &StepBuilder{
		stepOrder:         stepOrder,
		policyID:          policyID,
		journeyID:         journey.JourneyID,
		journeyDepth:      journey.Depth,
		timestamp:         timestamp,
		profiles:          newOrderedSet(),
		transformations:   newOrderedSet(),
		displayControls:   newOrderedSet(),
		displayActions:    newOrderedSet(),
		options:           newOrderedSet(),
		profileDetailIDs:  make(map[string]struct{}),
		transformationIDs: make(map[string]struct{}),
	}
}

// StepOrder returns the orchestration step number this builder is
// accumulating for.
func (b *StepBuilder) StepOrder() int {
	return b.stepOrder
}

// AddTechnicalProfile records a triggered technical profile.
func (b *StepBuilder) AddTechnicalProfile(id string) {
	b.profiles.add(id)
}

// AddTechnicalProfileDetail records detail facts for a profile, first
// detail per id wins.
func (b *StepBuilder) AddTechnicalProfileDetail(detail TechnicalProfileDetail) {
	if detail.ID == "" {
		return
	}
	if _, ok := b.profileDetailIDs[detail.ID]; ok {
		return
	}
	b.profileDetailIDs[detail.ID] = struct{}{}
	b.profileDetails = append(b.profileDetails, detail)
}

// AddClaimsTransformation records an applied transformation.
func (b *StepBuilder) AddClaimsTransformation(id string) {
	b.transformations.add(id)
}

// AddClaimsTransformationDetail records detail facts for a
// transformation, first detail per id wins.
func (b *StepBuilder) AddClaimsTransformationDetail(detail ClaimsTransformationDetail) {
	if detail.ID == "" {
		return
	}
	if _, ok := b.transformationIDs[detail.ID]; ok {
		return
	}
	b.transformationIDs[detail.ID] = struct{}{}
	b.transformationDetails = append(b.transformationDetails, detail)
}

// AddDisplayControl records a display control rendered during the step.
func (b *StepBuilder) AddDisplayControl(id string) {
	b.displayControls.add(id)
}

// AddDisplayControlAction records a display-control action invocation.
func (b *StepBuilder) AddDisplayControlAction(action string) {
	b.displayActions.add(action)
}

// AddSelectableOption records one candidate of an interactive choice.
// Candidates never flow into TechnicalProfiles; see MarkInteractive.
func (b *StepBuilder) AddSelectableOption(option string) {
	b.options.add(option)
}

// SetSelectedOption records the option the user chose.
func (b *StepBuilder) SetSelectedOption(option string) {
	if option != "" {
		b.selectedOption = option
	}
}

// MarkInteractive flags the step as an interactive choice step.
func (b *StepBuilder) MarkInteractive() {
	b.interactive = true
}

// MarkFinal flags the step as the journey-terminating step.
func (b *StepBuilder) MarkFinal() {
	b.final = true
}

// MarkSkipped flags the step's precondition as unmet.
func (b *StepBuilder) MarkSkipped() {
	b.skipped = true
}

// MarkAwaitingInput flags an in-flight external round-trip (redirect to
// an external identity provider).
func (b *StepBuilder) MarkAwaitingInput() {
	b.awaitingInput = true
}

// ClearAwaitingInput resolves the round-trip (the provider responded).
func (b *StepBuilder) ClearAwaitingInput() {
	b.awaitingInput = false
}

// RecordError attaches a handler exception to the step. The first error
// wins; later exceptions within the same step are absorbed.
func (b *StepBuilder) RecordError(message, hresult string) {
	if b.failed {
		return
	}
	b.failed = true
	b.errorMessage = message
	b.errorHResult = hresult
}

// result computes the seal-time result. Error wins over everything;
// Skipped beats PendingInput (an unmet precondition never reached the
// round-trip); an unresolved round-trip is PendingInput.
func (b *StepBuilder) result() StepResult {
	switch {
	case b.failed:
		return ResultError
	case b.skipped:
		return ResultSkipped
	case b.awaitingInput:
		return ResultPendingInput
	default:
		return ResultSuccess
	}
}

// Seal freezes the builder into an immutable TraceStep at the given
// output position, attaching the snapshots taken at the moment the step
// closed.
func (b *StepBuilder) Seal(sequenceNumber int, claims, statebag map[string]string) TraceStep {
	step := TraceStep{
		SequenceNumber:        sequenceNumber,
		StepOrder:             b.stepOrder,
		GraphNodeID:           GraphNodeID(b.policyID, b.stepOrder),
		JourneyContextID:      b.journeyID,
		JourneyDepth:          b.journeyDepth,
		Timestamp:             b.timestamp,
		Result:                b.result(),
		TechnicalProfiles:     b.profiles.list(),
		ClaimsTransformations: b.transformations.list(),
		DisplayControls:       b.displayControls.list(),
		DisplayControlActions: b.displayActions.list(),
		SelectableOptions:     b.options.list(),
		SelectedOption:        b.selectedOption,
		IsInteractiveStep:     b.interactive,
		IsFinalStep:           b.final,
		ClaimsSnapshot:        claims,
		StatebagSnapshot:      statebag,
	}
	if step.Result == ResultError {
		step.ErrorMessage = b.errorMessage
		step.ErrorHResult = b.errorHResult
	}
	if len(b.profileDetails) > 0 {
		step.TechnicalProfileDetails = append([]TechnicalProfileDetail(nil), b.profileDetails...)
	}
	if len(b.transformationDetails) > 0 {
		step.ClaimsTransformationDetails = append([]ClaimsTransformationDetail(nil), b.transformationDetails...)
	}
	return step
}
