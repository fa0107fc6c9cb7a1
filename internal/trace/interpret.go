package trace

import "github.com/kwilcz/traceflow/internal/clip"

// Outcome classifies what an interpreter wants the parser to do with the
// current clip.
type Outcome int

const (
	// OutcomeAbsorb means no fact was extracted; the parser continues.
	OutcomeAbsorb Outcome = iota

	// OutcomeUpdate means extracted facts were written to the
	// step-builder and/or returned as statebag deltas; the current step
	// stays open.
	OutcomeUpdate

	// OutcomeFinalize means the current step must be sealed now. Used by
	// terminal handlers (relying-party response, submitted exchange).
	OutcomeFinalize
)

// StateReader is the read-only statebag view handed to interpreters. The
// CTP fallback of the technical-profile extraction chain reads through
// it; interpreters never mutate the accumulator directly.
type StateReader interface {
	Get(key string) (string, bool)
}

// Context bundles everything an interpreter may consult: the resolved
// dispatch kind, the raw handler name, the handler result payload
// (nullable - Predicate clips without a trailing result dispatch with nil),
// the step under construction, and the read-only statebag view.
type Context struct {
	Kind    HandlerKind
	Handler string
	Result  *clip.HandlerResult
	Step    *StepBuilder
	Bag     StateReader
}

// InterpretResult is the sole mutation channel back to the parser besides
// direct step-builder calls: statebag deltas to fold into the
// accumulator, plus journey-stack signals.
type InterpretResult struct {
	Outcome  Outcome
	Statebag clip.Statebag

	PushJourney *clip.SubJourneyInfo
	PopJourney  bool
}

func absorb() InterpretResult {
	return InterpretResult{Outcome: OutcomeAbsorb}
}

func update() InterpretResult {
	return InterpretResult{Outcome: OutcomeUpdate}
}

// InterpretFunc is the common interpreter contract. Implementations are
// side-effect-free on global state: all mutation flows through the
// returned result and documented calls into ctx.Step.
type InterpretFunc func(ctx Context) InterpretResult

// interpreters is the exhaustive dispatch table. Every HandlerKind except
// KindUnknown has an entry; KindUnknown is absorbed by Interpret itself.
var interpreters = map[HandlerKind]InterpretFunc{
	KindStepInvoke:                  interpretStepInvoke,
	KindClaimsExchangeAction:        interpretClaimsExchangeAction,
	KindClaimsExchangeRedirect:      interpretClaimsExchangeRedirect,
	KindClaimsExchangeSubmit:        interpretClaimsExchangeSubmit,
	KindClaimsExchangeSelect:        interpretClaimsExchangeSelect,
	KindHomeRealmDiscovery:          interpretHomeRealmDiscovery,
	KindHomeRealmDiscoverySelection: interpretHomeRealmSelection,
	KindClaimsTransformation:        interpretClaimsTransformation,
	KindSSOParticipant:              interpretSSOParticipant,
	KindSSOActivation:               interpretSSOActivation,
	KindSSOReset:                    interpretSSOReset,
	KindJourneyCompletion:           interpretJourneyCompletion,
	KindClaimsIssuance:              interpretClaimsIssuance,
	KindSelfAsserted:                interpretSelfAsserted,
	KindDisplayControl:              interpretDisplayControl,
	KindSubJourneyInvoke:            interpretSubJourneyInvoke,
	KindSubJourneyReturn:            interpretSubJourneyReturn,
	KindSetup:                       interpretSetup,
}

// Interpret dispatches a clip to the interpreter owning its handler kind.
// Unrecognized handler names are silently absorbed, forward-compatible
// with orchestration-runtime additions.
func Interpret(ctx Context) InterpretResult {
	fn, ok := interpreters[ctx.Kind]
	if !ok {
		return absorb()
	}
	return fn(ctx)
}
