package trace

import "github.com/kwilcz/traceflow/internal/clip"

// Derived SSO session facts, written into the step-scoped statebag so
// they appear in the step's statebag snapshot. Step-scoped on purpose:
// session participation is re-asserted by the runtime each step.
const (
	// KeySSOParticipant records whether the current step participates in
	// an SSO session.
	KeySSOParticipant = "SSO_PARTICIPANT"

	// KeySSOActivated records whether an SSO session was activated.
	KeySSOActivated = "SSO_ACTIVATED"
)

func boolFact(key string, value bool) clip.Statebag {
	text := "False"
	if value {
		text = "True"
	}
	return clip.Statebag{key: clip.Entry{Key: key, Value: text}}
}

// interpretSSOParticipant derives the session-participation fact from
// either the predicate result or the handler result.
func interpretSSOParticipant(ctx Context) InterpretResult {
	hr := ctx.Result
	if hr == nil {
		return absorb()
	}
	return InterpretResult{
		Outcome:  OutcomeUpdate,
		Statebag: boolFact(KeySSOParticipant, hr.PredicateTrue()),
	}
}

// interpretSSOActivation derives the session-activation fact.
func interpretSSOActivation(ctx Context) InterpretResult {
	hr := ctx.Result
	if hr == nil {
		return absorb()
	}
	return InterpretResult{
		Outcome:  OutcomeUpdate,
		Statebag: boolFact(KeySSOActivated, hr.PredicateTrue()),
	}
}

// interpretSSOReset forces the participation fact off regardless of the
// handler outcome.
func interpretSSOReset(ctx Context) InterpretResult {
	return InterpretResult{
		Outcome:  OutcomeUpdate,
		Statebag: boolFact(KeySSOParticipant, false),
	}
}
