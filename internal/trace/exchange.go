package trace

import (
	"strconv"
	"strings"

	"github.com/kwilcz/traceflow/internal/clip"
)

// resolveTechnicalProfile extracts the technical profile identity for a
// claims exchange, trying in order:
//
//  1. InitiatingClaimsExchange.TechnicalProfileId
//  2. GettingClaims -> InitiatingBackendClaimsExchange.TechnicalProfileId
//  3. the CTP statebag entry with its trailing ":stepNumber" suffix stripped
//
// The precedence order is a contract of the upstream log format and must
// be preserved exactly.
func resolveTechnicalProfile(hr *clip.HandlerResult, bag StateReader) (string, bool) {
	if hr != nil && hr.RecorderRecord != nil {
		if ice, ok := hr.RecorderRecord.InitiatingClaimsExchange(); ok {
			return ice.TechnicalProfileID, true
		}
		if backend, ok := hr.RecorderRecord.BackendTechnicalProfile(); ok {
			return backend, true
		}
	}
	if bag != nil {
		if ctp, ok := bag.Get(clip.KeyCurrentTechnicalProfile); ok && ctp != "" {
			return stripStepSuffix(ctp), true
		}
	}
	return "", false
}

// stripStepSuffix removes the trailing ":N" step-number suffix from a CTP
// value. Only a numeric suffix is stripped; a profile id that happens to
// contain a colon elsewhere is preserved.
func stripStepSuffix(ctp string) string {
	idx := strings.LastIndexByte(ctp, ':')
	if idx <= 0 {
		return ctp
	}
	if _, err := strconv.Atoi(ctp[idx+1:]); err != nil {
		return ctp
	}
	return ctp[:idx]
}

// interpretClaimsExchangeAction handles the initiating claims exchange:
// the runtime committed to invoking a technical profile.
func interpretClaimsExchangeAction(ctx Context) InterpretResult {
	tp, ok := resolveTechnicalProfile(ctx.Result, ctx.Bag)
	if !ok {
		return absorb()
	}
	ctx.Step.AddTechnicalProfile(tp)
	if ctx.Result != nil && ctx.Result.RecorderRecord != nil {
		if ice, ok := ctx.Result.RecorderRecord.InitiatingClaimsExchange(); ok {
			ctx.Step.AddTechnicalProfileDetail(TechnicalProfileDetail{
				ID:           ice.TechnicalProfileID,
				ProviderType: ice.ProtocolProviderType,
			})
		}
	}
	return update()
}

// interpretClaimsExchangeRedirect marks the step as awaiting an external
// round-trip to an identity provider.
func interpretClaimsExchangeRedirect(ctx Context) InterpretResult {
	if tp, ok := resolveTechnicalProfile(ctx.Result, ctx.Bag); ok {
		ctx.Step.AddTechnicalProfile(tp)
	}
	ctx.Step.MarkAwaitingInput()
	return update()
}

// interpretClaimsExchangeSubmit handles the return leg from an external
// identity provider: the round-trip resolved, and the step seals.
func interpretClaimsExchangeSubmit(ctx Context) InterpretResult {
	if tp, ok := resolveTechnicalProfile(ctx.Result, ctx.Bag); ok {
		ctx.Step.AddTechnicalProfile(tp)
	}
	ctx.Step.ClearAwaitingInput()
	return InterpretResult{Outcome: OutcomeFinalize}
}

// interpretClaimsExchangeSelect extracts the list of offered providers
// from nested EnabledForUserJourneysTrue groups of a selection exchange.
func interpretClaimsExchangeSelect(ctx Context) InterpretResult {
	hr := ctx.Result
	if hr == nil || hr.RecorderRecord == nil {
		return absorb()
	}
	offered := hr.RecorderRecord.EnabledTechnicalProfiles()
	if len(offered) == 0 {
		return absorb()
	}
	ctx.Step.MarkInteractive()
	for _, tp := range offered {
		ctx.Step.AddSelectableOption(tp)
	}
	return update()
}
