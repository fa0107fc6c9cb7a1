package trace

import "github.com/kwilcz/traceflow/internal/clip"

// interpretHomeRealmDiscovery extracts the provider options offered by a
// home-realm-discovery step. The options go to SelectableOptions only,
// never to TechnicalProfiles: they are candidates, not invocations.
func interpretHomeRealmDiscovery(ctx Context) InterpretResult {
	hr := ctx.Result
	if hr == nil || hr.RecorderRecord == nil {
		return absorb()
	}
	options := hr.RecorderRecord.HomeRealmDiscoveryOptions()
	if len(options) == 0 {
		return absorb()
	}
	ctx.Step.MarkInteractive()
	for _, option := range options {
		ctx.Step.AddSelectableOption(option)
	}
	return update()
}

// interpretHomeRealmSelection records the provider the user chose. The
// selection is recorded as SelectedOption only; whether it triggers a
// claims exchange is reported separately by the exchange handlers within
// the same step boundary.
func interpretHomeRealmSelection(ctx Context) InterpretResult {
	hr := ctx.Result
	if hr == nil {
		return absorb()
	}
	if hr.RecorderRecord != nil {
		if selected, ok := hr.RecorderRecord.SelectedProvider(); ok {
			ctx.Step.SetSelectedOption(selected)
			return update()
		}
	}
	// Fall back to the CTP entry the selection wrote.
	if ctx.Bag != nil {
		if ctp, ok := ctx.Bag.Get(clip.KeyCurrentTechnicalProfile); ok && ctp != "" {
			ctx.Step.SetSelectedOption(stripStepSuffix(ctp))
			return update()
		}
	}
	return absorb()
}
