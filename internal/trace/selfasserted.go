package trace

// interpretSelfAsserted handles self-asserted (user input form)
// validation. A failed validation is not a step error - the user retries
// within the same step - so only affirmative facts are extracted.
func interpretSelfAsserted(ctx Context) InterpretResult {
	hr := ctx.Result
	if hr == nil {
		return absorb()
	}
	tp, ok := resolveTechnicalProfile(hr, ctx.Bag)
	if !ok {
		return absorb()
	}
	ctx.Step.AddTechnicalProfile(tp)
	return update()
}

// interpretDisplayControl captures display-control action invocations,
// including any technical profiles and claims transformations executed
// under the action.
func interpretDisplayControl(ctx Context) InterpretResult {
	hr := ctx.Result
	if hr == nil || hr.RecorderRecord == nil {
		return absorb()
	}
	controls := hr.RecorderRecord.DisplayControls()
	if len(controls) == 0 {
		return absorb()
	}
	for _, dc := range controls {
		ctx.Step.AddDisplayControl(dc.ID)
		if dc.Action != "" {
			ctx.Step.AddDisplayControlAction(dc.ID + "." + dc.Action)
		}
		for _, tp := range dc.TechnicalProfiles {
			ctx.Step.AddTechnicalProfile(tp)
		}
		for _, ct := range dc.Transformations {
			ctx.Step.AddClaimsTransformation(ct.ID)
			ctx.Step.AddClaimsTransformationDetail(ClaimsTransformationDetail{
				ID:           ct.ID,
				InputClaims:  ct.InputClaims,
				OutputClaims: ct.OutputClaims,
			})
		}
	}
	return update()
}
