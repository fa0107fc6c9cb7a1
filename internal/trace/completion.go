package trace

// interpretJourneyCompletion recognizes the terminal relying-party
// response handler: the step is the journey's final step and seals
// immediately.
func interpretJourneyCompletion(ctx Context) InterpretResult {
	ctx.Step.MarkFinal()
	if tp, ok := resolveTechnicalProfile(ctx.Result, ctx.Bag); ok {
		ctx.Step.AddTechnicalProfile(tp)
	}
	return InterpretResult{Outcome: OutcomeFinalize}
}

// interpretClaimsIssuance attaches the technical profile that issued
// claims, using the standard extraction chain.
func interpretClaimsIssuance(ctx Context) InterpretResult {
	tp, ok := resolveTechnicalProfile(ctx.Result, ctx.Bag)
	if !ok {
		return absorb()
	}
	ctx.Step.AddTechnicalProfile(tp)
	return update()
}

// interpretSubJourneyInvoke pushes a nested journey context when the
// recorder announces entry into a sub-journey.
func interpretSubJourneyInvoke(ctx Context) InterpretResult {
	hr := ctx.Result
	if hr == nil || hr.RecorderRecord == nil {
		return absorb()
	}
	sub, ok := hr.RecorderRecord.InvokingSubJourney()
	if !ok {
		return absorb()
	}
	return InterpretResult{Outcome: OutcomeUpdate, PushJourney: &sub}
}

// interpretSubJourneyReturn pops back to the parent journey.
func interpretSubJourneyReturn(ctx Context) InterpretResult {
	hr := ctx.Result
	if hr != nil && hr.RecorderRecord != nil && !hr.RecorderRecord.SubJourneyCompleted() {
		// A completion handler without the completion record is a
		// restatement; absorb rather than unwind the stack twice.
		return absorb()
	}
	return InterpretResult{Outcome: OutcomeUpdate, PopJourney: true}
}

// interpretSetup absorbs machine-state bookkeeping handlers that carry no
// domain facts. Their statebags are still applied by the parser before
// dispatch.
func interpretSetup(ctx Context) InterpretResult {
	return absorb()
}
