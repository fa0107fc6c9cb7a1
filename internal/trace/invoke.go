package trace

// interpretStepInvoke handles the step-precondition handlers: should the
// step run, and which technical profiles are candidates.
//
// The candidate heuristic: collect every nested
// TechnicalProfileEnabled.TechnicalProfile under repeated
// EnabledForUserJourneysTrue groups, deduplicated. Exactly one candidate
// is the step's triggered profile. More than one makes the step an
// interactive choice: the candidates become selectable options and MUST
// NOT flow into TechnicalProfiles (HRD option leakage is the bug class
// this guards against).
//
// An InitiatingClaimsExchange record always wins over the heuristic.
func interpretStepInvoke(ctx Context) InterpretResult {
	hr := ctx.Result
	if hr == nil {
		return absorb()
	}

	if hr.PredicateResult == "False" {
		ctx.Step.MarkSkipped()
		return update()
	}

	rec := hr.RecorderRecord
	if rec == nil {
		return absorb()
	}

	if ice, ok := rec.InitiatingClaimsExchange(); ok {
		ctx.Step.AddTechnicalProfile(ice.TechnicalProfileID)
		ctx.Step.AddTechnicalProfileDetail(TechnicalProfileDetail{
			ID:           ice.TechnicalProfileID,
			ProviderType: ice.ProtocolProviderType,
		})
		return update()
	}

	candidates := newOrderedSet()
	for _, tp := range rec.EnabledTechnicalProfiles() {
		candidates.add(tp)
	}

	switch names := candidates.list(); len(names) {
	case 0:
		return absorb()
	case 1:
		ctx.Step.AddTechnicalProfile(names[0])
		return update()
	default:
		ctx.Step.MarkInteractive()
		for _, name := range names {
			ctx.Step.AddSelectableOption(name)
		}
		return update()
	}
}
