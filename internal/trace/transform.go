package trace

// interpretClaimsTransformation captures the claims transformations
// applied during a step, with their input/output claim lists for the
// detail view.
func interpretClaimsTransformation(ctx Context) InterpretResult {
	hr := ctx.Result
	if hr == nil || hr.RecorderRecord == nil {
		return absorb()
	}
	transformations := hr.RecorderRecord.ClaimsTransformations()
	if len(transformations) == 0 {
		return absorb()
	}
	for _, ct := range transformations {
		ctx.Step.AddClaimsTransformation(ct.ID)
		ctx.Step.AddClaimsTransformationDetail(ClaimsTransformationDetail{
			ID:           ct.ID,
			InputClaims:  ct.InputClaims,
			OutputClaims: ct.OutputClaims,
		})
	}
	return update()
}
