package trace_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwilcz/traceflow/internal/clip"
	"github.com/kwilcz/traceflow/internal/testutil"
	"github.com/kwilcz/traceflow/internal/trace"
)

func TestParseEndToEnd(t *testing.T) {
	j := testutil.NewJourney("B2C_1A_SignIn", "corr-1")
	j.Batch(0).
		Headers("AUTH").
		Boundary(0).
		Action(trace.HandlerSetupStateMachine).
		Result(clip.HandlerResult{Result: true}).
		Boundary(1).
		Predicate(trace.HandlerShouldStepBeInvoked).
		Result(clip.HandlerResult{
			Result:          true,
			PredicateResult: "True",
			RecorderRecord:  testutil.Rec(testutil.EnabledProfiles("SelfAsserted-Signin")),
		}).
		Done()
	j.Batch(time.Second).
		BoundaryWith(2, testutil.BagWithClaims(nil, map[string]string{"email": "user@example.com"})).
		Action(trace.HandlerInitiatingClaimsExchange).
		Result(clip.HandlerResult{
			Result:         true,
			RecorderRecord: testutil.Rec(testutil.InitiatingExchange("AAD-UserRead", "AzureActiveDirectoryProvider")),
		}).
		Boundary(3).
		Action(trace.HandlerSendRelyingPartyResponse).
		Result(clip.HandlerResult{Result: true}).
		Done()

	res := trace.Parse(j.Build())

	require.True(t, res.Success)
	require.Empty(t, res.Errors)
	require.Len(t, res.TraceSteps, 3, "step 0 is the pre-journey marker and is discarded")
	assert.Equal(t, "corr-1", res.MainJourneyID)

	s1, s2, s3 := res.TraceSteps[0], res.TraceSteps[1], res.TraceSteps[2]

	assert.Equal(t, 0, s1.SequenceNumber)
	assert.Equal(t, 1, s1.StepOrder)
	assert.Equal(t, "B2C_1A_SignIn-Step1", s1.GraphNodeID)
	assert.Equal(t, []string{"SelfAsserted-Signin"}, s1.TechnicalProfiles)
	assert.Empty(t, s1.ClaimsSnapshot, "claims arrive with the step-2 boundary, after step 1 sealed")

	assert.Equal(t, 2, s2.StepOrder)
	assert.Equal(t, []string{"AAD-UserRead"}, s2.TechnicalProfiles)
	assert.Equal(t, map[string]string{"email": "user@example.com"}, s2.ClaimsSnapshot)
	require.Len(t, s2.TechnicalProfileDetails, 1)
	assert.Equal(t, "AzureActiveDirectoryProvider", s2.TechnicalProfileDetails[0].ProviderType)

	assert.Equal(t, 3, s3.StepOrder)
	assert.True(t, s3.IsFinalStep)
	assert.Equal(t, trace.ResultSuccess, s3.Result)
	assert.Equal(t, map[string]string{"email": "user@example.com"}, s3.ClaimsSnapshot)

	require.Len(t, res.ExecutionMap, 3)
	node := res.ExecutionMap["B2C_1A_SignIn-Step2"]
	assert.Equal(t, 1, node.VisitCount)
	assert.Equal(t, []int{1}, node.StepIndices)

	assert.Equal(t, s3.StatebagSnapshot, res.FinalStatebag)
}

func TestParseIsIdempotent(t *testing.T) {
	j := testutil.NewJourney("B2C_1A_SignIn", "corr-1")
	j.Batch(0).
		Headers("AUTH").
		Boundary(1).
		Action(trace.HandlerInitiatingClaimsExchange).
		Result(clip.HandlerResult{
			Result:         true,
			RecorderRecord: testutil.Rec(testutil.InitiatingExchange("AAD-UserRead", "")),
		}).
		Boundary(2).
		Action(trace.HandlerSendRelyingPartyResponse).
		Result(clip.HandlerResult{Result: true}).
		Done()
	inputs := j.Build()

	first := trace.Parse(inputs)
	second := trace.Parse(inputs)
	require.Equal(t, first, second)
}

func TestParseStitchesOutOfOrderBatches(t *testing.T) {
	j := testutil.NewJourney("B2C_1A_SignIn", "corr-1")
	j.Batch(0).
		Headers("AUTH").
		Boundary(1).
		Action(trace.HandlerInitiatingClaimsExchange).
		Result(clip.HandlerResult{
			Result:         true,
			RecorderRecord: testutil.Rec(testutil.InitiatingExchange("Step1-Profile", "")),
		}).
		Done()
	j.Batch(2 * time.Second).
		Boundary(2).
		Action(trace.HandlerSendRelyingPartyResponse).
		Result(clip.HandlerResult{Result: true}).
		Done()

	inputs := j.Build()
	reversed := []clip.TraceLogInput{inputs[1], inputs[0]}

	res := trace.Parse(reversed)
	require.True(t, res.Success)
	require.Len(t, res.TraceSteps, 2)
	assert.Equal(t, 1, res.TraceSteps[0].StepOrder)
	assert.Equal(t, 2, res.TraceSteps[1].StepOrder)
	assert.Equal(t, []string{"Step1-Profile"}, res.TraceSteps[0].TechnicalProfiles)
}

func TestParseFiltersUnsupportedEventTypes(t *testing.T) {
	t.Run("only protocol traffic", func(t *testing.T) {
		j := testutil.NewJourney("B2C_1A_SignIn", "corr-1")
		j.Batch(0).Headers("OIDC").Boundary(1).Done()

		res := trace.Parse(j.Build())
		assert.False(t, res.Success)
		assert.Empty(t, res.TraceSteps)
		assert.Contains(t, res.Errors, "no supported event types found in trace logs")
	})

	t.Run("protocol batches dropped, journey batches kept", func(t *testing.T) {
		j := testutil.NewJourney("B2C_1A_SignIn", "corr-1")
		j.Batch(0).
			Headers("OIDC").
			Boundary(7). // must never surface
			Done()
		j.Batch(time.Second).
			Headers("AUTH").
			Boundary(1).
			Action(trace.HandlerSendRelyingPartyResponse).
			Result(clip.HandlerResult{Result: true}).
			Done()

		res := trace.Parse(j.Build())
		require.True(t, res.Success)
		require.Len(t, res.TraceSteps, 1)
		assert.Equal(t, 1, res.TraceSteps[0].StepOrder)
	})
}

func TestParseNoStepsDiagnostic(t *testing.T) {
	j := testutil.NewJourney("B2C_1A_SignIn", "corr-1")
	j.Batch(0).
		Headers("AUTH").
		Action(trace.HandlerSetupStateMachine).
		Result(clip.HandlerResult{Result: true}).
		Done()

	res := trace.Parse(j.Build())
	assert.False(t, res.Success)
	assert.Empty(t, res.TraceSteps)
	assert.Contains(t, res.Errors, "no orchestration steps found in trace logs")
}

func TestParseDiscardsFactsOutsideSteps(t *testing.T) {
	j := testutil.NewJourney("B2C_1A_SignIn", "corr-1")
	j.Batch(0).
		Headers("AUTH").
		// Before any boundary: statebag applies but facts have no home.
		Action(trace.HandlerInitiatingClaimsExchange).
		Result(clip.HandlerResult{
			Result:         true,
			RecorderRecord: testutil.Rec(testutil.InitiatingExchange("Orphan-Profile", "")),
		}).
		Boundary(1).
		Action(trace.HandlerSendRelyingPartyResponse).
		Result(clip.HandlerResult{Result: true}).
		Done()

	res := trace.Parse(j.Build())
	require.Len(t, res.TraceSteps, 1)
	assert.NotContains(t, res.TraceSteps[0].TechnicalProfiles, "Orphan-Profile",
		"facts observed outside a step boundary never attach to a later step")
}

func TestParseHomeRealmOptionsDoNotLeakAcrossBatches(t *testing.T) {
	hrdRecord := testutil.Rec(testutil.Nested("HomeRealmDiscovery", testutil.Rec(
		testutil.Nested("ClaimsProviderSelection", testutil.Rec(testutil.Str("TechnicalProfile", "Facebook-OAuth"))),
		testutil.Nested("ClaimsProviderSelection", testutil.Rec(testutil.Str("TechnicalProfile", "Google-OAuth"))),
	)))

	j := testutil.NewJourney("B2C_1A_SignIn", "corr-1")
	j.Batch(0).
		Headers("AUTH").
		Boundary(1).
		Action(trace.HandlerHomeRealmDiscovery).
		Result(clip.HandlerResult{Result: true, RecorderRecord: hrdRecord}).
		Done()
	// The user's selection arrives in a later batch continuing step 1.
	j.Batch(3 * time.Second).
		Action(trace.HandlerHomeRealmSelection).
		Result(clip.HandlerResult{
			Result:         true,
			RecorderRecord: testutil.Rec(testutil.Str("SelectedProvider", "Google-OAuth")),
		}).
		Boundary(2).
		Action(trace.HandlerSendRelyingPartyResponse).
		Result(clip.HandlerResult{Result: true}).
		Done()

	res := trace.Parse(j.Build())
	require.Len(t, res.TraceSteps, 2)

	s1 := res.TraceSteps[0]
	assert.True(t, s1.IsInteractiveStep)
	assert.Equal(t, []string{"Facebook-OAuth", "Google-OAuth"}, s1.SelectableOptions)
	assert.Equal(t, "Google-OAuth", s1.SelectedOption)
	assert.Empty(t, s1.TechnicalProfiles, "offered providers are options, not invocations")

	s2 := res.TraceSteps[1]
	assert.Empty(t, s2.SelectableOptions, "options never leak into the following step")
	assert.Empty(t, s2.SelectedOption)
}

func TestParseCurrentProfileDoesNotLeakIntoNextStep(t *testing.T) {
	j := testutil.NewJourney("B2C_1A_SignIn", "corr-1")
	j.Batch(0).
		Headers("AUTH").
		Boundary(1).
		Action(trace.HandlerInitiatingClaimsExchange).
		Result(clip.HandlerResult{
			Result: true,
			Statebag: testutil.Bag(map[string]string{
				clip.KeyCurrentTechnicalProfile: "AAD-UserRead:1",
			}),
		}).
		Boundary(2).
		// Step 2 runs only a transformation predicate with no record:
		// nothing resolvable, so no profile may be attributed to it.
		Predicate(trace.HandlerEvaluateTransformation).
		Result(clip.HandlerResult{Result: true}).
		Done()

	res := trace.Parse(j.Build())
	require.Len(t, res.TraceSteps, 2)

	s1 := res.TraceSteps[0]
	assert.Equal(t, []string{"AAD-UserRead"}, s1.TechnicalProfiles)
	assert.Contains(t, s1.StatebagSnapshot, clip.KeyCurrentTechnicalProfile)

	s2 := res.TraceSteps[1]
	assert.Empty(t, s2.TechnicalProfiles, "step 1's profile must not be attributed to step 2")
	assert.NotContains(t, s2.StatebagSnapshot, clip.KeyCurrentTechnicalProfile,
		"the step-scoped profile entry clears at the boundary")
}

func TestParseSkippedAndFailedSteps(t *testing.T) {
	j := testutil.NewJourney("B2C_1A_SignIn", "corr-1")
	j.Batch(0).
		Headers("AUTH").
		Boundary(1).
		Predicate(trace.HandlerShouldStepBeInvoked).
		Result(clip.HandlerResult{PredicateResult: "False"}).
		Boundary(2).
		Action(trace.HandlerInitiatingClaimsExchange).
		Result(clip.HandlerResult{
			Exception: &clip.Exception{Message: "claims exchange failed", HResult: "0x80131500"},
		}).
		Boundary(3).
		Action(trace.HandlerSendRelyingPartyResponse).
		Result(clip.HandlerResult{Result: true}).
		Done()

	res := trace.Parse(j.Build())
	require.Len(t, res.TraceSteps, 3)

	assert.Equal(t, trace.ResultSkipped, res.TraceSteps[0].Result)
	assert.Equal(t, trace.ResultError, res.TraceSteps[1].Result)
	assert.Equal(t, "claims exchange failed", res.TraceSteps[1].ErrorMessage)
	assert.Equal(t, "0x80131500", res.TraceSteps[1].ErrorHResult)
	assert.Equal(t, trace.ResultSuccess, res.TraceSteps[2].Result)
}

func TestParsePendingRedirectAtStreamEnd(t *testing.T) {
	j := testutil.NewJourney("B2C_1A_SignIn", "corr-1")
	j.Batch(0).
		Headers("AUTH").
		Boundary(1).
		Action(trace.HandlerClaimsExchangeRedirect).
		Result(clip.HandlerResult{
			Result:   true,
			Statebag: testutil.Bag(map[string]string{clip.KeyCurrentTechnicalProfile: "Facebook-OAuth:1"}),
		}).
		Done()

	res := trace.Parse(j.Build())
	require.Len(t, res.TraceSteps, 1)
	step := res.TraceSteps[0]
	assert.Equal(t, trace.ResultPendingInput, step.Result,
		"the journey is mid round-trip when the log ends")
	assert.Equal(t, []string{"Facebook-OAuth"}, step.TechnicalProfiles)
}

func TestParseSubJourneyNesting(t *testing.T) {
	j := testutil.NewJourney("B2C_1A_SignIn", "corr-1")
	j.Batch(0).
		Headers("AUTH").
		Boundary(1).
		Action(trace.HandlerInvokeSubJourney).
		Result(clip.HandlerResult{
			Result: true,
			RecorderRecord: testutil.Rec(testutil.Nested("InvokingSubJourney", testutil.Rec(
				testutil.Str("Id", "sub-reset"),
				testutil.Str("Name", "PasswordReset"),
			))),
		}).
		Boundary(2).
		Action(trace.HandlerSubJourneyCompletion).
		Result(clip.HandlerResult{
			Result:         true,
			RecorderRecord: testutil.Rec(testutil.Str("SubJourneyCompleted", "True")),
		}).
		Boundary(3).
		Action(trace.HandlerSendRelyingPartyResponse).
		Result(clip.HandlerResult{Result: true}).
		Done()

	res := trace.Parse(j.Build())
	require.Len(t, res.TraceSteps, 3)

	assert.Equal(t, "corr-1", res.TraceSteps[0].JourneyContextID)
	assert.Equal(t, 0, res.TraceSteps[0].JourneyDepth)

	assert.Equal(t, "sub-reset", res.TraceSteps[1].JourneyContextID)
	assert.Equal(t, 1, res.TraceSteps[1].JourneyDepth)

	assert.Equal(t, "corr-1", res.TraceSteps[2].JourneyContextID)
	assert.Equal(t, 0, res.TraceSteps[2].JourneyDepth)
}

func TestParseLoopRevisitMergesExecutionMap(t *testing.T) {
	j := testutil.NewJourney("B2C_1A_SignIn", "corr-1")
	j.Batch(0).
		Headers("AUTH").
		Boundary(1).
		Action(trace.HandlerInitiatingClaimsExchange).
		Result(clip.HandlerResult{Result: true, RecorderRecord: testutil.Rec(testutil.InitiatingExchange("AAD-UserRead", ""))}).
		Boundary(2).
		Action(trace.HandlerSetupStateMachine).
		Result(clip.HandlerResult{Result: true}).
		Boundary(1).
		Action(trace.HandlerInitiatingClaimsExchange).
		Result(clip.HandlerResult{Exception: &clip.Exception{Message: "retry failed"}}).
		Done()

	res := trace.Parse(j.Build())
	require.Len(t, res.TraceSteps, 3)

	node, ok := res.ExecutionMap["B2C_1A_SignIn-Step1"]
	require.True(t, ok)
	assert.Equal(t, 2, node.VisitCount)
	assert.Equal(t, trace.ResultError, node.Status, "one failed revisit marks the node failed")
	assert.Equal(t, []int{0, 2}, node.StepIndices)

	revisits := trace.TraceStepsForNode(res, "B2C_1A_SignIn-Step1")
	require.Len(t, revisits, 2)
	assert.Equal(t, trace.ResultSuccess, revisits[0].Result)
	assert.Equal(t, trace.ResultError, revisits[1].Result)
}

func TestParseBoundaryRestatementDoesNotDuplicate(t *testing.T) {
	j := testutil.NewJourney("B2C_1A_SignIn", "corr-1")
	j.Batch(0).
		Headers("AUTH").
		Boundary(1).
		Boundary(1). // coordinator restates the current step
		Action(trace.HandlerSendRelyingPartyResponse).
		Result(clip.HandlerResult{Result: true}).
		Done()

	res := trace.Parse(j.Build())
	require.Len(t, res.TraceSteps, 1)
	assert.Equal(t, 1, res.TraceSteps[0].StepOrder)
	assert.Equal(t, 1, res.ExecutionMap["B2C_1A_SignIn-Step1"].VisitCount)
}

func TestParseClaimsPersistAcrossSteps(t *testing.T) {
	j := testutil.NewJourney("B2C_1A_SignIn", "corr-1")
	j.Batch(0).
		Headers("AUTH").
		BoundaryWith(1, testutil.BagWithClaims(
			map[string]string{"StepScoped": "only-step-1"},
			map[string]string{"email": "user@example.com"},
		)).
		Action(trace.HandlerSetupStateMachine).
		Result(clip.HandlerResult{Result: true}).
		BoundaryWith(2, testutil.BagWithClaims(nil, map[string]string{"displayName": "Ada"})).
		Action(trace.HandlerSendRelyingPartyResponse).
		Result(clip.HandlerResult{Result: true}).
		Done()

	res := trace.Parse(j.Build())
	require.Len(t, res.TraceSteps, 2)

	s1, s2 := res.TraceSteps[0], res.TraceSteps[1]
	assert.Equal(t, map[string]string{"email": "user@example.com"}, s1.ClaimsSnapshot)
	assert.Equal(t, "only-step-1", s1.StatebagSnapshot["StepScoped"])

	assert.Equal(t, map[string]string{
		"email":       "user@example.com",
		"displayName": "Ada",
	}, s2.ClaimsSnapshot, "claims accumulate for the whole journey")
	assert.NotContains(t, s2.StatebagSnapshot, "StepScoped")
}
