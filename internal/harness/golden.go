package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/kwilcz/traceflow/internal/clip"
	"github.com/kwilcz/traceflow/internal/trace"
)

// RunWithGolden runs a scenario, fails the test on any assertion failure,
// and byte-compares a canonical snapshot of the reconstructed trace
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("scenario run: %v", err)
	}
	for _, failure := range result.Failures {
		t.Error(failure)
	}

	snapshot, err := clip.MarshalCanonical(traceSnapshot(scenario.Name, result.Parse))
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, snapshot)
}

// traceSnapshot reduces a parse result to the canonical-JSON-safe shape
// pinned by golden files: per-step identity, result, profiles, and claims.
// Timestamps and statebags are deliberately excluded to keep snapshots
// readable and stable under fixture changes.
func traceSnapshot(name string, result trace.TraceParseResult) map[string]any {
	steps := make([]any, len(result.TraceSteps))
	for i, step := range result.TraceSteps {
		profiles := step.TechnicalProfiles
		if profiles == nil {
			profiles = []string{}
		}
		steps[i] = map[string]any{
			"seq":      step.SequenceNumber,
			"step":     step.StepOrder,
			"node":     step.GraphNodeID,
			"result":   string(step.Result),
			"profiles": profiles,
			"claims":   step.ClaimsSnapshot,
		}
	}

	diagnostics := result.Errors
	if diagnostics == nil {
		diagnostics = []string{}
	}

	return map[string]any{
		"scenario":    name,
		"journey":     result.MainJourneyID,
		"steps":       steps,
		"diagnostics": diagnostics,
	}
}
