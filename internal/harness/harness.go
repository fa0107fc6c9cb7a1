// Package harness runs declarative reconstruction scenarios: synthetic
// journeys defined in YAML are expanded into log batches, fed through the
// trace parser, and checked against assertions and golden snapshots.
//
// Scenarios complement the parser's unit tests. A unit test pins one
// mechanism; a scenario pins the observable shape of a whole journey, in
// a form reviewable without reading Go.
package harness

import (
	"fmt"
	"time"

	"github.com/kwilcz/traceflow/internal/clip"
	"github.com/kwilcz/traceflow/internal/testutil"
	"github.com/kwilcz/traceflow/internal/trace"
)

// Result is the outcome of one scenario run.
type Result struct {
	ScenarioName string
	Parse        trace.TraceParseResult

	// Failures holds one message per failed assertion. Empty means the
	// scenario passed.
	Failures []string
}

// Passed reports whether every assertion held.
func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// Run expands a scenario into log batches, reconstructs the trace, and
// evaluates the scenario's assertions. An error is returned only for
// malformed scenarios; assertion failures land in Result.Failures.
func Run(scenario *Scenario) (*Result, error) {
	inputs, err := BuildInputs(scenario)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}

	result := &Result{
		ScenarioName: scenario.Name,
		Parse:        trace.Parse(inputs),
	}
	result.Failures = EvaluateAssertions(result.Parse, scenario.Assertions)
	return result, nil
}

// RunFile loads a scenario from a YAML file and runs it.
func RunFile(path string) (*Result, error) {
	scenario, err := LoadScenario(path)
	if err != nil {
		return nil, err
	}
	return Run(scenario)
}

// BuildInputs expands the scenario's batch specs into concrete log
// batches using the journey fixture builder. ReverseInput flips the
// arrival order; timestamps keep the logical order, so the parser must
// stitch.
func BuildInputs(scenario *Scenario) ([]clip.TraceLogInput, error) {
	journey := testutil.NewJourney(scenario.PolicyID, scenario.CorrelationID)

	for i, spec := range scenario.Batches {
		batch := journey.Batch(time.Duration(spec.OffsetMS) * time.Millisecond)
		if spec.Event != "" {
			batch.Headers(spec.Event)
		}
		for j, c := range spec.Clips {
			if err := appendClip(batch, c); err != nil {
				return nil, fmt.Errorf("batches[%d].clips[%d]: %w", i, j, err)
			}
		}
		batch.Done()
	}

	inputs := journey.Build()
	if scenario.ReverseInput {
		for i, j := 0, len(inputs)-1; i < j; i, j = i+1, j-1 {
			inputs[i], inputs[j] = inputs[j], inputs[i]
		}
	}
	return inputs, nil
}

func appendClip(batch *testutil.BatchBuilder, c ClipSpec) error {
	switch {
	case c.Boundary != nil:
		batch.BoundaryWith(*c.Boundary, specBag(c.Statebag, c.Claims))
	case c.Action != "":
		batch.Action(c.Action)
	case c.Predicate != "":
		batch.Predicate(c.Predicate)
	case c.Result != nil:
		batch.Result(buildResult(c.Result))
	default:
		return fmt.Errorf("empty clip spec")
	}
	return nil
}

// specBag folds scalar statebag entries and optional claims into a
// statebag. nil when both are empty, so boundaries stay minimal.
func specBag(statebag, claims map[string]string) clip.Statebag {
	if len(statebag) == 0 && len(claims) == 0 {
		return nil
	}
	if len(claims) == 0 {
		return testutil.Bag(statebag)
	}
	return testutil.BagWithClaims(statebag, claims)
}

func buildResult(spec *ResultSpec) clip.HandlerResult {
	hr := clip.HandlerResult{
		Result:   true,
		Statebag: specBag(spec.Statebag, spec.Claims),
	}
	if spec.Predicate != "" {
		hr.PredicateResult = spec.Predicate
		hr.Result = spec.Predicate == "True"
	}
	if spec.Error != nil {
		hr.Exception = &clip.Exception{
			Message: spec.Error.Message,
			HResult: spec.Error.HResult,
		}
	}
	return hr
}
