package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/kwilcz/traceflow/internal/trace"
)

// AssertionError carries the expected/actual pair of a failed assertion.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion %s failed: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions checks every assertion against a parse result and
// returns one message per failure.
func EvaluateAssertions(result trace.TraceParseResult, assertions []Assertion) []string {
	var failures []string
	for i, assertion := range assertions {
		if err := evaluateAssertion(result, assertion); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluateAssertion(result trace.TraceParseResult, a Assertion) error {
	switch a.Type {
	case AssertStepCount:
		return assertStepCount(result, a)
	case AssertStepResult:
		return assertStepResult(result, a)
	case AssertStepProfiles:
		return assertStepProfiles(result, a)
	case AssertClaimsContain:
		return assertClaimsContain(result, a)
	case AssertNodeExecution:
		return assertNodeExecution(result, a)
	case AssertFinalClaims:
		return assertFinalClaims(result, a)
	case AssertDiagnosticContains:
		return assertDiagnosticContains(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// stepAt bounds-checks a step index.
func stepAt(result trace.TraceParseResult, seq int) (trace.TraceStep, error) {
	if seq < 0 || seq >= len(result.TraceSteps) {
		return trace.TraceStep{}, &AssertionError{
			Type:     "step index",
			Expected: fmt.Sprintf("step %d to exist", seq),
			Actual:   fmt.Sprintf("trace has %d steps", len(result.TraceSteps)),
		}
	}
	return result.TraceSteps[seq], nil
}

func assertStepCount(result trace.TraceParseResult, a Assertion) error {
	if len(result.TraceSteps) != a.Count {
		return &AssertionError{
			Type:     AssertStepCount,
			Expected: fmt.Sprintf("%d steps", a.Count),
			Actual:   fmt.Sprintf("%d steps", len(result.TraceSteps)),
		}
	}
	return nil
}

func assertStepResult(result trace.TraceParseResult, a Assertion) error {
	step, err := stepAt(result, a.Step)
	if err != nil {
		return err
	}
	if string(step.Result) != a.Result {
		return &AssertionError{
			Type:     AssertStepResult,
			Expected: fmt.Sprintf("step %d result %s", a.Step, a.Result),
			Actual:   string(step.Result),
		}
	}
	return nil
}

func assertStepProfiles(result trace.TraceParseResult, a Assertion) error {
	step, err := stepAt(result, a.Step)
	if err != nil {
		return err
	}
	expected := a.Profiles
	if expected == nil {
		expected = []string{}
	}
	actual := step.TechnicalProfiles
	if actual == nil {
		actual = []string{}
	}
	if !reflect.DeepEqual(expected, actual) {
		return &AssertionError{
			Type:     AssertStepProfiles,
			Expected: fmt.Sprintf("step %d profiles %v", a.Step, expected),
			Actual:   fmt.Sprintf("%v", actual),
		}
	}
	return nil
}

func assertClaimsContain(result trace.TraceParseResult, a Assertion) error {
	step, err := stepAt(result, a.Step)
	if err != nil {
		return err
	}
	return matchClaims(AssertClaimsContain, fmt.Sprintf("step %d", a.Step), step.ClaimsSnapshot, a.Claims)
}

func assertFinalClaims(result trace.TraceParseResult, a Assertion) error {
	if len(result.TraceSteps) == 0 {
		return &AssertionError{
			Type:     AssertFinalClaims,
			Expected: "at least one step",
			Actual:   "empty trace",
		}
	}
	last := result.TraceSteps[len(result.TraceSteps)-1]
	return matchClaims(AssertFinalClaims, "final step", last.ClaimsSnapshot, a.Claims)
}

// matchClaims checks subset containment: every expected claim must be
// present with the expected value, extra claims are ignored.
func matchClaims(assertType, where string, actual, expected map[string]string) error {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok {
			return &AssertionError{
				Type:     assertType,
				Expected: fmt.Sprintf("%s claim %q = %q", where, key, want),
				Actual:   "claim absent",
			}
		}
		if got != want {
			return &AssertionError{
				Type:     assertType,
				Expected: fmt.Sprintf("%s claim %q = %q", where, key, want),
				Actual:   fmt.Sprintf("%q", got),
			}
		}
	}
	return nil
}

func assertNodeExecution(result trace.TraceParseResult, a Assertion) error {
	node, ok := result.ExecutionMap[a.Node]
	if !ok {
		return &AssertionError{
			Type:     AssertNodeExecution,
			Expected: fmt.Sprintf("node %s in execution map", a.Node),
			Actual:   "node absent",
		}
	}
	if a.Visits > 0 && node.VisitCount != a.Visits {
		return &AssertionError{
			Type:     AssertNodeExecution,
			Expected: fmt.Sprintf("node %s visited %d time(s)", a.Node, a.Visits),
			Actual:   fmt.Sprintf("%d visit(s)", node.VisitCount),
		}
	}
	if a.Status != "" && string(node.Status) != a.Status {
		return &AssertionError{
			Type:     AssertNodeExecution,
			Expected: fmt.Sprintf("node %s status %s", a.Node, a.Status),
			Actual:   string(node.Status),
		}
	}
	return nil
}

func assertDiagnosticContains(result trace.TraceParseResult, a Assertion) error {
	for _, diag := range result.Errors {
		if strings.Contains(diag, a.Message) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertDiagnosticContains,
		Expected: fmt.Sprintf("diagnostic containing %q", a.Message),
		Actual:   fmt.Sprintf("diagnostics %v", result.Errors),
	}
}
