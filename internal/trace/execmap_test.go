package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sealedStepForNode(node string, seq int, result StepResult) TraceStep {
	return TraceStep{SequenceNumber: seq, GraphNodeID: node, Result: result}
}

func TestExecutionMapMergesRevisits(t *testing.T) {
	b := NewExecutionMapBuilder()
	b.AddStep(sealedStepForNode("P-Step2", 0, ResultSuccess))
	b.AddStep(sealedStepForNode("P-Step2", 3, ResultError))

	m := b.Build()
	require.Contains(t, m, "P-Step2")
	node := m["P-Step2"]
	assert.Equal(t, ResultError, node.Status, "error dominates the merged status")
	assert.Equal(t, 2, node.VisitCount)
	assert.Equal(t, []int{0, 3}, node.StepIndices)
}

func TestExecutionMapStatusPriority(t *testing.T) {
	cases := []struct {
		name string
		a, b StepResult
		want StepResult
	}{
		{"error beats success", ResultSuccess, ResultError, ResultError},
		{"error sticks", ResultError, ResultSuccess, ResultError},
		{"pending beats success", ResultSuccess, ResultPendingInput, ResultPendingInput},
		{"success beats skipped", ResultSkipped, ResultSuccess, ResultSuccess},
		{"equal stays", ResultSuccess, ResultSuccess, ResultSuccess},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, mergeStatus(tc.a, tc.b))
		})
	}
}

func TestExecutionMapBuildIsDetached(t *testing.T) {
	b := NewExecutionMapBuilder()
	b.AddStep(sealedStepForNode("P-Step1", 0, ResultSuccess))

	first := b.Build()
	b.AddStep(sealedStepForNode("P-Step1", 1, ResultSuccess))

	assert.Equal(t, 1, first["P-Step1"].VisitCount, "earlier Build results must not see later AddStep calls")
	assert.Equal(t, 2, b.Build()["P-Step1"].VisitCount)

	indices := first["P-Step1"].StepIndices
	indices[0] = 99
	assert.Equal(t, []int{0}, b.Build()["P-Step1"].StepIndices[:1])
}
