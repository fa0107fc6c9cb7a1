package trace

// NodeExecution aggregates every visit to one graph node across the
// reconstructed trace. A node revisited in a loop accumulates visit counts
// and step indices; its status merges by severity.
type NodeExecution struct {
	Status     StepResult `json:"status"`
	VisitCount int        `json:"visit_count"`
	StepIndices []int     `json:"step_indices"`
}

// statusPriority orders step results for merging: Error > PendingInput >
// Success > Skipped. A node visited once with an error and once
// successfully is reported Error.
var statusPriority = map[StepResult]int{
	ResultError:        3,
	ResultPendingInput: 2,
	ResultSuccess:      1,
	ResultSkipped:      0,
}

// mergeStatus picks the higher-priority of two results.
func mergeStatus(a, b StepResult) StepResult {
	if statusPriority[b] > statusPriority[a] {
		return b
	}
	return a
}

// ExecutionMapBuilder aggregates sealed steps per graph node. Pure
// aggregation, no error conditions.
type ExecutionMapBuilder struct {
	nodes map[string]*NodeExecution
}

// NewExecutionMapBuilder creates an empty builder.
func NewExecutionMapBuilder() *ExecutionMapBuilder {
	return &ExecutionMapBuilder{nodes: make(map[string]*NodeExecution)}
}

// AddStep registers a sealed step under its graph node, creating the node
// entry on first visit and merging on revisits.
func (b *ExecutionMapBuilder) AddStep(step TraceStep) {
	node, ok := b.nodes[step.GraphNodeID]
	if !ok {
		b.nodes[step.GraphNodeID] = &NodeExecution{
			Status:      step.Result,
			VisitCount:  1,
			StepIndices: []int{step.SequenceNumber},
		}
		return
	}
	node.Status = mergeStatus(node.Status, step.Result)
	node.VisitCount++
	node.StepIndices = append(node.StepIndices, step.SequenceNumber)
}

// Build returns the aggregated map by value, detached from the builder.
func (b *ExecutionMapBuilder) Build() map[string]NodeExecution {
	out := make(map[string]NodeExecution, len(b.nodes))
	for id, node := range b.nodes {
		indices := make([]int, len(node.StepIndices))
		copy(indices, node.StepIndices)
		out[id] = NodeExecution{
			Status:      node.Status,
			VisitCount:  node.VisitCount,
			StepIndices: indices,
		}
	}
	return out
}
