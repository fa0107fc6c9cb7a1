package trace

// TraceParseResult is the complete output of one Parse call.
//
// Success is true iff at least one step was produced. A false Success is
// an empty-result signal for the caller ("render empty state"), never a
// crash: Errors carries the diagnostics.
type TraceParseResult struct {
	Success       bool                     `json:"success"`
	TraceSteps    []TraceStep              `json:"trace_steps"`
	ExecutionMap  map[string]NodeExecution `json:"execution_map"`
	FinalStatebag map[string]string        `json:"final_statebag"`
	MainJourneyID string                   `json:"main_journey_id"`
	Errors        []string                 `json:"errors"`
}

// TraceStepsForNode returns every step sealed under the given graph node
// id, in sequence order. Nodes revisited in loops yield multiple steps.
func TraceStepsForNode(result TraceParseResult, graphNodeID string) []TraceStep {
	var steps []TraceStep
	for _, step := range result.TraceSteps {
		if step.GraphNodeID == graphNodeID {
			steps = append(steps, step)
		}
	}
	return steps
}
