// Package trace reconstructs an ordered sequence of orchestration steps
// from an unordered, possibly fragmented stream of recorder clips.
//
// The entry point is Parse, a pure synchronous transformation from
// []clip.TraceLogInput to a TraceParseResult. Every accumulator (statebag,
// journey stack, execution map) is constructed fresh per call; there is no
// shared mutable state across invocations, so Parse is safe to call
// repeatedly or concurrently with distinct inputs.
//
// The pipeline, leaf to root:
//
//	handlers.go    handler-name registry (closed HandlerKind enum)
//	statebag.go    step-scoped vs. persistent claim accumulation
//	journey.go     nested sub-journey stack with snapshot/restore
//	execmap.go     per-node visit aggregation
//	step.go        StepBuilder -> immutable TraceStep
//	interpret.go   interpreter contract + exhaustive dispatch table
//	parser.go      the clip dispatcher state machine
//	diff.go        snapshot diffing for the presentation layer
//
// INVARIANTS:
//   - A fact captured for step N never appears on step M != N. All
//     per-step facts are re-derived from clips observed strictly between
//     that step's opening and sealing boundary.
//   - The step-scoped statebag is cleared exactly once per step boundary;
//     only the claims namespace survives.
//   - Interpretation never panics or returns an error on malformed input;
//     missing structure degrades to "no fact extracted".
package trace
