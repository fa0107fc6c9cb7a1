package trace

import (
	"strconv"
	"time"

	"github.com/kwilcz/traceflow/internal/clip"
)

// Diagnostic messages reported through TraceParseResult.Errors.
const (
	diagNoSupportedEvents = "no supported event types found in trace logs"
	diagNoSteps           = "no orchestration steps found in trace logs"
)

// Parse reconstructs the ordered step sequence from a set of trace-log
// batches sharing one correlation. Pure transformation: all accumulators
// are constructed fresh, the inputs are not mutated, and reparsing the
// same slice yields a structurally identical result.
func Parse(inputs []clip.TraceLogInput) TraceParseResult {
	result := TraceParseResult{
		TraceSteps:    []TraceStep{},
		ExecutionMap:  map[string]NodeExecution{},
		FinalStatebag: map[string]string{},
		Errors:        []string{},
	}

	kept, supportedHeaders := filterSupported(inputs)
	if supportedHeaders == 0 {
		result.Errors = append(result.Errors, diagNoSupportedEvents)
		return result
	}

	stream := mergeInputs(kept)

	p := newParser()
	p.run(stream)

	result.TraceSteps = p.steps
	result.ExecutionMap = p.execMap.Build()
	result.FinalStatebag = p.lastSealedStatebag
	result.MainJourneyID = p.mainJourneyID
	result.Success = len(p.steps) > 0
	if !result.Success {
		result.Errors = append(result.Errors, diagNoSteps)
	}
	return result
}

// parser is the per-call state machine. Conceptually: Idle (no open step)
// -> InStep (builder != nil) -> Idle again after each seal, Done at stream
// exhaustion.
type parser struct {
	acc      *Accumulator
	journeys *JourneyStack
	execMap  *ExecutionMapBuilder

	steps   []TraceStep
	builder *StepBuilder // nil while Idle

	// pendingHandler is the statement of the most recently seen
	// handler-name-bearing clip (Action or Predicate). The following
	// HandlerResult supplies the payload and consumes it.
	pendingHandler string

	lastSealedStatebag map[string]string
	mainJourneyID      string
}

func newParser() *parser {
	return &parser{
		acc:                NewAccumulator(),
		execMap:            NewExecutionMapBuilder(),
		steps:              []TraceStep{},
		lastSealedStatebag: map[string]string{},
	}
}

func (p *parser) run(stream []sequencedClip) {
	for i := 0; i < len(stream); i++ {
		sc := stream[i]

		switch sc.Kind {
		case clip.KindHeaders:
			p.handleHeaders(sc)

		case clip.KindAction:
			if IsOrchestrationBoundary(sc.Statement) {
				// Boundary signal: coordinator Action immediately
				// followed by a HandlerResult carrying a new ORCH_CS.
				if i+1 < len(stream) {
					next := stream[i+1]
					if next.Kind == clip.KindHandlerResult && next.HandlerResult != nil {
						if newStep, ok := boundaryStep(next.HandlerResult); ok && p.isNewStep(newStep) {
							p.handleBoundary(newStep, next)
							i++ // boundary HandlerResult consumed
							continue
						}
					}
				}
				// Coordinator restatement without a new step number is
				// not a boundary; it carries no handler to dispatch.
				p.pendingHandler = sc.Statement
				continue
			}
			p.pendingHandler = sc.Statement

		case clip.KindPredicate:
			p.pendingHandler = sc.Statement

		case clip.KindHandlerResult:
			p.handleResult(sc)
		}
	}

	// Stream exhausted: seal any still-open step.
	p.sealOpenStep()
}

// handleHeaders records the main journey id and seeds the journey stack
// from the first Headers clip observed in merged order.
func (p *parser) handleHeaders(sc sequencedClip) {
	h := sc.Headers
	if h == nil {
		return
	}
	if p.mainJourneyID == "" {
		p.mainJourneyID = h.CorrelationID
	}
	if p.journeys == nil {
		p.journeys = NewJourneyStack(h.CorrelationID, h.PolicyID, sc.Timestamp)
	}
}

// isNewStep reports whether an incoming ORCH_CS value differs from the
// currently-open step, or whether no step is open at all.
func (p *parser) isNewStep(stepOrder int) bool {
	return p.builder == nil || stepOrder != p.builder.StepOrder()
}

// handleBoundary seals the open step, resets the step scope, applies the
// boundary statebag, and opens the next step. Step 0 is the pre-journey
// initialization marker and is discarded: the parser stays Idle.
func (p *parser) handleBoundary(stepOrder int, boundary sequencedClip) {
	p.sealOpenStep()
	p.pendingHandler = ""

	p.acc.Apply(boundary.HandlerResult.Statebag)

	if stepOrder == 0 {
		return
	}

	journey := p.currentJourney(boundary.Timestamp)
	p.journeys.SetLastStep(stepOrder)
	p.builder = NewStepBuilder(stepOrder, boundary.PolicyID, journey, boundary.Timestamp)
}

// handleResult folds a non-boundary HandlerResult into the accumulator
// and dispatches it to the interpreter owning the pending handler name.
func (p *parser) handleResult(sc sequencedClip) {
	hr := sc.HandlerResult
	if hr == nil {
		return
	}

	p.acc.Apply(hr.Statebag)

	handler := p.pendingHandler
	p.pendingHandler = ""

	if p.builder == nil {
		// Idle: statebag applied, but there is no step to attach
		// interpreted facts to. This keeps facts from leaking onto the
		// next step - per-step facts derive only from clips observed
		// inside that step's boundary.
		return
	}

	if hr.Exception != nil {
		p.builder.RecordError(hr.Exception.Message, hr.Exception.HResult)
	}

	res := Interpret(Context{
		Kind:    KindOf(handler),
		Handler: handler,
		Result:  hr,
		Step:    p.builder,
		Bag:     p.acc,
	})

	if res.Statebag != nil {
		p.acc.Apply(res.Statebag)
	}
	if res.PushJourney != nil && p.journeys != nil {
		p.journeys.Push(res.PushJourney.ID, res.PushJourney.Name, sc.Timestamp)
	}
	if res.PopJourney && p.journeys != nil {
		p.journeys.Pop()
	}
	if res.Outcome == OutcomeFinalize {
		p.sealOpenStep()
	}
}

// sealOpenStep pushes the step under construction to the output list,
// registers it with the execution map, and clears the step scope. No-op
// while Idle.
func (p *parser) sealOpenStep() {
	if p.builder == nil {
		return
	}
	step := p.builder.Seal(len(p.steps), p.acc.ClaimsSnapshot(), p.acc.StatebagSnapshot())
	p.steps = append(p.steps, step)
	p.execMap.AddStep(step)
	p.lastSealedStatebag = step.StatebagSnapshot
	p.builder = nil
	p.acc.ClearStepScope()
}

// currentJourney returns the journey context for a step opening at ts,
// lazily creating a root when the stream carried no usable Headers clip
// before the first boundary.
func (p *parser) currentJourney(ts time.Time) JourneyEntry {
	if p.journeys == nil {
		p.journeys = NewJourneyStack(p.mainJourneyID, "", ts)
	}
	return p.journeys.Current()
}

// boundaryStep extracts the ORCH_CS value from a boundary candidate's
// statebag. ok is false when the key is absent or non-numeric.
func boundaryStep(hr *clip.HandlerResult) (int, bool) {
	entry, ok := hr.Statebag[clip.KeyOrchestrationStep]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(entry.Value)
	if err != nil {
		return 0, false
	}
	return n, true
}
