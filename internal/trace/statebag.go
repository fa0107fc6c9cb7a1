package trace

import (
	"strconv"

	"github.com/kwilcz/traceflow/internal/clip"
)

// statebagDenylist rejects keys that corrupt map-based consumers of the
// snapshot downstream. The denylist is part of the data format's defensive
// contract and is preserved regardless of the host language's own attack
// surface.
var statebagDenylist = map[string]struct{}{
	"__proto__":   {},
	"constructor": {},
	"prototype":   {},
}

// Accumulator maintains the two statebag persistence scopes during
// interpretation: the step-scoped map, cleared at every step boundary, and
// the persistent claims map, which survives for the whole journey.
//
// Accumulators are constructed fresh per Parse call and owned exclusively
// by the parser. Normal operation never returns an error; malformed
// entries are skipped, not fatal.
type Accumulator struct {
	step   map[string]string
	claims map[string]string

	// Dedicated trackers for the reserved orchestration keys. These
	// survive ClearStepScope so the parser can compare step numbers
	// across boundaries.
	orchStep     string
	machineState string
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		step:   make(map[string]string),
		claims: make(map[string]string),
	}
}

// Apply folds an incoming statebag into the accumulator. Claims-namespace
// entries merge into the persistent claims map; everything else lands in
// the step-scoped map. Denylisted keys are dropped silently.
func (a *Accumulator) Apply(bag clip.Statebag) {
	for key, entry := range bag {
		a.ApplyEntry(key, entry)
	}
}

// ApplyEntry folds a single statebag entry into the accumulator.
func (a *Accumulator) ApplyEntry(key string, entry clip.Entry) {
	if _, denied := statebagDenylist[key]; denied {
		return
	}

	if key == clip.KeyComplexClaims {
		for claim, value := range entry.Claims {
			if _, denied := statebagDenylist[claim]; denied {
				continue
			}
			a.claims[claim] = value
		}
		return
	}

	a.step[key] = entry.Value
	switch key {
	case clip.KeyOrchestrationStep:
		a.orchStep = entry.Value
	case clip.KeyMachineState:
		a.machineState = entry.Value
	}
}

// ClearStepScope empties the step-scoped map. The claims map and the
// tracked orchestration step / machine state are untouched. Called exactly
// once per step boundary, before the new step's clips accumulate.
func (a *Accumulator) ClearStepScope() {
	a.step = make(map[string]string)
}

// Get returns a step-scoped value.
func (a *Accumulator) Get(key string) (string, bool) {
	v, ok := a.step[key]
	return v, ok
}

// OrchestrationStep returns the tracked ORCH_CS value parsed as an
// integer. ok is false when no step number has been seen or the value is
// not numeric.
func (a *Accumulator) OrchestrationStep() (int, bool) {
	if a.orchStep == "" {
		return 0, false
	}
	n, err := strconv.Atoi(a.orchStep)
	if err != nil {
		return 0, false
	}
	return n, true
}

// MachineState returns the tracked MACHSTATE label.
func (a *Accumulator) MachineState() string {
	return a.machineState
}

// StatebagSnapshot returns a defensive copy of the step-scoped map.
func (a *Accumulator) StatebagSnapshot() map[string]string {
	return copyStringMap(a.step)
}

// ClaimsSnapshot returns a defensive copy of the persistent claims map.
func (a *Accumulator) ClaimsSnapshot() map[string]string {
	return copyStringMap(a.claims)
}

// Clone deep-copies the accumulator, used when interpretation needs to
// branch speculatively before committing to a step boundary.
func (a *Accumulator) Clone() *Accumulator {
	return &Accumulator{
		step:         copyStringMap(a.step),
		claims:       copyStringMap(a.claims),
		orchStep:     a.orchStep,
		machineState: a.machineState,
	}
}

func copyStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
