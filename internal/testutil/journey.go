// Package testutil provides deterministic fixture builders for trace
// parser tests: synthetic journeys assembled clip by clip, with
// sequenced batch ids and fixed timestamps for golden comparison.
package testutil

import (
	"fmt"
	"time"

	"github.com/kwilcz/traceflow/internal/clip"
	"github.com/kwilcz/traceflow/internal/trace"
)

// BaseTime anchors every generated batch timestamp. Fixed so golden
// snapshots are stable.
var BaseTime = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

// JourneyBuilder assembles []clip.TraceLogInput fixtures for one
// correlation. Batches receive sequential ids and timestamps offset from
// BaseTime.
type JourneyBuilder struct {
	policyID      string
	correlationID string
	inputs        []clip.TraceLogInput
	ids           *SequencedIDGenerator
}

// NewJourney starts a fixture for the given policy and correlation.
func NewJourney(policyID, correlationID string) *JourneyBuilder {
	return &JourneyBuilder{
		policyID:      policyID,
		correlationID: correlationID,
		ids:           NewSequencedIDGenerator("input"),
	}
}

// Batch opens a new log batch stamped BaseTime+offset.
func (b *JourneyBuilder) Batch(offset time.Duration) *BatchBuilder {
	return &BatchBuilder{
		journey: b,
		input: clip.TraceLogInput{
			ID:            b.ids.Next(),
			Timestamp:     BaseTime.Add(offset),
			PolicyID:      b.policyID,
			CorrelationID: b.correlationID,
		},
	}
}

// Build returns the accumulated batches in append order. The caller may
// shuffle the slice to exercise out-of-order stitching.
func (b *JourneyBuilder) Build() []clip.TraceLogInput {
	out := make([]clip.TraceLogInput, len(b.inputs))
	copy(out, b.inputs)
	return out
}

// BatchBuilder accumulates clips for one batch.
type BatchBuilder struct {
	journey *JourneyBuilder
	input   clip.TraceLogInput
}

// Headers appends a Headers clip with the given event type.
func (bb *BatchBuilder) Headers(eventType string) *BatchBuilder {
	bb.input.Clips = append(bb.input.Clips, clip.Clip{
		Kind: clip.KindHeaders,
		Headers: &clip.Headers{
			CorrelationID: bb.journey.correlationID,
			PolicyID:      bb.journey.policyID,
			EventInstance: "Event:" + eventType,
		},
	})
	return bb
}

// Action appends an Action clip naming a handler.
func (bb *BatchBuilder) Action(statement string) *BatchBuilder {
	bb.input.Clips = append(bb.input.Clips, clip.Clip{Kind: clip.KindAction, Statement: statement})
	return bb
}

// Predicate appends a Predicate clip naming a handler.
func (bb *BatchBuilder) Predicate(statement string) *BatchBuilder {
	bb.input.Clips = append(bb.input.Clips, clip.Clip{Kind: clip.KindPredicate, Statement: statement})
	return bb
}

// Result appends a HandlerResult clip.
func (bb *BatchBuilder) Result(hr clip.HandlerResult) *BatchBuilder {
	bb.input.Clips = append(bb.input.Clips, clip.Clip{Kind: clip.KindHandlerResult, HandlerResult: &hr})
	return bb
}

// Boundary appends the step-boundary pair: the coordinator Action clip
// immediately followed by a HandlerResult whose statebag carries ORCH_CS.
func (bb *BatchBuilder) Boundary(stepOrder int) *BatchBuilder {
	return bb.BoundaryWith(stepOrder, nil)
}

// BoundaryWith is Boundary with extra statebag entries on the boundary
// HandlerResult (claims, MACHSTATE, ...).
func (bb *BatchBuilder) BoundaryWith(stepOrder int, extra clip.Statebag) *BatchBuilder {
	bag := clip.Statebag{
		clip.KeyOrchestrationStep: {Key: clip.KeyOrchestrationStep, Value: fmt.Sprintf("%d", stepOrder)},
	}
	for k, v := range extra {
		bag[k] = v
	}
	bb.Action(trace.OrchestrationManager)
	return bb.Result(clip.HandlerResult{Result: true, Statebag: bag})
}

// Done closes the batch and returns to the journey builder.
func (bb *BatchBuilder) Done() *JourneyBuilder {
	bb.journey.inputs = append(bb.journey.inputs, bb.input)
	return bb.journey
}

// Bag builds a statebag of scalar entries.
func Bag(kv map[string]string) clip.Statebag {
	bag := make(clip.Statebag, len(kv))
	for k, v := range kv {
		bag[k] = clip.Entry{Key: k, Value: v}
	}
	return bag
}

// BagWithClaims builds a statebag of scalar entries plus a
// claims-namespace entry.
func BagWithClaims(kv, claims map[string]string) clip.Statebag {
	bag := Bag(kv)
	bag[clip.KeyComplexClaims] = clip.Entry{Key: clip.KeyComplexClaims, Claims: claims}
	return bag
}

// Rec builds a record from entries.
func Rec(entries ...clip.RecordEntry) *clip.Record {
	return &clip.Record{Values: entries}
}

// Str builds a scalar record entry.
func Str(key, value string) clip.RecordEntry {
	return clip.RecordEntry{Key: key, Value: clip.RecordValue{Text: value}}
}

// Nested builds a record entry holding a nested record.
func Nested(key string, rec *clip.Record) clip.RecordEntry {
	return clip.RecordEntry{Key: key, Value: clip.RecordValue{Record: rec}}
}

// EnabledProfiles builds one EnabledForUserJourneysTrue group offering
// the given technical profiles.
func EnabledProfiles(names ...string) clip.RecordEntry {
	group := &clip.Record{}
	for _, name := range names {
		group.Values = append(group.Values, Nested("TechnicalProfileEnabled", Rec(
			Str("TechnicalProfile", name),
			Str("Enabled", "True"),
		)))
	}
	return Nested("EnabledForUserJourneysTrue", group)
}

// InitiatingExchange builds an InitiatingClaimsExchange record entry.
func InitiatingExchange(technicalProfileID, providerType string) clip.RecordEntry {
	return Nested("InitiatingClaimsExchange", Rec(
		Str("TechnicalProfileId", technicalProfileID),
		Str("ProtocolProviderType", providerType),
	))
}
