package trace

import (
	"sort"
	"time"

	"github.com/kwilcz/traceflow/internal/clip"
)

// sequencedClip is one clip annotated with its batch provenance after the
// merge: the batch timestamp, the owning policy, and the batch's arrival
// position for tie-breaking.
type sequencedClip struct {
	clip.Clip
	Timestamp time.Time
	PolicyID  string
	InputID   string
}

// mergeInputs stitches the clip arrays of every batch into one logical
// stream. Batches are ordered by (timestamp, arrival order); clip order
// within one batch is preserved. The sort is stable, so equal timestamps
// keep their arrival order and reparsing the same slice is deterministic.
func mergeInputs(inputs []clip.TraceLogInput) []sequencedClip {
	ordered := make([]clip.TraceLogInput, len(inputs))
	copy(ordered, inputs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	var stream []sequencedClip
	for _, input := range ordered {
		for _, c := range input.Clips {
			stream = append(stream, sequencedClip{
				Clip:      c,
				Timestamp: input.Timestamp,
				PolicyID:  input.PolicyID,
				InputID:   input.ID,
			})
		}
	}
	return stream
}

// filterSupported drops batches whose Headers carry an unsupported event
// type (protocol traffic: OIDC, METADATA, TOKEN, ...). Batches without a
// Headers clip are continuation fragments and are kept. The second return
// is the count of supported Headers clips observed.
func filterSupported(inputs []clip.TraceLogInput) ([]clip.TraceLogInput, int) {
	var kept []clip.TraceLogInput
	supported := 0
	for _, input := range inputs {
		headers := findHeaders(input)
		if headers != nil && !SupportedEventType(headers.EventType()) {
			continue
		}
		if headers != nil {
			supported++
		}
		kept = append(kept, input)
	}
	return kept, supported
}

// findHeaders returns the batch's first Headers clip, if any.
func findHeaders(input clip.TraceLogInput) *clip.Headers {
	for _, c := range input.Clips {
		if c.Kind == clip.KindHeaders && c.Headers != nil {
			return c.Headers
		}
	}
	return nil
}
