package trace

import "time"

// JourneyEntry is one frame of the journey stack. Depth 0 is the main
// journey; each push represents entry into a sub-journey.
type JourneyEntry struct {
	JourneyID    string    `json:"journey_id"`
	JourneyName  string    `json:"journey_name,omitempty"`
	LastOrchStep int       `json:"last_orch_step"`
	EntryTime    time.Time `json:"entry_time"`
	Depth        int       `json:"depth"`
}

// JourneyStack tracks nested journey contexts during interpretation.
// Mutation is exclusive to the parser; consumers read the entries for
// breadcrumb display only.
//
// The root entry is never poppable: Pop and PopUntil stop when only the
// root remains.
type JourneyStack struct {
	entries []JourneyEntry
}

// NewJourneyStack creates a stack holding only the root (main journey)
// entry at depth 0.
func NewJourneyStack(journeyID, journeyName string, entryTime time.Time) *JourneyStack {
	return &JourneyStack{
		entries: []JourneyEntry{{
			JourneyID:   journeyID,
			JourneyName: journeyName,
			EntryTime:   entryTime,
			Depth:       0,
		}},
	}
}

// Push enters a sub-journey. Depth is assigned from the stack height.
func (s *JourneyStack) Push(journeyID, journeyName string, entryTime time.Time) {
	s.entries = append(s.entries, JourneyEntry{
		JourneyID:   journeyID,
		JourneyName: journeyName,
		EntryTime:   entryTime,
		Depth:       len(s.entries),
	})
}

// Pop returns from the current sub-journey. Popping with only the root
// remaining is a no-op returning nil.
func (s *JourneyStack) Pop() *JourneyEntry {
	if len(s.entries) <= 1 {
		return nil
	}
	top := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return &top
}

// Current returns the entry on top of the stack.
func (s *JourneyStack) Current() JourneyEntry {
	return s.entries[len(s.entries)-1]
}

// Parent returns the entry below the top, or nil at the root.
func (s *JourneyStack) Parent() *JourneyEntry {
	if len(s.entries) <= 1 {
		return nil
	}
	parent := s.entries[len(s.entries)-2]
	return &parent
}

// Root returns the main-journey entry.
func (s *JourneyStack) Root() JourneyEntry {
	return s.entries[0]
}

// Depth returns the current nesting depth. 0 = root.
func (s *JourneyStack) Depth() int {
	return len(s.entries) - 1
}

// SetLastStep records the most recent orchestration step number on the
// current entry.
func (s *JourneyStack) SetLastStep(step int) {
	s.entries[len(s.entries)-1].LastOrchStep = step
}

// PopUntil pops until the current entry matches journeyID, or until only
// the root remains. Returns the popped entries in pop order.
func (s *JourneyStack) PopUntil(journeyID string) []JourneyEntry {
	var popped []JourneyEntry
	for len(s.entries) > 1 && s.Current().JourneyID != journeyID {
		popped = append(popped, *s.Pop())
	}
	return popped
}

// Snapshot captures the stack for transactional rollback during
// speculative boundary detection.
func (s *JourneyStack) Snapshot() []JourneyEntry {
	snap := make([]JourneyEntry, len(s.entries))
	copy(snap, s.entries)
	return snap
}

// Restore rewinds the stack to a previous Snapshot.
func (s *JourneyStack) Restore(snap []JourneyEntry) {
	s.entries = make([]JourneyEntry, len(snap))
	copy(s.entries, snap)
}
