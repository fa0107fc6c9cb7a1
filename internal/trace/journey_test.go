package trace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func journeyStackForTest(t *testing.T) *JourneyStack {
	t.Helper()
	return NewJourneyStack("corr-1", "SignUpOrSignIn", time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC))
}

func TestJourneyStackRootIsNeverPopped(t *testing.T) {
	s := journeyStackForTest(t)

	assert.Nil(t, s.Pop())
	assert.Nil(t, s.Pop())
	assert.Equal(t, "corr-1", s.Current().JourneyID)
	assert.Equal(t, 0, s.Depth())
}

func TestJourneyStackPushPop(t *testing.T) {
	s := journeyStackForTest(t)
	ts := time.Date(2026, 1, 15, 10, 0, 5, 0, time.UTC)

	s.Push("sub-1", "PasswordReset", ts)
	assert.Equal(t, 1, s.Depth())
	assert.Equal(t, "sub-1", s.Current().JourneyID)
	assert.Equal(t, 1, s.Current().Depth)

	parent := s.Parent()
	require.NotNil(t, parent)
	assert.Equal(t, "corr-1", parent.JourneyID)

	popped := s.Pop()
	require.NotNil(t, popped)
	assert.Equal(t, "sub-1", popped.JourneyID)
	assert.Equal(t, 0, s.Depth())
	assert.Nil(t, s.Parent())
}

func TestJourneyStackSetLastStepTargetsCurrent(t *testing.T) {
	s := journeyStackForTest(t)
	s.SetLastStep(2)
	s.Push("sub-1", "MFA", time.Now())
	s.SetLastStep(7)

	assert.Equal(t, 7, s.Current().LastOrchStep)
	s.Pop()
	assert.Equal(t, 2, s.Current().LastOrchStep, "parent's progress is untouched by sub-journey steps")
}

func TestJourneyStackPopUntil(t *testing.T) {
	s := journeyStackForTest(t)
	now := time.Now()
	s.Push("sub-1", "A", now)
	s.Push("sub-2", "B", now)
	s.Push("sub-3", "C", now)

	popped := s.PopUntil("sub-1")
	require.Len(t, popped, 2)
	assert.Equal(t, "sub-3", popped[0].JourneyID)
	assert.Equal(t, "sub-2", popped[1].JourneyID)
	assert.Equal(t, "sub-1", s.Current().JourneyID)

	// Unknown target unwinds to the root but no further.
	popped = s.PopUntil("missing")
	require.Len(t, popped, 1)
	assert.Equal(t, "corr-1", s.Current().JourneyID)
	assert.Equal(t, 0, s.Depth())
}

func TestJourneyStackSnapshotRestore(t *testing.T) {
	s := journeyStackForTest(t)
	now := time.Now()
	s.Push("sub-1", "A", now)

	snap := s.Snapshot()
	s.Push("sub-2", "B", now)
	s.SetLastStep(9)

	s.Restore(snap)
	assert.Equal(t, 1, s.Depth())
	assert.Equal(t, "sub-1", s.Current().JourneyID)
	assert.Equal(t, 0, s.Current().LastOrchStep)
}
