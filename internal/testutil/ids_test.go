package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequencedIDGenerator(t *testing.T) {
	gen := NewSequencedIDGenerator("batch")

	assert.Equal(t, "batch-1", gen.Next())
	assert.Equal(t, "batch-2", gen.Next())

	gen.Reset()
	assert.Equal(t, "batch-1", gen.Next())
}

func TestJourneyBuilderAssignsSequencedIDs(t *testing.T) {
	inputs := NewJourney("B2C_1A_test", "corr-ids").
		Batch(0).Headers("AUTH").Done().
		Batch(0).Headers("AUTH").Done().
		Build()

	assert.Equal(t, "input-1", inputs[0].ID)
	assert.Equal(t, "input-2", inputs[1].ID)
}
