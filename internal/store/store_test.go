package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwilcz/traceflow/internal/clip"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "traces.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func batchFixture(id, correlationID string, ts time.Time) clip.TraceLogInput {
	return clip.TraceLogInput{
		ID:            id,
		Timestamp:     ts,
		PolicyID:      "B2C_1A_signup_signin",
		CorrelationID: correlationID,
		Clips: []clip.Clip{
			{Kind: clip.KindAction, Statement: "Web.TPEngine.OrchestrationManager"},
			{Kind: clip.KindHandlerResult, HandlerResult: &clip.HandlerResult{
				Result: true,
				Statebag: clip.Statebag{
					"ORCH_CS": {Key: "ORCH_CS", Value: "1", Persisted: true},
				},
			}},
		},
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	assert.NoError(t, s2.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s2.verifyPragma("foreign_keys", "1"))

	var version int
	require.NoError(t, s2.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestWriteLogBatchIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	original := batchFixture("batch-1", "corr-1", ts)
	id, err := s.WriteLogBatch(ctx, original)
	require.NoError(t, err)
	assert.Equal(t, "batch-1", id)

	// Re-import with different content under the same id: silently ignored.
	modified := original
	modified.PolicyID = "B2C_1A_other"
	_, err = s.WriteLogBatch(ctx, modified)
	require.NoError(t, err)

	stored, err := s.ReadLogBatch(ctx, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, "B2C_1A_signup_signin", stored.PolicyID, "first write wins")
}

func TestWriteLogBatchAssignsID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	input := batchFixture("", "corr-1", time.Now().UTC())
	id1, err := s.WriteLogBatch(ctx, input)
	require.NoError(t, err)
	require.NotEmpty(t, id1)

	id2, err := s.WriteLogBatch(ctx, input)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2, "batches without stable ids are never deduplicated")
}

func TestReadCorrelationOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	// Inserted out of order; equal timestamps break ties by arrival.
	_, err := s.WriteLogBatch(ctx, batchFixture("late", "corr-1", base.Add(2*time.Second)))
	require.NoError(t, err)
	_, err = s.WriteLogBatch(ctx, batchFixture("tie-first", "corr-1", base))
	require.NoError(t, err)
	_, err = s.WriteLogBatch(ctx, batchFixture("tie-second", "corr-1", base))
	require.NoError(t, err)
	_, err = s.WriteLogBatch(ctx, batchFixture("other", "corr-2", base))
	require.NoError(t, err)

	inputs, err := s.ReadCorrelation(ctx, "corr-1")
	require.NoError(t, err)
	require.Len(t, inputs, 3)
	assert.Equal(t, "tie-first", inputs[0].ID)
	assert.Equal(t, "tie-second", inputs[1].ID)
	assert.Equal(t, "late", inputs[2].ID)

	empty, err := s.ReadCorrelation(ctx, "missing")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestLogBatchRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 1, 15, 10, 30, 45, 123456789, time.UTC)

	original := batchFixture("batch-rt", "corr-rt", ts)
	_, err := s.WriteLogBatch(ctx, original)
	require.NoError(t, err)

	stored, err := s.ReadLogBatch(ctx, "batch-rt")
	require.NoError(t, err)
	assert.True(t, ts.Equal(stored.Timestamp), "timestamps survive with nanosecond precision")
	require.Len(t, stored.Clips, 2)
	assert.Equal(t, clip.KindAction, stored.Clips[0].Kind)
	require.NotNil(t, stored.Clips[1].HandlerResult)
	assert.Equal(t, "1", stored.Clips[1].HandlerResult.Statebag["ORCH_CS"].Value)
}

func TestReadLogBatchNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.ReadLogBatch(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestWriteLogBatchesTransactional(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	ids, err := s.WriteLogBatches(ctx, []clip.TraceLogInput{
		batchFixture("b-1", "corr-1", base),
		batchFixture("b-2", "corr-1", base.Add(time.Second)),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b-1", "b-2"}, ids)

	inputs, err := s.ReadCorrelation(ctx, "corr-1")
	require.NoError(t, err)
	assert.Len(t, inputs, 2)
}

func TestListCorrelations(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	_, err := s.WriteLogBatch(ctx, batchFixture("a-1", "corr-a", base))
	require.NoError(t, err)
	_, err = s.WriteLogBatch(ctx, batchFixture("a-2", "corr-a", base.Add(time.Minute)))
	require.NoError(t, err)
	_, err = s.WriteLogBatch(ctx, batchFixture("b-1", "corr-b", base.Add(2*time.Minute)))
	require.NoError(t, err)

	summaries, err := s.ListCorrelations(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, "corr-b", summaries[0].CorrelationID, "newest activity first")
	assert.Equal(t, 1, summaries[0].BatchCount)

	assert.Equal(t, "corr-a", summaries[1].CorrelationID)
	assert.Equal(t, 2, summaries[1].BatchCount)
	assert.True(t, base.Equal(summaries[1].FirstSeen))
	assert.True(t, base.Add(time.Minute).Equal(summaries[1].LastSeen))
}
